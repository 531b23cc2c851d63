package epub

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/bornholm/go-x/slogx"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Viewer is the surface a hosting document viewer needs.
type Viewer interface {
	Load(uri string) error
	PageCount() int
	Page(index int) (Page, error)
	Info() DocumentInfo
	NavigationTree() []NavEntry
}

var _ Viewer = (*Document)(nil)

// Document is an ePub extracted to a private working directory, with its
// reading sequence and table of contents indexed.
//
// A Document is not safe for concurrent use by multiple goroutines. Separate
// Documents share no state and may be loaded concurrently.
type Document struct {
	opts options

	archivePath    string
	workDir        string
	contentBaseDir string
	packagePath    string

	contentList []ContentEntry
	navigation  []NavEntry
	navTitle    string
	metadata    Metadata

	extracted *extraction
	texts     *pageTextCache
	warnings  []string

	loaded bool
	closed bool
}

// New returns an empty Document. Call Load to populate it.
func New(opts ...Option) *Document {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Document{opts: o}
}

// Open creates a Document and loads the archive at uri.
// The caller must call Close when done with the document.
func Open(uri string, opts ...Option) (*Document, error) {
	d := New(opts...)
	if err := d.Load(uri); err != nil {
		return nil, err
	}
	return d, nil
}

// Load validates, extracts and indexes the archive at uri, which may be a
// filesystem path or a file:// URI. Any failure removes the working
// directory and leaves the Document empty; no partial result is kept.
func (d *Document) Load(uri string) error {
	switch {
	case d.closed:
		return newError(KindClosed, "", nil)
	case d.loaded:
		return newError(KindIO, "document already loaded", nil)
	}

	archivePath, err := pathFromURI(uri)
	if err != nil {
		return newError(KindIO, "could not retrieve filename", errors.WithStack(err))
	}

	log := d.opts.logger.With(slog.String("archive", archivePath))
	d.warnings = nil

	mt, err := d.opts.detectMimeType(d.opts.fs, archivePath)
	if err != nil {
		return newError(KindInvalidFormat, "unknown MIME type", err)
	}
	if !isAcceptedMimeType(mt) {
		return newError(KindInvalidFormat, fmt.Sprintf("not an ePub document (%s)", mt), nil)
	}

	m := newMaterializer(d.opts)
	workDir, err := m.createWorkDir(archivePath)
	if err != nil {
		return err
	}

	d.archivePath = archivePath
	d.workDir = workDir

	if err := d.load(m, log); err != nil {
		log.Debug("load failed", slogx.Error(err))
		d.teardown()
		return err
	}

	d.texts = newPageTextCache(d.opts.fs, d.opts.searchCacheSize)
	d.loaded = true

	log.Debug("document loaded",
		slog.Int("pages", len(d.contentList)),
		slog.Int("navigation", len(d.navigation)),
	)

	return nil
}

// load runs the pipeline once the working directory exists.
func (d *Document) load(m *materializer, log *slog.Logger) error {
	fsys := d.opts.fs

	extracted, err := m.extract(d.archivePath, d.workDir)
	if err != nil {
		return err
	}
	d.extracted = extracted
	d.warnings = append(d.warnings, extracted.warnings...)

	fontObfuscation, err := checkDRM(fsys, d.workDir)
	if err != nil {
		return err
	}
	if fontObfuscation {
		d.warnings = append(d.warnings, "font obfuscation detected; obfuscated fonts may not render correctly")
	}

	loc, err := locatePackageDocument(fsys, d.workDir)
	if err != nil {
		return err
	}
	d.contentBaseDir = loc.ContentBaseDir
	d.packagePath = loc.Path

	log.Debug("located package document", slog.String("uri", loc.URI))

	pkg, err := openPackageDocument(fsys, loc)
	if err != nil {
		return err
	}

	var navigation *navigationIndex
	if ncx, ok := locateNCX(pkg, loc.ContentBaseDir); ok {
		if ncxPath, found := lookupInsensitive(fsys, d.workDir, ncx); found {
			navigation, err = buildNavigationIndex(fsys, ncxPath, d.workDir, loc.ContentBaseDir)
			if err != nil {
				return err
			}
		} else {
			d.warnings = append(d.warnings, "NCX document "+ncx+" not found in archive")
		}
	} else {
		d.warnings = append(d.warnings, "package document references no NCX table of contents")
	}

	var flat []*NavEntry
	if navigation != nil {
		flattenNavEntries(&flat, navigation.entries)
	}

	contentList, err := buildContentList(pkg, d.workDir, loc.ContentBaseDir, flat)
	if err != nil {
		return err
	}

	d.contentList = contentList
	if navigation != nil {
		d.navigation = navigation.entries
		d.navTitle = navigation.title
	}
	d.metadata = extractMetadata(pkg)

	return nil
}

// Close removes the working directory and releases the indexes. It is
// idempotent and never fails: a directory that cannot be removed is logged
// as a warning.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.teardown()
	return nil
}

func (d *Document) teardown() {
	if d.workDir != "" {
		if err := d.opts.fs.RemoveAll(d.workDir); err != nil {
			d.opts.logger.Warn("could not remove working directory",
				slog.String("dir", d.workDir),
				slogx.Error(err),
			)
		}
	}
	d.texts.purge()

	d.workDir = ""
	d.contentBaseDir = ""
	d.packagePath = ""
	d.contentList = nil
	d.navigation = nil
	d.navTitle = ""
	d.metadata = Metadata{}
	d.extracted = nil
	d.texts = nil
	d.loaded = false
}

// PageCount returns the number of pages in the reading sequence.
func (d *Document) PageCount() int {
	return len(d.contentList)
}

// Page returns the page at the zero-based index.
func (d *Document) Page(index int) (Page, error) {
	if index < 0 || index >= len(d.contentList) {
		return Page{}, newError(KindPageRange, fmt.Sprintf("page %d out of range [0, %d)", index, len(d.contentList)), nil)
	}
	c := d.contentList[index]
	return Page{
		Index:       index,
		Ordinal:     c.Ordinal,
		ID:          c.ID,
		Href:        c.Href,
		Path:        c.Path,
		LocationURI: c.LocationURI,
	}, nil
}

// ContentList returns the spine-ordered content entries.
func (d *Document) ContentList() []ContentEntry {
	return append([]ContentEntry(nil), d.contentList...)
}

// Info returns the document summary. Its PageCount always equals PageCount().
func (d *Document) Info() DocumentInfo {
	return documentInfo(d.metadata, d.navTitle, d.PageCount())
}

// Metadata returns the Dublin Core metadata of the package document.
func (d *Document) Metadata() Metadata {
	return copyMetadata(d.metadata)
}

// Title returns the document title as used for the navigation root.
func (d *Document) Title() string {
	return d.Info().Title
}

// HasNavigation reports whether the document has a table of contents.
func (d *Document) HasNavigation() bool {
	return len(d.navigation) > 0
}

// NavigationTree returns the table of contents with nesting preserved.
func (d *Document) NavigationTree() []NavEntry {
	return copyNavEntries(d.navigation)
}

// FlatNavigation returns the table of contents flattened in document order.
// Children are omitted from the returned entries.
func (d *Document) FlatNavigation() []NavEntry {
	var flat []*NavEntry
	flattenNavEntries(&flat, d.navigation)
	out := make([]NavEntry, 0, len(flat))
	for _, e := range flat {
		entry := *e
		entry.Children = nil
		out = append(out, entry)
	}
	return out
}

// LinksTree returns a root entry labelled with the document title that
// points at the first page and holds the navigation tree as children.
func (d *Document) LinksTree() NavEntry {
	root := NavEntry{
		Label:    d.Title(),
		Page:     0,
		Children: d.NavigationTree(),
	}
	if len(d.contentList) > 0 {
		root.Href = d.contentList[0].Href
		root.TargetURI = d.contentList[0].LocationURI
	} else {
		root.Page = -1
	}
	return root
}

// PageText returns the readable text of the page at index.
func (d *Document) PageText(index int) (string, error) {
	if d.closed {
		return "", newError(KindClosed, "", nil)
	}
	p, err := d.Page(index)
	if err != nil {
		return "", err
	}
	return d.texts.text(p.Path)
}

// FindText reports whether the page at index contains query.
func (d *Document) FindText(index int, query string, caseSensitive bool) (bool, error) {
	text, err := d.PageText(index)
	if err != nil {
		return false, err
	}
	return containsText(text, query, caseSensitive), nil
}

// Save copies the source archive to dst on the document's filesystem. The
// copy is written next to dst and renamed into place, so an existing file at
// dst is only replaced once the copy is complete. Saving onto the archive
// itself is a no-op.
func (d *Document) Save(dst string) error {
	if !d.loaded {
		return newError(KindClosed, "no archive loaded", nil)
	}
	target, err := pathFromURI(dst)
	if err != nil {
		return newError(KindIO, "could not retrieve filename", errors.WithStack(err))
	}
	if filepath.Clean(target) == filepath.Clean(d.archivePath) {
		return nil
	}

	fsys := d.opts.fs
	dir := filepath.Dir(target)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return newError(KindIO, "create directory for "+target, errors.WithStack(err))
	}

	tmp, err := afero.TempFile(fsys, dir, "."+filepath.Base(target)+"-*")
	if err != nil {
		return newError(KindIO, "create "+target, errors.WithStack(err))
	}
	tmpName := tmp.Name()

	if err := copyArchive(fsys, d.archivePath, tmp); err != nil {
		_ = fsys.Remove(tmpName)
		return newError(KindIO, "write "+target, err)
	}
	if err := fsys.Rename(tmpName, target); err != nil {
		_ = fsys.Remove(tmpName)
		return newError(KindIO, "write "+target, errors.WithStack(err))
	}

	return nil
}

// copyArchive copies the file at src into out and closes out.
func copyArchive(fsys afero.Fs, src string, out afero.File) error {
	in, err := fsys.Open(src)
	if err != nil {
		out.Close()
		return errors.WithStack(err)
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.WithStack(err)
	}
	return errors.WithStack(out.Close())
}

// ArchivePath returns the path of the loaded archive.
func (d *Document) ArchivePath() string {
	return d.archivePath
}

// WorkingDirectory returns the root of the extracted tree, or "" once closed.
func (d *Document) WorkingDirectory() string {
	return d.workDir
}

// ContentBaseDirectory returns the archive-relative directory holding the
// package document; "" when it sits at the archive root.
func (d *Document) ContentBaseDirectory() string {
	return d.contentBaseDir
}

// ExtractedSize returns the number of bytes written during extraction.
func (d *Document) ExtractedSize() int64 {
	if d.extracted == nil {
		return 0
	}
	return d.extracted.bytes
}

// Warnings returns the non-fatal anomalies collected while loading.
func (d *Document) Warnings() []string {
	return append([]string(nil), d.warnings...)
}
