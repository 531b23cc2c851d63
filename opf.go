package epub

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/spf13/afero"
)

// openPackageDocument parses the OPF file at loc and verifies its root.
func openPackageDocument(fsys afero.Fs, loc packageLocation) (*xmlDocument, error) {
	return openXMLDocument(fsys, loc.Path, "package", KindInvalidPackage)
}

// packageVersion returns the package version attribute, defaulting to 2.0.
func packageVersion(pkg *xmlDocument) string {
	if v, ok := getAttribute(pkg.root, "version"); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return "2.0"
}

// locateNCX returns the archive-relative path of the NCX document named by
// the spine's toc attribute. It reports false when the package references
// no NCX or the reference does not resolve to a manifest item.
func locateNCX(pkg *xmlDocument, contentBaseDir string) (string, bool) {
	spine := pkg.find("spine", "", "")
	manifest := pkg.find("manifest", "", "")
	if spine == nil || manifest == nil {
		return "", false
	}

	tocID, ok := getAttribute(spine, "toc")
	if !ok || strings.TrimSpace(tocID) == "" {
		return "", false
	}

	item := findDescendant(manifest, "item", "id", tocID)
	if item == nil {
		return "", false
	}

	href, ok := getAttribute(item, "href")
	if !ok {
		return "", false
	}

	rel, err := resolveHref(contentBaseDir, href)
	if err != nil {
		return "", false
	}

	return rel, true
}

// buildContentList walks the spine in document order and produces one
// ContentEntry per itemref, numbered from 1. Each new entry is linked to
// the navigation entries in nav before the walk moves on. Any failure
// discards the whole list.
func buildContentList(pkg *xmlDocument, workDir, contentBaseDir string, nav []*NavEntry) ([]ContentEntry, error) {
	spine := pkg.find("spine", "", "")
	if spine == nil {
		return nil, newError(KindMissingManifestOrSpine, "epub file has no spine", nil)
	}

	manifest := pkg.find("manifest", "", "")
	if manifest == nil {
		return nil, newError(KindMissingManifestOrSpine, "epub file has no manifest", nil)
	}

	linker := newNavLinker(nav)

	var entries []ContentEntry
	for _, itemref := range spine.ChildElements() {
		if itemref.Tag != "itemref" {
			continue
		}

		entry, err := newContentEntry(itemref, manifest, workDir, contentBaseDir, len(entries)+1)
		if err != nil {
			return nil, err
		}

		linker.link(entry)
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, newError(KindMissingManifestOrSpine, "spine has no itemref", nil)
	}

	return entries, nil
}

// newContentEntry resolves one spine itemref through the manifest.
func newContentEntry(itemref, manifest *etree.Element, workDir, contentBaseDir string, ordinal int) (ContentEntry, error) {
	idref, ok := getAttribute(itemref, "idref")
	if !ok || idref == "" {
		return ContentEntry{}, newError(KindMissingIdref, fmt.Sprintf("spine itemref %d has no idref", ordinal), nil)
	}

	item := findDescendant(manifest, "item", "id", idref)
	if item == nil {
		return ContentEntry{}, newError(KindDanglingIdref, fmt.Sprintf("spine idref %q has no manifest item", idref), nil)
	}

	href, ok := getAttribute(item, "href")
	if !ok || strings.TrimSpace(href) == "" {
		return ContentEntry{}, newError(KindMissingHref, fmt.Sprintf("manifest item %q has no href", idref), nil)
	}

	rel, err := resolveHref(contentBaseDir, href)
	if err != nil {
		return ContentEntry{}, newError(KindMissingHref, fmt.Sprintf("manifest item %q", idref), err)
	}

	linear, _ := getAttribute(itemref, "linear")
	mediaType, _ := getAttribute(item, "media-type")
	fsPath := filepath.Join(workDir, filepath.FromSlash(rel))

	return ContentEntry{
		ID:          idref,
		Href:        rel,
		Path:        fsPath,
		LocationURI: fileURI(fsPath),
		MediaType:   mediaType,
		Linear:      linear != "no",
		Ordinal:     ordinal,
	}, nil
}

// navLinker assigns pages to navigation entries as content entries are
// created. Entries are visited in NCX document order. The boundary moves
// forward over the leading run of resolved entries and never moves back,
// so each content entry only scans entries the boundary has not yet passed.
// Entries without a target are passed over since they can never match.
//
// NCX order is assumed to roughly follow spine order: an entry whose page
// comes late in the spine holds the boundary back, and every content entry
// created meanwhile rescans the tail after it.
type navLinker struct {
	entries  []*NavEntry
	boundary int
}

func newNavLinker(entries []*NavEntry) *navLinker {
	return &navLinker{entries: entries}
}

// link resolves every still-unresolved entry whose target contains the
// content entry's location. The page assigned is zero-based.
func (l *navLinker) link(content ContentEntry) {
	for _, nav := range l.entries[l.boundary:] {
		if !nav.linkable() {
			continue
		}
		if strings.Contains(nav.TargetURI, content.LocationURI) {
			nav.Page = content.Ordinal - 1
		}
	}

	for l.boundary < len(l.entries) && !l.entries[l.boundary].linkable() {
		l.boundary++
	}
}
