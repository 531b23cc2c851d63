package epub

import (
	"archive/zip"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// materializer extracts an archive into a private working directory.
type materializer struct {
	fs           afero.Fs
	logger       *slog.Logger
	tempDir      string
	maxEntrySize int64
	maxTotalSize int64
	maxEntries   int
}

// extraction summarises one extracted archive.
type extraction struct {
	files    int
	dirs     int
	bytes    int64
	warnings []string
}

func newMaterializer(o options) *materializer {
	return &materializer{
		fs:           o.fs,
		logger:       o.logger,
		tempDir:      o.tempDir,
		maxEntrySize: o.maxEntrySize,
		maxTotalSize: o.maxTotalSize,
		maxEntries:   o.maxEntries,
	}
}

// createWorkDir creates a fresh, uniquely named directory for archivePath.
// The name is derived from the archive's base name.
func (m *materializer) createWorkDir(archivePath string) (string, error) {
	parent := m.tempDir
	if parent == "" {
		parent = os.TempDir()
	}
	if err := m.fs.MkdirAll(parent, 0o755); err != nil {
		return "", newError(KindIO, "create temporary directory parent", errors.WithStack(err))
	}

	prefix := filepath.Base(archivePath) + "-"
	dir, err := afero.TempDir(m.fs, parent, prefix)
	if err != nil {
		return "", newError(KindIO, "create temporary directory", errors.WithStack(err))
	}

	m.logger.Debug("created working directory", slog.String("dir", dir))

	return dir, nil
}

// extract writes every entry of the archive at archivePath below workDir.
// Directory entries become directories; file entries are written with their
// parent directories created as needed. Extraction stops at the first error.
func (m *materializer) extract(archivePath, workDir string) (*extraction, error) {
	f, err := m.fs.Open(archivePath)
	if err != nil {
		return nil, newError(KindCorruptArchive, "could not open archive", errors.WithStack(err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, newError(KindCorruptArchive, "could not open archive", errors.WithStack(err))
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, newError(KindCorruptArchive, "could not open archive", errors.WithStack(err))
	}

	if len(zr.File) == 0 {
		return nil, newError(KindCorruptArchive, "could not extract archive: no entries", nil)
	}
	if len(zr.File) > m.maxEntries {
		return nil, newError(KindCorruptArchive, "could not extract archive: too many entries", nil)
	}

	result := &extraction{}
	if zr.File[0].Name != "mimetype" {
		result.warnings = append(result.warnings, "first ZIP entry is not \"mimetype\"")
	}

	for _, zf := range zr.File {
		if err := m.extractEntry(zf, workDir, result); err != nil {
			return nil, err
		}
	}

	m.logger.Debug("extracted archive",
		slog.String("archive", archivePath),
		slog.Int("files", result.files),
		slog.Int("dirs", result.dirs),
		slog.Int64("bytes", result.bytes),
	)

	return result, nil
}

func (m *materializer) extractEntry(zf *zip.File, workDir string, result *extraction) error {
	name := strings.TrimSuffix(zf.Name, "/")
	if name == "" || !isSafePath(name) {
		return newError(KindCorruptArchive, "unsafe zip entry path "+zf.Name, nil)
	}
	dest := filepath.Join(workDir, filepath.FromSlash(name))

	if isDirEntry(zf) {
		if err := m.fs.MkdirAll(dest, 0o755); err != nil {
			return newError(KindIO, "create directory "+name, errors.WithStack(err))
		}
		result.dirs++
		return nil
	}

	if err := m.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return newError(KindIO, "create directory for "+name, errors.WithStack(err))
	}

	// Duplicate entries: the first one wins.
	if exists, _ := afero.Exists(m.fs, dest); exists {
		result.warnings = append(result.warnings, "duplicate zip entry "+zf.Name+" ignored")
		return nil
	}

	limit := m.maxEntrySize
	if remaining := m.maxTotalSize - result.bytes; remaining < limit {
		limit = remaining
	}

	out, err := m.fs.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return newError(KindIO, "create file "+name, errors.WithStack(err))
	}

	w := &trackingWriter{w: out}
	n, copyErr := copyZipEntry(w, zf, limit)
	closeErr := out.Close()

	switch {
	case w.err != nil:
		return newError(KindIO, "write file "+name, errors.WithStack(w.err))
	case copyErr != nil:
		return newError(KindCorruptArchive, "could not extract archive", copyErr)
	case closeErr != nil:
		return newError(KindIO, "write file "+name, errors.WithStack(closeErr))
	}

	result.files++
	result.bytes += n

	return nil
}

// trackingWriter records the first write error so that extraction can tell
// a failing destination from a corrupt source stream.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}
	return n, err
}
