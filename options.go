package epub

import (
	"log/slog"

	"github.com/spf13/afero"
)

// MimeDetector returns the content type of the named file. It is the MIME
// oracle consulted by Load before anything is extracted.
type MimeDetector func(fsys afero.Fs, name string) (string, error)

type options struct {
	fs              afero.Fs
	logger          *slog.Logger
	detectMimeType  MimeDetector
	tempDir         string
	maxEntrySize    int64
	maxTotalSize    int64
	maxEntries      int
	searchCacheSize int
}

// Option configures a Document.
type Option func(*options)

func defaultOptions() options {
	return options{
		fs:              afero.NewOsFs(),
		logger:          slog.Default(),
		detectMimeType:  DetectMimeType,
		maxEntrySize:    maxDecompressSize,
		maxTotalSize:    maxTotalSize,
		maxEntries:      maxEntries,
		searchCacheSize: 64,
	}
}

// WithFs sets the filesystem holding the archive and the working directory.
// Defaults to the OS filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(o *options) {
		if fsys != nil {
			o.fs = fsys
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMimeDetector replaces the MIME oracle. Defaults to DetectMimeType,
// which only accepts archives whose first entry is the mimetype file; a
// detector that accepts other zips lets Load open them with a warning.
func WithMimeDetector(detect MimeDetector) Option {
	return func(o *options) {
		if detect != nil {
			o.detectMimeType = detect
		}
	}
}

// WithTempDir sets the parent directory under which working directories are
// created. Defaults to the OS temporary directory.
func WithTempDir(dir string) Option {
	return func(o *options) {
		o.tempDir = dir
	}
}

// WithMaxEntrySize limits the decompressed size of a single archive entry.
func WithMaxEntrySize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntrySize = n
		}
	}
}

// WithMaxTotalSize limits the decompressed size of the whole archive.
func WithMaxTotalSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTotalSize = n
		}
	}
}

// WithMaxEntries limits the number of entries an archive may contain.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// WithSearchCacheSize sets how many extracted page texts are kept for
// FindText. Zero disables the cache.
func WithSearchCacheSize(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.searchCacheSize = n
		}
	}
}
