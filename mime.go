package epub

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// acceptedMimeTypes are the content types Load agrees to extract.
var acceptedMimeTypes = []string{
	"application/epub+zip",
	"application/x-booki+zip",
}

// DetectMimeType sniffs the content type of the named file from its leading
// bytes. An ePub is recognised by its stored "mimetype" first entry.
func DetectMimeType(fsys afero.Fs, name string) (string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", errors.Wrapf(err, "could not detect mime type of '%s'", name)
	}

	return mt.String(), nil
}

// isAcceptedMimeType reports whether contentType, parameters ignored, is
// one of the ePub types.
func isAcceptedMimeType(contentType string) bool {
	base, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		base = strings.ToLower(strings.TrimSpace(contentType))
	}
	for _, accepted := range acceptedMimeTypes {
		if base == accepted {
			return true
		}
	}
	return false
}
