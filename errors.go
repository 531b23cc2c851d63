package epub

import (
	"errors"
	"fmt"
)

// Kind classifies the failures surfaced by the load pipeline and the
// document accessors.
type Kind int

const (
	// KindUnknown is reported by KindOf for errors that did not originate
	// in this package.
	KindUnknown Kind = iota
	// KindInvalidFormat indicates the detected MIME type is not an ePub type.
	KindInvalidFormat
	// KindCorruptArchive indicates the zip container cannot be opened or extracted.
	KindCorruptArchive
	// KindCorruptContainer indicates META-INF/container.xml is missing,
	// has the wrong root element, or has a rootfile without full-path.
	KindCorruptContainer
	// KindNoPackageDocument indicates container.xml has no OEBPS rootfile.
	KindNoPackageDocument
	// KindInvalidPackage indicates the OPF root element is not <package>.
	KindInvalidPackage
	// KindMissingManifestOrSpine indicates the OPF lacks <manifest> or <spine>.
	KindMissingManifestOrSpine
	// KindMissingIdref indicates a spine itemref without an idref attribute.
	KindMissingIdref
	// KindDanglingIdref indicates a spine idref with no matching manifest item.
	KindDanglingIdref
	// KindMissingHref indicates a manifest item without a usable href.
	KindMissingHref
	// KindInvalidNavigation indicates a referenced NCX document is unusable.
	KindInvalidNavigation
	// KindParse indicates an XML document could not be parsed at all.
	KindParse
	// KindDRMProtected indicates the archive is DRM encrypted.
	KindDRMProtected
	// KindIO indicates a filesystem failure (temp directory, file writes).
	KindIO
	// KindPageRange indicates a page index outside [0, PageCount).
	KindPageRange
	// KindClosed indicates the document has already been torn down.
	KindClosed
)

var kindNames = map[Kind]string{
	KindUnknown:                "unknown",
	KindInvalidFormat:          "invalid format",
	KindCorruptArchive:         "corrupt archive",
	KindCorruptContainer:       "corrupt container",
	KindNoPackageDocument:      "no package document",
	KindInvalidPackage:         "invalid package document",
	KindMissingManifestOrSpine: "missing manifest or spine",
	KindMissingIdref:           "missing idref",
	KindDanglingIdref:          "dangling idref",
	KindMissingHref:            "missing href",
	KindInvalidNavigation:      "invalid navigation document",
	KindParse:                  "parse error",
	KindDRMProtected:           "drm protected",
	KindIO:                     "i/o failure",
	KindPageRange:              "page out of range",
	KindClosed:                 "document closed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the error type returned by the epub package. Two *Error values
// are considered equal by errors.Is when their kinds match, so callers can
// test against the sentinel values below.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("epub: %s: %v", msg, e.Err)
	}
	return "epub: " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinel errors, one per kind. Use errors.Is to test for them.
var (
	ErrInvalidFormat          = &Error{Kind: KindInvalidFormat}
	ErrCorruptArchive         = &Error{Kind: KindCorruptArchive}
	ErrCorruptContainer       = &Error{Kind: KindCorruptContainer}
	ErrNoPackageDocument      = &Error{Kind: KindNoPackageDocument}
	ErrInvalidPackage         = &Error{Kind: KindInvalidPackage}
	ErrMissingManifestOrSpine = &Error{Kind: KindMissingManifestOrSpine}
	ErrMissingIdref           = &Error{Kind: KindMissingIdref}
	ErrDanglingIdref          = &Error{Kind: KindDanglingIdref}
	ErrMissingHref            = &Error{Kind: KindMissingHref}
	ErrInvalidNavigation      = &Error{Kind: KindInvalidNavigation}
	ErrParse                  = &Error{Kind: KindParse}
	ErrDRMProtected           = &Error{Kind: KindDRMProtected}
	ErrIO                     = &Error{Kind: KindIO}
	ErrPageRange              = &Error{Kind: KindPageRange}
	ErrClosed                 = &Error{Kind: KindClosed}
)

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
