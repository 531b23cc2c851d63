package epub

// ContentEntry is one spine-ordered page of the reading sequence.
type ContentEntry struct {
	// ID is the manifest item id referenced by the spine itemref.
	ID string

	// Href is the archive-relative path of the content file.
	Href string

	// Path is the filesystem path of the extracted content file.
	Path string

	// LocationURI is the file:// URI of the extracted content file.
	LocationURI string

	// MediaType is the manifest media-type of the content file.
	MediaType string

	// Linear is false for itemrefs marked linear="no".
	Linear bool

	// Ordinal is the 1-based position in reading order.
	Ordinal int
}

// Page is the view of a ContentEntry handed to a viewer. Index is
// zero-based; Ordinal is Index+1.
type Page struct {
	Index       int
	Ordinal     int
	ID          string
	Href        string
	Path        string
	LocationURI string
}

// NavEntry is one table-of-contents node from the NCX navMap.
// Nested navPoints are kept as Children.
type NavEntry struct {
	// Label is the navLabel text.
	Label string

	// Href is the archive-relative target, fragment included
	// (e.g., "OEBPS/chapter01.xhtml#section2").
	Href string

	// TargetURI is the file:// URI of the target, fragment included.
	TargetURI string

	// Page is the zero-based index of the page the target falls on,
	// or -1 when no page matched.
	Page int

	// Children contains nested entries.
	Children []NavEntry
}

// Resolved reports whether the entry was linked to a page.
func (n NavEntry) Resolved() bool {
	return n.Page >= 0
}

// Fragment returns the "#fragment" part of the target, or "".
func (n NavEntry) Fragment() string {
	_, fragment := splitFragment(n.TargetURI)
	return fragment
}

// linkable reports whether the entry can still be linked to a page.
func (n *NavEntry) linkable() bool {
	return n.Page < 0 && n.TargetURI != ""
}

// DocumentInfo summarises a loaded document. Missing metadata fields are
// reported as "unknown".
type DocumentInfo struct {
	Title     string
	Author    string
	Subject   string
	Format    string
	Creator   string
	PageCount int
}

// Metadata holds the Dublin Core metadata extracted from the OPF file.
type Metadata struct {
	// Version is the package version attribute (e.g., "2.0", "3.0").
	Version string

	// Titles contains all dc:title values. The first entry is the primary title.
	Titles []string

	// Authors contains all dc:creator entries with their roles and file-as values.
	Authors []Author

	// Language contains all dc:language values.
	Language []string

	// Identifiers contains all dc:identifier entries.
	Identifiers []Identifier

	Publisher   string
	Date        string
	Description string
	Subjects    []string
	Rights      string
	Source      string
}

// Author represents a dc:creator entry.
type Author struct {
	Name   string
	FileAs string
	Role   string
}

// Identifier represents a dc:identifier entry.
type Identifier struct {
	Value  string
	Scheme string
	ID     string
}
