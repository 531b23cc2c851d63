// Package epub ingests ePub 2 archives for a document viewer: it validates
// the container, extracts it to a private working directory, resolves the
// OPF package document through META-INF/container.xml, builds the
// spine-ordered reading sequence and indexes the NCX table of contents
// against it.
//
// # Loading
//
// Use [Open] to load a file by path or file:// URI, or [New] followed by
// [Document.Load]:
//
//	doc, err := epub.Open("book.epub")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer doc.Close()
//
// Only archives sniffed as application/epub+zip or application/x-booki+zip
// are accepted; anything else fails with [ErrInvalidFormat] before any
// extraction happens. Loading is all or nothing: on failure the working
// directory is removed and a single error is returned.
//
// # Pages
//
// [Document.PageCount] and [Document.Page] expose the reading sequence with
// zero-based indexes. Each [Page] carries the file:// URI of the extracted
// content file:
//
//	for i := 0; i < doc.PageCount(); i++ {
//	    p, _ := doc.Page(i)
//	    fmt.Println(p.Index, p.LocationURI)
//	}
//
// # Table of Contents
//
// [Document.NavigationTree] returns the NCX navMap as a tree of [NavEntry].
// Each entry's Page is the zero-based index of the page its target falls
// on, or -1 when no page matched. Matching is by containment, so a target
// with a #fragment still finds its page.
//
// # Errors
//
// Every failure is an [*Error] carrying a [Kind]; test with errors.Is
// against the sentinels ([ErrInvalidFormat], [ErrCorruptArchive],
// [ErrCorruptContainer], [ErrNoPackageDocument], ...) or use [KindOf].
//
// # Teardown
//
// [Document.Close] removes the working directory. It is idempotent; removal
// failures are logged, never returned.
package epub
