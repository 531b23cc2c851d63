package epub

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/spf13/afero"
)

// navigationIndex is the result of parsing an NCX document.
type navigationIndex struct {
	title   string
	entries []NavEntry
}

// buildNavigationIndex parses the NCX document at ncxPath and converts its
// navMap into NavEntry trees. Targets are resolved against contentBaseDir
// and turned into file:// URIs below workDir, with any #fragment preserved.
// Every entry starts unresolved (Page == -1).
func buildNavigationIndex(fsys afero.Fs, ncxPath, workDir, contentBaseDir string) (*navigationIndex, error) {
	doc, err := openXMLDocument(fsys, ncxPath, "ncx", KindInvalidNavigation)
	if err != nil {
		return nil, err
	}

	index := &navigationIndex{}

	if docTitle := doc.find("docTitle", "", ""); docTitle != nil {
		if title, ok := firstText(docTitle); ok {
			index.title = title
		}
	}

	navMap := doc.find("navMap", "", "")
	if navMap == nil {
		return index, nil
	}

	entries, err := convertNavPoints(navMap, workDir, contentBaseDir)
	if err != nil {
		return nil, err
	}
	index.entries = entries

	return index, nil
}

// convertNavPoints converts the <navPoint> children of parent, in document
// order, recursing into nested navPoints. Other child elements are skipped.
func convertNavPoints(parent *etree.Element, workDir, contentBaseDir string) ([]NavEntry, error) {
	var entries []NavEntry

	for _, np := range parent.ChildElements() {
		if np.Tag != "navPoint" {
			continue
		}

		label, ok := firstText(np.SelectElement("navLabel"))
		if !ok {
			id, _ := getAttribute(np, "id")
			return nil, newError(KindInvalidNavigation, fmt.Sprintf("navPoint %q has no label text", id), nil)
		}

		entry := NavEntry{
			Label: label,
			Page:  -1,
		}

		if content := np.SelectElement("content"); content != nil {
			if src, ok := getAttribute(content, "src"); ok {
				entry.Href, entry.TargetURI = resolveNavTarget(workDir, contentBaseDir, src)
			}
		}

		children, err := convertNavPoints(np, workDir, contentBaseDir)
		if err != nil {
			return nil, err
		}
		entry.Children = children

		entries = append(entries, entry)
	}

	return entries, nil
}

// resolveNavTarget splits the fragment off src, resolves the path part
// against contentBaseDir and re-appends the fragment to both the
// archive-relative href and the file URI. An unresolvable src yields empty
// strings; such an entry can never be linked to a page.
func resolveNavTarget(workDir, contentBaseDir, src string) (href, uri string) {
	src = strings.TrimSpace(src)
	pathPart, fragment := splitFragment(src)

	rel, err := resolveHref(contentBaseDir, pathPart)
	if err != nil {
		return "", ""
	}

	return rel + fragment, fileURI(filepath.Join(workDir, filepath.FromSlash(rel))) + fragment
}

// flattenNavEntries collects pointers to every entry of the trees in
// pre-order, which is NCX document order.
func flattenNavEntries(flat *[]*NavEntry, entries []NavEntry) {
	for i := range entries {
		*flat = append(*flat, &entries[i])
		if len(entries[i].Children) > 0 {
			flattenNavEntries(flat, entries[i].Children)
		}
	}
}

func copyNavEntries(in []NavEntry) []NavEntry {
	if in == nil {
		return nil
	}
	out := make([]NavEntry, len(in))
	for i := range in {
		out[i] = in[i]
		out[i].Children = copyNavEntries(in[i].Children)
	}
	return out
}
