package epub

import (
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// unknownField is reported by Info for absent metadata.
const unknownField = "unknown"

// dcElements groups the <metadata> children by local tag name.
type dcElements map[string][]*etree.Element

// extractMetadata reads the Dublin Core elements of the package document.
// ePub 3 <meta refines="#id"> elements are consulted for title order,
// author roles and identifier schemes.
func extractMetadata(pkg *xmlDocument) Metadata {
	md := Metadata{Version: packageVersion(pkg)}

	metadata := pkg.find("metadata", "", "")
	if metadata == nil {
		return md
	}

	elements := make(dcElements)
	for _, c := range metadata.ChildElements() {
		elements[c.Tag] = append(elements[c.Tag], c)
	}
	refines := buildRefinesMap(elements["meta"])

	md.Titles = extractTitles(elements["title"], refines)
	md.Authors = extractAuthors(elements["creator"], refines)
	md.Language = elements.values("language")
	md.Subjects = elements.values("subject")
	md.Publisher = elements.first("publisher")
	md.Date = elements.first("date")
	md.Description = elements.first("description")
	md.Rights = elements.first("rights")
	md.Source = elements.first("source")

	for _, el := range elements["identifier"] {
		v := trimmedText(el)
		if v == "" {
			continue
		}
		id, _ := getAttribute(el, "id")
		scheme, _ := getAttribute(el, "scheme")
		if scheme == "" && id != "" {
			scheme = refines.find(id, "identifier-type")
		}
		md.Identifiers = append(md.Identifiers, Identifier{Value: v, Scheme: scheme, ID: id})
	}

	return md
}

func trimmedText(el *etree.Element) string {
	s, _ := getTextContent(el)
	return strings.TrimSpace(s)
}

// values returns every non-empty value of the named element.
func (e dcElements) values(tag string) []string {
	var out []string
	for _, el := range e[tag] {
		if v := trimmedText(el); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// first returns the first non-empty value of the named element.
func (e dcElements) first(tag string) string {
	for _, el := range e[tag] {
		if v := trimmedText(el); v != "" {
			return v
		}
	}
	return ""
}

// refinesMap maps an element id (without "#") to the <meta> elements
// refining it.
type refinesMap map[string][]*etree.Element

func buildRefinesMap(metas []*etree.Element) refinesMap {
	m := make(refinesMap)
	for _, meta := range metas {
		ref, _ := getAttribute(meta, "refines")
		if !strings.HasPrefix(ref, "#") {
			continue
		}
		m[ref[1:]] = append(m[ref[1:]], meta)
	}
	return m
}

// find returns the first non-empty value of a refining property.
func (m refinesMap) find(id, property string) string {
	for _, meta := range m[id] {
		if p, _ := getAttribute(meta, "property"); p == property {
			if v := trimmedText(meta); v != "" {
				return v
			}
		}
	}
	return ""
}

// extractTitles returns the dc:title values, ordered by display-seq when
// any title carries one.
func extractTitles(titles []*etree.Element, refines refinesMap) []string {
	type titleEntry struct {
		value string
		seq   int
	}

	entries := make([]titleEntry, 0, len(titles))
	hasSeq := false
	for _, t := range titles {
		v := trimmedText(t)
		if v == "" {
			continue
		}
		e := titleEntry{value: v}
		if id, _ := getAttribute(t, "id"); id != "" {
			if n, err := strconv.Atoi(refines.find(id, "display-seq")); err == nil {
				e.seq = n
				hasSeq = true
			}
		}
		entries = append(entries, e)
	}

	if hasSeq {
		// Titles without a sequence keep their order after sequenced ones.
		sort.SliceStable(entries, func(i, j int) bool {
			si, sj := entries[i].seq, entries[j].seq
			switch {
			case si == 0:
				return false
			case sj == 0:
				return true
			default:
				return si < sj
			}
		})
	}

	if len(entries) == 0 {
		return nil
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.value
	}
	return out
}

// extractAuthors reads dc:creator elements. ePub 2 carries opf:file-as and
// opf:role attributes directly; ePub 3 expresses them as refinements.
func extractAuthors(creators []*etree.Element, refines refinesMap) []Author {
	var authors []Author
	for _, c := range creators {
		name := trimmedText(c)
		if name == "" {
			continue
		}

		a := Author{Name: name}
		a.FileAs, _ = getAttribute(c, "file-as")
		a.Role, _ = getAttribute(c, "role")

		if id, _ := getAttribute(c, "id"); id != "" {
			if a.FileAs == "" {
				a.FileAs = refines.find(id, "file-as")
			}
			if a.Role == "" {
				a.Role = refines.find(id, "role")
			}
		}

		authors = append(authors, a)
	}
	return authors
}

// documentInfo derives the viewer summary from the metadata.
func documentInfo(md Metadata, navTitle string, pageCount int) DocumentInfo {
	info := DocumentInfo{
		Title:     unknownField,
		Author:    unknownField,
		Subject:   unknownField,
		Creator:   unknownField,
		Format:    unknownField,
		PageCount: pageCount,
	}
	if md.Version != "" {
		info.Format = "epub " + md.Version
	}

	switch {
	case len(md.Titles) > 0:
		info.Title = md.Titles[0]
	case navTitle != "":
		info.Title = navTitle
	}
	if len(md.Authors) > 0 {
		info.Author = md.Authors[0].Name
	}
	if len(md.Subjects) > 0 {
		info.Subject = md.Subjects[0]
	}
	if md.Publisher != "" {
		info.Creator = md.Publisher
	}

	return info
}

func copyMetadata(in Metadata) Metadata {
	out := in
	out.Titles = append([]string(nil), in.Titles...)
	out.Authors = append([]Author(nil), in.Authors...)
	out.Language = append([]string(nil), in.Language...)
	out.Identifiers = append([]Identifier(nil), in.Identifiers...)
	out.Subjects = append([]string(nil), in.Subjects...)
	return out
}
