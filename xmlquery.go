package epub

import (
	"encoding/xml"
	"strings"

	"github.com/beevik/etree"
	"github.com/spf13/afero"
	"golang.org/x/net/html/charset"
)

// xmlDocument is one parsed XML file. Each parse owns its tree and root, so
// any number of documents can be open at once and queried independently.
type xmlDocument struct {
	path string
	tree *etree.Document
	root *etree.Element
}

// parseXML decodes data into an element tree. HTML named entities are
// accepted (many NCX files carry &nbsp; and friends) and non-UTF-8 charsets
// declared in the XML prolog are transcoded.
func parseXML(data []byte, name string) (*xmlDocument, error) {
	tree := etree.NewDocument()
	tree.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Entity:        xml.HTMLEntity,
	}
	if err := tree.ReadFromBytes(stripBOM(data)); err != nil {
		return nil, newError(KindParse, "parse "+name, err)
	}
	root := tree.Root()
	if root == nil {
		return nil, newError(KindParse, "parse "+name+": no root element", nil)
	}
	return &xmlDocument{path: name, tree: tree, root: root}, nil
}

// openXMLDocument reads and parses name from fsys and verifies that its root
// element is rootTag. A read failure or a root mismatch is reported with the
// supplied kind; an unparsable file is always KindParse.
func openXMLDocument(fsys afero.Fs, name, rootTag string, kind Kind) (*xmlDocument, error) {
	data, err := afero.ReadFile(fsys, name)
	if err != nil {
		return nil, newError(kind, "open "+name, err)
	}
	doc, err := parseXML(data, name)
	if err != nil {
		return nil, err
	}
	if rootTag != "" && doc.root.Tag != rootTag {
		return nil, newError(kind, "unexpected root element <"+doc.root.Tag+"> in "+name+", want <"+rootTag+">", nil)
	}
	return doc, nil
}

// find searches the whole document, root included.
func (d *xmlDocument) find(tag, attrName, attrValue string) *etree.Element {
	return findFirst(d.root, tag, attrName, attrValue)
}

// findFirst returns n itself when it matches, otherwise the first matching
// descendant of n in pre-order. An element whose tag matches but whose
// attribute constraint fails is rejected together with its whole subtree.
// An empty attrName means no attribute constraint.
func findFirst(n *etree.Element, tag, attrName, attrValue string) *etree.Element {
	if n == nil {
		return nil
	}
	if n.Tag == tag {
		if attrMatches(n, attrName, attrValue) {
			return n
		}
		return nil
	}
	return findDescendant(n, tag, attrName, attrValue)
}

// findDescendant is findFirst restricted to the descendants of n.
func findDescendant(n *etree.Element, tag, attrName, attrValue string) *etree.Element {
	if n == nil {
		return nil
	}
	for _, c := range n.ChildElements() {
		if c.Tag == tag {
			if attrMatches(c, attrName, attrValue) {
				return c
			}
			// Rejected: do not descend.
			continue
		}
		if found := findDescendant(c, tag, attrName, attrValue); found != nil {
			return found
		}
	}
	return nil
}

func attrMatches(n *etree.Element, attrName, attrValue string) bool {
	if attrName == "" {
		return true
	}
	v, ok := getAttribute(n, attrName)
	return ok && v == attrValue
}

// getAttribute returns the value of the named attribute. The name may carry
// a namespace prefix ("opf:role"); an unprefixed name matches the attribute
// in any namespace.
func getAttribute(n *etree.Element, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	a := n.SelectAttr(name)
	if a == nil {
		return "", false
	}
	return a.Value, true
}

// getTextContent concatenates the character data of n's immediate children.
// It reports false when n has no character data at all.
func getTextContent(n *etree.Element) (string, bool) {
	if n == nil {
		return "", false
	}
	var sb strings.Builder
	found := false
	for _, tok := range n.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			sb.WriteString(cd.Data)
			found = true
		}
	}
	return sb.String(), found
}

// firstText locates the first <text> descendant of n and returns the first
// non-blank text content among it and its following sibling elements.
func firstText(n *etree.Element) (string, bool) {
	t := findDescendant(n, "text", "", "")
	if t == nil {
		return "", false
	}
	for _, el := range siblingsFrom(t) {
		if s, ok := getTextContent(el); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// siblingsFrom returns el followed by its next sibling elements.
func siblingsFrom(el *etree.Element) []*etree.Element {
	parent := el.Parent()
	if parent == nil {
		return []*etree.Element{el}
	}
	siblings := parent.ChildElements()
	for i, s := range siblings {
		if s == el {
			return siblings[i:]
		}
	}
	return []*etree.Element{el}
}
