package epub

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockElements start a new line in extracted text.
var blockElements = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.Div:        true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Li:         true,
	atom.Tr:         true,
	atom.Blockquote: true,
	atom.Hr:         true,
	atom.Section:    true,
}

// hiddenElements contribute no text.
var hiddenElements = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Head:   true,
}

// pageText renders the readable text of an XHTML page: whitespace runs are
// collapsed and block elements are separated by newlines.
func pageText(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(stripBOM(data)))
	if err != nil {
		return "", err
	}

	var tw textWriter
	tw.walk(doc)

	return strings.TrimSpace(tw.sb.String()), nil
}

type textWriter struct {
	sb           strings.Builder
	pendingSpace bool
}

func (tw *textWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		tw.text(n.Data)
		return
	case html.ElementNode:
		if hiddenElements[n.DataAtom] {
			return
		}
		if blockElements[n.DataAtom] {
			tw.newline()
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		tw.walk(c)
	}

	if n.Type == html.ElementNode && blockElements[n.DataAtom] {
		tw.newline()
	}
}

func (tw *textWriter) text(s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			tw.pendingSpace = true
		}
		return
	}
	if tw.sb.Len() > 0 && (tw.pendingSpace || isSpaceByte(s[0])) && !tw.atLineStart() {
		tw.sb.WriteByte(' ')
	}
	tw.sb.WriteString(strings.Join(fields, " "))
	tw.pendingSpace = isSpaceByte(s[len(s)-1])
}

func (tw *textWriter) newline() {
	if tw.sb.Len() > 0 && !tw.atLineStart() {
		tw.sb.WriteByte('\n')
	}
	tw.pendingSpace = false
}

func (tw *textWriter) atLineStart() bool {
	s := tw.sb.String()
	return s == "" || s[len(s)-1] == '\n'
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}
