package epub

import (
	"archive/zip"
	"bytes"
	"io"
	"sort"
	"testing"

	"github.com/spf13/afero"
)

// testWorkRoot is the parent of working directories in tests.
const testWorkRoot = "/work"

// validContainerXML is a well-formed META-INF/container.xml pointing to an OPF.
const validContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Test Book</dc:title>
    <dc:creator opf:role="aut" opf:file-as="Author, Test">Test Author</dc:creator>
    <dc:subject>Testing</dc:subject>
    <dc:publisher>Test Press</dc:publisher>
    <dc:language>en</dc:language>
    <dc:identifier id="uid" opf:scheme="UUID">urn:uuid:1234</dc:identifier>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch3" href="text/ch3.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
    <itemref idref="ch3" linear="no"/>
  </spine>
</package>`

const testNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <docTitle><text>NCX Title</text></docTitle>
  <navMap>
    <navPoint id="np1" playOrder="1">
      <navLabel><text>Chapter 1</text></navLabel>
      <content src="ch1.xhtml"/>
    </navPoint>
    <navPoint id="np2" playOrder="2">
      <navLabel><text>Chapter 2</text></navLabel>
      <content src="ch2.xhtml"/>
      <navPoint id="np2.1" playOrder="3">
        <navLabel><text>Section 2.1</text></navLabel>
        <content src="ch2.xhtml#sec1"/>
      </navPoint>
    </navPoint>
    <navPoint id="np3" playOrder="4">
      <navLabel><text>Chapter 3</text></navLabel>
      <content src="text/ch3.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

func testChapter(title, body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>` + title + `</title></head>
<body><h1>` + title + `</h1><p>` + body + `</p></body></html>`
}

// minimalEPubFiles returns a small but complete ePub 2 book.
func minimalEPubFiles() map[string]string {
	return map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": validContainerXML,
		"OEBPS/content.opf":      testOPF,
		"OEBPS/toc.ncx":          testNCX,
		"OEBPS/ch1.xhtml":        testChapter("Chapter 1", "It was a dark and stormy night."),
		"OEBPS/ch2.xhtml":        testChapter("Chapter 2", "The Quick brown fox."),
		"OEBPS/text/ch3.xhtml":   testChapter("Chapter 3", "Appendix material."),
	}
}

// buildTestZipBytes creates a ZIP archive from the files map (path → content).
// A "mimetype" entry is written first and stored uncompressed, as the ePub
// OCF requires; the other entries follow in lexical order.
func buildTestZipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	if mt, ok := files["mimetype"]; ok {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
		if err != nil {
			t.Fatalf("buildTestZipBytes: create mimetype: %v", err)
		}
		if _, err := io.WriteString(fw, mt); err != nil {
			t.Fatalf("buildTestZipBytes: write mimetype: %v", err)
		}
	}

	names := make([]string, 0, len(files))
	for name := range files {
		if name != "mimetype" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("buildTestZipBytes: create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, files[name]); err != nil {
			t.Fatalf("buildTestZipBytes: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildTestZipBytes: close writer: %v", err)
	}
	return buf.Bytes()
}

// buildTestEPubFile writes an ePub archive into fsys at /books/test.epub and
// returns its path.
func buildTestEPubFile(t *testing.T, fsys afero.Fs, files map[string]string) string {
	t.Helper()
	const p = "/books/test.epub"
	if err := afero.WriteFile(fsys, p, buildTestZipBytes(t, files), 0o644); err != nil {
		t.Fatalf("buildTestEPubFile: %v", err)
	}
	return p
}

// writeTree writes files below root in fsys, as an extracted archive.
func writeTree(t *testing.T, fsys afero.Fs, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := afero.WriteFile(fsys, root+"/"+name, []byte(content), 0o644); err != nil {
			t.Fatalf("writeTree: %s: %v", name, err)
		}
	}
}

// openTestDocument loads files as an ePub from an in-memory filesystem.
func openTestDocument(t *testing.T, files map[string]string, opts ...Option) (*Document, afero.Fs, error) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	p := buildTestEPubFile(t, fsys, files)
	opts = append([]Option{WithFs(fsys), WithTempDir(testWorkRoot)}, opts...)
	doc, err := Open(p, opts...)
	return doc, fsys, err
}

// mustParseXML parses an inline document or fails the test.
func mustParseXML(t *testing.T, data string) *xmlDocument {
	t.Helper()
	doc, err := parseXML([]byte(data), "test.xml")
	if err != nil {
		t.Fatalf("parseXML: %v", err)
	}
	return doc
}
