package epub

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func openTestZip(t *testing.T, files map[string]string) *zip.Reader {
	t.Helper()
	data := buildTestZipBytes(t, files)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	return zr
}

func TestResolveHref(t *testing.T) {
	tests := []struct {
		name    string
		baseDir string
		href    string
		want    string
		wantErr bool
	}{
		{"same directory", "OEBPS", "toc.ncx", "OEBPS/toc.ncx", false},
		{"parent directory", "OEBPS", "../images/cover.jpg", "images/cover.jpg", false},
		{"nested path", "OEBPS", "text/chapter1.xhtml", "OEBPS/text/chapter1.xhtml", false},
		{"absolute-like href", "OEBPS", "OEBPS/images/fig.png", "OEBPS/OEBPS/images/fig.png", false},
		{"root base", "", "chapter1.xhtml", "chapter1.xhtml", false},
		{"deeply nested", "a/b/c", "../../e/f.html", "a/e/f.html", false},
		{"dot href", "OEBPS", "./styles/main.css", "OEBPS/styles/main.css", false},
		{"percent encoded", "OEBPS", "my%20file.xhtml", "OEBPS/my file.xhtml", false},
		{"invalid escape kept", "OEBPS", "100%.xhtml", "OEBPS/100%.xhtml", false},
		{"surrounding space", "OEBPS", "  ch1.xhtml\n", "OEBPS/ch1.xhtml", false},
		{"empty", "OEBPS", "", "", true},
		{"blank", "OEBPS", "   ", "", true},
		{"traversal escapes root", "OEBPS", "../../../secret.txt", "", true},
		{"absolute href", "OEBPS", "/etc/passwd", "", true},
		{"multi-level traversal", "a/b/c", "../../../../x.txt", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveHref(tt.baseDir, tt.href)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveHref(%q, %q) err = %v; wantErr = %v", tt.baseDir, tt.href, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolveHref(%q, %q) = %q; want %q", tt.baseDir, tt.href, got, tt.want)
			}
		})
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		safe bool
	}{
		{"normal path", "OEBPS/content.opf", true},
		{"root file", "mimetype", true},
		{"nested", "a/b/c/d.txt", true},
		{"dot", ".", true},
		{"double dot", "..", false},
		{"traversal prefix", "../etc/passwd", false},
		{"deep traversal", "a/../../etc/passwd", false},
		{"absolute path", "/etc/passwd", false},
		{"traversal with trailing", "../", false},
		{"clean traversal", "OEBPS/../../secret", false},
		{"backslash", `OEBPS\..\..\secret`, false},
		{"drive letter", "C:/Windows/win.ini", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isSafePath(tt.path)
			if got != tt.safe {
				t.Errorf("isSafePath(%q) = %v; want %v", tt.path, got, tt.safe)
			}
		})
	}
}

func TestStripBOM(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []byte
	}{
		{"with BOM", []byte{0xEF, 0xBB, 0xBF, 'h', 'e', 'l', 'l', 'o'}, []byte("hello")},
		{"without BOM", []byte("hello"), []byte("hello")},
		{"empty", []byte{}, []byte{}},
		{"BOM only", []byte{0xEF, 0xBB, 0xBF}, []byte{}},
		{"partial BOM 2 bytes", []byte{0xEF, 0xBB}, []byte{0xEF, 0xBB}},
		{"BOM in middle (not stripped)", []byte{'a', 0xEF, 0xBB, 0xBF, 'b'}, []byte{'a', 0xEF, 0xBB, 0xBF, 'b'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripBOM(tt.input)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("stripBOM(%v) = %v; want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCopyZipEntry(t *testing.T) {
	zr := openTestZip(t, map[string]string{
		"test.txt": "hello world",
		"big.txt":  strings.Repeat("A", 200),
	})
	entries := map[string]*zip.File{}
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	var buf bytes.Buffer
	n, err := copyZipEntry(&buf, entries["test.txt"], 100)
	if err != nil {
		t.Fatalf("copyZipEntry(test.txt) error = %v", err)
	}
	if n != 11 || buf.String() != "hello world" {
		t.Errorf("copyZipEntry(test.txt) = (%d, %q)", n, buf.String())
	}

	buf.Reset()
	_, err = copyZipEntry(&buf, entries["big.txt"], 100)
	if err == nil {
		t.Fatal("copyZipEntry should have returned an error for oversized entry")
	}
	if !strings.Contains(err.Error(), "too large") && !strings.Contains(err.Error(), "exceeds limit") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSplitFragment(t *testing.T) {
	tests := []struct {
		href, path, fragment string
	}{
		{"ch1.xhtml", "ch1.xhtml", ""},
		{"ch1.xhtml#sec1", "ch1.xhtml", "#sec1"},
		{"ch1.xhtml#a#b", "ch1.xhtml#a", "#b"},
		{"#top", "", "#top"},
	}
	for _, tt := range tests {
		p, f := splitFragment(tt.href)
		if p != tt.path || f != tt.fragment {
			t.Errorf("splitFragment(%q) = (%q, %q); want (%q, %q)", tt.href, p, f, tt.path, tt.fragment)
		}
	}
}

func TestFileURIRoundTrip(t *testing.T) {
	tests := []struct {
		path string
		uri  string
	}{
		{"/tmp/book/OEBPS/ch1.xhtml", "file:///tmp/book/OEBPS/ch1.xhtml"},
		{"/tmp/my book/ch 1.xhtml", "file:///tmp/my%20book/ch%201.xhtml"},
	}
	for _, tt := range tests {
		if got := fileURI(tt.path); got != tt.uri {
			t.Errorf("fileURI(%q) = %q; want %q", tt.path, got, tt.uri)
		}
		got, err := pathFromURI(tt.uri)
		if err != nil {
			t.Fatalf("pathFromURI(%q) error = %v", tt.uri, err)
		}
		if got != tt.path {
			t.Errorf("pathFromURI(%q) = %q; want %q", tt.uri, got, tt.path)
		}
	}
}

func TestPathFromURI(t *testing.T) {
	tests := []struct {
		uri     string
		want    string
		wantErr bool
	}{
		{"/books/a.epub", "/books/a.epub", false},
		{"relative/a.epub", "relative/a.epub", false},
		{"file:///books/a.epub", "/books/a.epub", false},
		{"file://localhost/books/a.epub", "/books/a.epub", false},
		{"file://remote/books/a.epub", "", true},
	}
	for _, tt := range tests {
		got, err := pathFromURI(tt.uri)
		if (err != nil) != tt.wantErr {
			t.Fatalf("pathFromURI(%q) err = %v; wantErr = %v", tt.uri, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("pathFromURI(%q) = %q; want %q", tt.uri, got, tt.want)
		}
	}
}

// TestBuildTestZipBytes verifies that the helper produces an OCF-style ZIP.
func TestBuildTestZipBytes(t *testing.T) {
	zr := openTestZip(t, map[string]string{
		"META-INF/container.xml": "<container/>",
		"mimetype":               "application/epub+zip",
	})

	if len(zr.File) != 2 {
		t.Fatalf("got %d entries, want 2", len(zr.File))
	}
	first := zr.File[0]
	if first.Name != "mimetype" {
		t.Errorf("first entry = %q, want mimetype", first.Name)
	}
	if first.Method != zip.Store {
		t.Errorf("mimetype method = %d, want Store", first.Method)
	}
}
