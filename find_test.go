package epub

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
)

func TestPageText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "blocks",
			html: testChapter("Title", "Body text."),
			want: "Title\nBody text.",
		},
		{
			name: "whitespace collapsed",
			html: "<html><body><p>  a \n\t b  </p></body></html>",
			want: "a b",
		},
		{
			name: "inline elements keep spacing",
			html: "<p>one <em>two</em> three<b>four</b></p>",
			want: "one two threefour",
		},
		{
			name: "hidden elements",
			html: "<html><head><title>T</title><style>p{}</style></head><body><script>var x</script><p>shown</p></body></html>",
			want: "shown",
		},
		{
			name: "entities",
			html: "<p>Fish &amp; Chips</p>",
			want: "Fish & Chips",
		},
		{
			name: "line breaks",
			html: "<p>a<br/>b</p><div>c</div>",
			want: "a\nb\nc",
		},
		{
			name: "bom",
			html: "\xEF\xBB\xBF<p>x</p>",
			want: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pageText([]byte(tt.html))
			if err != nil {
				t.Fatalf("pageText() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("pageText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContainsText(t *testing.T) {
	tests := []struct {
		text, query   string
		caseSensitive bool
		want          bool
	}{
		{"The Quick brown fox", "quick", false, true},
		{"The Quick brown fox", "quick", true, false},
		{"The Quick brown fox", "Quick", true, true},
		{"Straße", "STRASSE", false, true},
		{"anything", "", false, false},
		{"", "x", false, false},
	}
	for _, tt := range tests {
		if got := containsText(tt.text, tt.query, tt.caseSensitive); got != tt.want {
			t.Errorf("containsText(%q, %q, %v) = %v, want %v", tt.text, tt.query, tt.caseSensitive, got, tt.want)
		}
	}
}

func TestPageTextCache(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, "/w", map[string]string{"a.xhtml": "<p>first</p>"})

	c := newPageTextCache(fsys, 4)
	got, err := c.text("/w/a.xhtml")
	if err != nil || got != "first" {
		t.Fatalf("text() = (%q, %v), want (first, nil)", got, err)
	}

	// Served from the cache once read.
	writeTree(t, fsys, "/w", map[string]string{"a.xhtml": "<p>second</p>"})
	if got, _ := c.text("/w/a.xhtml"); got != "first" {
		t.Errorf("cached text() = %q, want first", got)
	}

	c.purge()
	if got, _ := c.text("/w/a.xhtml"); got != "second" {
		t.Errorf("text() after purge = %q, want second", got)
	}

	if _, err := c.text("/w/missing.xhtml"); !errors.Is(err, ErrIO) {
		t.Errorf("text(missing) error = %v, want ErrIO", err)
	}
}

func TestPageTextCacheDisabled(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, "/w", map[string]string{"a.xhtml": "<p>first</p>"})

	c := newPageTextCache(fsys, 0)
	if _, err := c.text("/w/a.xhtml"); err != nil {
		t.Fatal(err)
	}
	writeTree(t, fsys, "/w", map[string]string{"a.xhtml": "<p>second</p>"})
	if got, _ := c.text("/w/a.xhtml"); got != "second" {
		t.Errorf("uncached text() = %q, want second", got)
	}

	var nilCache *pageTextCache
	nilCache.purge()
}
