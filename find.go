package epub

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"golang.org/x/text/cases"
)

// pageTextCache keeps extracted page text keyed by page path.
type pageTextCache struct {
	fs    afero.Fs
	cache *lru.Cache[string, string]
}

func newPageTextCache(fsys afero.Fs, size int) *pageTextCache {
	c := &pageTextCache{fs: fsys}
	if size > 0 {
		// lru.New only fails for a non-positive size.
		c.cache, _ = lru.New[string, string](size)
	}
	return c
}

func (c *pageTextCache) text(p string) (string, error) {
	if c.cache != nil {
		if s, ok := c.cache.Get(p); ok {
			return s, nil
		}
	}

	data, err := afero.ReadFile(c.fs, p)
	if err != nil {
		return "", newError(KindIO, "read page "+p, errors.WithStack(err))
	}

	s, err := pageText(data)
	if err != nil {
		return "", newError(KindParse, "parse page "+p, errors.WithStack(err))
	}

	if c.cache != nil {
		c.cache.Add(p, s)
	}
	return s, nil
}

func (c *pageTextCache) purge() {
	if c != nil && c.cache != nil {
		c.cache.Purge()
	}
}

// containsText reports whether text contains query. Without case
// sensitivity both sides are Unicode case folded. An empty query never
// matches.
func containsText(text, query string, caseSensitive bool) bool {
	if query == "" {
		return false
	}
	if caseSensitive {
		return strings.Contains(text, query)
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(text), fold.String(query))
}
