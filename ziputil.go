package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// maxDecompressSize is the default maximum decompressed size of a single
// ZIP entry. This guards against zip bomb attacks.
const maxDecompressSize int64 = 256 * 1024 * 1024

// maxTotalSize is the default maximum decompressed size of a whole archive.
const maxTotalSize int64 = 1024 * 1024 * 1024

// maxEntries is the default maximum number of entries in an archive.
const maxEntries = 10000

// isSafePath checks whether p is a safe archive-relative path that does not
// escape the archive root via path traversal (e.g., "../../../etc/passwd").
func isSafePath(p string) bool {
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	// Windows drive letters and backslash separators are never valid here.
	if strings.ContainsRune(cleaned, '\\') || (len(cleaned) >= 2 && cleaned[1] == ':') {
		return false
	}
	return true
}

// stripBOM removes a leading UTF-8 BOM (0xEF 0xBB 0xBF) from data, if present.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// isDirEntry reports whether a zip entry name denotes a directory.
func isDirEntry(f *zip.File) bool {
	return strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()
}

// copyZipEntry streams the content of f into w, refusing to write more than
// limit bytes. The declared size is checked first, then the actual stream,
// since the header may be forged.
func copyZipEntry(w io.Writer, f *zip.File, limit int64) (int64, error) {
	if f.UncompressedSize64 > uint64(limit) {
		return 0, fmt.Errorf("zip entry %s too large: %d bytes (max %d)", f.Name, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	n, err := io.Copy(w, io.LimitReader(rc, limit+1))
	if err != nil {
		return n, fmt.Errorf("read zip entry %s: %w", f.Name, err)
	}
	if n > limit {
		return n, fmt.Errorf("zip entry %s decompressed size exceeds limit (%d bytes)", f.Name, limit)
	}
	return n, nil
}

// resolveHref resolves an OPF- or NCX-relative href against contentBaseDir
// (archive-relative, "" meaning the archive root) and returns the
// archive-relative result. Percent-encoded hrefs are decoded. An empty href
// or one that escapes the archive root yields an error.
func resolveHref(contentBaseDir, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty href")
	}
	if strings.HasPrefix(href, "/") {
		return "", fmt.Errorf("absolute href %q", href)
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	joined := path.Clean(path.Join(contentBaseDir, href))
	if !isSafePath(joined) {
		return "", fmt.Errorf("href %q escapes the archive root", href)
	}
	return joined, nil
}

// splitFragment splits href on its last '#'. The fragment keeps its '#'.
func splitFragment(href string) (string, string) {
	if idx := strings.LastIndexByte(href, '#'); idx >= 0 {
		return href[:idx], href[idx:]
	}
	return href, ""
}

// fileURI converts a filesystem path into a file:// URI.
func fileURI(p string) string {
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

// pathFromURI accepts either a file:// URI or a plain filesystem path and
// returns the filesystem path.
func pathFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, "file:") {
		return uri, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("unsupported file URI host %q", u.Host)
	}
	p := u.Path
	// file:///C:/dir → C:/dir
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p), nil
}
