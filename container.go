package epub

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// containerPath is the well-known location of container.xml in an ePub archive.
const containerPath = "META-INF/container.xml"

// packageMediaType identifies the OPF rootfile inside container.xml.
const packageMediaType = "application/oebps-package+xml"

// packageLocation describes where the OPF package document lives.
type packageLocation struct {
	// FullPath is the archive-relative rootfile path, cased as extracted.
	FullPath string
	// Path is the filesystem path of the package document.
	Path string
	// URI is the file:// URI of the package document.
	URI string
	// ContentBaseDir is the archive-relative directory holding the package
	// document; "" when it sits at the archive root.
	ContentBaseDir string
}

// locatePackageDocument reads META-INF/container.xml below workDir and
// resolves the first rootfile with the OEBPS package media type.
func locatePackageDocument(fsys afero.Fs, workDir string) (packageLocation, error) {
	name, ok := lookupInsensitive(fsys, workDir, containerPath)
	if !ok {
		return packageLocation{}, newError(KindCorruptContainer, "could not open container file "+containerPath, nil)
	}

	doc, err := openXMLDocument(fsys, name, "container", KindCorruptContainer)
	if err != nil {
		return packageLocation{}, err
	}

	rootfile := doc.find("rootfile", "media-type", packageMediaType)
	if rootfile == nil {
		return packageLocation{}, newError(KindNoPackageDocument, "container has no "+packageMediaType+" rootfile", nil)
	}

	fullPath, ok := getAttribute(rootfile, "full-path")
	fullPath = strings.TrimSpace(fullPath)
	if !ok || fullPath == "" {
		return packageLocation{}, newError(KindCorruptContainer, "rootfile has no full-path", nil)
	}
	fullPath = path.Clean(strings.TrimPrefix(fullPath, "/"))
	if !isSafePath(fullPath) {
		return packageLocation{}, newError(KindCorruptContainer, "rootfile full-path escapes the archive: "+fullPath, nil)
	}

	// Paths below the package document inherit the casing of the tree on
	// disk, not the casing written in container.xml.
	docPath, ok := lookupInsensitive(fsys, workDir, fullPath)
	if ok {
		if rel, err := filepath.Rel(workDir, docPath); err == nil {
			fullPath = filepath.ToSlash(rel)
		}
	} else {
		docPath = filepath.Join(workDir, filepath.FromSlash(fullPath))
	}

	baseDir := path.Dir(fullPath)
	if baseDir == "." {
		baseDir = ""
	}

	return packageLocation{
		FullPath:       fullPath,
		Path:           docPath,
		URI:            fileURI(docPath),
		ContentBaseDir: baseDir,
	}, nil
}

// lookupInsensitive resolves the archive-relative name below root, trying an
// exact match first and then matching each path segment case-insensitively.
func lookupInsensitive(fsys afero.Fs, root, name string) (string, bool) {
	exact := filepath.Join(root, filepath.FromSlash(name))
	if ok, _ := afero.Exists(fsys, exact); ok {
		return exact, true
	}

	current := root
	for _, segment := range strings.Split(name, "/") {
		if segment == "" {
			continue
		}
		entries, err := afero.ReadDir(fsys, current)
		if err != nil {
			return "", false
		}
		found := ""
		for _, e := range entries {
			if strings.EqualFold(e.Name(), segment) {
				found = e.Name()
				break
			}
		}
		if found == "" {
			return "", false
		}
		current = filepath.Join(current, found)
	}
	return current, true
}
