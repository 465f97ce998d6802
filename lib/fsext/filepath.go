// Package fsext provides extended file system functions
package fsext

import (
	"path/filepath"
)

// RelSlash returns the slash separated path of target relative to the
// directory base. Paths that cannot be made relative are returned as they
// are, converted to slashes.
func RelSlash(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

// Abs returns an absolute representation of path.
//
// If the path is not absolute it will be joined with root
// to turn it into an absolute path. The root path is assumed
// to be a directory.
func Abs(root, path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	return filepath.Clean(path)
}
