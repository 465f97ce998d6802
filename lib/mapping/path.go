package mapping

import (
	"path"
	"regexp"
	"strings"
)

//nolint:gochecknoglobals
var (
	urlRegexp     = regexp.MustCompile(`^(?:[\w+\-.]+:)?//`)
	dataURLRegexp = regexp.MustCompile(`^data:.+,.+$`)
)

// IsAbsolute reports whether a source path must never be joined with a
// prefix: rooted paths, URLs with a scheme or a network path, and data URLs.
// Windows drive letters are deliberately not recognized.
func IsAbsolute(p string) bool {
	return strings.HasPrefix(p, "/") || urlRegexp.MatchString(p) || dataURLRegexp.MatchString(p)
}

// Join joins a source path onto root using forward slashes. Absolute sources
// are returned untouched and an empty root leaves the source as it is.
func Join(root, source string) string {
	if root == "" || IsAbsolute(source) {
		return source
	}
	if source == "" {
		source = "."
	}
	if urlRegexp.MatchString(root) {
		return strings.TrimRight(root, "/") + "/" + source
	}
	return path.Clean(strings.TrimRight(root, "/") + "/" + source)
}
