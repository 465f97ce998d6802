package concat

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/liuxd6825/smconcat/lib/mapping"
)

// defaultPath stands for the current directory when no path is given.
const defaultPath = "."

// SourcePrefix returns the slash separated path leading from the directory
// of mapPath to the directory of sourcesRelativeTo. Both default to ".". The
// prefix is "" when both directories are the same.
func SourcePrefix(mapPath, sourcesRelativeTo string) (string, error) {
	mapDir, err := dirOf(mapPath)
	if err != nil {
		return "", err
	}
	srcDir, err := dirOf(sourcesRelativeTo)
	if err != nil {
		return "", err
	}

	// relative directories are resolved against the working directory
	if mapDir, err = filepath.Abs(mapDir); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	if srcDir, err = filepath.Abs(srcDir); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}

	rel, err := filepath.Rel(mapDir, srcDir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// SourceRewriter returns the function applied to every source path of a
// fragment map, or nil when sources stay as they were recorded.
func SourceRewriter(prefix string) func(string) string {
	if prefix == "" {
		return nil
	}
	return func(source string) string {
		return mapping.Join(prefix, source)
	}
}

func dirOf(p string) (string, error) {
	if p == "" {
		p = defaultPath
	}
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidPath, p)
	}
	return filepath.Dir(p), nil
}
