// Package output writes a concatenated bundle, its source map and the
// precompressed variants of the bundle.
package output

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/liuxd6825/smconcat/lib/fsext"
	"github.com/liuxd6825/smconcat/lib/mapping"
)

// Stdout is the output name that writes the bundle to the standard output.
const Stdout = "-"

const inlineMapPrefix = "data:application/json;charset=utf-8;base64,"

// ErrWrite is returned when one of the output files cannot be written.
var ErrWrite = errors.New("couldn't write output")

// Params contains everything Write needs.
type Params struct {
	Logger logrus.FieldLogger
	FS     fsext.Fs
	Stdout io.Writer

	// Output is the bundle path, Stdout or "" for the standard output.
	Output string
	// MapOutput is the map path, Output + ".map" by default.
	MapOutput string
	// InlineMap embeds the map in the bundle instead of writing a file.
	InlineMap bool
	// NoMapComment leaves out the sourceMappingURL comment.
	NoMapComment bool
	// Compressions lists the precompressed variants to write.
	Compressions []CompressionType
	// BaseDir is the directory a bundle written to the standard output is
	// served from. When set, the map URL is made relative to it.
	BaseDir string
}

// Result lists what Write produced.
type Result struct {
	Bundle string
	Map    string
	Files  []string
	Size   int
}

func (p Params) toStdout() bool {
	return p.Output == "" || p.Output == Stdout
}

// MapPath returns where the map is written, or "" when it is not written to
// a file.
func (p Params) MapPath() string {
	if p.MapOutput != "" {
		return p.MapOutput
	}
	if p.InlineMap || p.toStdout() {
		return ""
	}
	return p.Output + ".map"
}

// MapComment returns the sourceMappingURL comment pointing at mapURL, in
// the comment syntax matching the bundle file type.
func MapComment(bundle, mapURL string) string {
	if strings.EqualFold(filepath.Ext(bundle), ".css") {
		return "/*# sourceMappingURL=" + mapURL + " */"
	}
	return "//# sourceMappingURL=" + mapURL
}

// InlineMapURL returns sm as a base64 data URL.
func InlineMapURL(sm *mapping.SourceMap) string {
	return inlineMapPrefix + base64.StdEncoding.EncodeToString([]byte(sm.String()))
}

// Write writes code and sm according to params. sm may be nil for bundles
// without a map.
func Write(params Params, code string, sm *mapping.SourceMap) (*Result, error) {
	logger := params.Logger
	res := &Result{Bundle: params.Output, Map: params.MapPath()}

	if sm != nil && !params.NoMapComment {
		var mapURL string
		switch {
		case params.InlineMap:
			mapURL = InlineMapURL(sm)
		case res.Map != "":
			switch {
			case !params.toStdout():
				mapURL = fsext.RelSlash(filepath.Dir(params.Output), res.Map)
			case params.BaseDir != "":
				mapURL = fsext.RelSlash(params.BaseDir, res.Map)
			default:
				mapURL = filepath.ToSlash(res.Map)
			}
		}
		if mapURL != "" {
			if code != "" && !strings.HasSuffix(code, "\n") {
				code += "\n"
			}
			code += MapComment(params.Output, mapURL)
		}
	}
	res.Size = len(code)

	if params.toStdout() {
		if _, err := io.WriteString(params.Stdout, code); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrWrite, err)
		}
		if len(params.Compressions) > 0 {
			logger.Warn("Compressed variants are not written when the bundle goes to the standard output")
		}
	} else {
		if err := writeFile(params, res, params.Output, []byte(code)); err != nil {
			return nil, err
		}
		for _, c := range params.Compressions {
			data, err := compress(c, []byte(code))
			if err != nil {
				return nil, fmt.Errorf("%w: %s compression: %w", ErrWrite, c, err)
			}
			if err := writeFile(params, res, params.Output+c.Extension(), data); err != nil {
				return nil, err
			}
		}
	}

	if sm != nil && res.Map != "" {
		if err := writeFile(params, res, res.Map, []byte(sm.String())); err != nil {
			return nil, err
		}
	} else if sm != nil && !params.InlineMap {
		logger.Warn("The bundle goes to the standard output and no map output was given, the source map is dropped")
	}

	return res, nil
}

func writeFile(params Params, res *Result, name string, data []byte) error {
	if err := fsext.WriteFileAll(params.FS, name, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	params.Logger.WithFields(logrus.Fields{"path": name, "size": len(data)}).Debug("Wrote file")
	res.Files = append(res.Files, name)
	return nil
}
