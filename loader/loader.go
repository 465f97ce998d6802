// Package loader reads concatenation fragments from a file system together
// with the source maps their trailing sourceMappingURL comments point to.
package loader

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"

	"github.com/liuxd6825/smconcat/concat"
	"github.com/liuxd6825/smconcat/lib/mapping"
)

// MapNone disables map detection for a fragment.
const MapNone = "none"

var (
	// ErrNotFound is returned when a fragment or an explicitly requested map
	// does not exist.
	ErrNotFound = errors.New("file not found")

	//nolint: gochecknoglobals
	mapCommentRe = regexp.MustCompile(
		`(?m)^[ \t]*(//[#@][ \t]+sourceMappingURL=([^\s'"]+)[ \t]*|/\*[#@][ \t]+sourceMappingURL=([^\s*'"]+)[ \t]*\*/[ \t]*)\r?$`)
	//nolint: gochecknoglobals
	schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)
)

// Spec describes a fragment to load.
type Spec struct {
	// Path of the fragment.
	Path string
	// Map is "" to follow the sourceMappingURL comment, MapNone to ignore any
	// map, or the path of the map file to use.
	Map string
	// SourcesRelativeTo overrides where the map's sources are relative to.
	SourcesRelativeTo string
}

// Source is a loaded fragment.
type Source struct {
	Path    string
	Content string
	// MapURL is the value of the sourceMappingURL comment, if there was one.
	MapURL string
	// Map is the raw map JSON, nil when the fragment has no map.
	Map []byte
	// MapPath is the file the map was read from, "" for inline maps.
	MapPath string

	sourcesRelativeTo string
}

// Fragment returns the concatenation input for s. Map sources are relative
// to the map file, or to the fragment itself for inline maps.
func (s *Source) Fragment() concat.Fragment {
	f := concat.Fragment{
		Content:           s.Content,
		SourcesRelativeTo: s.Path,
		Meta:              s,
	}
	if s.Map != nil {
		f.Map = s.Map
		if s.MapPath != "" {
			f.SourcesRelativeTo = s.MapPath
		}
	}
	if s.sourcesRelativeTo != "" {
		f.SourcesRelativeTo = s.sourcesRelativeTo
	}
	return f
}

// Load reads the fragment described by spec from fs. The sourceMappingURL
// comment is removed from the content, but not the line terminator after it.
// A map that the comment points to but that cannot be found is only logged.
func Load(logger logrus.FieldLogger, fs afero.Fs, spec Spec) (*Source, error) {
	logger = logger.WithField("fragment", spec.Path)

	data, err := readFile(fs, spec.Path)
	if err != nil {
		return nil, err
	}

	content, mapURL := StripMapComment(string(data))
	src := &Source{
		Path:              spec.Path,
		Content:           content,
		MapURL:            mapURL,
		sourcesRelativeTo: spec.SourcesRelativeTo,
	}

	switch spec.Map {
	case MapNone:
		logger.Debug("Map detection disabled")
	case "":
		if mapURL == "" {
			logger.Debug("No source map comment")
			break
		}
		if err := src.resolveMapURL(logger, fs); err != nil {
			return nil, err
		}
	default:
		if src.Map, err = readMap(fs, spec.Map); err != nil {
			return nil, err
		}
		src.MapPath = spec.Map
	}

	logger.WithField("map", src.MapPath).Debug("Loaded fragment")
	return src, nil
}

// StripMapComment removes the last sourceMappingURL comment from content and
// returns its URL, or "" when there is none.
func StripMapComment(content string) (string, string) {
	matches := mapCommentRe.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content, ""
	}
	m := matches[len(matches)-1]

	var mapURL string
	if m[4] >= 0 {
		mapURL = content[m[4]:m[5]]
	} else {
		mapURL = content[m[6]:m[7]]
	}
	return content[:m[0]] + content[m[3]:], mapURL
}

func (s *Source) resolveMapURL(logger logrus.FieldLogger, fs afero.Fs) error {
	logger = logger.WithField("map", s.MapURL)

	if strings.HasPrefix(s.MapURL, "data:") {
		data, err := DecodeDataURL(s.MapURL)
		if err != nil {
			return fmt.Errorf("%w: inline map of %s: %w", concat.ErrInvalidMapInput, s.Path, err)
		}
		s.Map = data
		return nil
	}

	mapPath := s.MapURL
	if schemeRe.MatchString(mapPath) {
		u, err := url.Parse(mapPath)
		if err != nil || u.Scheme != "file" {
			logger.Warn("Only local and inline source maps are supported, ignoring the map")
			return nil
		}
		mapPath = filepath.FromSlash(u.Path)
	} else {
		if i := strings.IndexAny(mapPath, "?#"); i >= 0 {
			mapPath = mapPath[:i]
		}
		unescaped, err := url.PathUnescape(mapPath)
		if err == nil {
			mapPath = unescaped
		}
		mapPath = filepath.FromSlash(mapPath)
		if !filepath.IsAbs(mapPath) {
			mapPath = filepath.Join(filepath.Dir(s.Path), mapPath)
		}
	}

	data, err := readMap(fs, mapPath)
	if errors.Is(err, ErrNotFound) {
		logger.WithField("path", mapPath).Warn("Source map not found, the fragment will be left unmapped")
		return nil
	}
	if err != nil {
		return err
	}
	s.Map, s.MapPath = data, mapPath
	return nil
}

// DecodeDataURL returns the payload of a data URL, either base64 or percent
// encoded.
func DecodeDataURL(u string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URL")
	}
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

func readFile(fs afero.Fs, path string) ([]byte, error) {
	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't read %s: %w", path, err)
	}
	return data, nil
}

// readMap reads a map file and checks that it looks like a regular map.
func readMap(fs afero.Fs, path string) ([]byte, error) {
	data, err := readFile(fs, path)
	if err != nil {
		return nil, err
	}

	body := bytes.TrimSpace(data)
	if bytes.HasPrefix(body, []byte(")]}'")) {
		if i := bytes.IndexByte(body, '\n'); i >= 0 {
			body = body[i+1:]
		}
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", concat.ErrInvalidMapInput, path)
	}
	if gjson.GetBytes(body, "sections").Exists() {
		return nil, fmt.Errorf("%w: %s is an indexed map: %w", concat.ErrInvalidMapInput, path, mapping.ErrUnsupported)
	}
	if v := gjson.GetBytes(body, "version").Int(); v != mapping.Version {
		return nil, fmt.Errorf("%w: %s has version %d", concat.ErrInvalidMapInput, path, v)
	}
	return data, nil
}
