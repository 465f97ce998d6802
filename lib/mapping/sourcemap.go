// Package mapping implements the revision 3 source map table: decoding it
// from JSON, iterating its mappings and generating new tables.
package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Version is the only source map revision supported.
const Version = 3

// xssiPrefix may precede a source map served over HTTP and must be ignored.
const xssiPrefix = ")]}'"

// ErrUnsupported is returned for source maps that can be decoded but not consumed.
var ErrUnsupported = errors.New("unsupported source map")

// SourceMap is the JSON representation of a revision 3 source map.
type SourceMap struct {
	Version        int       `json:"version"`
	File           string    `json:"file,omitempty"`
	SourceRoot     string    `json:"sourceRoot,omitempty"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent,omitempty"`
	Names          []string  `json:"names"`
	Mappings       string    `json:"mappings"`

	// Sections is only decoded to reject index maps.
	Sections json.RawMessage `json:"sections,omitempty"`
}

// Parse decodes the JSON encoding of a source map.
func Parse(data []byte) (*SourceMap, error) {
	data = bytes.TrimSpace(data)
	if bytes.HasPrefix(data, []byte(xssiPrefix)) {
		if i := bytes.IndexByte(data, '\n'); i != -1 {
			data = data[i+1:]
		} else {
			data = nil
		}
	}

	sm := new(SourceMap)
	if err := json.Unmarshal(data, sm); err != nil {
		return nil, fmt.Errorf("couldn't decode source map: %w", err)
	}
	return sm, nil
}

// MarshalJSON always emits the sources and names arrays, even when empty.
func (sm SourceMap) MarshalJSON() ([]byte, error) {
	type plain SourceMap
	p := plain(sm)
	if p.Sources == nil {
		p.Sources = []string{}
	}
	if p.Names == nil {
		p.Names = []string{}
	}
	return json.Marshal(p)
}

// String returns the JSON encoding of the source map.
func (sm *SourceMap) String() string {
	b, err := json.Marshal(sm)
	if err != nil {
		return ""
	}
	return string(b)
}

// Mapping associates a generated position with an optional original one.
// Generated and original lines are 1-based, columns are 0-based and counted
// in UTF-16 code units. A mapping without Source has no original position.
type Mapping struct {
	GeneratedLine   int
	GeneratedColumn int
	Source          string
	OriginalLine    int
	OriginalColumn  int
	Name            string
}

// HasOriginal reports whether the mapping points back into a source.
func (m Mapping) HasOriginal() bool {
	return m.Source != ""
}

// Consumer is the query interface over a decoded source map.
type Consumer interface {
	// File is the name of the generated file the map belongs to, if recorded.
	File() string
	// Sources lists the source paths with the source root applied.
	Sources() []string
	// SourceContentFor returns the embedded content of source, if any.
	SourceContentFor(source string) (string, bool)
	// EachMapping calls fn for every mapping in generated position order
	// and stops at the first error fn returns.
	EachMapping(fn func(Mapping) error) error
}

type tableConsumer struct {
	file     string
	sources  []string
	contents map[string]string
	mappings []Mapping
}

var _ Consumer = (*tableConsumer)(nil)

// NewConsumer decodes the mappings of sm and returns a Consumer over them.
func NewConsumer(sm *SourceMap) (Consumer, error) {
	if sm == nil {
		return nil, fmt.Errorf("%w: nil source map", ErrUnsupported)
	}
	if sm.Version != Version {
		return nil, fmt.Errorf("%w: version %d, only version %d is supported", ErrUnsupported, sm.Version, Version)
	}
	if len(sm.Sections) > 0 {
		return nil, fmt.Errorf("%w: index maps with sections are not supported", ErrUnsupported)
	}

	c := &tableConsumer{
		file:     sm.File,
		sources:  make([]string, len(sm.Sources)),
		contents: make(map[string]string),
	}
	for i, source := range sm.Sources {
		c.sources[i] = Join(sm.SourceRoot, source)
		if i < len(sm.SourcesContent) && sm.SourcesContent[i] != nil {
			c.contents[c.sources[i]] = *sm.SourcesContent[i]
		}
	}

	mappings, err := decodeMappings(sm.Mappings, c.sources, sm.Names)
	if err != nil {
		return nil, err
	}
	c.mappings = mappings
	return c, nil
}

func (c *tableConsumer) File() string {
	return c.file
}

func (c *tableConsumer) Sources() []string {
	return c.sources
}

func (c *tableConsumer) SourceContentFor(source string) (string, bool) {
	content, ok := c.contents[source]
	return content, ok
}

func (c *tableConsumer) EachMapping(fn func(Mapping) error) error {
	for _, m := range c.mappings {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

// decodeMappings expands the VLQ mappings string. Every field except the
// generated column is relative to the previous segment of the whole map; the
// generated column resets on every line.
func decodeMappings(s string, sources, names []string) ([]Mapping, error) {
	var (
		result []Mapping
		fields [5]int
		line   = 1

		column, source, origLine, origColumn, name int
	)

	r := &vlqReader{s: s}
	for r.pos < len(s) {
		switch s[r.pos] {
		case ';':
			line++
			column = 0
			r.pos++
			continue
		case ',':
			r.pos++
			continue
		}

		n := 0
		for !r.atSegmentEnd() {
			if n == len(fields) {
				return nil, fmt.Errorf("mapping segment on generated line %d has more than %d fields", line, len(fields))
			}
			v, err := r.next()
			if err != nil {
				return nil, fmt.Errorf("couldn't decode mappings on generated line %d: %w", line, err)
			}
			fields[n] = v
			n++
		}
		if n != 1 && n != 4 && n != 5 {
			return nil, fmt.Errorf("mapping segment on generated line %d has %d fields", line, n)
		}

		column += fields[0]
		m := Mapping{GeneratedLine: line, GeneratedColumn: column}
		if n >= 4 {
			source += fields[1]
			origLine += fields[2]
			origColumn += fields[3]
			if source < 0 || source >= len(sources) {
				return nil, fmt.Errorf("mapping on generated line %d references unknown source #%d", line, source)
			}
			m.Source = sources[source]
			m.OriginalLine = origLine + 1
			m.OriginalColumn = origColumn
		}
		if n == 5 {
			name += fields[4]
			if name < 0 || name >= len(names) {
				return nil, fmt.Errorf("mapping on generated line %d references unknown name #%d", line, name)
			}
			m.Name = names[name]
		}
		result = append(result, m)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].GeneratedLine != result[j].GeneratedLine {
			return result[i].GeneratedLine < result[j].GeneratedLine
		}
		return result[i].GeneratedColumn < result[j].GeneratedColumn
	})
	return result, nil
}
