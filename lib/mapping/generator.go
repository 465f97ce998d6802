package mapping

import "encoding/json"

// Generator accumulates mappings in generated position order and encodes
// them into a SourceMap.
type Generator struct {
	file       string
	sourceRoot string

	mappings []Mapping
	sources  indexedSet
	names    indexedSet
	contents map[string]string
}

// NewGenerator returns an empty generator for the given generated file name.
func NewGenerator(file, sourceRoot string) *Generator {
	return &Generator{
		file:       file,
		sourceRoot: sourceRoot,
		sources:    newIndexedSet(),
		names:      newIndexedSet(),
		contents:   make(map[string]string),
	}
}

// AddMapping records m. Mappings are expected in generated position order.
func (g *Generator) AddMapping(m Mapping) {
	if m.HasOriginal() {
		g.sources.add(m.Source)
		if m.Name != "" {
			g.names.add(m.Name)
		}
	} else {
		m = Mapping{GeneratedLine: m.GeneratedLine, GeneratedColumn: m.GeneratedColumn}
	}
	g.mappings = append(g.mappings, m)
}

// SetSourceContent embeds content for source. Content of sources that no
// mapping references is not emitted.
func (g *Generator) SetSourceContent(source, content string) {
	g.contents[source] = content
}

// Mappings returns the recorded mappings.
func (g *Generator) Mappings() []Mapping {
	return g.mappings
}

// SourceMap encodes the recorded mappings.
func (g *Generator) SourceMap() *SourceMap {
	sm := &SourceMap{
		Version:    Version,
		File:       g.file,
		SourceRoot: g.sourceRoot,
		Sources:    g.sources.values(),
		Names:      g.names.values(),
		Mappings:   g.encodeMappings(),
	}

	var withContent bool
	contents := make([]*string, len(sm.Sources))
	for i, source := range sm.Sources {
		if content, ok := g.contents[source]; ok {
			contents[i] = &content
			withContent = true
		}
	}
	if withContent {
		sm.SourcesContent = contents
	}
	return sm
}

// ToJSON returns the encoded table, which lets a Generator be handed over
// anywhere a convertible map is accepted.
func (g *Generator) ToJSON() (*SourceMap, error) {
	return g.SourceMap(), nil
}

// MarshalJSON implements json.Marshaler.
func (g *Generator) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.SourceMap())
}

// String returns the JSON encoding of the generated source map.
func (g *Generator) String() string {
	return g.SourceMap().String()
}

func (g *Generator) encodeMappings() string {
	var (
		buf  []byte
		line = 1

		column, source, origLine, origColumn, name int
	)

	for i, m := range g.mappings {
		if m.GeneratedLine != line {
			column = 0
			for line < m.GeneratedLine {
				buf = append(buf, ';')
				line++
			}
		} else if i > 0 {
			if m == g.mappings[i-1] {
				continue
			}
			buf = append(buf, ',')
		}

		buf = appendVLQ(buf, m.GeneratedColumn-column)
		column = m.GeneratedColumn

		if !m.HasOriginal() {
			continue
		}
		idx := g.sources.index(m.Source)
		buf = appendVLQ(buf, idx-source)
		source = idx

		buf = appendVLQ(buf, m.OriginalLine-1-origLine)
		origLine = m.OriginalLine - 1

		buf = appendVLQ(buf, m.OriginalColumn-origColumn)
		origColumn = m.OriginalColumn

		if m.Name != "" {
			idx = g.names.index(m.Name)
			buf = appendVLQ(buf, idx-name)
			name = idx
		}
	}
	return string(buf)
}

// indexedSet keeps unique strings in insertion order.
type indexedSet struct {
	order   []string
	indices map[string]int
}

func newIndexedSet() indexedSet {
	return indexedSet{order: []string{}, indices: make(map[string]int)}
}

func (s *indexedSet) add(v string) {
	if _, ok := s.indices[v]; ok {
		return
	}
	s.indices[v] = len(s.order)
	s.order = append(s.order, v)
}

func (s *indexedSet) index(v string) int {
	return s.indices[v]
}

func (s *indexedSet) values() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
