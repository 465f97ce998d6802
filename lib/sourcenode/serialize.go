package sourcenode

import (
	"strings"
	"unicode/utf16"

	"github.com/liuxd6825/smconcat/lib/mapping"
)

// CodeWithSourceMap is the serialized form of a tree.
type CodeWithSourceMap struct {
	Code string
	Map  *mapping.Generator
}

// ToStringWithSourceMap serializes the tree into its text and a source map
// for a generated file named file. Output lines start after every '\n' and
// columns are counted in UTF-16 code units.
//
// A mapping is emitted at the start of every mapped chunk whose original
// position differs from the last one, when the walk leaves a mapped region,
// and at the start of every new line inside a multi-line mapped chunk.
func (n *Node) ToStringWithSourceMap(file string) *CodeWithSourceMap {
	var (
		code   strings.Builder
		gen    = mapping.NewGenerator(file, "")
		line   = 1
		column = 0
		last   *Original
		active bool
	)

	mapped := func(orig *Original) mapping.Mapping {
		return mapping.Mapping{
			GeneratedLine:   line,
			GeneratedColumn: column,
			Source:          orig.Source,
			OriginalLine:    orig.Line,
			OriginalColumn:  orig.Column,
			Name:            orig.Name,
		}
	}

	n.Walk(func(text string, orig *Original) {
		code.WriteString(text)

		if orig != nil && orig.Source != "" {
			if last == nil || *last != *orig {
				gen.AddMapping(mapped(orig))
			}
			last = orig
			active = true
		} else if active {
			gen.AddMapping(mapping.Mapping{GeneratedLine: line, GeneratedColumn: column})
			last = nil
			active = false
		}

		for i, r := range text {
			if r != '\n' {
				column += utf16.RuneLen(r)
				continue
			}
			line++
			column = 0
			if i+1 == len(text) {
				// mappings end at the end of a line
				last = nil
				active = false
			} else if active {
				gen.AddMapping(mapped(orig))
			}
		}
	})

	n.WalkSourceContents(func(source, content string) {
		gen.SetSourceContent(source, content)
	})

	return &CodeWithSourceMap{Code: code.String(), Map: gen}
}
