package testutils

import (
	"strings"
	"unicode/utf16"

	"github.com/liuxd6825/smconcat/lib/mapping"
)

// DummySourceMap returns a source map for the text obtained by joining
// tokens, mapping every token that is not pure whitespace to the same
// position in source. It mimics what a minifier that changed nothing would
// produce.
func DummySourceMap(tokens []string, source string) *mapping.SourceMap {
	gen := mapping.NewGenerator("", "")
	line, column := 1, 0
	for _, token := range tokens {
		if strings.TrimSpace(token) != "" {
			gen.AddMapping(mapping.Mapping{
				GeneratedLine:   line,
				GeneratedColumn: column,
				Source:          source,
				OriginalLine:    line,
				OriginalColumn:  column,
			})
		}
		for _, r := range token {
			if r == '\n' {
				line++
				column = 0
				continue
			}
			column += utf16.RuneLen(r)
		}
	}
	return gen.SourceMap()
}

// CollectMappings decodes sm and returns all of its mappings in order.
func CollectMappings(sm *mapping.SourceMap) ([]mapping.Mapping, error) {
	c, err := mapping.NewConsumer(sm)
	if err != nil {
		return nil, err
	}
	var result []mapping.Mapping
	err = c.EachMapping(func(m mapping.Mapping) error {
		result = append(result, m)
		return nil
	})
	return result, err
}
