package concat

import (
	"encoding/json"
	"fmt"

	"github.com/liuxd6825/smconcat/lib/mapping"
)

// JSONer is implemented by map producers that can convert themselves to the
// raw table, like *mapping.Generator.
type JSONer interface {
	ToJSON() (*mapping.SourceMap, error)
}

// NormalizeMap resolves any accepted map representation into a Consumer:
//
//   - a mapping.Consumer is returned as it is
//   - a *mapping.SourceMap or mapping.SourceMap is decoded
//   - a string, []byte or json.RawMessage is parsed as JSON, then decoded
//   - a JSONer is converted, then decoded
//
// Anything else fails with ErrInvalidMapInput.
func NormalizeMap(input any) (mapping.Consumer, error) {
	var (
		sm  *mapping.SourceMap
		err error
	)

	switch v := input.(type) {
	case mapping.Consumer:
		return v, nil
	case *mapping.SourceMap:
		sm = v
	case mapping.SourceMap:
		sm = &v
	case string:
		sm, err = mapping.Parse([]byte(v))
	case []byte:
		sm, err = mapping.Parse(v)
	case json.RawMessage:
		sm, err = mapping.Parse(v)
	case JSONer:
		sm, err = v.ToJSON()
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidMapInput, input)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMapInput, err)
	}
	if sm == nil {
		return nil, fmt.Errorf("%w: nil source map", ErrInvalidMapInput)
	}

	c, err := mapping.NewConsumer(sm)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMapInput, err)
	}
	return c, nil
}
