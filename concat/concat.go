// Package concat concatenates source fragments, each optionally carrying its
// own source map, into a single tree whose serialization yields the bundled
// text together with a merged source map.
//
// The package performs no I/O and keeps no state between calls.
package concat

import (
	"github.com/liuxd6825/smconcat/lib/sourcenode"
)

// Fragment is one input unit.
type Fragment struct {
	// Content is the literal text, preserved byte for byte.
	Content string
	// Map optionally describes Content. See NormalizeMap for the accepted
	// representations.
	Map any
	// SourcesRelativeTo is the path the map's sources are relative to; its
	// directory is what matters. Defaults to ".".
	SourcesRelativeTo string
	// Meta is left untouched and lets Process hooks carry their own data.
	Meta any
}

func (f *Fragment) sourcesRoot() string {
	if f.SourcesRelativeTo == "" {
		return defaultPath
	}
	return f.SourcesRelativeTo
}

// ProcessFunc may mutate the node built for a fragment before it is
// appended, e.g. to wrap it in a banner and a footer. fragment points into
// the slice given to Concat and index is its position there. A returned
// error aborts the concatenation.
type ProcessFunc func(node *sourcenode.Node, fragment *Fragment, index int) error

// Options configure Concat. The zero value is ready to use.
type Options struct {
	// Delimiter is inserted between consecutive fragments.
	Delimiter string
	// MapPath is where the output map will be located. Sources of every
	// fragment map are rewritten relative to its directory. Defaults to ".".
	MapPath string
	// Process is called once per fragment.
	Process ProcessFunc
}

func (o *Options) resolved() Options {
	var r Options
	if o != nil {
		r = *o
	}
	if r.MapPath == "" {
		r.MapPath = defaultPath
	}
	return r
}

// Concat builds the composite node of fragments, in order, with the
// delimiter between consecutive ones. Per-fragment failures are reported as
// a *FragmentError and no partial result is returned.
func Concat(fragments []Fragment, opts *Options) (*sourcenode.Node, error) {
	o := opts.resolved()

	result := sourcenode.NewText()
	for i := range fragments {
		fragment := &fragments[i]

		if o.Delimiter != "" && i > 0 {
			result.AddNode(sourcenode.NewText(o.Delimiter))
		}

		node, err := BuildNode(fragment, o.MapPath)
		if err != nil {
			return nil, &FragmentError{Index: i, Err: err}
		}

		if o.Process != nil {
			if err := o.Process(node, fragment, i); err != nil {
				return nil, &FragmentError{Index: i, Err: err}
			}
		}

		result.AddNode(node)
	}
	return result, nil
}
