package concat

import (
	"github.com/liuxd6825/smconcat/lib/sourcenode"
)

// BuildNode turns one fragment into a tree node. Without a map the content
// becomes a plain node; with one, the content is split along the map's
// mappings and every source path is rewritten relative to mapPath.
func BuildNode(fragment *Fragment, mapPath string) (*sourcenode.Node, error) {
	if fragment.Map == nil {
		return sourcenode.NewText(fragment.Content), nil
	}

	consumer, err := NormalizeMap(fragment.Map)
	if err != nil {
		return nil, err
	}
	prefix, err := SourcePrefix(mapPath, fragment.sourcesRoot())
	if err != nil {
		return nil, err
	}
	return sourcenode.FromStringWithSourceMap(fragment.Content, consumer, SourceRewriter(prefix))
}
