// Package sourcenode implements a tree of text chunks that may carry their
// original source position. Serializing the tree yields the concatenated text
// and a source map describing where every piece of it came from.
package sourcenode

import (
	"strings"
)

// Original is the position in an original source a chunk of text came from.
// Line is 1-based and Column 0-based.
type Original struct {
	Source string
	Line   int
	Column int
	Name   string
}

// Node is an element of the tree. A node owns an ordered list of children,
// each being either literal text or another node. Text children inherit the
// node's original position, or stay unmapped when the node has none.
type Node struct {
	children []child
	original *Original

	sourceContents map[string]string
	contentOrder   []string
}

type child struct {
	text string
	node *Node
}

// NewText returns an unmapped node holding the given chunks.
func NewText(chunks ...string) *Node {
	n := &Node{}
	for _, chunk := range chunks {
		n.Add(chunk)
	}
	return n
}

// NewMapped returns a node whose text chunks map to orig.
func NewMapped(orig Original, chunks ...string) *Node {
	n := NewText(chunks...)
	n.original = &orig
	return n
}

// Original returns the position the node's text maps to, or nil.
func (n *Node) Original() *Original {
	return n.original
}

// Add appends literal text to the node.
func (n *Node) Add(text string) *Node {
	n.children = append(n.children, child{text: text})
	return n
}

// AddNode appends a child node. The node takes ownership of c.
func (n *Node) AddNode(c *Node) *Node {
	if c == nil {
		return n
	}
	n.children = append(n.children, child{node: c})
	return n
}

// Prepend inserts literal text before all existing children.
func (n *Node) Prepend(text string) *Node {
	n.children = append([]child{{text: text}}, n.children...)
	return n
}

// PrependNode inserts a child node before all existing children.
func (n *Node) PrependNode(c *Node) *Node {
	if c == nil {
		return n
	}
	n.children = append([]child{{node: c}}, n.children...)
	return n
}

// Len returns the number of direct children.
func (n *Node) Len() int {
	return len(n.children)
}

// Walk calls fn for every non-empty text chunk in the tree, left to right,
// together with the original position it maps to (nil when unmapped).
func (n *Node) Walk(fn func(text string, orig *Original)) {
	for _, c := range n.children {
		if c.node != nil {
			c.node.Walk(fn)
			continue
		}
		if c.text != "" {
			fn(c.text, n.original)
		}
	}
}

// SetSourceContent records the original content of source.
func (n *Node) SetSourceContent(source, content string) {
	if n.sourceContents == nil {
		n.sourceContents = make(map[string]string)
	}
	if _, ok := n.sourceContents[source]; !ok {
		n.contentOrder = append(n.contentOrder, source)
	}
	n.sourceContents[source] = content
}

// WalkSourceContents calls fn for every recorded source content, children first.
func (n *Node) WalkSourceContents(fn func(source, content string)) {
	for _, c := range n.children {
		if c.node != nil {
			c.node.WalkSourceContents(fn)
		}
	}
	for _, source := range n.contentOrder {
		fn(source, n.sourceContents[source])
	}
}

// String returns the concatenated text of the tree.
func (n *Node) String() string {
	var sb strings.Builder
	n.Walk(func(text string, _ *Original) {
		sb.WriteString(text)
	})
	return sb.String()
}
