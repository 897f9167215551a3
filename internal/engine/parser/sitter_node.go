package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// sitterNode adapts a tree-sitter node. Children are materialised on first
// use and cached, so each node is wrapped at most once per walk.
type sitterNode struct {
	node   *sitter.Node
	source []byte

	loaded   bool
	children []Node
	fields   []string
}

func newSitterNode(node *sitter.Node, source []byte) *sitterNode {
	return &sitterNode{node: node, source: source}
}

func (n *sitterNode) Kind() string {
	return n.node.Kind()
}

func (n *sitterNode) Span() Span {
	start := n.node.StartPosition()
	end := n.node.EndPosition()
	return Span{
		StartByte: int(n.node.StartByte()),
		EndByte:   int(n.node.EndByte()),
		Start:     Point{Line: int(start.Row) + 1, Column: int(start.Column) + 1},
		End:       Point{Line: int(end.Row) + 1, Column: int(end.Column) + 1},
	}
}

func (n *sitterNode) Children() []Node {
	n.load()
	return n.children
}

func (n *sitterNode) Field(name string) []Node {
	n.load()
	var out []Node
	for i, field := range n.fields {
		if field == name {
			out = append(out, n.children[i])
		}
	}
	return out
}

func (n *sitterNode) Text() string {
	start, end := n.node.StartByte(), n.node.EndByte()
	if start > end || end > uint(len(n.source)) {
		return ""
	}
	return string(n.source[start:end])
}

func (n *sitterNode) load() {
	if n.loaded {
		return
	}
	n.loaded = true
	count := n.node.ChildCount()
	if count == 0 {
		return
	}
	n.children = make([]Node, 0, count)
	n.fields = make([]string, 0, count)
	for i := uint(0); i < count; i++ {
		child := n.node.Child(i)
		if child == nil {
			continue
		}
		n.children = append(n.children, newSitterNode(child, n.source))
		n.fields = append(n.fields, n.node.FieldNameForChild(uint32(i)))
	}
}
