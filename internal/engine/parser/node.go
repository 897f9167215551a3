package parser

// Point is a 1-based line/column position.
type Point struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// Span locates a node in its source file. Byte offsets are half-open.
type Span struct {
	StartByte int   `json:"start_byte" yaml:"start_byte"`
	EndByte   int   `json:"end_byte" yaml:"end_byte"`
	Start     Point `json:"start" yaml:"start"`
	End       Point `json:"end" yaml:"end"`
}

// Contains reports whether other lies within s.
func (s Span) Contains(other Span) bool {
	return s.StartByte <= other.StartByte && other.EndByte <= s.EndByte
}

// Node is the syntax tree surface the indexer relies on. Children are in
// source order and include anonymous tokens.
type Node interface {
	Kind() string
	Span() Span
	Children() []Node
	// Field returns the children stored under the grammar field name, in
	// source order.
	Field(name string) []Node
	Text() string
}

// Tree owns a parsed root node. Close must be called once the tree is no
// longer walked.
type Tree struct {
	root     Node
	hasError bool
	closer   func()
}

// NewTree wraps an already built root node. closer may be nil.
func NewTree(root Node, hasError bool, closer func()) *Tree {
	return &Tree{root: root, hasError: hasError, closer: closer}
}

func (t *Tree) Root() Node {
	return t.root
}

// HasError reports whether the grammar had to recover from syntax errors.
func (t *Tree) HasError() bool {
	return t.hasError
}

func (t *Tree) Close() {
	if t.closer != nil {
		t.closer()
		t.closer = nil
	}
}
