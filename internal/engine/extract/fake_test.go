package extract

import (
	"strings"

	"github.com/getAsterisk/stackwalk/internal/core/config"
	"github.com/getAsterisk/stackwalk/internal/engine/matcher"
	"github.com/getAsterisk/stackwalk/internal/engine/parser"
)

// fakeNode is an in-memory syntax node. Leaves carry text; the text and
// spans of inner nodes are derived by layout.
type fakeNode struct {
	kind  string
	field string
	text  string
	span  parser.Span
	kids  []*fakeNode
}

func leaf(kind, text string) *fakeNode {
	return &fakeNode{kind: kind, text: text}
}

func branch(kind string, kids ...*fakeNode) *fakeNode {
	return &fakeNode{kind: kind, kids: kids}
}

// as files n under a grammar field of its parent.
func (n *fakeNode) as(field string) *fakeNode {
	n.field = field
	return n
}

func (n *fakeNode) Kind() string { return n.kind }
func (n *fakeNode) Span() parser.Span { return n.span }
func (n *fakeNode) Text() string { return n.text }

func (n *fakeNode) Children() []parser.Node {
	out := make([]parser.Node, len(n.kids))
	for i, k := range n.kids {
		out[i] = k
	}
	return out
}

func (n *fakeNode) Field(name string) []parser.Node {
	var out []parser.Node
	for _, k := range n.kids {
		if k.field == name {
			out = append(out, k)
		}
	}
	return out
}

// layout assigns byte offsets by concatenating leaves with single spaces and
// returns root for chaining.
func layout(root *fakeNode) *fakeNode {
	var buf strings.Builder
	var place func(n *fakeNode)
	place = func(n *fakeNode) {
		start := buf.Len()
		if len(n.kids) == 0 {
			buf.WriteString(n.text)
		}
		for i, k := range n.kids {
			if i > 0 {
				buf.WriteByte(' ')
			}
			place(k)
		}
		end := buf.Len()
		if len(n.kids) > 0 {
			n.text = buf.String()[start:end]
		}
		n.span = parser.Span{
			StartByte: start,
			EndByte:   end,
			Start:     parser.Point{Line: 1, Column: start + 1},
			End:       parser.Point{Line: 1, Column: end + 1},
		}
	}
	place(root)
	return root
}

func toyLanguage() config.Language {
	return config.Language{
		Extensions:       []string{".toy"},
		Separators:       []string{"::", "."},
		Receivers:        []string{"self"},
		IndexFiles:       []string{"mod"},
		RelativePrefixes: []string{"crate", "self"},
		Matchers: map[string]config.Kinds{
			"module":              {"file"},
			"class_definition":    {"class"},
			"function_definition": {"func"},
			"method_definition":   {"method"},
			"scope_definition":    {"scope"},
			"call_expression":     {"call"},
			"call_target":         {"callee"},
			"import_statement":    {"import"},
			"import_path":         {"source"},
			"import_name":         {"name"},
			"import_alias":        {"alias"},
		},
	}
}

func toyExtractor() *Extractor {
	langs := map[string]config.Language{"toy": toyLanguage()}
	return NewExtractor(matcher.NewTable(langs), langs)
}

func fn(name string, body ...*fakeNode) *fakeNode {
	kids := []*fakeNode{leaf("ident", name).as("name")}
	return branch("func", append(kids, body...)...)
}

func class(name string, body ...*fakeNode) *fakeNode {
	kids := []*fakeNode{leaf("ident", name).as("name")}
	return branch("class", append(kids, body...)...)
}

func call(callee string) *fakeNode {
	return branch("call", leaf("path", callee).as("callee"), leaf("args", "()"))
}
