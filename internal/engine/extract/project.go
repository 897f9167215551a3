package extract

import (
	"strings"

	"github.com/getAsterisk/stackwalk/internal/core/config"
	"github.com/getAsterisk/stackwalk/internal/engine/parser"
)

// project selects nodes under n for a projection role. Entries are tried in
// order and the first one that yields anything wins. An entry names a
// grammar field, or failing that a child node kind. With deep set, kinds are
// also searched among descendants, without descending into a match.
func project(n parser.Node, entries config.Kinds, deep bool) []parser.Node {
	for _, entry := range entries {
		if nodes := n.Field(entry); len(nodes) > 0 {
			return nodes
		}

		var direct []parser.Node
		for _, child := range n.Children() {
			if child != nil && child.Kind() == entry {
				direct = append(direct, child)
			}
		}
		if len(direct) > 0 {
			return direct
		}

		if deep {
			if found := descendantsOfKind(n, entry); len(found) > 0 {
				return found
			}
		}
	}
	return nil
}

func descendantsOfKind(n parser.Node, kind string) []parser.Node {
	var out []parser.Node
	stack := reverseChildren(n, nil)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.Kind() == kind {
			out = append(out, cur)
			continue
		}
		stack = reverseChildren(cur, stack)
	}
	return out
}

// reverseChildren pushes n's children so they pop in source order.
func reverseChildren(n parser.Node, stack []parser.Node) []parser.Node {
	children := n.Children()
	for i := len(children) - 1; i >= 0; i-- {
		if children[i] != nil {
			stack = append(stack, children[i])
		}
	}
	return stack
}

func first(nodes []parser.Node) parser.Node {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// calleeText derives the textual callee of a call node: the configured
// call_target projection, else the call's text before its last child (the
// argument list), else the text of its only child. Chained receivers such as
// "builder().build" keep their full prefix.
func calleeText(n parser.Node, target config.Kinds) string {
	if len(target) > 0 {
		if t := first(project(n, target, false)); t != nil {
			return compact(t.Text())
		}
	}

	children := nonNil(n.Children())
	switch {
	case len(children) >= 2:
		text := n.Text()
		cut := children[len(children)-1].Span().StartByte - n.Span().StartByte
		if cut > 0 && cut <= len(text) {
			return compact(text[:cut])
		}
		return compact(children[0].Text())
	case len(children) == 1:
		return compact(children[0].Text())
	}
	return compact(n.Text())
}

func nonNil(nodes []parser.Node) []parser.Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

var defaultNameEntries = config.Kinds{"name"}

// definitionName reads a block's declared name. Type parameters are cut so
// that "Stack<T>" is named "Stack".
func definitionName(n parser.Node, entries config.Kinds) string {
	if len(entries) == 0 {
		entries = defaultNameEntries
	}
	nameNode := first(project(n, entries, false))
	if nameNode == nil {
		return ""
	}
	name := compact(nameNode.Text())
	if i := strings.IndexAny(name, "<[("); i > 0 {
		name = name[:i]
	}
	return name
}
