package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getAsterisk/stackwalk/internal/core/errors"
)

func stackTree() *fakeNode {
	return layout(branch("file",
		class("Stack<T>", fn("push", call("helper"))),
		fn("main", call("Stack.push")),
		branch("scope", leaf("ident", "inner").as("name"), call("x")),
	))
}

func TestExtractBlocksAndCalls(t *testing.T) {
	res, err := toyExtractor().Extract("pkg/stack.toy", "toy", stackTree())
	require.NoError(t, err)

	assert.Equal(t, "pkg/stack.toy", res.Path)
	assert.Equal(t, "stack", res.Module)

	type shape struct {
		Kind   BlockKind
		Name   string
		Parent BlockID
		Class  string
	}
	var got []shape
	for i, b := range res.Blocks {
		assert.Equal(t, BlockID(i), b.ID, "block ids are arena indexes")
		assert.Equal(t, "pkg/stack.toy", b.File)
		got = append(got, shape{b.Kind, b.Name, b.Parent, b.Class})
	}
	assert.Equal(t, []shape{
		{KindModule, "stack", NoBlock, ""},
		{KindClass, "Stack", 0, ""},
		{KindMethod, "push", 1, "Stack"},
		{KindFunction, "main", 0, ""},
		{KindOther, "inner", 0, ""},
	}, got)

	for _, b := range res.Blocks[1:] {
		parent := res.Blocks[b.Parent]
		assert.True(t, parent.Span.Contains(b.Span), "%s not inside %s", b.Name, parent.Name)
	}

	require.Len(t, res.Calls, 3)
	assert.Equal(t, CallSite{Caller: 2, Callee: "helper", File: "pkg/stack.toy", Span: res.Calls[0].Span, Stack: []BlockID{0, 1, 2}}, res.Calls[0])
	assert.Equal(t, "Stack.push", res.Calls[1].Callee)
	assert.Equal(t, []BlockID{0, 3}, res.Calls[1].Stack)
	assert.Equal(t, BlockID(4), res.Calls[2].Caller)

	for _, c := range res.Calls {
		assert.Equal(t, c.Caller, c.Stack[len(c.Stack)-1])
		assert.Equal(t, res.Root(), c.Stack[0])
	}
}

func TestExtractImplicitModule(t *testing.T) {
	root := layout(branch("program", fn("main", call("run"))))
	res, err := toyExtractor().Extract("app.toy", "toy", root)
	require.NoError(t, err)

	require.Len(t, res.Blocks, 2)
	assert.Equal(t, KindModule, res.Blocks[0].Kind)
	assert.Equal(t, "app", res.Blocks[0].Name)
	assert.Equal(t, root.Span(), res.Blocks[0].Span)
	assert.Equal(t, BlockID(0), res.Blocks[1].Parent)
	assert.Equal(t, BlockID(1), res.Calls[0].Caller)
}

func TestExtractIndexFileNamesModuleAfterDirectory(t *testing.T) {
	res, err := toyExtractor().Extract("pkg/net/mod.toy", "toy", layout(branch("file")))
	require.NoError(t, err)
	assert.Equal(t, "net", res.Module)
	assert.Equal(t, "net", res.Blocks[0].Name)
}

func TestExtractEdgeShapes(t *testing.T) {
	tests := []struct {
		name       string
		body       *fakeNode
		wantKind   BlockKind
		wantName   string
		wantCallee []string
	}{
		{
			name:       "anonymous function",
			body:       branch("func", call("y")),
			wantKind:   KindFunction,
			wantCallee: []string{"y"},
		},
		{
			name:       "method outside class",
			body:       branch("method", leaf("ident", "m").as("name")),
			wantKind:   KindMethod,
			wantName:   "m",
		},
		{
			name:       "callee falls back to text before arguments",
			body:       fn("f", branch("call", leaf("ident", "foo"), leaf("args", "(1)"))),
			wantKind:   KindFunction,
			wantName:   "f",
			wantCallee: []string{"foo"},
		},
		{
			name:       "nested calls are both recorded outer first",
			body:       fn("f", branch("call", leaf("path", "outer").as("callee"), branch("args", call("inner")))),
			wantKind:   KindFunction,
			wantName:   "f",
			wantCallee: []string{"outer", "inner"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := toyExtractor().Extract("a.toy", "toy", layout(branch("file", tt.body)))
			require.NoError(t, err)
			require.Len(t, res.Blocks, 2)
			assert.Equal(t, tt.wantKind, res.Blocks[1].Kind)
			assert.Equal(t, tt.wantName, res.Blocks[1].Name)

			var callees []string
			for _, c := range res.Calls {
				assert.Equal(t, BlockID(1), c.Caller)
				callees = append(callees, c.Callee)
			}
			assert.Equal(t, tt.wantCallee, callees)
		})
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	ex := toyExtractor()
	a, err := ex.Extract("pkg/stack.toy", "toy", stackTree())
	require.NoError(t, err)
	b, err := ex.Extract("pkg/stack.toy", "toy", stackTree())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestExtractUnknownLanguage(t *testing.T) {
	_, err := toyExtractor().Extract("a.rb", "ruby", layout(branch("file")))
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
}

func TestExtractNilRoot(t *testing.T) {
	_, err := toyExtractor().Extract("a.toy", "toy", nil)
	assert.True(t, errors.IsCode(err, errors.CodeParseFailure))
}

func TestExtractCollectsImports(t *testing.T) {
	root := layout(branch("file",
		branch("import", leaf("dotted", "utils").as("source"), leaf("dotted", "helper").as("name")),
		fn("main", call("helper")),
	))
	res, err := toyExtractor().Extract("main.toy", "toy", root)
	require.NoError(t, err)
	require.Len(t, res.Imports, 1)
	assert.Equal(t, "helper", res.Imports[0].Local)
	assert.Equal(t, []string{"utils", "helper"}, res.Imports[0].Path)
}
