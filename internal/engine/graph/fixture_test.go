package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/getAsterisk/stackwalk/internal/core/config"
	"github.com/getAsterisk/stackwalk/internal/engine/extract"
	"github.com/getAsterisk/stackwalk/internal/engine/parser"
)

var testLanguages = config.Default().Languages

// fileBuilder assembles a FileResult the way the extractor would, without
// parsing source.
type fileBuilder struct {
	t      testing.TB
	fr     *extract.FileResult
	blocks *extract.BlockExtractor
	calls  *extract.CallTracker
	line   int
}

func newFile(t testing.TB, path, language string) *fileBuilder {
	t.Helper()
	f := &fileBuilder{
		t: t,
		fr: &extract.FileResult{
			Path:     path,
			Language: language,
			Module:   extract.ModuleName(path, testLanguages[language]),
		},
		blocks: extract.NewBlockExtractor(path),
		calls:  extract.NewCallTracker(path),
	}
	f.blocks.Open(extract.KindModule, f.fr.Module, f.span())
	return f
}

func (f *fileBuilder) span() parser.Span {
	f.line++
	return parser.Span{
		StartByte: f.line * 100,
		EndByte:   f.line*100 + 10,
		Start:     parser.Point{Line: f.line, Column: 1},
		End:       parser.Point{Line: f.line, Column: 11},
	}
}

func (f *fileBuilder) open(kind extract.BlockKind, name string) *fileBuilder {
	f.blocks.Open(kind, name, f.span())
	return f
}

func (f *fileBuilder) fn(name string) *fileBuilder {
	kind := extract.KindFunction
	if k, ok := f.blocks.TopKind(); ok && k == extract.KindClass {
		kind = extract.KindMethod
	}
	return f.open(kind, name)
}

func (f *fileBuilder) class(name string) *fileBuilder {
	return f.open(extract.KindClass, name)
}

func (f *fileBuilder) end() *fileBuilder {
	require.NoError(f.t, f.blocks.Close(f.blocks.Top()))
	return f
}

func (f *fileBuilder) call(callee string) *fileBuilder {
	require.True(f.t, f.calls.Record(f.blocks, callee, f.span()))
	return f
}

func (f *fileBuilder) imports(local string, path ...string) *fileBuilder {
	f.fr.Imports = append(f.fr.Imports, extract.ImportBinding{Local: local, Path: path, Span: f.span()})
	return f
}

func (f *fileBuilder) done() *extract.FileResult {
	f.t.Helper()
	f.end()
	require.NoError(f.t, f.blocks.Finish())
	f.fr.Blocks = f.blocks.Blocks()
	f.fr.Calls = f.calls.Calls()
	return f.fr
}

func buildGraph(t testing.TB, policy Policy, files ...*extract.FileResult) *CallGraph {
	t.Helper()
	run := Merge(files)
	return Build(run, NewResolver(run, testLanguages, policy))
}

// edgeTo returns the single edge from the node keyed from to the node keyed
// to.
func edgeTo(t *testing.T, g *CallGraph, from, to string) Edge {
	t.Helper()
	fromID, ok := g.Lookup(from)
	require.True(t, ok, "no node %q", from)
	toID, ok := g.Lookup(to)
	require.True(t, ok, "no node %q", to)
	for _, e := range g.Callees(fromID) {
		if e.To == toID {
			return e
		}
	}
	require.Failf(t, "missing edge", "%s -> %s", from, to)
	return Edge{}
}
