package output

import (
	"fmt"
	"strings"

	"github.com/getAsterisk/stackwalk/internal/engine/graph"
)

type TSVGenerator struct {
	graph *graph.CallGraph
}

func NewTSVGenerator(g *graph.CallGraph) *TSVGenerator {
	return &TSVGenerator{graph: g}
}

// Generate writes one row per deduplicated edge. Line and column locate the
// first call site of the edge.
func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("Caller\tCallee\tFile\tLine\tColumn\tCount\tResolved\n")
	for _, e := range t.graph.Edges {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%d\t%d\t%d\t%t\n",
			tsvField(t.graph.Key(e.From)),
			tsvField(t.graph.Key(e.To)),
			tsvField(e.First.File),
			e.First.Span.Start.Line,
			e.First.Span.Start.Column,
			e.Count,
			t.graph.Resolved(e),
		))
	}

	return buf.String(), nil
}

func tsvField(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
}
