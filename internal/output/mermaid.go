package output

import (
	"fmt"
	"strings"

	"github.com/getAsterisk/stackwalk/internal/engine/graph"
)

type MermaidGenerator struct {
	graph *graph.CallGraph
}

func NewMermaidGenerator(g *graph.CallGraph) *MermaidGenerator {
	return &MermaidGenerator{graph: g}
}

// Generate renders a left-to-right flowchart. Files become subgraphs and
// external callees use the stadium shape.
func (m *MermaidGenerator) Generate() (string, error) {
	var buf strings.Builder
	buf.WriteString("flowchart LR\n")

	for i, file := range groupByFile(m.graph) {
		buf.WriteString(fmt.Sprintf("  subgraph f%d[\"%s\"]\n", i, escapeMermaidLabel(file.path)))
		for _, n := range file.nodes {
			buf.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", nodeID(n.ID), escapeMermaidLabel(nodeLabel(n))))
		}
		buf.WriteString("  end\n")
	}

	externals := m.graph.ExternalNodes()
	for _, n := range externals {
		buf.WriteString(fmt.Sprintf("  %s([\"%s\"])\n", nodeID(n.ID), escapeMermaidLabel(n.Name)))
	}

	cycleEdges := cycleEdgeSet(m.graph.DetectCycles())
	var cycleLinks []int
	for i, e := range m.graph.Edges {
		arrow := "-->"
		if !m.graph.Resolved(e) {
			arrow = "-.->"
		}
		if e.Count > 1 {
			buf.WriteString(fmt.Sprintf("  %s %s|x%d| %s\n", nodeID(e.From), arrow, e.Count, nodeID(e.To)))
		} else {
			buf.WriteString(fmt.Sprintf("  %s %s %s\n", nodeID(e.From), arrow, nodeID(e.To)))
		}
		if cycleEdges[[2]graph.NodeID{e.From, e.To}] {
			cycleLinks = append(cycleLinks, i)
		}
	}

	if len(externals) > 0 {
		ids := make([]string, len(externals))
		for i, n := range externals {
			ids[i] = nodeID(n.ID)
		}
		buf.WriteString("  classDef external fill:#eee,stroke:#999,stroke-dasharray: 5 5\n")
		buf.WriteString(fmt.Sprintf("  class %s external\n", strings.Join(ids, ",")))
	}
	if len(cycleLinks) > 0 {
		buf.WriteString(fmt.Sprintf("  linkStyle %s stroke:#d62728,stroke-width:2px\n", joinInts(cycleLinks)))
	}
	return buf.String(), nil
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "#quot;")
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ",")
}
