package output

import (
	"fmt"
	"strings"

	"github.com/getAsterisk/stackwalk/internal/engine/extract"
	"github.com/getAsterisk/stackwalk/internal/engine/graph"
)

type DOTGenerator struct {
	graph *graph.CallGraph
}

func NewDOTGenerator(g *graph.CallGraph) *DOTGenerator {
	return &DOTGenerator{graph: g}
}

// Generate renders the call graph with one cluster per source file. External
// callees sit outside the clusters with dashed outlines and edges on a
// recursion cycle are drawn red.
func (d *DOTGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph callgraph {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.2;\n")
	buf.WriteString("  overlap=false;\n\n")

	cycleEdges := cycleEdgeSet(d.graph.DetectCycles())

	for i, file := range groupByFile(d.graph) {
		buf.WriteString(fmt.Sprintf("  subgraph cluster_%d {\n", i))
		buf.WriteString(fmt.Sprintf("    label=%q;\n", file.path))
		buf.WriteString("    style=filled;\n")
		buf.WriteString("    color=\"whitesmoke\";\n")
		buf.WriteString("    node [fillcolor=\"white\", style=\"rounded,filled\"];\n")
		for _, n := range file.nodes {
			attrs := fmt.Sprintf("label=%q", nodeLabel(n))
			if n.Type == extract.KindModule {
				attrs += ", shape=folder"
			}
			buf.WriteString(fmt.Sprintf("    %s [%s];\n", nodeID(n.ID), attrs))
		}
		buf.WriteString("  }\n\n")
	}

	externals := d.graph.ExternalNodes()
	if len(externals) > 0 {
		buf.WriteString("  // External callees\n")
		buf.WriteString("  node [fillcolor=\"gainsboro\", style=\"dashed\", color=\"grey\"];\n")
		for _, n := range externals {
			buf.WriteString(fmt.Sprintf("  %s [label=%q];\n", nodeID(n.ID), n.Name))
		}
		buf.WriteString("\n")
	}

	for _, e := range d.graph.Edges {
		var attrs []string
		if e.Count > 1 {
			attrs = append(attrs, fmt.Sprintf("label=\"x%d\"", e.Count))
		}
		switch {
		case cycleEdges[[2]graph.NodeID{e.From, e.To}]:
			attrs = append(attrs, "color=\"red\"", "penwidth=2.0")
		case !d.graph.Resolved(e):
			attrs = append(attrs, "color=\"grey\"", "style=dashed")
		default:
			attrs = append(attrs, "color=\"forestgreen\"")
		}
		buf.WriteString(fmt.Sprintf("  %s -> %s [%s];\n", nodeID(e.From), nodeID(e.To), strings.Join(attrs, ", ")))
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

type fileNodes struct {
	path  string
	nodes []graph.Node
}

// groupByFile relies on block nodes being ordered by file, as Merge lays
// them out.
func groupByFile(g *graph.CallGraph) []fileNodes {
	var out []fileNodes
	for _, n := range g.Nodes {
		if n.IsExternal() {
			continue
		}
		if len(out) == 0 || out[len(out)-1].path != n.File {
			out = append(out, fileNodes{path: n.File})
		}
		out[len(out)-1].nodes = append(out[len(out)-1].nodes, n)
	}
	return out
}

func nodeID(id graph.NodeID) string {
	return fmt.Sprintf("n%d", id)
}

// nodeLabel is the short display name of a block: Class.name for methods,
// the kind and line for anonymous blocks.
func nodeLabel(n graph.Node) string {
	if n.IsExternal() {
		return n.Name
	}
	name := n.Name
	if name == "" {
		name = fmt.Sprintf("<%s@%d>", n.Type, n.Line)
	}
	if n.Class != "" {
		return n.Class + "." + name
	}
	return name
}

func cycleEdgeSet(cycles [][]graph.NodeID) map[[2]graph.NodeID]bool {
	out := make(map[[2]graph.NodeID]bool)
	for _, cycle := range cycles {
		for i := range cycle {
			out[[2]graph.NodeID{cycle[i], cycle[(i+1)%len(cycle)]}] = true
		}
	}
	return out
}
