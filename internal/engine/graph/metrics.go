package graph

import (
	"github.com/getAsterisk/stackwalk/internal/shared/observability"
)

// Stats summarizes a call graph.
type Stats struct {
	Blocks        int              `json:"blocks" yaml:"blocks"`
	Externals     int              `json:"externals" yaml:"externals"`
	Edges         int              `json:"edges" yaml:"edges"`
	ResolvedEdges int              `json:"resolved_edges" yaml:"resolved_edges"`
	Calls         int              `json:"calls" yaml:"calls"`
	ByStrategy    map[Strategy]int `json:"by_strategy" yaml:"by_strategy"`
}

func (g *CallGraph) Stats() Stats {
	s := Stats{ByStrategy: make(map[Strategy]int)}
	for _, n := range g.Nodes {
		if n.IsExternal() {
			s.Externals++
		} else {
			s.Blocks++
		}
	}
	for _, e := range g.Edges {
		s.Edges++
		s.Calls += e.Count
		s.ByStrategy[e.Strategy] += e.Count
		if g.Resolved(e) {
			s.ResolvedEdges++
		}
	}
	return s
}

// RecordMetrics publishes the size of g to the graph gauges.
func (g *CallGraph) RecordMetrics() {
	s := g.Stats()
	observability.GraphBlocks.Set(float64(s.Blocks))
	observability.GraphExternalNodes.Set(float64(s.Externals))
	observability.GraphEdges.Set(float64(s.Edges))
}
