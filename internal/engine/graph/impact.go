package graph

import (
	"sort"

	"github.com/getAsterisk/stackwalk/internal/core/errors"
)

// ImpactReport lists the code that can reach a block through calls.
type ImpactReport struct {
	Target            string   `json:"target" yaml:"target"`
	DirectCallers     []string `json:"direct_callers" yaml:"direct_callers"`
	TransitiveCallers []string `json:"transitive_callers" yaml:"transitive_callers"`
}

// AnalyzeImpact walks callers of the node with key upwards. Keys are block
// keys ("file[.Class].name") or external callee names.
func (g *CallGraph) AnalyzeImpact(key string) (ImpactReport, error) {
	target, ok := g.Lookup(key)
	if !ok {
		return ImpactReport{}, errors.AddContext(
			errors.New(errors.CodeNotFound, "impact target not found"),
			errors.CtxSymbol, key)
	}

	report := ImpactReport{Target: g.Nodes[target].Key}

	seen := map[NodeID]bool{target: true}
	var direct []NodeID
	for _, e := range g.in[target] {
		from := g.Edges[e].From
		if !seen[from] {
			seen[from] = true
			direct = append(direct, from)
		}
	}

	queue := append([]NodeID(nil), direct...)
	var transitive []NodeID
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, e := range g.in[curr] {
			from := g.Edges[e].From
			if seen[from] {
				continue
			}
			seen[from] = true
			transitive = append(transitive, from)
			queue = append(queue, from)
		}
	}

	report.DirectCallers = g.sortedKeys(direct)
	report.TransitiveCallers = g.sortedKeys(transitive)
	return report, nil
}

func (g *CallGraph) sortedKeys(ids []NodeID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.Nodes[id].Key)
	}
	sort.Strings(out)
	return out
}
