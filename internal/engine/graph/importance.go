package graph

import "sort"

// Hotspot is a block ranked by how connected it is.
type Hotspot struct {
	Key    string  `json:"key" yaml:"key"`
	FanIn  int     `json:"fan_in" yaml:"fan_in"`
	FanOut int     `json:"fan_out" yaml:"fan_out"`
	Calls  int     `json:"calls" yaml:"calls"`
	Score  float64 `json:"score" yaml:"score"`
}

// CalculateImportanceScore weights distinct callers above distinct callees
// and adds a small term for raw call volume:
//
//	Score = (FanIn * 2) + (FanOut * 1) + (Calls * 0.1)
func CalculateImportanceScore(fanIn, fanOut, calls int) float64 {
	return float64(fanIn*2) + float64(fanOut) + float64(calls)*0.1
}

// Hotspots returns the n highest scoring callable blocks.
func (g *CallGraph) Hotspots(n int) []Hotspot {
	if n <= 0 {
		return nil
	}

	var out []Hotspot
	for _, node := range g.Nodes {
		if node.IsExternal() || !node.Type.Callable() {
			continue
		}
		h := Hotspot{
			Key:    node.Key,
			FanIn:  len(g.in[node.ID]),
			FanOut: len(g.out[node.ID]),
		}
		for _, e := range g.in[node.ID] {
			h.Calls += g.Edges[e].Count
		}
		if h.FanIn == 0 && h.FanOut == 0 {
			continue
		}
		h.Score = CalculateImportanceScore(h.FanIn, h.FanOut, h.Calls)
		out = append(out, h)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
