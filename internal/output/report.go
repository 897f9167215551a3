package output

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/getAsterisk/stackwalk/internal/engine/extract"
	"github.com/getAsterisk/stackwalk/internal/engine/graph"
)

const reportHotspots = 20

// Report is the machine-readable dump of one indexing run.
type Report struct {
	RunID       string                   `json:"run_id" yaml:"run_id"`
	Root        string                   `json:"root" yaml:"root"`
	GeneratedAt time.Time                `json:"generated_at" yaml:"generated_at"`
	Stats       graph.Stats              `json:"stats" yaml:"stats"`
	Blocks      []extract.Block          `json:"blocks" yaml:"blocks"`
	CallStack   graph.CallStack          `json:"call_stack" yaml:"call_stack"`
	Edges       []ReportEdge             `json:"edges" yaml:"edges"`
	External    []string                 `json:"external" yaml:"external"`
	EntryPoints []string                 `json:"entry_points" yaml:"entry_points"`
	Cycles      [][]string               `json:"cycles,omitempty" yaml:"cycles,omitempty"`
	Hotspots    []graph.Hotspot          `json:"hotspots,omitempty" yaml:"hotspots,omitempty"`
	Diagnostics []graph.DiagnosticRecord `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Skipped     []string                 `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

type ReportEdge struct {
	Caller   string         `json:"caller" yaml:"caller"`
	Callee   string         `json:"callee" yaml:"callee"`
	File     string         `json:"file" yaml:"file"`
	Line     int            `json:"line" yaml:"line"`
	Count    int            `json:"count" yaml:"count"`
	Strategy graph.Strategy `json:"strategy" yaml:"strategy"`
	Resolved bool           `json:"resolved" yaml:"resolved"`
}

// NewReport fills the graph-derived sections of a report. Diagnostics and
// skipped files are left for the caller.
func NewReport(runID, root string, generatedAt time.Time, blocks []extract.Block, g *graph.CallGraph) *Report {
	r := &Report{
		RunID:       runID,
		Root:        root,
		GeneratedAt: generatedAt,
		Stats:       g.Stats(),
		Blocks:      blocks,
		CallStack:   g.Stack,
		Edges:       make([]ReportEdge, 0, len(g.Edges)),
		External:    []string{},
		EntryPoints: []string{},
		Hotspots:    g.Hotspots(reportHotspots),
	}

	for _, e := range g.Edges {
		r.Edges = append(r.Edges, ReportEdge{
			Caller:   g.Key(e.From),
			Callee:   g.Key(e.To),
			File:     e.First.File,
			Line:     e.First.Span.Start.Line,
			Count:    e.Count,
			Strategy: e.Strategy,
			Resolved: g.Resolved(e),
		})
	}
	for _, n := range g.ExternalNodes() {
		r.External = append(r.External, n.Name)
	}
	for _, id := range g.EntryPoints() {
		r.EntryPoints = append(r.EntryPoints, g.Key(id))
	}
	for _, cycle := range g.DetectCycles() {
		keys := make([]string, len(cycle))
		for i, id := range cycle {
			keys[i] = g.Key(id)
		}
		r.Cycles = append(r.Cycles, keys)
	}
	return r
}

func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func (r *Report) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}
