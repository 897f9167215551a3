package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getAsterisk/stackwalk/internal/engine/extract"
	"github.com/getAsterisk/stackwalk/internal/engine/parser"
	"github.com/getAsterisk/stackwalk/internal/shared/observability"
)

// NodeID indexes CallGraph.Nodes. Block nodes come first and share their
// BlockID; external nodes follow.
type NodeID int

type NodeKind int

const (
	NodeBlock NodeKind = iota
	NodeExternal
)

func (k NodeKind) String() string {
	if k == NodeExternal {
		return "external"
	}
	return "block"
}

func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type Node struct {
	ID    NodeID            `json:"id" yaml:"id"`
	Kind  NodeKind          `json:"kind" yaml:"kind"`
	Block extract.BlockID   `json:"block" yaml:"block"`
	Name  string            `json:"name" yaml:"name"`
	File  string            `json:"file,omitempty" yaml:"file,omitempty"`
	Class string            `json:"class,omitempty" yaml:"class,omitempty"`
	Type  extract.BlockKind `json:"type" yaml:"type"`
	Key   string            `json:"key" yaml:"key"`
	Line  int               `json:"line,omitempty" yaml:"line,omitempty"`
}

// IsExternal reports whether n stands for an unresolved callee.
func (n Node) IsExternal() bool {
	return n.Kind == NodeExternal
}

// Edge is a deduplicated caller to callee relation. First locates the
// earliest call site that produced it.
type Edge struct {
	From     NodeID           `json:"from" yaml:"from"`
	To       NodeID           `json:"to" yaml:"to"`
	Count    int              `json:"count" yaml:"count"`
	Strategy Strategy         `json:"strategy" yaml:"strategy"`
	First    extract.CallSite `json:"-" yaml:"-"`
}

type edgeKey struct{ from, to NodeID }

// CallFrame is one call observation together with the node it resolved to.
// Path runs from the file's root block to Caller.
type CallFrame struct {
	Caller   extract.BlockID   `json:"caller" yaml:"caller"`
	Callee   string            `json:"callee" yaml:"callee"`
	File     string            `json:"file" yaml:"file"`
	Span     parser.Span       `json:"span" yaml:"span"`
	Path     []extract.BlockID `json:"path" yaml:"path"`
	Target   NodeID            `json:"target" yaml:"target"`
	Strategy Strategy          `json:"strategy" yaml:"strategy"`
}

// CallStack lists every observation of a run in merge order.
type CallStack []CallFrame

// CallGraph holds every block of a run plus one external node per distinct
// unresolved callee text.
type CallGraph struct {
	Nodes []Node
	Edges []Edge
	Stack CallStack

	externals map[string]NodeID
	edgeIndex map[edgeKey]int
	byKey     map[string]NodeID
	out       map[NodeID][]int
	in        map[NodeID][]int
}

func newCallGraph(blocks []extract.Block) *CallGraph {
	g := &CallGraph{
		Nodes:     make([]Node, 0, len(blocks)),
		externals: make(map[string]NodeID),
		edgeIndex: make(map[edgeKey]int),
		byKey:     make(map[string]NodeID, len(blocks)),
		out:       make(map[NodeID][]int),
		in:        make(map[NodeID][]int),
	}
	for _, b := range blocks {
		n := Node{
			ID:    NodeID(b.ID),
			Kind:  NodeBlock,
			Block: b.ID,
			Name:  b.Name,
			File:  b.File,
			Class: b.Class,
			Type:  b.Kind,
			Key:   blockKey(b),
			Line:  b.Span.Start.Line,
		}
		g.Nodes = append(g.Nodes, n)
		if _, taken := g.byKey[n.Key]; !taken {
			g.byKey[n.Key] = n.ID
		}
	}
	return g
}

// blockKey is "file[.Class].name". Anonymous blocks are keyed by kind and
// line so distinct closures in one file stay distinct.
func blockKey(b extract.Block) string {
	name := b.Name
	if name == "" {
		name = fmt.Sprintf("<%s@%d:%d>", b.Kind, b.Span.Start.Line, b.Span.Start.Column)
	}
	if b.Kind == extract.KindModule {
		return b.File
	}
	if b.Class != "" {
		return b.File + "." + b.Class + "." + name
	}
	return b.File + "." + name
}

// Build resolves every call site of run and returns the deduplicated graph.
func Build(run *Run, resolver *Resolver) *CallGraph {
	g := newCallGraph(run.Blocks)
	g.Stack = make(CallStack, 0, len(run.Calls))
	for _, call := range run.Calls {
		target, strategy := resolver.Resolve(call)
		observability.ResolutionsTotal.WithLabelValues(string(strategy)).Inc()

		to := NodeID(target)
		if target == extract.NoBlock {
			to = g.external(call.Callee)
		}
		g.addEdge(NodeID(call.Caller), to, strategy, call)
		g.Stack = append(g.Stack, CallFrame{
			Caller:   call.Caller,
			Callee:   call.Callee,
			File:     call.File,
			Span:     call.Span,
			Path:     call.Stack,
			Target:   to,
			Strategy: strategy,
		})
	}
	return g
}

func (g *CallGraph) external(name string) NodeID {
	if id, ok := g.externals[name]; ok {
		return id
	}
	id := NodeID(len(g.Nodes))
	g.Nodes = append(g.Nodes, Node{
		ID:    id,
		Kind:  NodeExternal,
		Block: extract.NoBlock,
		Name:  name,
		Key:   name,
	})
	g.externals[name] = id
	return id
}

func (g *CallGraph) addEdge(from, to NodeID, strategy Strategy, site extract.CallSite) {
	k := edgeKey{from, to}
	if i, ok := g.edgeIndex[k]; ok {
		g.Edges[i].Count++
		return
	}
	i := len(g.Edges)
	g.Edges = append(g.Edges, Edge{From: from, To: to, Count: 1, Strategy: strategy, First: site})
	g.edgeIndex[k] = i
	g.out[from] = append(g.out[from], i)
	g.in[to] = append(g.in[to], i)
}

// Node returns the node with id.
func (g *CallGraph) Node(id NodeID) (Node, bool) {
	if id < 0 || int(id) >= len(g.Nodes) {
		return Node{}, false
	}
	return g.Nodes[id], true
}

// Key returns the node key of id, or "" when id is out of range.
func (g *CallGraph) Key(id NodeID) string {
	n, ok := g.Node(id)
	if !ok {
		return ""
	}
	return n.Key
}

// Lookup finds a node by key. Block keys take precedence over external
// names.
func (g *CallGraph) Lookup(key string) (NodeID, bool) {
	if id, ok := g.byKey[key]; ok {
		return id, true
	}
	id, ok := g.externals[key]
	return id, ok
}

// External returns the external node for an unresolved callee text.
func (g *CallGraph) External(name string) (NodeID, bool) {
	id, ok := g.externals[name]
	return id, ok
}

// ExternalNodes returns the external nodes in creation order.
func (g *CallGraph) ExternalNodes() []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.IsExternal() {
			out = append(out, n)
		}
	}
	return out
}

func (g *CallGraph) Callees(id NodeID) []Edge {
	return g.edgesAt(g.out[id])
}

func (g *CallGraph) Callers(id NodeID) []Edge {
	return g.edgesAt(g.in[id])
}

func (g *CallGraph) edgesAt(idx []int) []Edge {
	out := make([]Edge, len(idx))
	for i, e := range idx {
		out[i] = g.Edges[e]
	}
	return out
}

// Resolved reports whether e ends at a block.
func (g *CallGraph) Resolved(e Edge) bool {
	n, ok := g.Node(e.To)
	return ok && !n.IsExternal()
}

// EntryPoints returns callable blocks that nothing in the run calls.
func (g *CallGraph) EntryPoints() []NodeID {
	var out []NodeID
	for _, n := range g.Nodes {
		if n.IsExternal() || !n.Type.Callable() {
			continue
		}
		if len(g.in[n.ID]) == 0 {
			out = append(out, n.ID)
		}
	}
	return out
}

// EdgeSignature identifies an edge independently of node ids.
type EdgeSignature struct {
	Caller string `json:"caller" yaml:"caller"`
	Callee string `json:"callee" yaml:"callee"`
	File   string `json:"file" yaml:"file"`
	Count  int    `json:"count" yaml:"count"`
}

func (s EdgeSignature) String() string {
	return fmt.Sprintf("%s -> %s (%s) x%d", s.Caller, s.Callee, s.File, s.Count)
}

// Signature returns the sorted edge signatures of g. Two runs over the same
// unchanged tree produce equal signatures.
func (g *CallGraph) Signature() []EdgeSignature {
	out := make([]EdgeSignature, 0, len(g.Edges))
	for _, e := range g.Edges {
		from, to := g.Nodes[e.From], g.Nodes[e.To]
		out = append(out, EdgeSignature{
			Caller: from.Key,
			Callee: to.Key,
			File:   from.File,
			Count:  e.Count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// Describe renders one edge for logs and plain-text output.
func (g *CallGraph) Describe(e Edge) string {
	var b strings.Builder
	b.WriteString(g.Nodes[e.From].Key)
	b.WriteString(" -> ")
	b.WriteString(g.Nodes[e.To].Key)
	if e.Count > 1 {
		fmt.Fprintf(&b, " (x%d)", e.Count)
	}
	return b.String()
}
