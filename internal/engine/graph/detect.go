package graph

import "sort"

// DetectCycles returns the recursion cycles among block nodes, each as the
// node path from its first member back to the last. Self-recursion is a
// cycle of one.
func (g *CallGraph) DetectCycles() [][]NodeID {
	var cycles [][]NodeID
	visited := make(map[NodeID]bool)
	onStack := make(map[NodeID]bool)

	for _, n := range g.Nodes {
		if n.IsExternal() || visited[n.ID] {
			continue
		}
		g.findCycles(n.ID, visited, onStack, nil, &cycles)
	}
	return cycles
}

func (g *CallGraph) findCycles(curr NodeID, visited, onStack map[NodeID]bool, path []NodeID, cycles *[][]NodeID) {
	visited[curr] = true
	onStack[curr] = true
	path = append(path, curr)

	for _, e := range g.out[curr] {
		next := g.Edges[e].To
		if g.Nodes[next].IsExternal() {
			continue
		}
		if onStack[next] {
			for i, id := range path {
				if id == next {
					cycle := make([]NodeID, len(path)-i)
					copy(cycle, path[i:])
					*cycles = append(*cycles, cycle)
					break
				}
			}
		} else if !visited[next] {
			g.findCycles(next, visited, onStack, path, cycles)
		}
	}

	onStack[curr] = false
}

// FindCallChain returns a shortest chain of calls leading from one node to
// another.
func (g *CallGraph) FindCallChain(from, to NodeID) ([]NodeID, bool) {
	if _, ok := g.Node(from); !ok {
		return nil, false
	}
	if _, ok := g.Node(to); !ok {
		return nil, false
	}
	if from == to {
		return []NodeID{from}, true
	}

	queue := []NodeID{from}
	visited := map[NodeID]bool{from: true}
	prev := make(map[NodeID]NodeID)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		neighbors := make([]NodeID, 0, len(g.out[curr]))
		for _, e := range g.out[curr] {
			neighbors = append(neighbors, g.Edges[e].To)
		}
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })

		for _, next := range neighbors {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []NodeID{to}
				for node := to; node != from; {
					node = prev[node]
					path = append(path, node)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}
