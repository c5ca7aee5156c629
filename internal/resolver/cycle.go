package resolver

import (
	"fmt"
	"sort"
	"strings"
)

// CycleWarning reports a cycle in the call graph.
//
// Cycles are warnings, not errors: required shapes are fixed per function,
// so recursion resolves to a stable shape (the join over the strongly
// connected component). The warning exists because recursive capability
// chains are usually unintentional in declaration files.
type CycleWarning struct {
	Path    []string `json:"path"`    // cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // human-readable description
}

// AnalyzeCycles detects cycles in the call graph by finding strongly
// connected components. A DAG returns an empty list.
func AnalyzeCycles(g *Graph) []CycleWarning {
	sccs := tarjanSCC(g.edges(), g.order)

	var warnings []CycleWarning
	for _, scc := range sccs {
		if len(scc) == 1 && !hasSelfLoop(scc[0], g.edges()) {
			continue
		}
		warnings = append(warnings, sccToWarning(scc))
	}
	return warnings
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, adj map[string][]string) bool {
	for _, neighbor := range adj[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Nodes are visited in the given order so output is deterministic. The
// components come out in reverse topological order: every component is
// emitted only after all components it can reach.
func tarjanSCC(adj map[string][]string, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// sccToWarning renders a component as a cycle warning with a stable path.
func sccToWarning(scc []string) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("self-recursive function: %s -> %s", name, name),
		}
	}
	sorted := append([]string(nil), scc...)
	sort.Strings(sorted)
	path := append(sorted, sorted[0])
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("recursive call cycle: %s", strings.Join(path, " -> ")),
	}
}
