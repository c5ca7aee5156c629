package resolver

import (
	"fmt"

	"github.com/roach88/ambit/internal/ir"
)

// RequiredShapes computes every function's transitive required shape: the
// join of its own requirements with the required shapes of everything it
// calls. This is the shape the call-construction layer queries to drive
// coercion at each edge.
//
// The join is monotone over a finite lattice (slots x modes), so recursive
// graphs resolve to a stable shape: each strongly connected component
// shares the join of its members' requirements plus everything the
// component reaches. Same slot required with two payload types anywhere in
// a function's reach is an AccessModeConflict.
func (g *Graph) RequiredShapes() (map[string]ir.Shape, error) {
	adj := g.edges()
	sccs := tarjanSCC(adj, g.order)

	component := make(map[string]int, len(g.order))
	for i, scc := range sccs {
		for _, name := range scc {
			component[name] = i
		}
	}

	// Tarjan emits components in reverse topological order, so every
	// component's successors are computed before the component itself.
	shapes := make(map[string]ir.Shape, len(g.order))
	for i, scc := range sccs {
		var shape ir.Shape
		for _, name := range scc {
			for _, req := range g.funcs[name].Requires {
				if err := shape.Add(req); err != nil {
					return nil, fmt.Errorf("function %s: %w", name, err)
				}
			}
			for _, callee := range adj[name] {
				if component[callee] == i {
					continue // same component, joined via its own requirements
				}
				joined, err := shape.Join(shapes[callee])
				if err != nil {
					return nil, fmt.Errorf("function %s calling %s: %w", name, callee, err)
				}
				shape = joined
			}
		}
		for _, name := range scc {
			shapes[name] = shape
		}
	}
	return shapes, nil
}

// RequiredShape computes the transitive required shape of one function.
func (g *Graph) RequiredShape(name string) (ir.Shape, error) {
	canonical, err := ir.CanonicalName(name)
	if err != nil {
		return ir.Shape{}, err
	}
	if _, ok := g.funcs[canonical]; !ok {
		return ir.Shape{}, fmt.Errorf("undeclared function: %s", canonical)
	}
	shapes, err := g.RequiredShapes()
	if err != nil {
		return ir.Shape{}, err
	}
	return shapes[canonical], nil
}
