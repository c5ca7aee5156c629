package registry

import (
	"fmt"

	"github.com/roach88/ambit/internal/ir"
)

// RegisterProjection declares that a payload of type from may be coerced
// into a view of type to. This is how sized-to-unsized projection,
// concrete-to-interface erasure, and subtype widening are made available
// to Coerce: nothing is projectable unless declared here.
//
// Projections are directional. Declaring from→to does not declare to→from.
func (r *Registry) RegisterProjection(from, to ir.PayloadType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("registry is frozen: cannot register projection %s -> %s", from, to)
	}
	if from == "" || to == "" {
		return fmt.Errorf("projection endpoints must be non-empty")
	}
	if r.projections[from] == nil {
		r.projections[from] = make(map[ir.PayloadType]bool)
	}
	r.projections[from][to] = true
	return nil
}

// CanProject reports whether a payload of type from may legally be viewed
// as type to. Identity always holds; declared projections compose
// transitively (a sized buffer that projects to a view which projects to a
// reader is reachable in one coercion).
func (r *Registry) CanProject(from, to ir.PayloadType) bool {
	if from == to {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	// BFS over the declared projection edges.
	seen := map[ir.PayloadType]bool{from: true}
	frontier := []ir.PayloadType{from}
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		for target := range r.projections[next] {
			if target == to {
				return true
			}
			if !seen[target] {
				seen[target] = true
				frontier = append(frontier, target)
			}
		}
	}
	return false
}
