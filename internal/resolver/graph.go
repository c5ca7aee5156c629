package resolver

import (
	"fmt"

	"github.com/roach88/ambit/internal/ir"
)

// Graph is an immutable set of function declarations forming a call graph.
// Declaration order is preserved: resolution visits callees in exactly the
// order they were declared.
type Graph struct {
	funcs map[string]ir.FuncDecl
	order []string
}

// NewGraph builds a call graph from declarations. Names are canonicalized;
// duplicate declarations and references to undeclared callees are
// rejected.
func NewGraph(decls []ir.FuncDecl) (*Graph, error) {
	g := &Graph{funcs: make(map[string]ir.FuncDecl, len(decls))}

	for _, decl := range decls {
		name, err := ir.CanonicalName(decl.Name)
		if err != nil {
			return nil, fmt.Errorf("invalid function name: %w", err)
		}
		if _, ok := g.funcs[name]; ok {
			return nil, fmt.Errorf("duplicate function declaration: %s", name)
		}
		canonical := decl
		canonical.Name = name
		for i, callee := range decl.Calls {
			calleeName, err := ir.CanonicalName(callee)
			if err != nil {
				return nil, fmt.Errorf("function %s: invalid callee name: %w", name, err)
			}
			canonical.Calls[i] = calleeName
		}
		for _, req := range decl.Requires {
			if !req.Slot.Valid() {
				return nil, fmt.Errorf("function %s: slot %d out of range [0, %d)",
					name, req.Slot, ir.MaxSlots)
			}
		}
		g.funcs[name] = canonical
		g.order = append(g.order, name)
	}

	for _, name := range g.order {
		for _, callee := range g.funcs[name].Calls {
			if _, ok := g.funcs[callee]; !ok {
				return nil, fmt.Errorf("function %s calls undeclared function %s", name, callee)
			}
		}
	}
	return g, nil
}

// Func returns a declaration by canonical name.
func (g *Graph) Func(name string) (ir.FuncDecl, bool) {
	decl, ok := g.funcs[name]
	return decl, ok
}

// Funcs returns all declarations in declaration order.
func (g *Graph) Funcs() []ir.FuncDecl {
	out := make([]ir.FuncDecl, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.funcs[name])
	}
	return out
}

// edges returns the call adjacency in declaration order.
func (g *Graph) edges() map[string][]string {
	adj := make(map[string][]string, len(g.order))
	for _, name := range g.order {
		adj[name] = append([]string(nil), g.funcs[name].Calls...)
	}
	return adj
}
