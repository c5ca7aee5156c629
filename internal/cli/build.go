package cli

import (
	"fmt"

	"github.com/roach88/ambit/internal/ir"
	"github.com/roach88/ambit/internal/registry"
	"github.com/roach88/ambit/internal/resolver"
	"github.com/roach88/ambit/internal/store"
)

// Program is a fully declared capability program, ready to resolve.
type Program struct {
	Registry *registry.Registry
	Graph    *resolver.Graph
	Root     *store.Store
	Entry    string
}

// BuildProgram turns a loaded manifest into registered kinds, a call
// graph, and a populated root store. Construction errors from the
// registry and store surface as LoadErrors carrying the E-code taxonomy.
//
// The supply section is the process boundary: module-visibility kinds
// cannot be supplied here, only synthesized or passed between declared
// functions.
func BuildProgram(m *Manifest, gen store.ScopeIDGenerator) (*Program, error) {
	reg := registry.New()

	for _, mk := range m.Kinds {
		var err error
		if mk.Slot != nil {
			_, err = reg.RegisterAt(mk.Name, ir.SlotIndex(*mk.Slot), ir.PayloadType(mk.Payload), ir.Visibility(mk.Visibility))
		} else {
			_, err = reg.Register(mk.Name, ir.PayloadType(mk.Payload), ir.Visibility(mk.Visibility))
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeInvalidKind, Message: fmt.Sprintf("capability %s: %v", mk.Name, err), Err: err}
		}
		if mk.HasDefault {
			kind, _ := reg.Lookup(mk.Name)
			value := mk.Default
			err := reg.RegisterDefault(kind.Slot, registry.DefaultSpec{
				Synthesize: func() any { return value },
			})
			if err != nil {
				return nil, &LoadError{Code: ErrCodeInvalidKind, Message: fmt.Sprintf("capability %s: %v", mk.Name, err), Err: err}
			}
		}
	}

	for _, p := range m.Projections {
		if err := reg.RegisterProjection(ir.PayloadType(p.From), ir.PayloadType(p.To)); err != nil {
			return nil, &LoadError{Code: ErrCodeInvalidKind, Message: fmt.Sprintf("projection %s -> %s: %v", p.From, p.To, err), Err: err}
		}
	}

	decls := make([]ir.FuncDecl, 0, len(m.Funcs))
	for _, mf := range m.Funcs {
		decl := ir.FuncDecl{Name: mf.Name, Calls: mf.Calls}
		for _, req := range mf.Requires {
			kind, ok := reg.Lookup(req.Cap)
			if !ok {
				return nil, &LoadError{Code: ErrCodeInvalidFunction, Message: fmt.Sprintf(
					"function %s requires undeclared capability %s", mf.Name, req.Cap)}
			}
			mode, err := ir.ParseMode(req.Mode)
			if err != nil {
				return nil, &LoadError{Code: ErrCodeInvalidFunction, Message: fmt.Sprintf(
					"function %s: capability %s: %v", mf.Name, req.Cap, err), Err: err}
			}
			payload := kind.Payload
			if req.Payload != "" {
				payload = ir.PayloadType(req.Payload)
			}
			decl.Requires = append(decl.Requires, ir.Requirement{
				Slot:    kind.Slot,
				Mode:    mode,
				Payload: payload,
			})
		}
		decls = append(decls, decl)
	}
	graph, err := resolver.NewGraph(decls)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidFunction, Message: err.Error(), Err: err}
	}

	var handles []*store.Handle
	for _, sup := range m.Supplies {
		kind, ok := reg.Lookup(sup.Cap)
		if !ok {
			return nil, &LoadError{Code: ErrCodeInvalidSupply, Message: fmt.Sprintf(
				"supply references undeclared capability %s", sup.Cap)}
		}
		if kind.Visibility == ir.VisibilityModule {
			return nil, &LoadError{Code: ErrCodeInvalidSupply, Message: fmt.Sprintf(
				"capability %s has module visibility and cannot be supplied at the process boundary", sup.Cap)}
		}
		mode, err := ir.ParseMode(sup.Mode)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeInvalidSupply, Message: fmt.Sprintf(
				"supply %s: %v", sup.Cap, err), Err: err}
		}
		res, err := store.NewResource(gen.Generate(), kind.Payload, sup.Value)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeInvalidSupply, Message: fmt.Sprintf(
				"supply %s: %v", sup.Cap, err), Err: err}
		}
		var h *store.Handle
		if mode == ir.ModeExclusive {
			h, err = res.Exclusive(kind.Slot)
		} else {
			h, err = res.Share(kind.Slot)
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeInvalidSupply, Message: fmt.Sprintf(
				"supply %s: %v", sup.Cap, err), Err: err}
		}
		handles = append(handles, h)
	}
	root, err := store.Build(handles)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidSupply, Message: err.Error(), Err: err}
	}

	return &Program{Registry: reg, Graph: graph, Root: root, Entry: m.Entry}, nil
}
