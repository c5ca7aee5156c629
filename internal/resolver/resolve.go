package resolver

import (
	"fmt"
	"log/slog"

	"github.com/roach88/ambit/internal/ir"
	"github.com/roach88/ambit/internal/registry"
	"github.com/roach88/ambit/internal/store"
)

// Event kinds recorded during resolution, in the order decisions are made.
const (
	EventEnter     = "enter"     // function entered with a resolved store
	EventCoerce    = "coerce"    // store coerced to a callee's shape
	EventShared    = "shared"    // shared access verified (non-consuming)
	EventExclusive = "exclusive" // exclusive access verified
	EventNarrow    = "narrow"    // exclusive handle narrowed across an edge
	EventRestore   = "restore"   // narrowed handle restored
	EventDefault   = "default"   // default synthesized for an unsupplied slot
	EventLeave     = "leave"     // function fully resolved
)

// Event is one construction-time decision. The ordered event list is the
// resolution trace: persisted by the audit log and compared by golden
// tests, so identical declarations must always yield identical traces.
type Event struct {
	Seq      int64        `json:"seq"`
	Kind     string       `json:"kind"`
	Function string       `json:"function,omitempty"`
	Slot     ir.SlotIndex `json:"slot"`
	Detail   string       `json:"detail,omitempty"`
}

// Resolution is the outcome of resolving a call graph from an entry point.
type Resolution struct {
	Entry    string              `json:"entry"`
	Shapes   map[string]ir.Shape `json:"-"`
	Events   []Event             `json:"events"`
	Warnings []CycleWarning      `json:"warnings,omitempty"`
}

// Options configure a resolution.
type Options struct {
	scopeGen store.ScopeIDGenerator
}

// Option configures Resolve.
type Option func(*Options)

// WithScopeGenerator sets the generator minting scope identities for
// synthesized defaults. Tests pass a FixedGenerator for determinism.
func WithScopeGenerator(gen store.ScopeIDGenerator) Option {
	return func(o *Options) {
		o.scopeGen = gen
	}
}

// Resolve walks the call graph from entry, coercing the root store down
// every edge. Resolution marks the end of declaration: the registry is
// frozen before the first store operation. The root store is consumed.
//
// On success the returned Resolution holds every function's resolved
// shape and the ordered decision trace. On failure the construction error
// is returned as-is so callers can match its code.
func Resolve(g *Graph, reg *registry.Registry, root *store.Store, entry string, opts ...Option) (*Resolution, error) {
	options := &Options{scopeGen: store.UUIDv7Generator{}}
	for _, opt := range opts {
		opt(options)
	}

	entryName, err := ir.CanonicalName(entry)
	if err != nil {
		return nil, fmt.Errorf("invalid entry name: %w", err)
	}
	if _, ok := g.Func(entryName); !ok {
		return nil, fmt.Errorf("undeclared entry function: %s", entryName)
	}

	reg.Freeze()

	shapes, err := g.RequiredShapes()
	if err != nil {
		return nil, err
	}

	res := &Resolution{
		Entry:    entryName,
		Shapes:   shapes,
		Warnings: AnalyzeCycles(g),
	}
	walker := &walk{
		graph:  g,
		shapes: shapes,
		active: make(map[string]bool),
		res:    res,
		policy: &synthPolicy{
			reg:  reg,
			gen:  options.scopeGen,
			memo: make(map[ir.SlotIndex]*store.Resource),
			res:  res,
		},
	}

	slog.Debug("resolution starting", "entry", entryName, "functions", len(g.order))

	entryStore, err := store.Coerce(root, shapes[entryName], walker.policy)
	if err != nil {
		return nil, err
	}
	res.record(EventCoerce, entryName, ir.NoSlot, fmt.Sprintf("root store coerced to %s", shapes[entryName]))

	if err := walker.resolveFunc(entryName, entryStore); err != nil {
		return nil, err
	}
	entryStore.Drop()

	slog.Debug("resolution complete", "entry", entryName, "events", len(res.Events))
	return res, nil
}

// walk carries the per-resolution state down the call graph.
type walk struct {
	graph  *Graph
	shapes map[string]ir.Shape
	active map[string]bool
	res    *Resolution
	policy *synthPolicy
}

// resolveFunc resolves one function given its exactly-shaped store, then
// descends into each callee in declaration order. Exclusive handles cross
// each edge by narrowing and are restored once the callee's subtree is
// fully resolved, preserving strict nesting order.
func (w *walk) resolveFunc(name string, st *store.Store) error {
	w.res.record(EventEnter, name, ir.NoSlot, w.shapes[name].String())
	w.active[name] = true
	defer delete(w.active, name)

	decl, _ := w.graph.Func(name)

	// Verify the function's own requirements against the store. Shared
	// access is checked by extraction, which must leave the slot populated
	// exactly as before.
	for _, req := range decl.Requires {
		switch req.Mode {
		case ir.ModeShared:
			if _, err := st.ExtractShared(req.Slot); err != nil {
				return err
			}
			w.res.record(EventShared, name, req.Slot, string(req.Payload))
		case ir.ModeExclusive:
			h, err := st.ExtractExclusive(req.Slot)
			if err != nil {
				return err
			}
			w.res.record(EventExclusive, name, req.Slot, string(req.Payload))
			if err := h.Release(); err != nil {
				return err
			}
		}
	}

	for _, callee := range decl.Calls {
		if err := w.resolveEdge(name, callee, st); err != nil {
			return err
		}
	}

	w.res.record(EventLeave, name, ir.NoSlot, "")
	return nil
}

// resolveEdge builds the callee's store from the caller's and descends.
//
// Shared slots cross the edge as duplicated views; exclusive slots are
// narrowed, making the caller's handle unusable until the callee's subtree
// is resolved and the restorer runs. Slots the caller does not populate
// resolve through its outer chain or through default synthesis inside
// Coerce.
func (w *walk) resolveEdge(caller, callee string, st *store.Store) error {
	// A recursive edge needs no descent: the callee shares the caller's
	// component, so its joined shape is already verified on this chain.
	if w.active[callee] {
		return nil
	}
	target := w.shapes[callee]

	type restoreEntry struct {
		restorer *store.Restorer
		slot     ir.SlotIndex
	}
	var views []*store.Handle
	var restorers []restoreEntry
	restoreAll := func() {
		for i := len(restorers) - 1; i >= 0; i-- {
			_ = restorers[i].restorer.Restore()
			w.res.record(EventRestore, caller, restorers[i].slot,
				fmt.Sprintf("edge %s -> %s", caller, callee))
		}
	}

	for _, req := range target.Requirements() {
		if req.Mode == ir.ModeExclusive {
			local := st.LocalHandle(req.Slot)
			if local == nil {
				// Inherited occupancy or default synthesis: both are
				// decided inside Coerce against the view's outer chain.
				continue
			}
			if local.Mode() != ir.ModeExclusive {
				restoreAll()
				return ir.NewCoercionImpossible(req.Slot,
					"cannot strengthen a shared occupant to exclusive")
			}
			child, restorer, err := local.Narrow()
			if err != nil {
				restoreAll()
				return err
			}
			views = append(views, child)
			restorers = append(restorers, restoreEntry{restorer: restorer, slot: req.Slot})
			w.res.record(EventNarrow, caller, req.Slot, fmt.Sprintf("edge %s -> %s", caller, callee))
			continue
		}

		h, err := st.ExtractShared(req.Slot)
		if err != nil {
			if ir.IsUnresolved(err) {
				continue // let Coerce synthesize a default or fail
			}
			restoreAll()
			return err
		}
		views = append(views, h)
	}

	view, err := store.Build(views, store.WithOuter(st.Outer()))
	if err != nil {
		restoreAll()
		return err
	}
	child, err := store.Coerce(view, target, w.policy)
	if err != nil {
		restoreAll()
		return err
	}
	w.res.record(EventCoerce, callee, ir.NoSlot, target.String())

	if err := w.resolveFunc(callee, child); err != nil {
		restoreAll()
		return err
	}
	child.Drop()
	restoreAll()
	return nil
}

// record appends one decision to the trace.
func (r *Resolution) record(kind, function string, slot ir.SlotIndex, detail string) {
	r.Events = append(r.Events, Event{
		Seq:      int64(len(r.Events) + 1),
		Kind:     kind,
		Function: function,
		Slot:     slot,
		Detail:   detail,
	})
}

// synthPolicy implements store.CoercionPolicy over the registry, with
// per-resolution default memoization: a default is synthesized exactly
// once, and every later request for the slot sees the same resource.
type synthPolicy struct {
	reg  *registry.Registry
	gen  store.ScopeIDGenerator
	memo map[ir.SlotIndex]*store.Resource
	res  *Resolution
}

func (p *synthPolicy) CanProject(from, to ir.PayloadType) bool {
	return p.reg.CanProject(from, to)
}

func (p *synthPolicy) Default(req ir.Requirement) (*store.Handle, bool, error) {
	spec, ok := p.reg.DefaultFor(req.Slot)
	if !ok {
		return nil, false, nil
	}

	res := p.memo[req.Slot]
	if res == nil {
		kind, ok := p.reg.KindAt(req.Slot)
		if !ok {
			return nil, false, nil
		}
		var err error
		res, err = store.NewResource(p.gen.Generate(), kind.Payload, spec.Synthesize())
		if err != nil {
			return nil, false, err
		}
		p.memo[req.Slot] = res
		p.res.record(EventDefault, "", req.Slot, fmt.Sprintf("synthesized %s", kind.Payload))
	}

	if req.Mode == ir.ModeExclusive {
		h, err := res.Exclusive(req.Slot)
		if err != nil {
			return nil, false, err
		}
		return h, true, nil
	}
	h, err := res.Share(req.Slot)
	if err != nil {
		return nil, false, err
	}
	return h, true, nil
}
