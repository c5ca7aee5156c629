package registry

import (
	"fmt"
	"sync"

	"github.com/roach88/ambit/internal/ir"
)

// DefaultSpec declares how a capability's default value is produced when a
// required slot has no supplier. Synthesis happens at most once per
// resolution chain; a default is never re-synthesized inside a callee that
// already received the capability from its caller.
type DefaultSpec struct {
	// Synthesize produces the default payload value.
	Synthesize func() any
}

// Registry is the process-wide slot registry.
//
// Thread-safety: registration normally happens from a single declaration
// path, but the registry is guarded by a mutex so init-time registration
// from multiple packages stays safe.
type Registry struct {
	mu       sync.Mutex
	byName   map[string]ir.Kind
	bySlot   [ir.MaxSlots]*ir.Kind
	defaults map[ir.SlotIndex]DefaultSpec
	next     ir.SlotIndex
	frozen   bool

	projections map[ir.PayloadType]map[ir.PayloadType]bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byName:      make(map[string]ir.Kind),
		defaults:    make(map[ir.SlotIndex]DefaultSpec),
		projections: make(map[ir.PayloadType]map[ir.PayloadType]bool),
	}
}

// Register declares a capability kind and assigns it the next free slot
// index. Returns SlotCollision if the name is already registered or the
// fixed arity is exhausted.
func (r *Registry) Register(name string, payload ir.PayloadType, vis ir.Visibility) (ir.SlotIndex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, err := r.freeSlotLocked()
	if err != nil {
		return ir.NoSlot, err
	}
	return r.registerLocked(name, slot, payload, vis)
}

// RegisterAt declares a capability kind at an explicit slot index.
// Returns SlotCollision if the index is already taken by a distinct kind.
func (r *Registry) RegisterAt(name string, slot ir.SlotIndex, payload ir.PayloadType, vis ir.Visibility) (ir.SlotIndex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !slot.Valid() {
		return ir.NoSlot, fmt.Errorf("slot %d out of range [0, %d)", slot, ir.MaxSlots)
	}
	if existing := r.bySlot[slot]; existing != nil {
		return ir.NoSlot, ir.NewSlotCollision(slot, fmt.Sprintf(
			"slot already assigned to kind %q", existing.Name))
	}
	return r.registerLocked(name, slot, payload, vis)
}

func (r *Registry) registerLocked(name string, slot ir.SlotIndex, payload ir.PayloadType, vis ir.Visibility) (ir.SlotIndex, error) {
	if r.frozen {
		return ir.NoSlot, fmt.Errorf("registry is frozen: cannot register %q", name)
	}
	canonical, err := ir.CanonicalName(name)
	if err != nil {
		return ir.NoSlot, fmt.Errorf("invalid kind name: %w", err)
	}
	if payload == "" {
		return ir.NoSlot, fmt.Errorf("kind %q: payload type must be non-empty", canonical)
	}
	if err := ir.ValidateVisibility(string(vis)); err != nil {
		return ir.NoSlot, fmt.Errorf("kind %q: %w", canonical, err)
	}
	if vis == "" {
		vis = ir.VisibilityPublic
	}
	if existing, ok := r.byName[canonical]; ok {
		return ir.NoSlot, ir.NewSlotCollision(existing.Slot, fmt.Sprintf(
			"kind %q already registered", canonical))
	}

	kind := ir.Kind{
		Name:       canonical,
		Slot:       slot,
		Payload:    payload,
		Visibility: vis,
	}
	r.byName[canonical] = kind
	r.bySlot[slot] = &kind
	return slot, nil
}

// freeSlotLocked finds the lowest unassigned slot index.
func (r *Registry) freeSlotLocked() (ir.SlotIndex, error) {
	for ; r.next < ir.MaxSlots; r.next++ {
		if r.bySlot[r.next] == nil {
			return r.next, nil
		}
	}
	return ir.NoSlot, ir.NewSlotCollision(ir.NoSlot, fmt.Sprintf(
		"slot capacity exhausted: all %d slots assigned", ir.MaxSlots))
}

// RegisterDefault attaches a default synthesis to an already registered
// kind. Defaults cannot be replaced once declared.
func (r *Registry) RegisterDefault(slot ir.SlotIndex, spec DefaultSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("registry is frozen: cannot register default for slot %d", slot)
	}
	kind := r.bySlot[slot]
	if !slot.Valid() || kind == nil {
		return fmt.Errorf("no kind registered at slot %d", slot)
	}
	if spec.Synthesize == nil {
		return fmt.Errorf("default for kind %q must have a synthesis function", kind.Name)
	}
	if _, ok := r.defaults[slot]; ok {
		return fmt.Errorf("kind %q already has a default", kind.Name)
	}
	r.defaults[slot] = spec
	kind.HasDefault = true
	named := r.byName[kind.Name]
	named.HasDefault = true
	r.byName[kind.Name] = named
	return nil
}

// Freeze marks the end of program declaration. After Freeze every
// registration attempt fails; lookups remain available.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether declaration has ended.
func (r *Registry) Frozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen
}

// Lookup returns the kind registered under a canonical name.
func (r *Registry) Lookup(name string) (ir.Kind, bool) {
	canonical, err := ir.CanonicalName(name)
	if err != nil {
		return ir.Kind{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	kind, ok := r.byName[canonical]
	return kind, ok
}

// KindAt returns the kind assigned to a slot index.
func (r *Registry) KindAt(slot ir.SlotIndex) (ir.Kind, bool) {
	if !slot.Valid() {
		return ir.Kind{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bySlot[slot] == nil {
		return ir.Kind{}, false
	}
	return *r.bySlot[slot], true
}

// Kinds returns all registered kinds in slot order.
func (r *Registry) Kinds() []ir.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ir.Kind
	for i := ir.SlotIndex(0); i < ir.MaxSlots; i++ {
		if r.bySlot[i] != nil {
			out = append(out, *r.bySlot[i])
		}
	}
	return out
}

// DefaultFor returns the default synthesis for a slot, if one is declared.
func (r *Registry) DefaultFor(slot ir.SlotIndex) (DefaultSpec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	spec, ok := r.defaults[slot]
	return spec, ok
}
