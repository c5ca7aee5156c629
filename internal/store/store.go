package store

import (
	"fmt"

	"github.com/roach88/ambit/internal/ir"
)

// Store is the fixed-arity tuple of optional handles, one per slot. Its
// shape (which slots are populated, with what mode and payload view) is
// the store's type: two stores of different shape are not interchangeable
// without Coerce.
//
// Invariant: at most one handle occupies a slot at any instant.
type Store struct {
	slots [ir.MaxSlots]*Handle

	// outer is a one-way, acyclic back-reference used only to resolve
	// slots this store does not itself populate. Never mutated after
	// construction.
	outer *Store

	// suspended is set while a handle extracted exclusively from this
	// store is alive. Suspension is whole-store, not per-slot: the store's
	// internal layout is not guaranteed disjoint in memory, so a
	// conservative suspension is the only sound one.
	suspended bool

	// moved is set once the store is consumed by Unify or Coerce.
	moved bool
}

// Option configures store construction.
type Option func(*Store)

// WithOuter links the store to an outer store consulted for slots absent
// locally. The relation is read-only and acyclic by construction: the
// outer store existed first and never learns about this one.
func WithOuter(outer *Store) Option {
	return func(s *Store) {
		s.outer = outer
	}
}

// Build is the entry point used when a scope first supplies capabilities.
// Each handle occupies the slot it was created for; two handles for one
// slot fail with SlotCollision. A store built without WithOuter is
// self-contained and fit to cross a boundary that has no parent scope to
// query.
func Build(handles []*Handle, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	for _, h := range handles {
		if h == nil {
			return nil, fmt.Errorf("nil handle in store bindings")
		}
		if err := h.use(); err != nil {
			return nil, err
		}
		if s.slots[h.slot] != nil {
			return nil, ir.NewSlotCollision(h.slot, "two handles supplied for one slot")
		}
		s.slots[h.slot] = h
	}
	return s, nil
}

// Insert marks a slot populated with the handle's mode and payload view.
// The receiving store is consumed; the returned store carries the extended
// shape. Fails with SlotCollision if the slot is already populated: use
// Shadow to replace explicitly.
func (s *Store) Insert(h *Handle) (*Store, error) {
	if err := s.use(); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("cannot insert nil handle")
	}
	if err := h.use(); err != nil {
		return nil, err
	}
	if s.slots[h.slot] != nil {
		return nil, ir.NewSlotCollision(h.slot,
			"slot already populated: use Shadow to replace explicitly")
	}

	next := &Store{slots: s.slots, outer: s.outer}
	next.slots[h.slot] = h
	s.moved = true
	return next, nil
}

// Shadow replaces an already populated slot with a new handle. The
// replaced handle's scope ends. Shadowing an empty slot behaves like
// Insert.
func (s *Store) Shadow(h *Handle) (*Store, error) {
	if err := s.use(); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("cannot shadow with nil handle")
	}
	if err := h.use(); err != nil {
		return nil, err
	}

	next := &Store{slots: s.slots, outer: s.outer}
	if old := next.slots[h.slot]; old != nil {
		old.drop()
	}
	next.slots[h.slot] = h
	s.moved = true
	return next, nil
}

// ExtractShared returns a shared view of the handle at a slot without
// consuming or altering the store: the slot remains populated exactly as
// before. An exclusive occupant yields a downgraded shared view. Slots
// absent locally resolve through the outer chain; absent everywhere fails
// with UnresolvedCapability.
func (s *Store) ExtractShared(slot ir.SlotIndex) (*Handle, error) {
	if err := s.use(); err != nil {
		return nil, err
	}
	if !slot.Valid() {
		return nil, fmt.Errorf("slot %d out of range [0, %d)", slot, ir.MaxSlots)
	}

	h, err := s.lookup(slot)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ir.NewUnresolved(slot, "slot is empty and no outer store populates it")
	}
	if err := h.use(); err != nil {
		return nil, err
	}
	if h.mode == ir.ModeShared {
		return h.ShareDuplicate()
	}
	// Downgraded read of an exclusive occupant. The exclusive handle stays
	// in place; the view shares its validity window rules.
	return &Handle{slot: slot, mode: ir.ModeShared, view: h.view, res: h.res}, nil
}

// ExtractExclusive takes the exclusive handle at a slot out of the store.
// While the returned handle is alive, no operation may touch the store,
// other slots included. Release the handle to resume the store.
//
// Exclusive extraction requires local occupancy: inherited slots resolve
// shared access only (see Coerce), so an exclusive request against an
// outer-populated slot fails with CoercionImpossible.
func (s *Store) ExtractExclusive(slot ir.SlotIndex) (*Handle, error) {
	if err := s.use(); err != nil {
		return nil, err
	}
	if !slot.Valid() {
		return nil, fmt.Errorf("slot %d out of range [0, %d)", slot, ir.MaxSlots)
	}

	h := s.slots[slot]
	if h == nil {
		if outer, err := s.lookupOuter(slot); err != nil {
			return nil, err
		} else if outer != nil {
			return nil, ir.NewCoercionImpossible(slot,
				"inherited slots resolve shared access only")
		}
		return nil, ir.NewUnresolved(slot, "slot is empty and no outer store populates it")
	}
	if err := h.use(); err != nil {
		return nil, err
	}
	if h.mode != ir.ModeExclusive {
		return nil, ir.NewCoercionImpossible(slot,
			"cannot strengthen a shared occupant to exclusive")
	}

	child, restorer, err := h.Narrow()
	if err != nil {
		return nil, err
	}
	s.suspended = true
	child.onRelease = func() {
		// Restore never fails for an un-restored child.
		_ = restorer.Restore()
		s.suspended = false
	}
	return child, nil
}

// Shape returns the store's current shape: the populated slots with the
// mode and payload view of each occupant. Outer-resolved slots are not
// part of the shape.
func (s *Store) Shape() ir.Shape {
	var sh ir.Shape
	for i := ir.SlotIndex(0); i < ir.MaxSlots; i++ {
		if h := s.slots[i]; h != nil {
			// Shape.Add cannot fail here: one requirement per slot.
			_ = sh.Add(ir.Requirement{Slot: i, Mode: h.mode, Payload: h.view})
		}
	}
	return sh
}

// Outer returns the outer store, or nil for a self-contained store.
func (s *Store) Outer() *Store { return s.outer }

// LocalHandle returns the handle occupying a slot locally, without outer
// resolution. Nil means the slot is locally empty. The handle stays in the
// store; callers narrow or duplicate it rather than take ownership.
func (s *Store) LocalHandle(slot ir.SlotIndex) *Handle {
	if !slot.Valid() {
		return nil
	}
	return s.slots[slot]
}

// Drop ends the scope of every handle the store holds, releasing any
// exclusivity claims. The store is unusable afterward.
func (s *Store) Drop() {
	for i := range s.slots {
		if s.slots[i] != nil {
			s.slots[i].drop()
		}
	}
	s.moved = true
}

// use checks the store is neither consumed nor suspended.
func (s *Store) use() error {
	if s.moved {
		return ir.NewExclusivityViolation(ir.NoSlot, "store has been moved")
	}
	if s.suspended {
		return ir.NewExclusivityViolation(ir.NoSlot,
			"store suspended while an extracted exclusive handle is alive")
	}
	return nil
}

// lookup finds the handle for a slot locally, then through the outer
// chain. Touching a suspended outer store is an ExclusivityViolation.
func (s *Store) lookup(slot ir.SlotIndex) (*Handle, error) {
	if h := s.slots[slot]; h != nil {
		return h, nil
	}
	return s.lookupOuter(slot)
}

// lookupOuter resolves a slot through the outer chain only.
func (s *Store) lookupOuter(slot ir.SlotIndex) (*Handle, error) {
	for o := s.outer; o != nil; o = o.outer {
		if o.moved {
			return nil, ir.NewExclusivityViolation(slot, "outer store has been moved")
		}
		if o.suspended {
			return nil, ir.NewExclusivityViolation(slot,
				"outer store suspended while an extracted exclusive handle is alive")
		}
		if h := o.slots[slot]; h != nil {
			return h, nil
		}
	}
	return nil, nil
}
