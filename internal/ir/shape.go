package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Shape describes which slots of a Store are populated, with what mode and
// payload type. A Shape is the static type of a Store: two Stores of
// different shape are not interchangeable without coercion.
type Shape struct {
	slots [MaxSlots]*Requirement
}

// NewShape builds a Shape from requirements. Two requirements for the same
// slot are joined: modes combine with JoinMode, payload types must agree.
func NewShape(reqs ...Requirement) (Shape, error) {
	var sh Shape
	for _, req := range reqs {
		if err := sh.Add(req); err != nil {
			return Shape{}, err
		}
	}
	return sh, nil
}

// Add joins one requirement into the shape in place.
// Returns AccessModeConflict if the slot is already required with a
// different payload type.
func (sh *Shape) Add(req Requirement) error {
	if !req.Slot.Valid() {
		return fmt.Errorf("slot %d out of range [0, %d)", req.Slot, MaxSlots)
	}
	existing := sh.slots[req.Slot]
	if existing == nil {
		r := req
		sh.slots[req.Slot] = &r
		return nil
	}
	if existing.Payload != req.Payload {
		return NewAccessModeConflict(req.Slot, fmt.Sprintf(
			"slot required with payload %s and %s", existing.Payload, req.Payload))
	}
	existing.Mode = JoinMode(existing.Mode, req.Mode)
	return nil
}

// At returns the requirement for a slot, or nil if the slot is not part of
// the shape.
func (sh Shape) At(slot SlotIndex) *Requirement {
	if !slot.Valid() {
		return nil
	}
	return sh.slots[slot]
}

// Slots returns the populated slot indices in ascending order.
func (sh Shape) Slots() []SlotIndex {
	var out []SlotIndex
	for i := SlotIndex(0); i < MaxSlots; i++ {
		if sh.slots[i] != nil {
			out = append(out, i)
		}
	}
	return out
}

// Len returns the number of populated slots.
func (sh Shape) Len() int {
	n := 0
	for i := range sh.slots {
		if sh.slots[i] != nil {
			n++
		}
	}
	return n
}

// Equal reports whether two shapes populate the same slots with the same
// mode and payload type.
func (sh Shape) Equal(other Shape) bool {
	for i := SlotIndex(0); i < MaxSlots; i++ {
		a, b := sh.slots[i], other.slots[i]
		if (a == nil) != (b == nil) {
			return false
		}
		if a != nil && (a.Mode != b.Mode || a.Payload != b.Payload) {
			return false
		}
	}
	return true
}

// Join merges two shapes into the least-constraining shape satisfying both.
// Same slot with different payload types is AccessModeConflict; modes
// combine with JoinMode.
func (sh Shape) Join(other Shape) (Shape, error) {
	out := sh.clone()
	for i := SlotIndex(0); i < MaxSlots; i++ {
		if other.slots[i] != nil {
			if err := out.Add(*other.slots[i]); err != nil {
				return Shape{}, err
			}
		}
	}
	return out, nil
}

// Requirements returns the shape as a slice in ascending slot order.
func (sh Shape) Requirements() []Requirement {
	var out []Requirement
	for _, slot := range sh.Slots() {
		out = append(out, *sh.slots[slot])
	}
	return out
}

// String renders the shape as "{0: shared<Allocator>, 2: exclusive<Logger>}".
func (sh Shape) String() string {
	slots := sh.Slots()
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	parts := make([]string, 0, len(slots))
	for _, slot := range slots {
		req := sh.slots[slot]
		parts = append(parts, fmt.Sprintf("%d: %s<%s>", slot, req.Mode, req.Payload))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (sh Shape) clone() Shape {
	var out Shape
	for i := range sh.slots {
		if sh.slots[i] != nil {
			r := *sh.slots[i]
			out.slots[i] = &r
		}
	}
	return out
}
