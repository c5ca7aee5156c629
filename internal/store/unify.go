package store

import (
	"fmt"

	"github.com/roach88/ambit/internal/ir"
)

// Unify combines two stores slot by slot into the least-constraining store
// compatible with both. Both inputs are consumed on success and untouched
// on failure.
//
// Per slot:
//   - empty / empty: empty
//   - populated / empty (either way): the populated handle
//   - populated / populated, same scope identity and payload view:
//     exclusive if either is exclusive, else shared
//   - populated / populated otherwise: AccessModeConflict
//
// Two populated slots merge only when they provably denote the same
// underlying resource; scope-identity equality is that proof. Merging
// handles to resources that merely happen to be "the same by convention"
// is rejected rather than trusted: unify is not a general-purpose join
// over arbitrary values.
func Unify(a, b *Store) (*Store, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("cannot unify a nil store")
	}
	// Merging with self is identity.
	if a == b {
		if err := a.use(); err != nil {
			return nil, err
		}
		return a, nil
	}
	if err := a.use(); err != nil {
		return nil, err
	}
	if err := b.use(); err != nil {
		return nil, err
	}

	// Validate before mutating: failure must leave both inputs usable.
	for i := ir.SlotIndex(0); i < ir.MaxSlots; i++ {
		ha, hb := a.slots[i], b.slots[i]
		if ha == nil || hb == nil {
			continue
		}
		if err := ha.use(); err != nil {
			return nil, err
		}
		if err := hb.use(); err != nil {
			return nil, err
		}
		if ha.Scope() != hb.Scope() {
			return nil, ir.NewAccessModeConflict(i, fmt.Sprintf(
				"slot filled from two distinct resources (%s vs %s)", ha.Scope(), hb.Scope()))
		}
		if ha.view != hb.view {
			return nil, ir.NewAccessModeConflict(i, fmt.Sprintf(
				"slot filled with two payload views (%s vs %s)", ha.view, hb.view))
		}
	}

	out := &Store{outer: unifiedOuter(a, b)}
	for i := ir.SlotIndex(0); i < ir.MaxSlots; i++ {
		ha, hb := a.slots[i], b.slots[i]
		switch {
		case ha == nil && hb == nil:
			// empty
		case hb == nil:
			out.slots[i] = ha
		case ha == nil:
			out.slots[i] = hb
		default:
			// One handle reachable through both inputs merges with itself.
			if ha == hb {
				out.slots[i] = ha
				continue
			}
			// Same resource: exclusive dominates shared. The kept handle
			// carries the merge; the other's scope ends here.
			keep, dropped := ha, hb
			if hb.mode == ir.ModeExclusive && ha.mode != ir.ModeExclusive {
				keep, dropped = hb, ha
			}
			if dropped.mode == ir.ModeExclusive && keep.mode == ir.ModeExclusive {
				// The exclusivity claim stays with the kept handle.
				dropped.state = handleReleased
			} else {
				dropped.drop()
			}
			out.slots[i] = keep
		}
	}
	a.moved = true
	b.moved = true
	return out, nil
}

// unifiedOuter picks the outer chain for a unified store. When both inputs
// inherit, a's chain wins; the unified store is for a's call position.
func unifiedOuter(a, b *Store) *Store {
	if a.outer != nil {
		return a.outer
	}
	return b.outer
}
