package store

import (
	"github.com/roach88/ambit/internal/ir"
)

// Restorer returns a narrowed handle's parent to full usability once the
// narrower view's scope ends.
type Restorer struct {
	parent *Handle
	child  *Handle
	done   bool
}

// Narrow produces a new exclusive handle whose scope is a strict
// sub-window of h's scope. While the returned handle is alive, using h
// fails with ExclusivityViolation. Invoking the Restorer ends the
// sub-window and returns h to full usability with its original scope.
//
// Only exclusive handles narrow; a shared handle has nothing to restrict,
// and strengthening it is impossible.
func (h *Handle) Narrow() (*Handle, *Restorer, error) {
	if err := h.use(); err != nil {
		return nil, nil, err
	}
	if h.mode != ir.ModeExclusive {
		return nil, nil, ir.NewCoercionImpossible(h.slot,
			"cannot narrow a shared handle")
	}

	// The parent is suspended, not released: the resource's exclusivity
	// claim transfers to the child for the duration of the sub-window.
	h.state = handleNarrowed
	child := &Handle{
		slot:   h.slot,
		mode:   ir.ModeExclusive,
		view:   h.view,
		res:    h.res,
		state:  handleLive,
		parent: h,
	}
	return child, &Restorer{parent: h, child: child}, nil
}

// Restore ends the narrowed view's scope and returns the parent handle to
// full usability. The parent's scope identity is unchanged: narrowing then
// restoring round-trips to the pre-narrow handle.
//
// Restore is idempotent; invoking it twice is a no-op.
func (r *Restorer) Restore() error {
	if r.done {
		return nil
	}
	r.done = true
	if r.child.state == handleLive {
		r.child.state = handleReleased
	}
	r.parent.state = handleLive
	return nil
}
