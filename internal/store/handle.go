package store

import (
	"fmt"

	"github.com/roach88/ambit/internal/ir"
)

// handleState tracks a handle's position in its validity window.
type handleState uint8

const (
	// handleLive: the handle is usable.
	handleLive handleState = iota

	// handleMoved: the handle was consumed by an operation that takes
	// handles by value (unify, coerce, shadow). Using it is a violation.
	handleMoved

	// handleNarrowed: a narrower exclusive view derived from this handle
	// is still alive. The handle is unusable until the view's scope ends.
	handleNarrowed

	// handleReleased: the handle's own scope has ended.
	handleReleased
)

// Handle is a single typed access view of one resource: a slot, an access
// mode, and the scope identity of the underlying resource. A handle's
// scope is the validity window of the access, distinct from the lifetime
// of the resource itself.
type Handle struct {
	slot ir.SlotIndex
	mode ir.Mode

	// view is the payload type as seen through this handle. It starts as
	// the resource's payload type and changes when a coercion applies a
	// declared payload projection.
	view ir.PayloadType

	res   *Resource
	state handleState

	// parent is set on handles produced by Narrow. A borrowed handle's
	// exclusivity claim belongs to its parent: ending the borrow must not
	// release the resource's ledger entry.
	parent *Handle

	// onRelease ends an extraction window: set on handles returned by
	// Store.ExtractExclusive, nil otherwise.
	onRelease func()
}

// Narrower produces a temporarily-restricted exclusive view and the means
// to restore the original afterward. Narrowing is only expressible when
// the concrete handle type is known; code holding an opaque view narrows
// through this interface instead.
type Narrower interface {
	Narrow() (*Handle, *Restorer, error)
}

// Slot returns the slot index this handle occupies.
func (h *Handle) Slot() ir.SlotIndex { return h.slot }

// Mode returns the handle's access mode.
func (h *Handle) Mode() ir.Mode { return h.mode }

// Scope returns the scope identity of the underlying resource.
func (h *Handle) Scope() ir.ScopeID { return h.res.scope }

// Payload returns the payload type as seen through this handle.
func (h *Handle) Payload() ir.PayloadType { return h.view }

// Value returns the underlying payload value.
// Fails with ExclusivityViolation if the handle is outside its validity
// window (moved, released, or suspended by a live narrower view).
func (h *Handle) Value() (any, error) {
	if err := h.use(); err != nil {
		return nil, err
	}
	return h.res.value, nil
}

// ShareDuplicate returns a new shared handle with identical slot, scope,
// and payload view. Only shared handles may be duplicated; an exclusive
// handle moves instead.
func (h *Handle) ShareDuplicate() (*Handle, error) {
	if err := h.use(); err != nil {
		return nil, err
	}
	if h.mode != ir.ModeShared {
		return nil, ir.NewExclusivityViolation(h.slot,
			"exclusive handles cannot be duplicated")
	}
	return &Handle{slot: h.slot, mode: ir.ModeShared, view: h.view, res: h.res}, nil
}

// Release ends the validity window of a handle obtained through
// Store.ExtractExclusive, resuming the store it was extracted from.
// Handles that were not extracted have no release operation.
func (h *Handle) Release() error {
	if h.onRelease == nil {
		return fmt.Errorf("handle at slot %d was not extracted: nothing to release", h.slot)
	}
	if h.state != handleLive {
		return ir.NewExclusivityViolation(h.slot, "handle already released")
	}
	h.state = handleReleased
	h.onRelease()
	h.onRelease = nil
	return nil
}

// use checks that the handle is inside its validity window.
func (h *Handle) use() error {
	switch h.state {
	case handleLive:
		return nil
	case handleMoved:
		return ir.NewExclusivityViolation(h.slot, "handle has been moved")
	case handleNarrowed:
		return ir.NewExclusivityViolation(h.slot,
			"handle suspended while a narrower exclusive view is alive")
	case handleReleased:
		return ir.NewExclusivityViolation(h.slot, "handle scope has ended")
	default:
		return ir.NewExclusivityViolation(h.slot, fmt.Sprintf("handle in unknown state %d", h.state))
	}
}

// drop ends the handle's scope, releasing the exclusivity claim if it held
// one. A borrowed (narrowed) handle leaves the claim with its parent.
// Dropping is idempotent for handles already out of their window.
func (h *Handle) drop() {
	if h.state != handleLive {
		return
	}
	if h.mode == ir.ModeExclusive && h.parent == nil {
		h.res.exclusiveLive = false
	}
	h.state = handleReleased
}

// move consumes the handle.
func (h *Handle) move() {
	h.state = handleMoved
}
