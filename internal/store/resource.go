package store

import (
	"fmt"

	"github.com/roach88/ambit/internal/ir"
)

// Resource is one underlying capability value with its owning scope.
//
// The scope identity is the resource's identity: two handles denote the
// same resource exactly when their scope identities are equal. The
// resource's liveness window may outlive any handle onto it.
//
// The resource carries the program-wide exclusivity ledger: at most one
// exclusive handle may be alive for it at any instant, across every store
// that references it.
type Resource struct {
	scope   ir.ScopeID
	payload ir.PayloadType
	value   any

	// exclusiveLive is true while an exclusive handle onto this resource
	// is alive anywhere.
	exclusiveLive bool
}

// NewResource creates a resource with an explicit scope identity.
// Callers that do not care about the identity should mint one through a
// ScopeIDGenerator.
func NewResource(scope ir.ScopeID, payload ir.PayloadType, value any) (*Resource, error) {
	if scope == "" {
		return nil, fmt.Errorf("resource scope identity must be non-empty")
	}
	if payload == "" {
		return nil, fmt.Errorf("resource payload type must be non-empty")
	}
	return &Resource{scope: scope, payload: payload, value: value}, nil
}

// Scope returns the resource's scope identity.
func (r *Resource) Scope() ir.ScopeID { return r.scope }

// Payload returns the resource's declared payload type.
func (r *Resource) Payload() ir.PayloadType { return r.payload }

// Share creates a shared handle onto the resource at the given slot.
// Shared handles may coexist in any number; this always succeeds.
func (r *Resource) Share(slot ir.SlotIndex) (*Handle, error) {
	if !slot.Valid() {
		return nil, fmt.Errorf("slot %d out of range [0, %d)", slot, ir.MaxSlots)
	}
	return &Handle{slot: slot, mode: ir.ModeShared, view: r.payload, res: r}, nil
}

// Exclusive creates the exclusive handle onto the resource at the given
// slot. Fails with ExclusivityViolation if an exclusive handle is already
// alive anywhere for this resource.
func (r *Resource) Exclusive(slot ir.SlotIndex) (*Handle, error) {
	if !slot.Valid() {
		return nil, fmt.Errorf("slot %d out of range [0, %d)", slot, ir.MaxSlots)
	}
	if r.exclusiveLive {
		return nil, ir.NewExclusivityViolation(slot, fmt.Sprintf(
			"resource %s already has a live exclusive handle", r.scope))
	}
	r.exclusiveLive = true
	return &Handle{slot: slot, mode: ir.ModeExclusive, view: r.payload, res: r}, nil
}
