package store

import (
	"fmt"

	"github.com/roach88/ambit/internal/ir"
)

// CoercionPolicy supplies the declaration-scoped decisions Coerce cannot
// make on its own: which payload projections are legal, and how to
// synthesize a default for a slot nobody supplies. The registry (wrapped
// with per-resolution default memoization) implements it.
type CoercionPolicy interface {
	// CanProject reports whether a payload of type from may be viewed as
	// type to.
	CanProject(from, to ir.PayloadType) bool

	// Default synthesizes a handle satisfying the requirement, or reports
	// that the slot's kind has no default. Synthesis must happen at most
	// once per resolution chain: a second call for the same slot returns
	// a handle onto the same resource.
	Default(req ir.Requirement) (*Handle, bool, error)
}

// NoPolicy is the CoercionPolicy with no projections and no defaults.
// Coercions under it succeed only on exact payload matches.
var NoPolicy CoercionPolicy = noPolicy{}

type noPolicy struct{}

func (noPolicy) CanProject(from, to ir.PayloadType) bool       { return from == to }
func (noPolicy) Default(ir.Requirement) (*Handle, bool, error) { return nil, false, nil }

// coerceAction is one slot's planned transition, computed before any
// mutation so a failed coercion leaves the input untouched.
type coerceAction struct {
	slot ir.SlotIndex
	op   coerceOp
	h    *Handle
	view ir.PayloadType
}

type coerceOp uint8

const (
	coerceDrop coerceOp = iota
	coerceMove
	coerceWeaken
	coerceInherit
	coerceDefault
)

// Coerce reshapes a store to satisfy a callee's declared requirement:
//
//   - slots the target does not require are dropped;
//   - exclusive occupants weaken to shared where the target only needs
//     shared (never the reverse);
//   - payload views change only along projections the policy accepts;
//   - slots absent locally resolve through the outer chain as shared
//     views; absent everywhere, the kind's default is synthesized exactly
//     once, or the coercion fails with UnresolvedCapability.
//
// The input store is consumed on success and untouched on failure.
// Coercing a store to its own shape is the identity: the same store is
// returned unconsumed.
func Coerce(s *Store, target ir.Shape, policy CoercionPolicy) (*Store, error) {
	if s == nil {
		return nil, fmt.Errorf("cannot coerce a nil store")
	}
	if err := s.use(); err != nil {
		return nil, err
	}
	if policy == nil {
		policy = NoPolicy
	}
	if target.Equal(s.Shape()) {
		return s, nil
	}

	// Plan first, mutate after: every slot's transition is validated
	// before any handle moves.
	var actions []coerceAction
	for i := ir.SlotIndex(0); i < ir.MaxSlots; i++ {
		req := target.At(i)
		local := s.slots[i]

		if req == nil {
			if local != nil {
				actions = append(actions, coerceAction{slot: i, op: coerceDrop, h: local})
			}
			continue
		}

		if local != nil {
			if err := local.use(); err != nil {
				return nil, err
			}
			if !policy.CanProject(local.view, req.Payload) {
				return nil, ir.NewCoercionImpossible(i, fmt.Sprintf(
					"no projection from payload %s to %s", local.view, req.Payload))
			}
			switch {
			case req.Mode == ir.ModeExclusive && local.mode != ir.ModeExclusive:
				return nil, ir.NewCoercionImpossible(i,
					"cannot strengthen a shared occupant to exclusive")
			case req.Mode == ir.ModeShared && local.mode == ir.ModeExclusive:
				actions = append(actions, coerceAction{slot: i, op: coerceWeaken, h: local, view: req.Payload})
			default:
				actions = append(actions, coerceAction{slot: i, op: coerceMove, h: local, view: req.Payload})
			}
			continue
		}

		inherited, err := s.lookupOuter(i)
		if err != nil {
			return nil, err
		}
		if inherited != nil {
			if err := inherited.use(); err != nil {
				return nil, err
			}
			if req.Mode == ir.ModeExclusive {
				return nil, ir.NewCoercionImpossible(i,
					"inherited slots resolve shared access only")
			}
			if !policy.CanProject(inherited.view, req.Payload) {
				return nil, ir.NewCoercionImpossible(i, fmt.Sprintf(
					"no projection from payload %s to %s", inherited.view, req.Payload))
			}
			actions = append(actions, coerceAction{slot: i, op: coerceInherit, h: inherited, view: req.Payload})
			continue
		}

		// Absent everywhere: synthesize the default once, or fail. A slot
		// any caller in the chain supplies never reaches this branch, so
		// an inherited override is never shadowed by an unrequested
		// default insertion downstream.
		def, ok, err := policy.Default(*req)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ir.NewUnresolved(i, "no supplier in scope and no registered default")
		}
		if err := def.use(); err != nil {
			return nil, err
		}
		actions = append(actions, coerceAction{slot: i, op: coerceDefault, h: def, view: req.Payload})
	}

	out := &Store{outer: s.outer}
	for _, act := range actions {
		switch act.op {
		case coerceDrop:
			act.h.drop()
		case coerceMove:
			act.h.view = act.view
			out.slots[act.slot] = act.h
		case coerceWeaken:
			if act.h.parent == nil {
				act.h.res.exclusiveLive = false
			}
			act.h.mode = ir.ModeShared
			act.h.view = act.view
			out.slots[act.slot] = act.h
		case coerceInherit:
			out.slots[act.slot] = &Handle{
				slot: act.slot,
				mode: ir.ModeShared,
				view: act.view,
				res:  act.h.res,
			}
		case coerceDefault:
			act.h.view = act.view
			out.slots[act.slot] = act.h
		}
	}
	s.moved = true
	return out, nil
}
