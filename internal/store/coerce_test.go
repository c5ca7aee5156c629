package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ambit/internal/ir"
)

// fakePolicy is a CoercionPolicy with explicit projection edges and
// per-slot default resources.
type fakePolicy struct {
	projections map[ir.PayloadType]ir.PayloadType
	defaults    map[ir.SlotIndex]*Resource
	synthesized int
}

func (p *fakePolicy) CanProject(from, to ir.PayloadType) bool {
	if from == to {
		return true
	}
	return p.projections[from] == to
}

func (p *fakePolicy) Default(req ir.Requirement) (*Handle, bool, error) {
	res, ok := p.defaults[req.Slot]
	if !ok {
		return nil, false, nil
	}
	p.synthesized++
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

func mustShape(t *testing.T, reqs ...ir.Requirement) ir.Shape {
	t.Helper()
	sh, err := ir.NewShape(reqs...)
	require.NoError(t, err)
	return sh
}

func TestCoerce_OwnShapeIsIdentity(t *testing.T) {
	alloc := newRes(t, "alloc-1", "Allocator", nil)
	s, err := Build([]*Handle{mustShare(t, alloc, 0)})
	require.NoError(t, err)

	out, err := Coerce(s, s.Shape(), NoPolicy)
	require.NoError(t, err)
	assert.Same(t, s, out, "coercing to the current shape returns the store unconsumed")

	_, err = out.ExtractShared(0)
	require.NoError(t, err)
}

func TestCoerce_DropsUnrequiredSlots(t *testing.T) {
	alloc := newRes(t, "alloc-1", "Allocator", nil)
	log := newRes(t, "log-1", "Logger", nil)
	s, err := Build([]*Handle{
		mustShare(t, alloc, 0),
		mustExclusive(t, log, 1),
	})
	require.NoError(t, err)

	target := mustShape(t, ir.Requirement{Slot: 0, Mode: ir.ModeShared, Payload: "Allocator"})
	out, err := Coerce(s, target, NoPolicy)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Shape().Len())

	// The dropped exclusive occupant released its claim.
	_, err = log.Exclusive(1)
	require.NoError(t, err)
}

func TestCoerce_WeakensExclusiveToShared(t *testing.T) {
	log := newRes(t, "log-1", "Logger", nil)
	s, err := Build([]*Handle{mustExclusive(t, log, 1)})
	require.NoError(t, err)

	target := mustShape(t, ir.Requirement{Slot: 1, Mode: ir.ModeShared, Payload: "Logger"})
	out, err := Coerce(s, target, NoPolicy)
	require.NoError(t, err)

	assert.Equal(t, ir.ModeShared, out.Shape().At(1).Mode)

	// Weakening ends the exclusivity claim: the resource admits a new
	// exclusive handle.
	_, err = log.Exclusive(1)
	require.NoError(t, err)
}

func TestCoerce_StrengtheningImpossible(t *testing.T) {
	alloc := newRes(t, "alloc-1", "Allocator", nil)
	s, err := Build([]*Handle{mustShare(t, alloc, 0)})
	require.NoError(t, err)

	target := mustShape(t, ir.Requirement{Slot: 0, Mode: ir.ModeExclusive, Payload: "Allocator"})
	_, err = Coerce(s, target, NoPolicy)
	require.Error(t, err)
	assert.True(t, ir.IsCoercionImpossible(err))

	// Failure leaves the input usable.
	_, err = s.ExtractShared(0)
	require.NoError(t, err)
}

func TestCoerce_ProjectionChangesView(t *testing.T) {
	buf := newRes(t, "buf-1", "Buffer", nil)
	s, err := Build([]*Handle{mustExclusive(t, buf, 0)})
	require.NoError(t, err)

	policy := &fakePolicy{projections: map[ir.PayloadType]ir.PayloadType{"Buffer": "View"}}
	target := mustShape(t, ir.Requirement{Slot: 0, Mode: ir.ModeShared, Payload: "View"})

	out, err := Coerce(s, target, policy)
	require.NoError(t, err)

	req := out.Shape().At(0)
	assert.Equal(t, ir.ModeShared, req.Mode)
	assert.Equal(t, ir.PayloadType("View"), req.Payload)

	// The view changed; the resource identity did not.
	h, err := out.ExtractShared(0)
	require.NoError(t, err)
	assert.Equal(t, ir.ScopeID("buf-1"), h.Scope())
}

func TestCoerce_UndeclaredProjection(t *testing.T) {
	buf := newRes(t, "buf-1", "Buffer", nil)
	s, err := Build([]*Handle{mustShare(t, buf, 0)})
	require.NoError(t, err)

	target := mustShape(t, ir.Requirement{Slot: 0, Mode: ir.ModeShared, Payload: "View"})
	_, err = Coerce(s, target, NoPolicy)
	require.Error(t, err)
	assert.True(t, ir.IsCoercionImpossible(err))
	assert.Contains(t, err.Error(), "no projection")
}

func TestCoerce_InheritsSharedFromOuter(t *testing.T) {
	alloc := newRes(t, "alloc-1", "Allocator", nil)
	outer, err := Build([]*Handle{mustShare(t, alloc, 0)})
	require.NoError(t, err)
	s, err := Build(nil, WithOuter(outer))
	require.NoError(t, err)

	target := mustShape(t, ir.Requirement{Slot: 0, Mode: ir.ModeShared, Payload: "Allocator"})
	out, err := Coerce(s, target, NoPolicy)
	require.NoError(t, err)

	h, err := out.ExtractShared(0)
	require.NoError(t, err)
	assert.Equal(t, ir.ScopeID("alloc-1"), h.Scope())

	// The outer store still holds its own handle.
	_, err = outer.ExtractShared(0)
	require.NoError(t, err)
}

func TestCoerce_InheritedExclusiveImpossible(t *testing.T) {
	log := newRes(t, "log-1", "Logger", nil)
	outer, err := Build([]*Handle{mustExclusive(t, log, 1)})
	require.NoError(t, err)
	s, err := Build(nil, WithOuter(outer))
	require.NoError(t, err)

	target := mustShape(t, ir.Requirement{Slot: 1, Mode: ir.ModeExclusive, Payload: "Logger"})
	_, err = Coerce(s, target, NoPolicy)
	require.Error(t, err)
	assert.True(t, ir.IsCoercionImpossible(err))
	assert.Contains(t, err.Error(), "inherited")
}

func TestCoerce_SynthesizesDefault(t *testing.T) {
	def := newRes(t, "def-1", "Clock", nil)
	policy := &fakePolicy{defaults: map[ir.SlotIndex]*Resource{2: def}}

	s, err := Build(nil)
	require.NoError(t, err)

	target := mustShape(t, ir.Requirement{Slot: 2, Mode: ir.ModeShared, Payload: "Clock"})
	out, err := Coerce(s, target, policy)
	require.NoError(t, err)

	h, err := out.ExtractShared(2)
	require.NoError(t, err)
	assert.Equal(t, ir.ScopeID("def-1"), h.Scope())
	assert.Equal(t, 1, policy.synthesized)
}

func TestCoerce_SupplierSuppressesDefault(t *testing.T) {
	def := newRes(t, "def-1", "Allocator", nil)
	supplied := newRes(t, "sup-1", "Allocator", nil)
	policy := &fakePolicy{defaults: map[ir.SlotIndex]*Resource{0: def}}

	s, err := Build([]*Handle{mustShare(t, supplied, 0)})
	require.NoError(t, err)

	target := mustShape(t, ir.Requirement{Slot: 0, Mode: ir.ModeShared, Payload: "Allocator"})
	out, err := Coerce(s, target, policy)
	require.NoError(t, err)

	h, err := out.ExtractShared(0)
	require.NoError(t, err)
	assert.Equal(t, ir.ScopeID("sup-1"), h.Scope(), "a supplied slot never falls back to its default")
	assert.Equal(t, 0, policy.synthesized)
}

func TestCoerce_UnresolvedWithoutDefault(t *testing.T) {
	s, err := Build(nil)
	require.NoError(t, err)

	target := mustShape(t, ir.Requirement{Slot: 5, Mode: ir.ModeShared, Payload: "Clock"})
	_, err = Coerce(s, target, NoPolicy)
	require.Error(t, err)
	assert.True(t, ir.IsUnresolved(err))
}

func TestCoerce_NilStore(t *testing.T) {
	_, err := Coerce(nil, ir.Shape{}, NoPolicy)
	require.Error(t, err)
}

func TestCoerce_ConsumesInput(t *testing.T) {
	alloc := newRes(t, "alloc-1", "Allocator", nil)
	s, err := Build([]*Handle{mustShare(t, alloc, 0)})
	require.NoError(t, err)

	_, err = Coerce(s, ir.Shape{}, NoPolicy)
	require.NoError(t, err)

	_, err = s.ExtractShared(0)
	require.Error(t, err)
	assert.True(t, ir.IsExclusivityViolation(err))
}
