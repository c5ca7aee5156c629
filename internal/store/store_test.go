package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ambit/internal/ir"
)

func mustShare(t *testing.T, res *Resource, slot ir.SlotIndex) *Handle {
	t.Helper()
	h, err := res.Share(slot)
	require.NoError(t, err)
	return h
}

func mustExclusive(t *testing.T, res *Resource, slot ir.SlotIndex) *Handle {
	t.Helper()
	h, err := res.Exclusive(slot)
	require.NoError(t, err)
	return h
}

func TestBuild_Basic(t *testing.T) {
	alloc := newRes(t, "alloc-1", "Allocator", nil)
	log := newRes(t, "log-1", "Logger", nil)

	s, err := Build([]*Handle{
		mustShare(t, alloc, 0),
		mustExclusive(t, log, 2),
	})
	require.NoError(t, err)

	sh := s.Shape()
	assert.Equal(t, 2, sh.Len())
	assert.Equal(t, ir.ModeShared, sh.At(0).Mode)
	assert.Equal(t, ir.ModeExclusive, sh.At(2).Mode)
	assert.Nil(t, sh.At(1))
}

func TestBuild_SlotCollision(t *testing.T) {
	a := newRes(t, "a", "X", nil)
	b := newRes(t, "b", "X", nil)

	_, err := Build([]*Handle{
		mustShare(t, a, 0),
		mustShare(t, b, 0),
	})
	require.Error(t, err)
	assert.True(t, ir.IsSlotCollision(err))
}

func TestBuild_NilHandle(t *testing.T) {
	_, err := Build([]*Handle{nil})
	require.Error(t, err)
}

func TestInsert(t *testing.T) {
	alloc := newRes(t, "alloc-1", "Allocator", nil)
	log := newRes(t, "log-1", "Logger", nil)

	s, err := Build([]*Handle{mustShare(t, alloc, 0)})
	require.NoError(t, err)

	next, err := s.Insert(mustShare(t, log, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, next.Shape().Len())

	// Insert consumes the receiver.
	_, err = s.ExtractShared(0)
	require.Error(t, err)
	assert.True(t, ir.IsExclusivityViolation(err))
}

func TestInsert_OccupiedSlot(t *testing.T) {
	a := newRes(t, "a", "X", nil)
	b := newRes(t, "b", "X", nil)

	s, err := Build([]*Handle{mustShare(t, a, 0)})
	require.NoError(t, err)

	_, err = s.Insert(mustShare(t, b, 0))
	require.Error(t, err)
	assert.True(t, ir.IsSlotCollision(err))
	assert.Contains(t, err.Error(), "Shadow")
}

func TestShadow_ReplacesOccupant(t *testing.T) {
	a := newRes(t, "a", "X", "old")
	b := newRes(t, "b", "X", "new")

	old := mustShare(t, a, 0)
	s, err := Build([]*Handle{old})
	require.NoError(t, err)

	next, err := s.Shadow(mustShare(t, b, 0))
	require.NoError(t, err)

	h, err := next.ExtractShared(0)
	require.NoError(t, err)
	assert.Equal(t, ir.ScopeID("b"), h.Scope())

	// The replaced handle's scope ended.
	_, err = old.Value()
	require.Error(t, err)
}

func TestShadow_EmptySlotBehavesLikeInsert(t *testing.T) {
	a := newRes(t, "a", "X", nil)
	s, err := Build(nil)
	require.NoError(t, err)

	next, err := s.Shadow(mustShare(t, a, 3))
	require.NoError(t, err)
	assert.Equal(t, 1, next.Shape().Len())
}

func TestExtractShared_NonConsuming(t *testing.T) {
	alloc := newRes(t, "alloc-1", "Allocator", nil)
	s, err := Build([]*Handle{mustShare(t, alloc, 0)})
	require.NoError(t, err)

	before := s.Shape()

	// Two extractions in a row both succeed and agree on the resource.
	h1, err := s.ExtractShared(0)
	require.NoError(t, err)
	h2, err := s.ExtractShared(0)
	require.NoError(t, err)

	assert.Equal(t, h1.Scope(), h2.Scope())
	assert.True(t, s.Shape().Equal(before), "extraction must not change the shape")
}

func TestExtractShared_DowngradesExclusiveOccupant(t *testing.T) {
	log := newRes(t, "log-1", "Logger", nil)
	s, err := Build([]*Handle{mustExclusive(t, log, 1)})
	require.NoError(t, err)

	h, err := s.ExtractShared(1)
	require.NoError(t, err)
	assert.Equal(t, ir.ModeShared, h.Mode())
	assert.Equal(t, ir.ScopeID("log-1"), h.Scope())

	// The exclusive occupant stays in place.
	assert.Equal(t, ir.ModeExclusive, s.Shape().At(1).Mode)
}

func TestExtractShared_Absent(t *testing.T) {
	s, err := Build(nil)
	require.NoError(t, err)

	_, err = s.ExtractShared(4)
	require.Error(t, err)
	assert.True(t, ir.IsUnresolved(err))
}

func TestExtractShared_OuterChain(t *testing.T) {
	alloc := newRes(t, "alloc-1", "Allocator", nil)
	outer, err := Build([]*Handle{mustShare(t, alloc, 0)})
	require.NoError(t, err)
	inner, err := Build(nil, WithOuter(outer))
	require.NoError(t, err)

	h, err := inner.ExtractShared(0)
	require.NoError(t, err)
	assert.Equal(t, ir.ScopeID("alloc-1"), h.Scope())

	// Outer resolution does not add the slot to the inner shape.
	assert.Equal(t, 0, inner.Shape().Len())
}

func TestExtractExclusive_SuspendsWholeStore(t *testing.T) {
	log := newRes(t, "log-1", "Logger", nil)
	alloc := newRes(t, "alloc-1", "Allocator", nil)
	s, err := Build([]*Handle{
		mustExclusive(t, log, 1),
		mustShare(t, alloc, 0),
	})
	require.NoError(t, err)

	h, err := s.ExtractExclusive(1)
	require.NoError(t, err)

	// Suspension is whole-store: even unrelated slots are untouchable.
	_, err = s.ExtractShared(0)
	require.Error(t, err)
	assert.True(t, ir.IsExclusivityViolation(err))

	require.NoError(t, h.Release())

	// Releasing resumes the store with the slot still populated.
	_, err = s.ExtractShared(0)
	require.NoError(t, err)
	_, err = s.ExtractShared(1)
	require.NoError(t, err)
}

func TestExtractExclusive_SharedOccupant(t *testing.T) {
	alloc := newRes(t, "alloc-1", "Allocator", nil)
	s, err := Build([]*Handle{mustShare(t, alloc, 0)})
	require.NoError(t, err)

	_, err = s.ExtractExclusive(0)
	require.Error(t, err)
	assert.True(t, ir.IsCoercionImpossible(err))
}

func TestExtractExclusive_InheritedSlot(t *testing.T) {
	log := newRes(t, "log-1", "Logger", nil)
	outer, err := Build([]*Handle{mustExclusive(t, log, 1)})
	require.NoError(t, err)
	inner, err := Build(nil, WithOuter(outer))
	require.NoError(t, err)

	_, err = inner.ExtractExclusive(1)
	require.Error(t, err)
	assert.True(t, ir.IsCoercionImpossible(err))
	assert.Contains(t, err.Error(), "inherited")
}

func TestExtractExclusive_Absent(t *testing.T) {
	s, err := Build(nil)
	require.NoError(t, err)

	_, err = s.ExtractExclusive(0)
	require.Error(t, err)
	assert.True(t, ir.IsUnresolved(err))
}

func TestOuterChain_SuspendedOuterRejected(t *testing.T) {
	log := newRes(t, "log-1", "Logger", nil)
	outer, err := Build([]*Handle{mustExclusive(t, log, 1)})
	require.NoError(t, err)
	inner, err := Build(nil, WithOuter(outer))
	require.NoError(t, err)

	h, err := outer.ExtractExclusive(1)
	require.NoError(t, err)

	// The inner store cannot read through a suspended outer.
	_, err = inner.ExtractShared(1)
	require.Error(t, err)
	assert.True(t, ir.IsExclusivityViolation(err))

	require.NoError(t, h.Release())
	_, err = inner.ExtractShared(1)
	require.NoError(t, err)
}

func TestDrop_ReleasesExclusivity(t *testing.T) {
	log := newRes(t, "log-1", "Logger", nil)
	s, err := Build([]*Handle{mustExclusive(t, log, 1)})
	require.NoError(t, err)

	s.Drop()

	// The resource's exclusivity claim ended with the store.
	_, err = log.Exclusive(1)
	require.NoError(t, err)

	_, err = s.ExtractShared(1)
	require.Error(t, err)
	assert.True(t, ir.IsExclusivityViolation(err))
}

func TestStore_InvalidSlot(t *testing.T) {
	s, err := Build(nil)
	require.NoError(t, err)

	_, err = s.ExtractShared(ir.MaxSlots)
	require.Error(t, err)
	_, err = s.ExtractExclusive(-1)
	require.Error(t, err)
}
