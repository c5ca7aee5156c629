package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ambit/internal/ir"
)

func TestUnify_SelfIsIdentity(t *testing.T) {
	alloc := newRes(t, "alloc-1", "Allocator", nil)
	s, err := Build([]*Handle{mustShare(t, alloc, 0)})
	require.NoError(t, err)

	out, err := Unify(s, s)
	require.NoError(t, err)
	assert.Same(t, s, out, "unify with self returns the same store unconsumed")

	_, err = out.ExtractShared(0)
	require.NoError(t, err)
}

func TestUnify_DisjointSlots(t *testing.T) {
	alloc := newRes(t, "alloc-1", "Allocator", nil)
	log := newRes(t, "log-1", "Logger", nil)

	a, err := Build([]*Handle{mustShare(t, alloc, 0)})
	require.NoError(t, err)
	b, err := Build([]*Handle{mustExclusive(t, log, 1)})
	require.NoError(t, err)

	out, err := Unify(a, b)
	require.NoError(t, err)

	sh := out.Shape()
	assert.Equal(t, 2, sh.Len())
	assert.Equal(t, ir.ModeShared, sh.At(0).Mode)
	assert.Equal(t, ir.ModeExclusive, sh.At(1).Mode)

	// Both inputs are consumed.
	_, err = a.ExtractShared(0)
	require.Error(t, err)
	_, err = b.ExtractShared(1)
	require.Error(t, err)
}

func TestUnify_SameResource_ExclusiveDominates(t *testing.T) {
	buf := newRes(t, "buf-1", "Buffer", nil)

	a, err := Build([]*Handle{mustShare(t, buf, 0)})
	require.NoError(t, err)
	b, err := Build([]*Handle{mustExclusive(t, buf, 0)})
	require.NoError(t, err)

	out, err := Unify(a, b)
	require.NoError(t, err)

	sh := out.Shape()
	assert.Equal(t, 1, sh.Len())
	assert.Equal(t, ir.ModeExclusive, sh.At(0).Mode, "exclusive wins the merge")

	h, err := out.ExtractShared(0)
	require.NoError(t, err)
	assert.Equal(t, ir.ScopeID("buf-1"), h.Scope())
}

func TestUnify_SameResource_BothShared(t *testing.T) {
	buf := newRes(t, "buf-1", "Buffer", nil)

	a, err := Build([]*Handle{mustShare(t, buf, 0)})
	require.NoError(t, err)
	b, err := Build([]*Handle{mustShare(t, buf, 0)})
	require.NoError(t, err)

	out, err := Unify(a, b)
	require.NoError(t, err)
	assert.Equal(t, ir.ModeShared, out.Shape().At(0).Mode)
}

func TestUnify_AliasedHandle(t *testing.T) {
	buf := newRes(t, "buf-1", "Buffer", nil)

	// Build does not move the handles it absorbs, so one handle can sit
	// in two stores. Merging it with itself must not end its scope.
	h := mustShare(t, buf, 0)
	a, err := Build([]*Handle{h})
	require.NoError(t, err)
	b, err := Build([]*Handle{h})
	require.NoError(t, err)

	out, err := Unify(a, b)
	require.NoError(t, err)
	assert.Equal(t, ir.ModeShared, out.Shape().At(0).Mode)

	got, err := out.ExtractShared(0)
	require.NoError(t, err)
	assert.Equal(t, ir.ScopeID("buf-1"), got.Scope())
}

func TestUnify_SameResource_BothExclusive(t *testing.T) {
	buf := newRes(t, "buf-1", "Buffer", nil)

	ha := mustExclusive(t, buf, 0)
	a, err := Build([]*Handle{ha})
	require.NoError(t, err)

	// A second exclusive handle onto the same resource can only exist in
	// another store after the ledger entry moved. Model the merge of two
	// call positions that both ended up holding the claim via narrowing.
	child, _, err := ha.Narrow()
	require.NoError(t, err)
	b, err := Build([]*Handle{child})
	require.NoError(t, err)

	// The narrowed parent is unusable, so unify refuses the merge.
	_, err = Unify(a, b)
	require.Error(t, err)
	assert.True(t, ir.IsExclusivityViolation(err))
}

func TestUnify_DistinctResources(t *testing.T) {
	a1 := newRes(t, "buf-1", "Buffer", nil)
	a2 := newRes(t, "buf-2", "Buffer", nil)

	a, err := Build([]*Handle{mustShare(t, a1, 0)})
	require.NoError(t, err)
	b, err := Build([]*Handle{mustShare(t, a2, 0)})
	require.NoError(t, err)

	_, err = Unify(a, b)
	require.Error(t, err)
	assert.True(t, ir.IsAccessModeConflict(err))
	assert.Contains(t, err.Error(), "distinct resources")

	// Failure leaves both inputs usable.
	_, err = a.ExtractShared(0)
	require.NoError(t, err)
	_, err = b.ExtractShared(0)
	require.NoError(t, err)
}

func TestUnify_ViewMismatch(t *testing.T) {
	buf := newRes(t, "buf-1", "Buffer", nil)

	ha := mustShare(t, buf, 0)
	hb := mustShare(t, buf, 0)
	hb.view = "View"

	a, err := Build([]*Handle{ha})
	require.NoError(t, err)
	b, err := Build([]*Handle{hb})
	require.NoError(t, err)

	_, err = Unify(a, b)
	require.Error(t, err)
	assert.True(t, ir.IsAccessModeConflict(err))
	assert.Contains(t, err.Error(), "payload views")
}

func TestUnify_NilStore(t *testing.T) {
	s, err := Build(nil)
	require.NoError(t, err)

	_, err = Unify(s, nil)
	require.Error(t, err)
	_, err = Unify(nil, s)
	require.Error(t, err)
}

func TestUnify_MovedInput(t *testing.T) {
	a, err := Build(nil)
	require.NoError(t, err)
	b, err := Build(nil)
	require.NoError(t, err)

	a.Drop()
	_, err = Unify(a, b)
	require.Error(t, err)
	assert.True(t, ir.IsExclusivityViolation(err))
}

func TestUnify_OuterPreference(t *testing.T) {
	alloc := newRes(t, "alloc-1", "Allocator", nil)
	outer, err := Build([]*Handle{mustShare(t, alloc, 3)})
	require.NoError(t, err)

	a, err := Build(nil, WithOuter(outer))
	require.NoError(t, err)
	b, err := Build(nil)
	require.NoError(t, err)

	out, err := Unify(a, b)
	require.NoError(t, err)
	assert.Same(t, outer, out.Outer(), "the first input's outer chain wins")

	h, err := out.ExtractShared(3)
	require.NoError(t, err)
	assert.Equal(t, ir.ScopeID("alloc-1"), h.Scope())
}
