package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ambit/internal/ir"
)

func TestUUIDv7Generator_Unique(t *testing.T) {
	gen := UUIDv7Generator{}
	seen := make(map[ir.ScopeID]bool)
	for i := 0; i < 100; i++ {
		id := gen.Generate()
		require.False(t, seen[id], "duplicate scope identity %s", id)
		seen[id] = true
	}
}

func TestUUIDv7Generator_ValidUUIDv7(t *testing.T) {
	gen := UUIDv7Generator{}
	id := gen.Generate()

	parsed, err := uuid.Parse(string(id))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestFixedGenerator_ReturnsInOrder(t *testing.T) {
	gen := NewFixedGenerator("a", "b", "c")
	assert.Equal(t, ir.ScopeID("a"), gen.Generate())
	assert.Equal(t, ir.ScopeID("b"), gen.Generate())
	assert.Equal(t, ir.ScopeID("c"), gen.Generate())
}

func TestFixedGenerator_PanicsOnExhaustion(t *testing.T) {
	gen := NewFixedGenerator("only")
	gen.Generate()
	assert.Panics(t, func() { gen.Generate() })
}
