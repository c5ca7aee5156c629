package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/ambit/internal/ir"
)

// ScopeIDGenerator mints scope identities for new resources.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type ScopeIDGenerator interface {
	Generate() ir.ScopeID
}

// UUIDv7Generator generates time-sortable UUIDv7 scope identities.
//
// UUIDv7 embeds a timestamp in the most significant bits, which keeps
// resolution traces sortable by creation time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 scope identity.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() ir.ScopeID {
	return ir.ScopeID(uuid.Must(uuid.NewV7()).String())
}

// FixedGenerator returns predetermined scope identities for testing.
// This enables deterministic resolution traces and golden comparison.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []ir.ScopeID
	idx int
}

// NewFixedGenerator creates a generator that returns identities in order.
// Panics once all identities are consumed; this is a fail-fast approach to
// catch test misconfiguration.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	scoped := make([]ir.ScopeID, len(ids))
	for i, id := range ids {
		scoped[i] = ir.ScopeID(id)
	}
	return &FixedGenerator{ids: scoped}
}

// Generate returns the next predetermined scope identity.
func (g *FixedGenerator) Generate() ir.ScopeID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all scope identities exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
