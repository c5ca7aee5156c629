package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/ambit/internal/ir"
)

// SequenceGenerator mints scope identities "scope-1", "scope-2", ... in
// order. Unlike store.FixedGenerator it never exhausts, so it suits
// scenarios that synthesize an unknown number of defaults.
type SequenceGenerator struct {
	mu   sync.Mutex
	next int
}

// NewSequenceGenerator creates a generator starting at scope-1.
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

// Generate returns the next sequential scope identity.
func (g *SequenceGenerator) Generate() ir.ScopeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return ir.ScopeID(fmt.Sprintf("scope-%d", g.next))
}
