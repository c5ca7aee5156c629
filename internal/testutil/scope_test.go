package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/ambit/internal/ir"
)

func TestSequenceGenerator_Sequential(t *testing.T) {
	gen := NewSequenceGenerator()
	assert.Equal(t, ir.ScopeID("scope-1"), gen.Generate())
	assert.Equal(t, ir.ScopeID("scope-2"), gen.Generate())
	assert.Equal(t, ir.ScopeID("scope-3"), gen.Generate())
}

func TestSequenceGenerator_IndependentInstances(t *testing.T) {
	a := NewSequenceGenerator()
	b := NewSequenceGenerator()
	a.Generate()
	a.Generate()
	assert.Equal(t, ir.ScopeID("scope-1"), b.Generate())
}

func TestSequenceGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequenceGenerator()
	var wg sync.WaitGroup
	seen := sync.Map{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.Generate()
			_, dup := seen.LoadOrStore(id, true)
			assert.False(t, dup, "duplicate identity %s", id)
		}()
	}
	wg.Wait()
}
