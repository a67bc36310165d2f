package testutil

import (
	"sync"

	"github.com/roach88/distill/internal/rdf"
)

// FixedGenerator returns predetermined terms for testing.
//
// This enables deterministic dehydration and golden dataset comparison.
// Tests provide a known sequence of resources and verify exact output.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu    sync.Mutex
	terms []rdf.Term
	idx   int
}

// NewFixedGenerator creates a generator that returns terms in order.
//
// Example:
//
//	gen := NewFixedGenerator(rdf.IRI("urn:a"), rdf.IRI("urn:b"))
//	gen.Next() // <urn:a>
//	gen.Next() // <urn:b>
//	gen.Next() // panic: all terms exhausted
func NewFixedGenerator(terms ...rdf.Term) *FixedGenerator {
	return &FixedGenerator{terms: terms}
}

// Next returns the next predetermined term.
//
// Panics if all terms have been consumed: a test that allocates more
// resources than it declared is wrong.
func (g *FixedGenerator) Next() rdf.Term {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.terms) {
		panic("testutil.FixedGenerator: all terms exhausted")
	}
	t := g.terms[g.idx]
	g.idx++
	return t
}

// Blanks returns a generator factory producing sequential blank nodes
// b0, b1, ... restarting for every call.
//
// Pass it to engine.WithGenerator for byte-stable dehydration output.
func Blanks() func() rdf.Generator {
	return func() rdf.Generator { return rdf.NewBlankGenerator("b") }
}
