package rdf

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Generator produces fresh resources for dehydration.
//
// Every call to Next must return a term not returned before by the same
// generator.
type Generator interface {
	Next() Term
}

// UUIDGenerator generates time-sortable urn:uuid: IRIs from UUIDv7.
//
// UUIDv7 embeds a timestamp in the most significant bits, so resources
// minted by one dehydration sort by creation time.
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// Next returns a new urn:uuid: IRI.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDGenerator) Next() Term {
	return IRI("urn:uuid:" + uuid.Must(uuid.NewV7()).String())
}

// BlankGenerator generates sequential blank nodes: prefix0, prefix1, ...
//
// Sequential labels make dehydration output byte-stable, which golden
// tests rely on.
//
// Thread-safety: BlankGenerator is safe for concurrent use via internal mutex.
type BlankGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewBlankGenerator creates a generator of blank nodes labelled
// prefix followed by a counter. An empty prefix defaults to "b".
func NewBlankGenerator(prefix string) *BlankGenerator {
	if prefix == "" {
		prefix = "b"
	}
	return &BlankGenerator{prefix: prefix}
}

// Next returns the next blank node.
func (g *BlankGenerator) Next() Term {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := Blank(g.prefix + strconv.Itoa(g.next))
	g.next++
	return t
}
