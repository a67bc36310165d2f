// Package match enumerates the substitutions under which a dataset
// pattern holds in a dataset.
//
// Matching is a depth-first backtracking join over the quad patterns, in
// declaration order. It is pull-based: Matching.Next produces one result
// at a time and does no work beyond it, so FindOne stops after the second
// result it needs to detect ambiguity.
package match

import (
	"errors"
	"fmt"

	"github.com/roach88/distill/internal/pattern"
	"github.com/roach88/distill/internal/rdf"
)

// ErrAmbiguity is returned by FindOne when more than one substitution
// satisfies the pattern.
var ErrAmbiguity = errors.New("ambiguous match")

// frame is one level of the search stack: the candidates of pattern i
// under the substitution built by the levels above.
type frame struct {
	sub        *pattern.Substitution
	candidates []rdf.Quad
	next       int
}

// Matching is a lazy sequence of substitutions.
//
// Results are produced in pattern declaration order crossed with the
// dataset's iteration order for each pattern, which is deterministic for a
// fixed dataset.
type Matching struct {
	ds       rdf.Dataset
	patterns pattern.Dataset
	graph    rdf.Term

	stack   []frame
	started bool
	done    bool
	err     error
}

// Find returns the lazy sequence of extensions of sub under which every
// pattern holds in ds. Patterns without a graph are evaluated in graph.
//
// sub is not modified; every result is an independent substitution.
func Find(ds rdf.Dataset, patterns pattern.Dataset, graph rdf.Term, sub *pattern.Substitution) *Matching {
	m := &Matching{ds: ds, patterns: patterns, graph: graph}
	m.stack = []frame{{sub: sub.Clone()}}
	return m
}

// Err returns the first dataset error encountered, if any.
func (m *Matching) Err() error {
	return m.err
}

// Next returns the next substitution. ok is false when the sequence is
// exhausted or a dataset error occurred (see Err).
func (m *Matching) Next() (*pattern.Substitution, bool) {
	if m.done {
		return nil, false
	}

	// The empty pattern holds exactly once, under the initial substitution.
	if len(m.patterns) == 0 {
		m.done = true
		return m.stack[0].sub.Clone(), true
	}

	if !m.started {
		m.started = true
		if err := m.load(0); err != nil {
			return m.fail(err)
		}
	}

	for len(m.stack) > 0 {
		depth := len(m.stack) - 1
		f := &m.stack[depth]
		if f.next >= len(f.candidates) {
			// Exhausted this level; backtrack.
			m.stack = m.stack[:depth]
			continue
		}
		q := f.candidates[f.next]
		f.next++

		ext := f.sub.Clone()
		if !unify(ext, m.patterns[depth], q, m.graph) {
			continue
		}

		if depth+1 == len(m.patterns) {
			return ext, true
		}

		m.stack = append(m.stack, frame{sub: ext})
		if err := m.load(depth + 1); err != nil {
			return m.fail(err)
		}
	}

	m.done = true
	return nil, false
}

func (m *Matching) fail(err error) (*pattern.Substitution, bool) {
	m.err = err
	m.done = true
	m.stack = nil
	return nil, false
}

// load queries the candidates of pattern i under the substitution of the
// top frame. Components bound by the substitution are fixed in the query.
func (m *Matching) load(i int) error {
	f := &m.stack[len(m.stack)-1]

	p := m.patterns[i]
	var qm rdf.QuadMatch
	qm.Subject = fixed(f.sub, p.Subject)
	qm.Predicate = fixed(f.sub, p.Predicate)
	qm.Object = fixed(f.sub, p.Object)
	if p.Graph == nil {
		g := m.graph
		qm.Graph = &g
	} else {
		qm.Graph = fixed(f.sub, *p.Graph)
	}

	quads, err := m.ds.Match(qm)
	if err != nil {
		return fmt.Errorf("dataset lookup for %s: %w", p, err)
	}
	f.candidates = quads
	f.next = 0
	return nil
}

func fixed(sub *pattern.Substitution, p pattern.Pattern) *rdf.Term {
	t, ok := sub.Resolve(p)
	if !ok {
		return nil
	}
	return &t
}

// unify extends sub so that p matches q. Returns false on conflict,
// which prunes the branch.
func unify(sub *pattern.Substitution, p pattern.Quad, q rdf.Quad, graph rdf.Term) bool {
	if sub.Unify(p.Subject, q.Subject) != nil ||
		sub.Unify(p.Predicate, q.Predicate) != nil ||
		sub.Unify(p.Object, q.Object) != nil {
		return false
	}
	if p.Graph == nil {
		return q.Graph == graph
	}
	return sub.Unify(*p.Graph, q.Graph) == nil
}

// FindOne consumes at most two results of Find.
//
// Zero results return nil and no error; exactly one returns it; two or
// more fail with ErrAmbiguity.
func FindOne(ds rdf.Dataset, patterns pattern.Dataset, graph rdf.Term, sub *pattern.Substitution) (*pattern.Substitution, error) {
	m := Find(ds, patterns, graph, sub)
	first, ok := m.Next()
	if !ok {
		return nil, m.Err()
	}
	if _, ok := m.Next(); ok {
		return nil, ErrAmbiguity
	}
	if err := m.Err(); err != nil {
		return nil, err
	}
	return first, nil
}

// FindAll returns the full lazy sequence. It is Find under the name used
// alongside FindOne.
func FindAll(ds rdf.Dataset, patterns pattern.Dataset, graph rdf.Term, sub *pattern.Substitution) *Matching {
	return Find(ds, patterns, graph, sub)
}

// Collect drains m.
func Collect(m *Matching) ([]*pattern.Substitution, error) {
	var out []*pattern.Substitution
	for {
		s, ok := m.Next()
		if !ok {
			return out, m.Err()
		}
		out = append(out, s)
	}
}
