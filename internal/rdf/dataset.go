package rdf

import (
	"fmt"
	"strings"
)

// Quad is a subject, predicate, object, graph tuple.
// Graph is DefaultGraph for quads of the default graph.
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

// NewQuad returns a quad.
func NewQuad(s, p, o, g Term) Quad {
	return Quad{Subject: s, Predicate: p, Object: o, Graph: g}
}

// String renders the quad as an N-Quads line without the trailing newline.
func (q Quad) String() string {
	var sb strings.Builder
	sb.WriteString(q.Subject.String())
	sb.WriteByte(' ')
	sb.WriteString(q.Predicate.String())
	sb.WriteByte(' ')
	sb.WriteString(q.Object.String())
	if !q.Graph.IsDefaultGraph() {
		sb.WriteByte(' ')
		sb.WriteString(q.Graph.String())
	}
	sb.WriteString(" .")
	return sb.String()
}

// Validate rejects quads no RDF dataset can hold.
func (q Quad) Validate() error {
	if !q.Subject.IsResource() {
		return fmt.Errorf("subject %s is not an IRI or blank node", q.Subject)
	}
	if !q.Predicate.IsIRI() {
		return fmt.Errorf("predicate %s is not an IRI", q.Predicate)
	}
	if q.Object.IsDefaultGraph() {
		return fmt.Errorf("object is empty")
	}
	if q.Graph.IsLiteral() {
		return fmt.Errorf("graph %s is a literal", q.Graph)
	}
	return nil
}

// CompareQuads orders quads by graph, subject, predicate, object.
func CompareQuads(a, b Quad) int {
	if c := Compare(a.Graph, b.Graph); c != 0 {
		return c
	}
	if c := Compare(a.Subject, b.Subject); c != 0 {
		return c
	}
	if c := Compare(a.Predicate, b.Predicate); c != 0 {
		return c
	}
	return Compare(a.Object, b.Object)
}

// QuadMatch selects quads by fixed components. A nil component is free.
// A Graph pointing at DefaultGraph selects the default graph only.
type QuadMatch struct {
	Subject   *Term
	Predicate *Term
	Object    *Term
	Graph     *Term
}

// Matches reports whether q satisfies m.
func (m QuadMatch) Matches(q Quad) bool {
	return (m.Subject == nil || *m.Subject == q.Subject) &&
		(m.Predicate == nil || *m.Predicate == q.Predicate) &&
		(m.Object == nil || *m.Object == q.Object) &&
		(m.Graph == nil || *m.Graph == q.Graph)
}

// Dataset is a read-only quad collection supporting pattern lookups.
//
// Match returns the quads satisfying m in the dataset's own iteration
// order. That order must be deterministic for a fixed dataset.
type Dataset interface {
	Match(m QuadMatch) ([]Quad, error)
}

// Memory is an indexed in-memory dataset.
//
// Quads are kept in insertion order and deduplicated. Memory is not safe
// for concurrent mutation; concurrent Match calls are safe once loading is
// done.
type Memory struct {
	quads []Quad
	set   map[Quad]struct{}

	// Positions into quads, per component value, ascending.
	bySubject   map[Term][]int
	byPredicate map[Term][]int
	byObject    map[Term][]int
	byGraph     map[Term][]int
}

// NewMemory returns a dataset holding quads.
func NewMemory(quads ...Quad) *Memory {
	m := &Memory{
		set:         make(map[Quad]struct{}),
		bySubject:   make(map[Term][]int),
		byPredicate: make(map[Term][]int),
		byObject:    make(map[Term][]int),
		byGraph:     make(map[Term][]int),
	}
	m.Insert(quads...)
	return m
}

// Insert adds quads, skipping duplicates. Returns the number added.
func (m *Memory) Insert(quads ...Quad) int {
	added := 0
	for _, q := range quads {
		if _, ok := m.set[q]; ok {
			continue
		}
		i := len(m.quads)
		m.quads = append(m.quads, q)
		m.set[q] = struct{}{}
		m.bySubject[q.Subject] = append(m.bySubject[q.Subject], i)
		m.byPredicate[q.Predicate] = append(m.byPredicate[q.Predicate], i)
		m.byObject[q.Object] = append(m.byObject[q.Object], i)
		m.byGraph[q.Graph] = append(m.byGraph[q.Graph], i)
		added++
	}
	return added
}

// Len returns the number of quads.
func (m *Memory) Len() int {
	return len(m.quads)
}

// Quads returns a copy of all quads in insertion order.
func (m *Memory) Quads() []Quad {
	out := make([]Quad, len(m.quads))
	copy(out, m.quads)
	return out
}

// Contains reports whether q is in the dataset.
func (m *Memory) Contains(q Quad) bool {
	_, ok := m.set[q]
	return ok
}

// Graphs returns the distinct graph names in first-use order.
func (m *Memory) Graphs() []Term {
	var out []Term
	seen := make(map[Term]bool)
	for _, q := range m.quads {
		if !seen[q.Graph] {
			seen[q.Graph] = true
			out = append(out, q.Graph)
		}
	}
	return out
}

// Match implements Dataset.
//
// Scans the shortest posting list among the bound components and filters
// the rest. Results are in insertion order.
func (m *Memory) Match(qm QuadMatch) ([]Quad, error) {
	if qm.Subject != nil && qm.Predicate != nil && qm.Object != nil && qm.Graph != nil {
		q := Quad{*qm.Subject, *qm.Predicate, *qm.Object, *qm.Graph}
		if m.Contains(q) {
			return []Quad{q}, nil
		}
		return nil, nil
	}

	var postings []int
	scan := true
	pick := func(t *Term, index map[Term][]int) {
		if t == nil {
			return
		}
		p := index[*t]
		if scan || len(p) < len(postings) {
			postings = p
			scan = false
		}
	}
	pick(qm.Subject, m.bySubject)
	pick(qm.Predicate, m.byPredicate)
	pick(qm.Object, m.byObject)
	pick(qm.Graph, m.byGraph)

	var out []Quad
	if scan {
		for _, q := range m.quads {
			if qm.Matches(q) {
				out = append(out, q)
			}
		}
		return out, nil
	}
	for _, i := range postings {
		if q := m.quads[i]; qm.Matches(q) {
			out = append(out, q)
		}
	}
	return out, nil
}
