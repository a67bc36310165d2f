package pattern

import (
	"fmt"
	"strings"

	"github.com/roach88/distill/internal/rdf"
)

// Quad is a quad pattern. A nil Graph stands for the current graph of
// evaluation.
type Quad struct {
	Subject   Pattern
	Predicate Pattern
	Object    Pattern
	Graph     *Pattern
}

// NewQuad returns a quad pattern over the current graph.
func NewQuad(s, p, o Pattern) Quad {
	return Quad{Subject: s, Predicate: p, Object: o}
}

// InGraph returns a copy of q fixed to graph g.
func (q Quad) InGraph(g Pattern) Quad {
	q.Graph = &g
	return q
}

// Patterns returns the subject, predicate, object and (when set) graph.
func (q Quad) Patterns() []Pattern {
	ps := []Pattern{q.Subject, q.Predicate, q.Object}
	if q.Graph != nil {
		ps = append(ps, *q.Graph)
	}
	return ps
}

// Equal reports whether q and o are the same pattern.
func (q Quad) Equal(o Quad) bool {
	if q.Subject != o.Subject || q.Predicate != o.Predicate || q.Object != o.Object {
		return false
	}
	if q.Graph == nil || o.Graph == nil {
		return q.Graph == nil && o.Graph == nil
	}
	return *q.Graph == *o.Graph
}

// String renders the pattern in N-Quads-like syntax.
func (q Quad) String() string {
	parts := []string{q.Subject.String(), q.Predicate.String(), q.Object.String()}
	if q.Graph != nil {
		parts = append(parts, q.Graph.String())
	}
	return strings.Join(parts, " ") + " ."
}

// Instantiate resolves q under s into a concrete quad in graph current.
// Fails with *PartialSubstitutionError when a variable is unbound.
func (q Quad) Instantiate(s *Substitution, current rdf.Term) (rdf.Quad, error) {
	var out rdf.Quad
	var unset []uint32
	resolve := func(p Pattern, dst *rdf.Term) {
		t, ok := s.Resolve(p)
		if !ok {
			unset = append(unset, p.Index())
			return
		}
		*dst = t
	}
	resolve(q.Subject, &out.Subject)
	resolve(q.Predicate, &out.Predicate)
	resolve(q.Object, &out.Object)
	out.Graph = current
	if q.Graph != nil {
		resolve(*q.Graph, &out.Graph)
	}
	if len(unset) > 0 {
		return rdf.Quad{}, &PartialSubstitutionError{Unset: unset}
	}
	return out, nil
}

// Dataset is an ordered list of quad patterns quantified over one
// substitution.
type Dataset []Quad

// Equal reports whether d and o hold the same patterns in the same order.
func (d Dataset) Equal(o Dataset) bool {
	if len(d) != len(o) {
		return false
	}
	for i := range d {
		if !d[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// MaxVar returns one past the highest variable index used, or 0.
func (d Dataset) MaxVar() uint32 {
	var n uint32
	for _, q := range d {
		if m := MaxVar(q.Patterns()...); m > n {
			n = m
		}
	}
	return n
}

// ParseQuad parses "s p o [g]" where each component is a pattern string.
// Components are separated by whitespace outside quoted literals.
func ParseQuad(s string) (Quad, error) {
	fields, err := splitFields(s)
	if err != nil {
		return Quad{}, err
	}
	if n := len(fields); n > 0 && fields[n-1] == "." {
		fields = fields[:n-1]
	}
	if len(fields) != 3 && len(fields) != 4 {
		return Quad{}, fmt.Errorf("quad pattern %q: expected 3 or 4 components, got %d", s, len(fields))
	}

	ps := make([]Pattern, len(fields))
	for i, f := range fields {
		p, err := Parse(f)
		if err != nil {
			return Quad{}, fmt.Errorf("quad pattern %q: %w", s, err)
		}
		ps[i] = p
	}
	q := NewQuad(ps[0], ps[1], ps[2])
	if len(ps) == 4 {
		q = q.InGraph(ps[3])
	}
	return q, nil
}

func splitFields(s string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote && c == '\\' && i+1 < len(s):
			cur.WriteByte(c)
			cur.WriteByte(s[i+1])
			i++
		case c == '"':
			inQuote = !inQuote
			cur.WriteByte(c)
		case !inQuote && (c == ' ' || c == '\t' || c == '\n'):
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("quad pattern %q: unterminated literal", s)
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields, nil
}
