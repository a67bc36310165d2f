package pattern

import (
	"github.com/roach88/distill/internal/rdf"
)

// GraphMode selects how a value format picks its evaluation graph.
type GraphMode uint8

const (
	// GraphInherit keeps the caller's current graph.
	GraphInherit GraphMode = iota
	// GraphDefault forces the default graph.
	GraphDefault
	// GraphExplicit evaluates in the graph named by a pattern.
	GraphExplicit
)

// GraphSelector is the graph component of a value format.
type GraphSelector struct {
	Mode    GraphMode
	Pattern Pattern
}

// InheritGraph returns the selector that keeps the current graph.
func InheritGraph() GraphSelector {
	return GraphSelector{Mode: GraphInherit}
}

// DefaultGraph returns the selector that forces the default graph.
func DefaultGraph() GraphSelector {
	return GraphSelector{Mode: GraphDefault}
}

// ExplicitGraph returns the selector naming graph p.
func ExplicitGraph(p Pattern) GraphSelector {
	return GraphSelector{Mode: GraphExplicit, Pattern: p}
}

// Resolve returns the graph selected under s from current.
// An explicit pattern that is still unbound fails with
// *PartialSubstitutionError.
func (g GraphSelector) Resolve(s *Substitution, current rdf.Term) (rdf.Term, error) {
	switch g.Mode {
	case GraphDefault:
		return rdf.DefaultGraph, nil
	case GraphExplicit:
		t, ok := s.Resolve(g.Pattern)
		if !ok {
			return rdf.Term{}, &PartialSubstitutionError{Unset: []uint32{g.Pattern.Index()}}
		}
		return t, nil
	default:
		return current, nil
	}
}

// String renders the selector for diagnostics.
func (g GraphSelector) String() string {
	switch g.Mode {
	case GraphDefault:
		return "default"
	case GraphExplicit:
		return g.Pattern.String()
	default:
		return "inherit"
	}
}
