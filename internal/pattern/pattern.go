// Package pattern implements the variable model shared by hydration and
// dehydration: patterns that are either a concrete term or an indexed
// variable, partial substitutions built by unification, and quad patterns.
package pattern

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/distill/internal/rdf"
)

// Pattern is either a concrete resource or a variable index.
//
// Patterns are immutable, comparable and totally ordered: variables sort
// before resources, variables by index, resources by rdf.Compare.
type Pattern struct {
	isVar bool
	index uint32
	term  rdf.Term
}

// Resource returns a pattern fixed to t.
func Resource(t rdf.Term) Pattern {
	return Pattern{term: t}
}

// Var returns the variable pattern with the given index.
func Var(index uint32) Pattern {
	return Pattern{isVar: true, index: index}
}

// IsVar reports whether p is a variable.
func (p Pattern) IsVar() bool {
	return p.isVar
}

// Index returns the variable index. Only meaningful when IsVar.
func (p Pattern) Index() uint32 {
	return p.index
}

// Term returns the resource. Only meaningful when !IsVar.
func (p Pattern) Term() rdf.Term {
	return p.term
}

// String renders variables as ?N and resources in N-Quads syntax.
func (p Pattern) String() string {
	if p.isVar {
		return "?" + strconv.FormatUint(uint64(p.index), 10)
	}
	return p.term.String()
}

// Compare totally orders patterns.
func Compare(a, b Pattern) int {
	switch {
	case a.isVar && b.isVar:
		return cmp.Compare(a.index, b.index)
	case a.isVar:
		return -1
	case b.isVar:
		return 1
	default:
		return rdf.Compare(a.term, b.term)
	}
}

// Parse parses "?N" as a variable and anything else with rdf.ParseTerm.
func Parse(s string) (Pattern, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "?") {
		n, err := strconv.ParseUint(s[1:], 10, 32)
		if err != nil {
			return Pattern{}, fmt.Errorf("invalid variable %q", s)
		}
		return Var(uint32(n)), nil
	}
	t, err := rdf.ParseTerm(s)
	if err != nil {
		return Pattern{}, err
	}
	return Resource(t), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Pattern {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// MaxVar returns one past the highest variable index in ps, or 0.
func MaxVar(ps ...Pattern) uint32 {
	var n uint32
	for _, p := range ps {
		if p.isVar && p.index+1 > n {
			n = p.index + 1
		}
	}
	return n
}
