package pattern

import (
	"errors"
	"fmt"

	"github.com/roach88/distill/internal/rdf"
)

// ErrBindingConflict is the sentinel wrapped by BindingConflictError.
var ErrBindingConflict = errors.New("binding conflict")

// BindingConflictError reports an attempt to rebind a slot to a
// different term.
type BindingConflictError struct {
	Index    uint32
	Bound    rdf.Term
	Conflict rdf.Term
}

// Error implements the error interface.
func (e *BindingConflictError) Error() string {
	return fmt.Sprintf("binding conflict on ?%d: bound to %s, got %s", e.Index, e.Bound, e.Conflict)
}

// Unwrap returns ErrBindingConflict.
func (e *BindingConflictError) Unwrap() error {
	return ErrBindingConflict
}

// PartialSubstitutionError reports unset slots in a substitution that was
// expected to be total.
type PartialSubstitutionError struct {
	Unset []uint32
}

// Error implements the error interface.
func (e *PartialSubstitutionError) Error() string {
	return fmt.Sprintf("partial substitution: %d unset slot(s), first ?%d", len(e.Unset), e.Unset[0])
}

// Substitution is a fixed-width assignment from variable index to term.
//
// A set slot is never overwritten with a different term. Substitutions
// are owned by a single evaluation; Clone before handing one to a branch
// that may diverge.
type Substitution struct {
	slots []rdf.Term
	set   []bool
}

// NewSubstitution returns a substitution of n slots. When seed is non-nil
// it is asked for every slot and may pre-populate it.
func NewSubstitution(n int, seed func(i uint32) (rdf.Term, bool)) *Substitution {
	s := &Substitution{
		slots: make([]rdf.Term, n),
		set:   make([]bool, n),
	}
	if seed != nil {
		for i := range n {
			if t, ok := seed(uint32(i)); ok {
				s.slots[i] = t
				s.set[i] = true
			}
		}
	}
	return s
}

// FromTerms returns a substitution of n slots whose first len(terms) slots
// are bound to terms.
func FromTerms(n int, terms []rdf.Term) *Substitution {
	return NewSubstitution(n, func(i uint32) (rdf.Term, bool) {
		if int(i) < len(terms) {
			return terms[i], true
		}
		return rdf.Term{}, false
	})
}

// Len returns the number of slots.
func (s *Substitution) Len() int {
	return len(s.slots)
}

// Get returns the term bound to slot i.
func (s *Substitution) Get(i uint32) (rdf.Term, bool) {
	if int(i) >= len(s.slots) || !s.set[i] {
		return rdf.Term{}, false
	}
	return s.slots[i], true
}

// Set binds slot i to t.
//
// Setting an unset slot succeeds, setting the same term again is a no-op,
// and setting a different term fails with a *BindingConflictError.
func (s *Substitution) Set(i uint32, t rdf.Term) error {
	if int(i) >= len(s.slots) {
		return fmt.Errorf("variable ?%d out of range (%d slots)", i, len(s.slots))
	}
	if s.set[i] {
		if s.slots[i] != t {
			return &BindingConflictError{Index: i, Bound: s.slots[i], Conflict: t}
		}
		return nil
	}
	s.slots[i] = t
	s.set[i] = true
	return nil
}

// Apply substitutes p. Unbound variables are returned unchanged.
func (s *Substitution) Apply(p Pattern) Pattern {
	if !p.IsVar() {
		return p
	}
	if t, ok := s.Get(p.Index()); ok {
		return Resource(t)
	}
	return p
}

// Resolve returns the term p denotes under s.
func (s *Substitution) Resolve(p Pattern) (rdf.Term, bool) {
	if !p.IsVar() {
		return p.Term(), true
	}
	return s.Get(p.Index())
}

// Unify binds p to t: a resource must equal t, a variable is Set.
func (s *Substitution) Unify(p Pattern, t rdf.Term) error {
	if !p.IsVar() {
		if p.Term() != t {
			return &BindingConflictError{Index: ^uint32(0), Bound: p.Term(), Conflict: t}
		}
		return nil
	}
	return s.Set(p.Index(), t)
}

// IsTotal reports whether every slot is set.
func (s *Substitution) IsTotal() bool {
	for _, ok := range s.set {
		if !ok {
			return false
		}
	}
	return true
}

// IntoTotal returns the bound terms, failing with
// *PartialSubstitutionError when a slot is unset.
func (s *Substitution) IntoTotal() ([]rdf.Term, error) {
	var unset []uint32
	for i, ok := range s.set {
		if !ok {
			unset = append(unset, uint32(i))
		}
	}
	if len(unset) > 0 {
		return nil, &PartialSubstitutionError{Unset: unset}
	}
	out := make([]rdf.Term, len(s.slots))
	copy(out, s.slots)
	return out, nil
}

// Clone returns an independent copy.
func (s *Substitution) Clone() *Substitution {
	c := &Substitution{
		slots: make([]rdf.Term, len(s.slots)),
		set:   make([]bool, len(s.set)),
	}
	copy(c.slots, s.slots)
	copy(c.set, s.set)
	return c
}

// Extend returns a copy with n unset slots appended.
func (s *Substitution) Extend(n int) *Substitution {
	c := &Substitution{
		slots: make([]rdf.Term, len(s.slots), len(s.slots)+n),
		set:   make([]bool, len(s.set), len(s.set)+n),
	}
	copy(c.slots, s.slots)
	copy(c.set, s.set)
	c.slots = c.slots[:len(s.slots)+n]
	c.set = c.set[:len(s.set)+n]
	return c
}

// Truncate returns a copy holding only the first n slots.
func (s *Substitution) Truncate(n int) *Substitution {
	if n > len(s.slots) {
		n = len(s.slots)
	}
	c := &Substitution{
		slots: make([]rdf.Term, n),
		set:   make([]bool, n),
	}
	copy(c.slots, s.slots[:n])
	copy(c.set, s.set[:n])
	return c
}

// String renders the substitution as [t0 _ t2 ...].
func (s *Substitution) String() string {
	out := "["
	for i := range s.slots {
		if i > 0 {
			out += " "
		}
		if s.set[i] {
			out += s.slots[i].String()
		} else {
			out += "_"
		}
	}
	return out + "]"
}
