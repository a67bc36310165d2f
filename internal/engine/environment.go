package engine

import (
	"fmt"

	"github.com/roach88/distill/internal/layout"
	"github.com/roach88/distill/internal/pattern"
	"github.com/roach88/distill/internal/rdf"
)

// cell holds the term of one variable during dehydration. Cells are shared
// between a caller's scope and the inputs of the layouts it calls.
type cell struct {
	term  rdf.Term
	bound bool
}

func newCells(n int) []*cell {
	cells := make([]*cell, n)
	for i := range cells {
		cells[i] = &cell{}
	}
	return cells
}

func constCell(t rdf.Term) *cell {
	return &cell{term: t, bound: true}
}

// frame is one scope of the environment: a layout scope, or a field, item,
// variant or node scope pushed on top of one.
//
// Variables are numbered from the root of the chain: a frame owns the
// indexes base..base+len(cells)-1 and delegates lower ones to its parent.
// Every layout starts a new chain, so nested layouts only see their inputs.
type frame struct {
	parent *frame
	base   uint32
	cells  []*cell
}

// layoutFrame starts the scope of a layout from its input cells.
// Missing inputs and all intros get empty cells.
func layoutFrame(hdr layout.Header, inputs []*cell) *frame {
	cells := newCells(int(hdr.Width()))
	copy(cells, inputs)
	return &frame{cells: cells}
}

// push opens a nested scope of n fresh cells.
func (f *frame) push(n int) *frame {
	return &frame{parent: f, base: f.base + uint32(len(f.cells)), cells: newCells(n)}
}

// lookup returns the cell of variable i.
func (f *frame) lookup(i uint32) (*cell, error) {
	for fr := f; fr != nil; fr = fr.parent {
		if i < fr.base {
			continue
		}
		if j := i - fr.base; int(j) < len(fr.cells) {
			return fr.cells[j], nil
		}
		break
	}
	return nil, fmt.Errorf("variable ?%d is out of scope", i)
}

// cellOf returns the cell p denotes: a constant cell for a resource, the
// variable's cell otherwise.
func (f *frame) cellOf(p pattern.Pattern) (*cell, error) {
	if !p.IsVar() {
		return constCell(p.Term()), nil
	}
	return f.lookup(p.Index())
}

// environment allocates fresh resources for cells.
type environment struct {
	gen rdf.Generator
}

// term returns the term of c, allocating a fresh resource when c is empty.
func (env *environment) term(c *cell) rdf.Term {
	if !c.bound {
		c.term = env.gen.Next()
		c.bound = true
	}
	return c.term
}

// bind sets c to t. Binding a cell to a different term fails with
// BINDING_CONFLICT.
func (env *environment) bind(ref layout.Ref, c *cell, t rdf.Term) error {
	if c.bound && c.term != t {
		return &EvalError{
			Code:    ErrCodeBindingConflict,
			Message: fmt.Sprintf("variable already bound to %s, cannot bind %s", c.term, t),
			Layout:  ref,
			Details: map[string]string{
				"bound":    c.term.String(),
				"conflict": t.String(),
			},
		}
	}
	c.term = t
	c.bound = true
	return nil
}

// resolve returns the term p denotes in f, allocating as needed.
func (env *environment) resolve(ref layout.Ref, f *frame, p pattern.Pattern) (rdf.Term, error) {
	c, err := f.cellOf(p)
	if err != nil {
		return rdf.Term{}, newError(ErrCodePartialSubstitution, ref, "%v", err)
	}
	return env.term(c), nil
}
