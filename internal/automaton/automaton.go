// Package automaton provides deterministic finite automata over Unicode
// characters.
//
// Automata constrain the lexical form of literals and identifiers declared
// by layouts, and serve as the basis of sum-variant discriminants. An
// automaton is immutable once built and safe to share across goroutines.
package automaton

import (
	"fmt"
	"slices"
	"unicode/utf8"
)

// StateID identifies a state of an automaton.
type StateID uint32

// transition maps the inclusive rune range [lo, hi] to a target state.
type transition struct {
	lo, hi rune
	to     StateID
}

type state struct {
	final bool
	// Sorted by lo, non-overlapping.
	trans []transition
}

// Automaton is a deterministic finite automaton over runes.
//
// A string is accepted iff following transitions from the initial state
// consumes every character and ends on a final state. A missing
// transition is an immediate rejection.
type Automaton struct {
	source  string
	initial StateID
	states  []state
}

// InitialState returns the start state.
func (a *Automaton) InitialState() StateID {
	return a.initial
}

// NextState returns the state reached from s on r.
// Returns false when there is no such transition.
func (a *Automaton) NextState(s StateID, r rune) (StateID, bool) {
	if int(s) >= len(a.states) {
		return 0, false
	}
	trans := a.states[s].trans
	i, found := slices.BinarySearchFunc(trans, r, func(t transition, r rune) int {
		switch {
		case t.hi < r:
			return -1
		case t.lo > r:
			return 1
		default:
			return 0
		}
	})
	if !found {
		return 0, false
	}
	return trans[i].to, true
}

// IsFinalState reports whether s accepts.
func (a *Automaton) IsFinalState(s StateID) bool {
	return int(s) < len(a.states) && a.states[s].final
}

// Accepts reports whether the automaton matches the whole of s.
// Invalid UTF-8 is never accepted.
func (a *Automaton) Accepts(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	q := a.InitialState()
	for _, r := range s {
		next, ok := a.NextState(q, r)
		if !ok {
			return false
		}
		q = next
	}
	return a.IsFinalState(q)
}

// NumStates returns the number of states.
func (a *Automaton) NumStates() int {
	return len(a.states)
}

// Source returns the expression the automaton was built from.
func (a *Automaton) Source() string {
	return a.source
}

// String implements fmt.Stringer.
func (a *Automaton) String() string {
	return fmt.Sprintf("/%s/", a.source)
}

// Equal reports whether a and b have identical structure.
//
// Construction is deterministic, so automata compiled from the same
// expression are equal.
func (a *Automaton) Equal(b *Automaton) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.initial != b.initial || len(a.states) != len(b.states) {
		return false
	}
	for i := range a.states {
		if a.states[i].final != b.states[i].final || !slices.Equal(a.states[i].trans, b.states[i].trans) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the automaton accepts no string at all.
func (a *Automaton) IsEmpty() bool {
	seen := make([]bool, len(a.states))
	stack := []StateID{a.initial}
	seen[a.initial] = true
	for len(stack) > 0 {
		q := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if a.states[q].final {
			return false
		}
		for _, t := range a.states[q].trans {
			if !seen[t.to] {
				seen[t.to] = true
				stack = append(stack, t.to)
			}
		}
	}
	return true
}

// Intersects reports whether some string is accepted by both a and b.
//
// Explores the product automaton breadth-first from the pair of initial
// states and stops at the first pair of final states.
func Intersects(a, b *Automaton) bool {
	type pair struct{ x, y StateID }

	start := pair{a.initial, b.initial}
	seen := map[pair]bool{start: true}
	queue := []pair{start}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if a.states[p.x].final && b.states[p.y].final {
			return true
		}

		// Both transition lists are sorted, so a merge walk finds every
		// overlapping range pair.
		ta, tb := a.states[p.x].trans, b.states[p.y].trans
		i, j := 0, 0
		for i < len(ta) && j < len(tb) {
			if ta[i].hi >= tb[j].lo && tb[j].hi >= ta[i].lo {
				next := pair{ta[i].to, tb[j].to}
				if !seen[next] {
					seen[next] = true
					queue = append(queue, next)
				}
			}
			if ta[i].hi < tb[j].hi {
				i++
			} else {
				j++
			}
		}
	}
	return false
}

// Literal returns an automaton accepting exactly s.
func Literal(s string) *Automaton {
	b := newBuilder(quoteSource(s))
	q := b.add(false)
	for _, r := range s {
		next := b.add(false)
		b.link(q, r, r, next)
		q = next
	}
	b.states[q].final = true
	return b.build()
}

// Universal returns an automaton accepting every string.
func Universal() *Automaton {
	b := newBuilder(".*")
	q := b.add(true)
	b.link(q, 0, utf8.MaxRune, q)
	return b.build()
}

// builder accumulates states while an automaton is constructed.
type builder struct {
	source string
	states []state
}

func newBuilder(source string) *builder {
	return &builder{source: source}
}

func (b *builder) add(final bool) StateID {
	b.states = append(b.states, state{final: final})
	return StateID(len(b.states) - 1)
}

// link appends a transition. Callers add ranges in ascending order.
func (b *builder) link(from StateID, lo, hi rune, to StateID) {
	b.states[from].trans = append(b.states[from].trans, transition{lo: lo, hi: hi, to: to})
}

func (b *builder) build() *Automaton {
	return &Automaton{source: b.source, initial: 0, states: b.states}
}
