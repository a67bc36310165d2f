package automaton

import (
	"errors"
	"fmt"
	"regexp"
	"regexp/syntax"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxStates bounds the number of states subset construction may create.
const MaxStates = 10000

// maxFoldRunes bounds case-fold expansion of a single instruction.
const maxFoldRunes = 4096

var (
	// ErrTooManyStates is returned when a pattern's DFA exceeds MaxStates.
	ErrTooManyStates = errors.New("automaton: too many states")

	// ErrUnsupported is returned for syntax that has no DFA rendering here,
	// such as word boundaries and multi-line anchors.
	ErrUnsupported = errors.New("automaton: unsupported pattern")
)

// CompileError describes a pattern that failed to compile.
type CompileError struct {
	Pattern string
	Err     error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("compile pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// Compile builds a DFA from an RE2 expression.
//
// The expression always matches the whole string, as XSD pattern facets
// do. Leading ^ and trailing $ are accepted and redundant.
func Compile(expr string) (*Automaton, error) {
	re, err := syntax.Parse(expr, syntax.Perl)
	if err != nil {
		return nil, &CompileError{Pattern: expr, Err: err}
	}
	prog, err := syntax.Compile(re.Simplify())
	if err != nil {
		return nil, &CompileError{Pattern: expr, Err: err}
	}

	c := &compiler{prog: prog, b: newBuilder(expr), ids: make(map[string]StateID)}
	if err := c.run(); err != nil {
		return nil, &CompileError{Pattern: expr, Err: err}
	}
	return c.b.build(), nil
}

// MustCompile is like Compile but panics on error.
// Intended for package-level automata in tests and fixtures.
func MustCompile(expr string) *Automaton {
	a, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return a
}

func quoteSource(s string) string {
	return regexp.QuoteMeta(s)
}

// dfaState is a set of program counters positioned on consuming
// instructions, plus whether InstMatch is reachable at end of text.
type dfaState struct {
	pcs   []uint32
	final bool
}

func (s dfaState) key() string {
	var sb strings.Builder
	if s.final {
		sb.WriteByte('F')
	}
	for _, pc := range s.pcs {
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatUint(uint64(pc), 10))
	}
	return sb.String()
}

type compiler struct {
	prog  *syntax.Prog
	b     *builder
	ids   map[string]StateID
	queue []dfaState

	// ranges caches the normalized rune ranges of consuming instructions.
	ranges map[uint32][]rune
}

func (c *compiler) run() error {
	start, err := c.closure([]uint32{uint32(c.prog.Start)}, true)
	if err != nil {
		return err
	}
	if _, err := c.intern(start); err != nil {
		return err
	}

	for i := 0; i < len(c.queue); i++ {
		s := c.queue[i]
		if err := c.expand(StateID(i), s); err != nil {
			return err
		}
	}
	return nil
}

// intern returns the id of s, enqueueing it when new.
func (c *compiler) intern(s dfaState) (StateID, error) {
	k := s.key()
	if id, ok := c.ids[k]; ok {
		return id, nil
	}
	if len(c.queue) >= MaxStates {
		return 0, ErrTooManyStates
	}
	id := c.b.add(s.final)
	c.ids[k] = id
	c.queue = append(c.queue, s)
	return id, nil
}

// expand computes the outgoing transitions of state id.
func (c *compiler) expand(id StateID, s dfaState) error {
	if len(s.pcs) == 0 {
		return nil
	}

	// Split the rune space at every range boundary of every instruction so
	// each elementary interval is either inside or outside every range.
	var bounds []rune
	for _, pc := range s.pcs {
		rs, err := c.runeRanges(pc)
		if err != nil {
			return err
		}
		for i := 0; i < len(rs); i += 2 {
			bounds = append(bounds, rs[i], rs[i+1]+1)
		}
	}
	slices.Sort(bounds)
	bounds = slices.Compact(bounds)

	last := -1
	for i := 0; i+1 < len(bounds); i++ {
		lo, hi := bounds[i], bounds[i+1]-1

		var next []uint32
		for _, pc := range s.pcs {
			if containsRune(c.ranges[pc], lo) {
				next = append(next, c.prog.Inst[pc].Out)
			}
		}
		if len(next) == 0 {
			last = -1
			continue
		}

		target, err := c.closure(next, false)
		if err != nil {
			return err
		}
		if len(target.pcs) == 0 && !target.final {
			last = -1
			continue
		}
		to, err := c.intern(target)
		if err != nil {
			return err
		}

		// Merge with the previous interval when contiguous and same target.
		trans := c.b.states[id].trans
		if last >= 0 && trans[last].to == to && trans[last].hi+1 == lo {
			trans[last].hi = hi
			continue
		}
		c.b.link(id, lo, hi, to)
		last = len(c.b.states[id].trans) - 1
	}
	return nil
}

// closure follows non-consuming instructions from pcs.
//
// Empty-width assertions are resolved against atStart; end-of-text
// assertions are only satisfied when computing finality.
func (c *compiler) closure(pcs []uint32, atStart bool) (dfaState, error) {
	var out dfaState
	seen := make(map[uint32]bool)
	seenEnd := make(map[uint32]bool)

	var walk func(pc uint32, atEnd bool) error
	walk = func(pc uint32, atEnd bool) error {
		visited := seen
		if atEnd {
			visited = seenEnd
		}
		if visited[pc] {
			return nil
		}
		visited[pc] = true

		inst := &c.prog.Inst[pc]
		switch inst.Op {
		case syntax.InstAlt, syntax.InstAltMatch:
			if err := walk(inst.Out, atEnd); err != nil {
				return err
			}
			return walk(inst.Arg, atEnd)
		case syntax.InstCapture, syntax.InstNop:
			return walk(inst.Out, atEnd)
		case syntax.InstEmptyWidth:
			op := syntax.EmptyOp(inst.Arg)
			if op&^(syntax.EmptyBeginText|syntax.EmptyEndText) != 0 {
				return fmt.Errorf("%w: empty-width assertion %v", ErrUnsupported, op)
			}
			if op&syntax.EmptyBeginText != 0 && !atStart {
				return nil
			}
			if op&syntax.EmptyEndText != 0 {
				if !atEnd {
					// Re-enter in end-of-text mode: reachable only if the
					// rest of the program matches the empty string.
					return walk(pc, true)
				}
			}
			return walk(inst.Out, atEnd)
		case syntax.InstMatch:
			out.final = true
			return nil
		case syntax.InstFail:
			return nil
		case syntax.InstRune, syntax.InstRune1, syntax.InstRuneAny, syntax.InstRuneAnyNotNL:
			if !atEnd {
				out.pcs = append(out.pcs, pc)
			}
			return nil
		default:
			return fmt.Errorf("%w: instruction %v", ErrUnsupported, inst.Op)
		}
	}

	for _, pc := range pcs {
		if err := walk(pc, false); err != nil {
			return dfaState{}, err
		}
	}
	slices.Sort(out.pcs)
	out.pcs = slices.Compact(out.pcs)
	return out, nil
}

// runeRanges returns the inclusive ranges matched by a consuming
// instruction as a flat sorted lo,hi list.
func (c *compiler) runeRanges(pc uint32) ([]rune, error) {
	if c.ranges == nil {
		c.ranges = make(map[uint32][]rune)
	}
	if rs, ok := c.ranges[pc]; ok {
		return rs, nil
	}

	inst := &c.prog.Inst[pc]
	var rs []rune
	switch inst.Op {
	case syntax.InstRuneAny:
		rs = []rune{0, utf8.MaxRune}
	case syntax.InstRuneAnyNotNL:
		rs = []rune{0, '\n' - 1, '\n' + 1, utf8.MaxRune}
	case syntax.InstRune1:
		rs = []rune{inst.Rune[0], inst.Rune[0]}
	case syntax.InstRune:
		if len(inst.Rune) == 1 {
			rs = []rune{inst.Rune[0], inst.Rune[0]}
		} else {
			rs = slices.Clone(inst.Rune)
		}
		if syntax.Flags(inst.Arg)&syntax.FoldCase != 0 {
			folded, err := foldRanges(rs)
			if err != nil {
				return nil, err
			}
			rs = folded
		}
	}
	c.ranges[pc] = rs
	return rs, nil
}

// foldRanges adds the simple case-fold orbit of every rune in rs.
func foldRanges(rs []rune) ([]rune, error) {
	var runes []rune
	for i := 0; i < len(rs); i += 2 {
		if int(rs[i+1]-rs[i]) >= maxFoldRunes || len(runes) >= maxFoldRunes {
			return nil, fmt.Errorf("%w: case folding over a large class", ErrUnsupported)
		}
		for r := rs[i]; r <= rs[i+1]; r++ {
			runes = append(runes, r)
			for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
				runes = append(runes, f)
			}
		}
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	runes = slices.Compact(runes)

	var out []rune
	for _, r := range runes {
		if n := len(out); n > 0 && out[n-1]+1 == r {
			out[n-1] = r
			continue
		}
		out = append(out, r, r)
	}
	return out, nil
}

func containsRune(rs []rune, r rune) bool {
	// rs is a flat sorted list of lo,hi pairs.
	i := sort.Search(len(rs)/2, func(i int) bool { return rs[2*i+1] >= r })
	return i < len(rs)/2 && rs[2*i] <= r
}
