package layout

import (
	"fmt"
	"slices"

	"github.com/roach88/distill/internal/automaton"
	"github.com/roach88/distill/internal/pattern"
	"github.com/roach88/distill/internal/rdf"
)

// TermKinds is a set of RDF term kinds.
type TermKinds uint8

const (
	TermIRI TermKinds = 1 << iota
	TermBlank
	TermLiteral

	TermResource = TermIRI | TermBlank
	TermAny      = TermIRI | TermBlank | TermLiteral
)

func termKindOf(t rdf.Term) TermKinds {
	switch t.Kind {
	case rdf.KindIRI:
		return TermIRI
	case rdf.KindBlank:
		return TermBlank
	case rdf.KindLiteral:
		return TermLiteral
	default:
		return 0
	}
}

// TermConstraint restricts the terms an input may be bound to.
//
// Lexical automata apply to a literal's lexical form or to a resource's
// lexical identifier; all of them must accept.
type TermConstraint struct {
	Kinds    TermKinds
	Datatype string
	Lexical  []*automaton.Automaton
}

// Accepts reports whether t satisfies c.
func (c TermConstraint) Accepts(t rdf.Term) bool {
	if termKindOf(t)&c.Kinds == 0 {
		return false
	}
	lex := t.ID()
	if t.IsLiteral() {
		if c.Datatype != "" && t.Datatype != c.Datatype {
			return false
		}
		lex = t.Value
	}
	for _, a := range c.Lexical {
		if !a.Accepts(lex) {
			return false
		}
	}
	return true
}

// Constraint is a disjunction of term constraints. An empty constraint
// accepts nothing.
type Constraint []TermConstraint

// Accepts reports whether some alternative accepts t.
func (c Constraint) Accepts(t rdf.Term) bool {
	for _, alt := range c {
		if alt.Accepts(t) {
			return true
		}
	}
	return false
}

// InputConstraints maps a sum input index to constraints that must all
// hold for a variant to be a hydration candidate.
type InputConstraints map[uint32][]Constraint

// Admits reports whether the bound inputs satisfy every constraint.
// Unbound inputs are never rejected.
func (ic InputConstraints) Admits(inputs *pattern.Substitution) bool {
	for i, cs := range ic {
		t, ok := inputs.Get(i)
		if !ok {
			continue
		}
		for _, c := range cs {
			if !c.Accepts(t) {
				return false
			}
		}
	}
	return true
}

// ShapeKinds is a set of untyped value kinds.
type ShapeKinds uint8

const (
	ShapeUnit ShapeKinds = 1 << iota
	ShapeBoolean
	ShapeNumber
	ShapeBytes
	ShapeText
	ShapeRecord
	ShapeList

	ShapeAny = ShapeUnit | ShapeBoolean | ShapeNumber | ShapeBytes | ShapeText | ShapeRecord | ShapeList
)

// Sample describes an untyped value to a Shape.
type Sample struct {
	Kind ShapeKinds
	// Keys are the record keys, for records.
	Keys []string
	// Lexical renders a literal payload for a datatype; ok is false when
	// the payload has no form in that datatype.
	Lexical func(datatype string) (string, bool)
}

// Shape constrains the untyped values a layout accepts.
type Shape struct {
	Kinds    ShapeKinds
	Datatype string
	Lexical  []*automaton.Automaton
	// Required and Fields are sorted. They apply when Closed.
	Required []string
	Fields   []string
	Closed   bool
}

// Accepts reports whether x fits the shape.
func (s Shape) Accepts(x Sample) bool {
	if s.Kinds&x.Kind == 0 {
		return false
	}
	if x.Kind == ShapeRecord && s.Closed {
		for _, k := range x.Keys {
			if _, ok := slices.BinarySearch(s.Fields, k); !ok {
				return false
			}
		}
		for _, k := range s.Required {
			if !slices.Contains(x.Keys, k) {
				return false
			}
		}
	}
	if x.Kind&(ShapeText|ShapeNumber|ShapeBoolean) != 0 && len(s.Lexical) > 0 {
		if x.Lexical == nil {
			return false
		}
		lex, ok := x.Lexical(s.Datatype)
		if !ok {
			return false
		}
		for _, a := range s.Lexical {
			if !a.Accepts(lex) {
				return false
			}
		}
	}
	return true
}

// Intersects reports whether some value may fit both shapes.
// Conservative: it may report an overlap that no value realizes.
func (s Shape) Intersects(o Shape) bool {
	common := s.Kinds & o.Kinds
	if common == 0 {
		return false
	}
	if common&(ShapeUnit|ShapeBoolean|ShapeBytes|ShapeList) != 0 {
		return true
	}
	if common&(ShapeText|ShapeNumber) != 0 && lexicalIntersects(s.Lexical, o.Lexical) {
		return true
	}
	if common&ShapeRecord != 0 && recordsIntersect(s, o) {
		return true
	}
	return false
}

func lexicalIntersects(as, bs []*automaton.Automaton) bool {
	for _, a := range as {
		for _, b := range bs {
			if !automaton.Intersects(a, b) {
				return false
			}
		}
	}
	return true
}

func recordsIntersect(s, o Shape) bool {
	if s.Closed {
		for _, k := range o.Required {
			if _, ok := slices.BinarySearch(s.Fields, k); !ok {
				return false
			}
		}
	}
	if o.Closed {
		for _, k := range s.Required {
			if _, ok := slices.BinarySearch(o.Fields, k); !ok {
				return false
			}
		}
	}
	return true
}

// Discriminant is a disjunction of shapes.
type Discriminant []Shape

// Accepts reports whether some shape accepts x.
func (d Discriminant) Accepts(x Sample) bool {
	for _, s := range d {
		if s.Accepts(x) {
			return true
		}
	}
	return false
}

// Intersects reports whether some pair of shapes intersects.
func (d Discriminant) Intersects(o Discriminant) bool {
	for _, a := range d {
		for _, b := range o {
			if a.Intersects(b) {
				return true
			}
		}
	}
	return false
}

// Discriminants are the precomputed per-variant constraints of a sum.
type Discriminants struct {
	// Deserialization prunes variants during hydration from bound inputs.
	Deserialization []InputConstraints
	// Serialization picks the variant of an untyped value.
	Serialization []Discriminant
}

// Overlap is a pair of sum variants whose serialization discriminants
// intersect.
type Overlap struct {
	First, Second         int
	FirstName, SecondName string
}

// String implements fmt.Stringer.
func (o Overlap) String() string {
	return fmt.Sprintf("variants %q and %q overlap", o.FirstName, o.SecondName)
}

// Discriminants returns the cached discriminants of the sum layout ref,
// computing them on first use.
func (r *Registry) Discriminants(ref Ref) (*Discriminants, error) {
	if d, ok := r.discriminants.Load(ref); ok {
		return d.(*Discriminants), nil
	}

	l, err := r.Lookup(ref)
	if err != nil {
		return nil, err
	}
	sum, ok := l.(*Sum)
	if !ok {
		return nil, fmt.Errorf("layout %q is a %s, not a sum", ref, l.Kind())
	}

	d := &Discriminants{
		Deserialization: make([]InputConstraints, len(sum.Variants)),
		Serialization:   make([]Discriminant, len(sum.Variants)),
	}
	for i, v := range sum.Variants {
		d.Deserialization[i] = r.variantInputs(sum, v)
		d.Serialization[i] = r.shapeOf(v.Value.Layout, map[Ref]bool{ref: true})
	}

	// Concurrent first calls compute identical values; keep the first.
	actual, _ := r.discriminants.LoadOrStore(ref, d)
	return actual.(*Discriminants), nil
}

// Overlaps reports the variant pairs of sum ref that no serialization
// discriminant separates.
func (r *Registry) Overlaps(ref Ref) ([]Overlap, error) {
	d, err := r.Discriminants(ref)
	if err != nil {
		return nil, err
	}
	l, _ := r.Get(ref)
	sum := l.(*Sum)

	var out []Overlap
	for i := range sum.Variants {
		for j := i + 1; j < len(sum.Variants); j++ {
			if d.Serialization[i].Intersects(d.Serialization[j]) {
				out = append(out, Overlap{
					First: i, Second: j,
					FirstName: sum.Variants[i].Name, SecondName: sum.Variants[j].Name,
				})
			}
		}
	}
	return out, nil
}

// variantInputs derives the input constraints of one variant: every sum
// input passed straight through to the variant's layout inherits what
// that layout demands of the corresponding input.
func (r *Registry) variantInputs(sum *Sum, v Variant) InputConstraints {
	ic := make(InputConstraints)
	for j, p := range v.Value.Input {
		if !p.IsVar() || p.Index() >= sum.Input {
			continue
		}
		if c, ok := r.inputConstraint(v.Value.Layout, uint32(j), make(map[Ref]bool)); ok {
			ic[p.Index()] = append(ic[p.Index()], c)
		}
	}
	return ic
}

// inputConstraint returns what layout ref demands of its input j.
// ok is false when nothing is demanded.
func (r *Registry) inputConstraint(ref Ref, j uint32, visiting map[Ref]bool) (Constraint, bool) {
	if visiting[ref] {
		return nil, false
	}
	l, ok := r.Get(ref)
	if !ok {
		return nil, false
	}

	switch l := l.(type) {
	case *Never:
		return Constraint{}, true
	case *Always:
		return nil, false
	case *Literal:
		if j != 0 {
			return nil, false
		}
		return Constraint{literalConstraint(l)}, true
	case *Sum:
		visiting[ref] = true
		defer delete(visiting, ref)

		// Union over variants; a variant that leaves j free frees it.
		var union Constraint
		for _, v := range l.Variants {
			found := false
			for k, p := range v.Value.Input {
				if p.IsVar() && p.Index() == j {
					if c, ok := r.inputConstraint(v.Value.Layout, uint32(k), visiting); ok {
						union = append(union, c...)
						found = true
						break
					}
				}
			}
			if !found {
				return nil, false
			}
		}
		return union, true
	default:
		if usedAsSubject(l, j) {
			return Constraint{{Kinds: TermResource}}, true
		}
		return nil, false
	}
}

func literalConstraint(l *Literal) TermConstraint {
	var lex []*automaton.Automaton
	if l.Pattern != nil {
		lex = append(lex, l.Pattern)
	}
	if l.Type == LiteralID {
		return TermConstraint{Kinds: TermResource, Lexical: lex}
	}
	dt := l.EffectiveDatatype()
	if l.Type == LiteralUnit {
		lex = append(lex, automaton.Literal(l.Const))
	} else if space := LexicalSpace(dt); space != nil {
		lex = append(lex, space)
	}
	return TermConstraint{Kinds: TermLiteral, Datatype: dt, Lexical: lex}
}

// usedAsSubject reports whether variable j appears in subject position
// of a quad pattern at the layout's own scope or any nested scope.
func usedAsSubject(l Layout, j uint32) bool {
	datasets := []pattern.Dataset{l.Signature().Dataset}
	switch l := l.(type) {
	case *Product:
		for _, f := range l.Fields {
			datasets = append(datasets, f.Dataset)
		}
	case *UnorderedList:
		datasets = append(datasets, l.Item.Dataset)
	case *SizedList:
		for _, item := range l.Items {
			datasets = append(datasets, item.Dataset)
		}
	}
	for _, d := range datasets {
		for _, q := range d {
			if q.Subject.IsVar() && q.Subject.Index() == j {
				return true
			}
		}
	}
	return false
}

// shapeOf computes the serialization discriminant of layout ref.
// References already being expanded accept any value.
func (r *Registry) shapeOf(ref Ref, visiting map[Ref]bool) Discriminant {
	if visiting[ref] {
		return Discriminant{{Kinds: ShapeAny}}
	}
	l, ok := r.Get(ref)
	if !ok {
		return Discriminant{}
	}

	switch l := l.(type) {
	case *Never:
		return Discriminant{}
	case *Always:
		return Discriminant{{Kinds: ShapeAny}}
	case *Literal:
		return Discriminant{literalShape(l)}
	case *Product:
		s := Shape{Kinds: ShapeRecord, Closed: true, Fields: l.FieldNames()}
		for _, name := range s.Fields {
			if l.Fields[name].Required {
				s.Required = append(s.Required, name)
			}
		}
		return Discriminant{s}
	case *UnorderedList, *OrderedList, *SizedList:
		return Discriminant{{Kinds: ShapeList}}
	case *Sum:
		visiting[ref] = true
		defer delete(visiting, ref)

		var union Discriminant
		for _, v := range l.Variants {
			union = append(union, r.shapeOf(v.Value.Layout, visiting)...)
		}
		return union
	default:
		return Discriminant{{Kinds: ShapeAny}}
	}
}

func literalShape(l *Literal) Shape {
	var lex []*automaton.Automaton
	if l.Pattern != nil {
		lex = append(lex, l.Pattern)
	}
	dt := l.EffectiveDatatype()
	switch l.Type {
	case LiteralUnit:
		return Shape{Kinds: ShapeUnit, Datatype: dt}
	case LiteralBoolean:
		return Shape{Kinds: ShapeBoolean, Datatype: dt, Lexical: lex}
	case LiteralNumber:
		if space := LexicalSpace(dt); space != nil {
			lex = append(lex, space)
		}
		return Shape{Kinds: ShapeNumber, Datatype: dt, Lexical: lex}
	case LiteralByteString:
		// Text in the datatype's lexical space stands for the bytes it encodes.
		if space := LexicalSpace(dt); space != nil {
			lex = append(lex, space)
		}
		return Shape{Kinds: ShapeBytes | ShapeText, Datatype: dt, Lexical: lex}
	default:
		return Shape{Kinds: ShapeText, Datatype: dt, Lexical: lex}
	}
}
