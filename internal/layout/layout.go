// Package layout defines the compiled, index-based layout data model and
// the registry that resolves layout references.
//
// A layout describes a bidirectional mapping between a fragment of an RDF
// dataset and a tree value. Every layout has a header:
//
//   - Input: number of resources supplied by the caller (variables 0..Input-1)
//   - Intro: number of variables the layout introduces (Input..Input+Intro-1)
//   - Dataset: quad patterns that must hold among inputs and intros
//
// Nested scopes (fields, items, variants, list nodes) append their own
// intros after the layout scope. Layouts refer to each other only through
// Ref values resolved by a Registry, so recursive layouts need no special
// casing.
//
// Layouts are immutable once registered.
package layout

import (
	"fmt"
	"slices"

	"github.com/roach88/distill/internal/automaton"
	"github.com/roach88/distill/internal/pattern"
)

// Ref is an opaque layout reference.
type Ref string

// Kind identifies a layout variant.
type Kind uint8

const (
	KindNever Kind = iota
	KindAlways
	KindLiteral
	KindProduct
	KindList
	KindSum
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindNever:
		return "never"
	case KindAlways:
		return "always"
	case KindLiteral:
		return "literal"
	case KindProduct:
		return "product"
	case KindList:
		return "list"
	case KindSum:
		return "sum"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Layout is a sealed interface over the compiled layout variants:
// *Never, *Always, *Literal, *Product, *UnorderedList, *OrderedList,
// *SizedList and *Sum.
type Layout interface {
	Kind() Kind
	Signature() Header
	isLayout()
}

// Header is the part common to every layout.
type Header struct {
	Input   uint32
	Intro   uint32
	Dataset pattern.Dataset
}

// Signature returns the header.
func (h Header) Signature() Header { return h }

// Width returns the size of the layout scope.
func (h Header) Width() uint32 { return h.Input + h.Intro }

// ValueFormat selects the layout of a nested value and its inputs.
//
// Input patterns and explicit graph patterns are expressed in the scope
// of the enclosing field, item, variant or node.
type ValueFormat struct {
	Layout Ref
	Input  []pattern.Pattern
	Graph  pattern.GraphSelector
}

// Never matches nothing.
type Never struct {
	Header
}

func (*Never) Kind() Kind { return KindNever }
func (*Never) isLayout()  {}

// Always matches any resource; hydrated values are opaque.
type Always struct {
	Header
}

func (*Always) Kind() Kind { return KindAlways }
func (*Always) isLayout()  {}

// LiteralType is the payload type of a literal layout.
type LiteralType uint8

const (
	LiteralUnit LiteralType = iota
	LiteralBoolean
	LiteralNumber
	LiteralByteString
	LiteralTextString
	// LiteralID encodes a resource's lexical identifier as a string.
	LiteralID
)

// String implements fmt.Stringer.
func (t LiteralType) String() string {
	switch t {
	case LiteralUnit:
		return "unit"
	case LiteralBoolean:
		return "boolean"
	case LiteralNumber:
		return "number"
	case LiteralByteString:
		return "bytes"
	case LiteralTextString:
		return "text"
	case LiteralID:
		return "id"
	default:
		return fmt.Sprintf("LiteralType(%d)", t)
	}
}

// ParseLiteralType parses the String form of a literal type.
func ParseLiteralType(s string) (LiteralType, error) {
	for t := LiteralUnit; t <= LiteralID; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown literal type %q", s)
}

// Literal matches exactly one term: input 0.
//
// Data literals (every type but LiteralID) require an RDF literal with
// Datatype. Id literals require an IRI or blank node. Pattern, when set,
// constrains the lexical form.
type Literal struct {
	Header
	Type     LiteralType
	Datatype string
	Pattern  *automaton.Automaton
	// Const is the lexical form a unit literal carries.
	Const string
}

func (*Literal) Kind() Kind { return KindLiteral }
func (*Literal) isLayout()  {}

// IsData reports whether l is a data literal.
func (l *Literal) IsData() bool { return l.Type != LiteralID }

// EffectiveDatatype returns the declared datatype, or the default of the
// literal type when none is declared.
func (l *Literal) EffectiveDatatype() string {
	if l.Datatype != "" {
		return l.Datatype
	}
	return DefaultDatatype(l.Type)
}

// Field is a record field.
//
// The field scope is the layout scope followed by Intro variables.
type Field struct {
	Intro    uint32
	Value    ValueFormat
	Dataset  pattern.Dataset
	Required bool
}

// Product is a record layout.
type Product struct {
	Header
	Fields map[string]Field
}

func (*Product) Kind() Kind { return KindProduct }
func (*Product) isLayout()  {}

// FieldNames returns the field names in sorted order.
func (p *Product) FieldNames() []string {
	names := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ListKind distinguishes list layouts.
type ListKind uint8

const (
	ListUnordered ListKind = iota
	ListOrdered
	ListSized
)

// String implements fmt.Stringer.
func (k ListKind) String() string {
	switch k {
	case ListUnordered:
		return "unordered"
	case ListOrdered:
		return "ordered"
	case ListSized:
		return "sized"
	default:
		return fmt.Sprintf("ListKind(%d)", k)
	}
}

// ItemFormat describes one list item. Its scope is the layout scope
// followed by Intro variables.
type ItemFormat struct {
	Intro   uint32
	Value   ValueFormat
	Dataset pattern.Dataset
}

// UnorderedList is a set-like list: every match of the item dataset in
// the current graph is one element.
type UnorderedList struct {
	Header
	Item ItemFormat
}

func (*UnorderedList) Kind() Kind         { return KindList }
func (*UnorderedList) ListKind() ListKind { return ListUnordered }
func (*UnorderedList) isLayout()          {}

// NodeFormat describes one node of an ordered list.
//
// The node scope is the layout scope followed by [node, rest] and then
// Intro variables, so the node variable is Width() and the rest variable
// Width()+1 of the enclosing layout.
type NodeFormat struct {
	Intro   uint32
	Value   ValueFormat
	Dataset pattern.Dataset
}

// OrderedList is a linked list walked from Head until Tail.
// Head and Tail are in the layout scope.
type OrderedList struct {
	Header
	Node NodeFormat
	Head pattern.Pattern
	Tail pattern.Pattern
}

func (*OrderedList) Kind() Kind         { return KindList }
func (*OrderedList) ListKind() ListKind { return ListOrdered }
func (*OrderedList) isLayout()          {}

// NodeVar returns the node variable of the node scope.
func (l *OrderedList) NodeVar() uint32 { return l.Width() }

// RestVar returns the rest variable of the node scope.
func (l *OrderedList) RestVar() uint32 { return l.Width() + 1 }

// SizedList is a fixed-length tuple of independently typed items.
type SizedList struct {
	Header
	Items []ItemFormat
}

func (*SizedList) Kind() Kind         { return KindList }
func (*SizedList) ListKind() ListKind { return ListSized }
func (*SizedList) isLayout()          {}

// Variant is a sum variant. Its scope is the layout scope followed by
// Intro variables.
type Variant struct {
	Name    string
	Intro   uint32
	Value   ValueFormat
	Dataset pattern.Dataset
}

// Sum is a tagged union; variants are tried in declaration order.
type Sum struct {
	Header
	Variants []Variant
}

func (*Sum) Kind() Kind { return KindSum }
func (*Sum) isLayout()  {}

// VariantIndex returns the index of the named variant.
func (s *Sum) VariantIndex(name string) (int, bool) {
	for i, v := range s.Variants {
		if v.Name == name {
			return i, true
		}
	}
	return 0, false
}

// ListKindOf returns the list kind of l. ok is false for non-list layouts.
func ListKindOf(l Layout) (ListKind, bool) {
	lk, ok := l.(interface{ ListKind() ListKind })
	if !ok {
		return 0, false
	}
	return lk.ListKind(), true
}

// References returns the layouts l refers to, in declaration order.
func References(l Layout) []Ref {
	var refs []Ref
	switch l := l.(type) {
	case *Product:
		for _, name := range l.FieldNames() {
			refs = append(refs, l.Fields[name].Value.Layout)
		}
	case *UnorderedList:
		refs = append(refs, l.Item.Value.Layout)
	case *OrderedList:
		refs = append(refs, l.Node.Value.Layout)
	case *SizedList:
		for _, item := range l.Items {
			refs = append(refs, item.Value.Layout)
		}
	case *Sum:
		for _, v := range l.Variants {
			refs = append(refs, v.Value.Layout)
		}
	}
	return refs
}
