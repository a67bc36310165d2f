package value

import (
	"github.com/roach88/distill/internal/layout"
	"github.com/roach88/distill/internal/rdf"
)

// Typed is a value tree whose every node carries the layout that produced
// or accepts it. Only the Typed* types below implement it.
type Typed interface {
	LayoutRef() layout.Ref
	IntoUntyped() Value
	isTyped()
}

// TypedLiteral is a literal payload: Unit, Boolean, Number, ByteString or
// TextString.
type TypedLiteral struct {
	Layout layout.Ref
	Value  Value
}

func (t *TypedLiteral) LayoutRef() layout.Ref { return t.Layout }
func (t *TypedLiteral) IntoUntyped() Value    { return t.Value }
func (*TypedLiteral) isTyped()                {}

// TypedRecord is a product value.
type TypedRecord struct {
	Layout layout.Ref
	Fields map[string]Typed
}

func (t *TypedRecord) LayoutRef() layout.Ref { return t.Layout }
func (*TypedRecord) isTyped()                {}

// IntoUntyped strips tags recursively.
func (t *TypedRecord) IntoUntyped() Value {
	r := make(Record, len(t.Fields))
	for k, v := range t.Fields {
		r[k] = v.IntoUntyped()
	}
	return r
}

// TypedList is a list value.
type TypedList struct {
	Layout layout.Ref
	Items  []Typed
}

func (t *TypedList) LayoutRef() layout.Ref { return t.Layout }
func (*TypedList) isTyped()                {}

// IntoUntyped strips tags recursively.
func (t *TypedList) IntoUntyped() Value {
	l := make(List, len(t.Items))
	for i, v := range t.Items {
		l[i] = v.IntoUntyped()
	}
	return l
}

// TypedVariant is a sum value: the chosen variant and its value.
// Untyped, a variant is its inner value.
type TypedVariant struct {
	Layout layout.Ref
	Index  int
	Name   string
	Value  Typed
}

func (t *TypedVariant) LayoutRef() layout.Ref { return t.Layout }
func (t *TypedVariant) IntoUntyped() Value    { return t.Value.IntoUntyped() }
func (*TypedVariant) isTyped()                {}

// TypedOpaque is a resource hydrated through an Always layout.
//
// Untyped it renders JSON-LD style: {"@id": id} for resources and
// {"@value": lex, "@type": datatype} or {"@value": lex, "@language": tag}
// for literals.
type TypedOpaque struct {
	Layout layout.Ref
	Term   rdf.Term
}

func (t *TypedOpaque) LayoutRef() layout.Ref { return t.Layout }
func (*TypedOpaque) isTyped()                {}

// IntoUntyped renders the term as a JSON-LD node or value object.
func (t *TypedOpaque) IntoUntyped() Value {
	return OpaqueRecord(t.Term)
}

// OpaqueRecord renders a term JSON-LD style.
func OpaqueRecord(term rdf.Term) Record {
	if !term.IsLiteral() {
		return NewRecord(P("@id", TextString(term.ID())))
	}
	if term.Language != "" {
		return NewRecord(
			P("@value", TextString(term.Value)),
			P("@language", TextString(term.Language)),
		)
	}
	return NewRecord(
		P("@value", TextString(term.Value)),
		P("@type", TextString(term.Datatype)),
	)
}

// OpaqueTerm is the inverse of OpaqueRecord.
func OpaqueTerm(v Value) (rdf.Term, bool) {
	r, ok := v.(Record)
	if !ok {
		return rdf.Term{}, false
	}
	text := func(k string) (string, bool) {
		s, ok := r[k].(TextString)
		return string(s), ok
	}

	if id, ok := text("@id"); ok && len(r) == 1 {
		if len(id) > 2 && id[:2] == "_:" {
			return rdf.Blank(id), true
		}
		return rdf.IRI(id), true
	}
	lex, ok := text("@value")
	if !ok {
		return rdf.Term{}, false
	}
	if lang, ok := text("@language"); ok && len(r) == 2 {
		return rdf.LangLiteral(lex, lang), true
	}
	if dt, ok := text("@type"); ok && len(r) == 2 {
		return rdf.Literal(lex, dt), true
	}
	if len(r) == 1 {
		return rdf.Literal(lex, rdf.XSDString), true
	}
	return rdf.Term{}, false
}
