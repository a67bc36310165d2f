package testutil

import (
	"strconv"

	"github.com/roach88/distill/internal/automaton"
	"github.com/roach88/distill/internal/layout"
	"github.com/roach88/distill/internal/pattern"
	"github.com/roach88/distill/internal/rdf"
)

// EX is the namespace of test vocabulary.
const EX = "http://example.org/"

// Ex returns the IRI EX+local.
func Ex(local string) rdf.Term {
	return rdf.IRI(EX + local)
}

// Layout references registered by Registry.
const (
	TextRef      layout.Ref = "text"
	LowerRef     layout.Ref = "lower"
	IntegerRef   layout.Ref = "integer"
	BooleanRef   layout.Ref = "boolean"
	IDRef        layout.Ref = "id"
	AnyRef       layout.Ref = "any"
	NeverRef     layout.Ref = "never"
	PersonRef    layout.Ref = "person"
	NamesRef     layout.Ref = "names"
	TagsRef      layout.Ref = "tags"
	PointRef     layout.Ref = "point"
	PetRef       layout.Ref = "pet"
	ShapeRef     layout.Ref = "shape"
	CircleRef    layout.Ref = "circle"
	SquareRef    layout.Ref = "square"
	AmbiguousRef layout.Ref = "ambiguous"
	TeamRef      layout.Ref = "team"
)

var (
	v0 = pattern.Var(0)
	v1 = pattern.Var(1)
	v2 = pattern.Var(2)
	v3 = pattern.Var(3)
)

func res(t rdf.Term) pattern.Pattern { return pattern.Resource(t) }

// Literal returns a single-input literal layout.
func Literal(t layout.LiteralType, datatype string, expr string) *layout.Literal {
	l := &layout.Literal{Header: layout.Header{Input: 1}, Type: t, Datatype: datatype}
	if expr != "" {
		l.Pattern = automaton.MustCompile(expr)
	}
	return l
}

// Property returns a field whose value is the object of ?0 <EX+prop> ?N,
// where ?N is the field's single intro at index width.
func Property(prop string, ref layout.Ref, width uint32, required bool) layout.Field {
	obj := pattern.Var(width)
	return layout.Field{
		Intro:    1,
		Value:    layout.ValueFormat{Layout: ref, Input: []pattern.Pattern{obj}},
		Dataset:  pattern.Dataset{pattern.NewQuad(v0, res(Ex(prop)), obj)},
		Required: required,
	}
}

// Registry returns the shared test registry.
//
//	text      xsd:string
//	lower     xsd:string matching [a-z]+
//	integer   xsd:integer
//	boolean   xsd:boolean
//	id        IRI or blank node identifier
//	any       always
//	never     never
//	person    {name: text (required), age: integer, nick: lower}
//	names     rdf:first/rest list of text starting at ?0
//	tags      unordered ?0 ex:tag ?1 of text
//	point     [x, y] sized integers via ex:x and ex:y
//	pet       sum of lower "name" | integer "number" on ?0
//	shape     sum of circle | square on ?0
//	ambiguous sum of text "a" | text "b" on ?0
//	team      {members: names (required), lead: person}
func Registry() *layout.Registry {
	reg := layout.NewRegistry()

	reg.MustRegister(TextRef, Literal(layout.LiteralTextString, rdf.XSDString, "")).
		MustRegister(LowerRef, Literal(layout.LiteralTextString, rdf.XSDString, "[a-z]+")).
		MustRegister(IntegerRef, Literal(layout.LiteralNumber, rdf.XSDInteger, "")).
		MustRegister(BooleanRef, Literal(layout.LiteralBoolean, rdf.XSDBoolean, "")).
		MustRegister(IDRef, Literal(layout.LiteralID, "", "")).
		MustRegister(AnyRef, &layout.Always{Header: layout.Header{Input: 1}}).
		MustRegister(NeverRef, &layout.Never{Header: layout.Header{Input: 1}})

	reg.MustRegister(PersonRef, &layout.Product{
		Header: layout.Header{Input: 1},
		Fields: map[string]layout.Field{
			"name": Property("name", TextRef, 1, true),
			"age":  Property("age", IntegerRef, 1, false),
			"nick": Property("nick", LowerRef, 1, false),
		},
	})

	// Node scope: ?0 head, ?1 node, ?2 rest, ?3 item.
	reg.MustRegister(NamesRef, &layout.OrderedList{
		Header: layout.Header{Input: 1},
		Head:   v0,
		Tail:   res(rdf.IRI(rdf.RDFNil)),
		Node: layout.NodeFormat{
			Intro: 1,
			Value: layout.ValueFormat{Layout: TextRef, Input: []pattern.Pattern{v3}},
			Dataset: pattern.Dataset{
				pattern.NewQuad(v1, res(rdf.IRI(rdf.RDFFirst)), v3),
				pattern.NewQuad(v1, res(rdf.IRI(rdf.RDFRest)), v2),
			},
		},
	})

	reg.MustRegister(TagsRef, &layout.UnorderedList{
		Header: layout.Header{Input: 1},
		Item: layout.ItemFormat{
			Intro:   1,
			Value:   layout.ValueFormat{Layout: TextRef, Input: []pattern.Pattern{v1}},
			Dataset: pattern.Dataset{pattern.NewQuad(v0, res(Ex("tag")), v1)},
		},
	})

	reg.MustRegister(PointRef, &layout.SizedList{
		Header: layout.Header{Input: 1},
		Items: []layout.ItemFormat{
			{
				Intro:   1,
				Value:   layout.ValueFormat{Layout: IntegerRef, Input: []pattern.Pattern{v1}},
				Dataset: pattern.Dataset{pattern.NewQuad(v0, res(Ex("x")), v1)},
			},
			{
				Intro:   1,
				Value:   layout.ValueFormat{Layout: IntegerRef, Input: []pattern.Pattern{v1}},
				Dataset: pattern.Dataset{pattern.NewQuad(v0, res(Ex("y")), v1)},
			},
		},
	})

	reg.MustRegister(PetRef, &layout.Sum{
		Header: layout.Header{Input: 1},
		Variants: []layout.Variant{
			{Name: "name", Value: layout.ValueFormat{Layout: LowerRef, Input: []pattern.Pattern{v0}}},
			{Name: "number", Value: layout.ValueFormat{Layout: IntegerRef, Input: []pattern.Pattern{v0}}},
		},
	})

	reg.MustRegister(CircleRef, &layout.Product{
		Header: layout.Header{Input: 1},
		Fields: map[string]layout.Field{
			"radius": Property("radius", IntegerRef, 1, true),
		},
	})
	reg.MustRegister(SquareRef, &layout.Product{
		Header: layout.Header{Input: 1},
		Fields: map[string]layout.Field{
			"side": Property("side", IntegerRef, 1, true),
		},
	})
	reg.MustRegister(ShapeRef, &layout.Sum{
		Header: layout.Header{Input: 1},
		Variants: []layout.Variant{
			{Name: "circle", Value: layout.ValueFormat{Layout: CircleRef, Input: []pattern.Pattern{v0}}},
			{Name: "square", Value: layout.ValueFormat{Layout: SquareRef, Input: []pattern.Pattern{v0}}},
		},
	})

	reg.MustRegister(AmbiguousRef, &layout.Sum{
		Header: layout.Header{Input: 1},
		Variants: []layout.Variant{
			{Name: "a", Value: layout.ValueFormat{Layout: TextRef, Input: []pattern.Pattern{v0}}},
			{Name: "b", Value: layout.ValueFormat{Layout: TextRef, Input: []pattern.Pattern{v0}}},
		},
	})

	reg.MustRegister(TeamRef, &layout.Product{
		Header: layout.Header{Input: 1},
		Fields: map[string]layout.Field{
			"members": Property("members", NamesRef, 1, true),
			"lead":    Property("lead", PersonRef, 1, false),
		},
	})

	return reg
}

// Person returns the dataset of one person _:p with the given name and,
// when age is non-empty, an xsd:integer age.
func Person(name, age string) *rdf.Memory {
	p := rdf.Blank("p")
	ds := rdf.NewMemory(rdf.NewQuad(p, Ex("name"), rdf.Literal(name, rdf.XSDString), rdf.DefaultGraph))
	if age != "" {
		ds.Insert(rdf.NewQuad(p, Ex("age"), rdf.Literal(age, rdf.XSDInteger), rdf.DefaultGraph))
	}
	return ds
}

// List returns quads of an rdf:first/rest chain of text items starting
// at head, using blank nodes n0, n1, ... for the nodes after head.
func List(head rdf.Term, items ...string) []rdf.Quad {
	var quads []rdf.Quad
	node := head
	for i, item := range items {
		rest := rdf.IRI(rdf.RDFNil)
		if i < len(items)-1 {
			rest = rdf.Blank("n" + strconv.Itoa(i))
		}
		quads = append(quads,
			rdf.NewQuad(node, rdf.IRI(rdf.RDFFirst), rdf.Literal(item, rdf.XSDString), rdf.DefaultGraph),
			rdf.NewQuad(node, rdf.IRI(rdf.RDFRest), rest, rdf.DefaultGraph),
		)
		node = rest
	}
	return quads
}
