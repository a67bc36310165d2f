package layout

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/distill/internal/automaton"
	"github.com/roach88/distill/internal/pattern"
	"github.com/roach88/distill/internal/rdf"
)

const ex = "http://example.org/"

func text(expr string) *Literal {
	l := &Literal{Header: Header{Input: 1}, Type: LiteralTextString, Datatype: rdf.XSDString}
	if expr != "" {
		l.Pattern = automaton.MustCompile(expr)
	}
	return l
}

func integer() *Literal {
	return &Literal{Header: Header{Input: 1}, Type: LiteralNumber, Datatype: rdf.XSDInteger}
}

func person() *Product {
	return &Product{
		Header: Header{Input: 1},
		Fields: map[string]Field{
			"name": {
				Intro:    1,
				Value:    ValueFormat{Layout: "text", Input: []pattern.Pattern{pattern.Var(1)}},
				Dataset:  pattern.Dataset{pattern.NewQuad(pattern.Var(0), pattern.Resource(rdf.IRI(ex+"name")), pattern.Var(1))},
				Required: true,
			},
			"age": {
				Intro:   1,
				Value:   ValueFormat{Layout: "integer", Input: []pattern.Pattern{pattern.Var(1)}},
				Dataset: pattern.Dataset{pattern.NewQuad(pattern.Var(0), pattern.Resource(rdf.IRI(ex+"age")), pattern.Var(1))},
			},
		},
	}
}

func passThrough(ref Ref, name string) Variant {
	return Variant{Name: name, Value: ValueFormat{Layout: ref, Input: []pattern.Pattern{pattern.Var(0)}}}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("text", text("")))
	require.NoError(t, r.Register("text", text("")), "identical re-registration is idempotent")

	err := r.Register("text", text("[a-z]+"))
	assert.True(t, errors.Is(err, ErrConflictingRegistration))

	assert.ErrorIs(t, r.Register("", text("")), ErrEmptyRef)
	assert.ErrorIs(t, r.Register("nil", (*Literal)(nil)), ErrNilLayout)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_GetAndRefs(t *testing.T) {
	r := NewRegistry().
		MustRegister("text", text("")).
		MustRegister("integer", integer()).
		MustRegister("person", person())

	l, ok := r.Get("person")
	require.True(t, ok)
	assert.Equal(t, KindProduct, l.Kind())

	_, ok = r.Get("missing")
	assert.False(t, ok)

	_, err := r.Lookup("missing")
	var ule *UnknownLayoutError
	require.True(t, errors.As(err, &ule))
	assert.Equal(t, Ref("missing"), ule.Ref)

	assert.Equal(t, []Ref{"integer", "person", "text"}, r.Refs())
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	r := NewRegistry().MustRegister("text", text(""))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := r.Get("text")
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}

func TestProduct_FieldNames(t *testing.T) {
	assert.Equal(t, []string{"age", "name"}, person().FieldNames())
}

func TestReferences(t *testing.T) {
	assert.Equal(t, []Ref{"integer", "text"}, References(person()))
	assert.Nil(t, References(text("")))

	sum := &Sum{Header: Header{Input: 1}, Variants: []Variant{passThrough("a", "A"), passThrough("b", "B")}}
	assert.Equal(t, []Ref{"a", "b"}, References(sum))
}

func TestListKindOf(t *testing.T) {
	k, ok := ListKindOf(&OrderedList{})
	assert.True(t, ok)
	assert.Equal(t, ListOrdered, k)

	_, ok = ListKindOf(person())
	assert.False(t, ok)

	o := &OrderedList{Header: Header{Input: 1, Intro: 1}}
	assert.Equal(t, uint32(2), o.NodeVar())
	assert.Equal(t, uint32(3), o.RestVar())
}

func TestParseLiteralType(t *testing.T) {
	for lt := LiteralUnit; lt <= LiteralID; lt++ {
		got, err := ParseLiteralType(lt.String())
		require.NoError(t, err)
		assert.Equal(t, lt, got)
	}
	_, err := ParseLiteralType("float")
	assert.Error(t, err)
}

func TestLexicalSpace(t *testing.T) {
	assert.True(t, LexicalSpace(rdf.XSDInteger).Accepts("-12"))
	assert.False(t, LexicalSpace(rdf.XSDInteger).Accepts("1.5"))
	assert.True(t, LexicalSpace(rdf.XSDDouble).Accepts("-INF"))
	assert.True(t, LexicalSpace(rdf.XSDDecimal).Accepts(".5"))
	assert.Nil(t, LexicalSpace(ex+"custom"))
}

func sumRegistry() *Registry {
	return NewRegistry().
		MustRegister("text", text("")).
		MustRegister("word", text("[a-z]+")).
		MustRegister("digits", text("[0-9]+")).
		MustRegister("integer", integer()).
		MustRegister("person", person()).
		MustRegister("never", &Never{Header: Header{Input: 1}}).
		MustRegister("id", &Literal{Header: Header{Input: 1}, Type: LiteralID, Pattern: automaton.MustCompile("urn:.*")}).
		MustRegister("word-or-digits", &Sum{Header: Header{Input: 1}, Variants: []Variant{
			passThrough("word", "word"),
			passThrough("digits", "digits"),
		}}).
		MustRegister("text-or-word", &Sum{Header: Header{Input: 1}, Variants: []Variant{
			passThrough("text", "text"),
			passThrough("word", "word"),
		}}).
		MustRegister("mixed", &Sum{Header: Header{Input: 1}, Variants: []Variant{
			passThrough("person", "person"),
			passThrough("integer", "integer"),
			passThrough("id", "id"),
			passThrough("never", "never"),
		}})
}

func TestDiscriminants_Deserialization(t *testing.T) {
	r := sumRegistry()
	d, err := r.Discriminants("mixed")
	require.NoError(t, err)
	require.Len(t, d.Deserialization, 4)

	bind := func(term rdf.Term) *pattern.Substitution {
		return pattern.FromTerms(1, []rdf.Term{term})
	}
	subject := bind(rdf.Blank("p"))
	number := bind(rdf.Literal("30", rdf.XSDInteger))
	urn := bind(rdf.IRI("urn:x"))
	unbound := pattern.NewSubstitution(1, nil)

	// person: input 0 is used as a subject.
	assert.True(t, d.Deserialization[0].Admits(subject))
	assert.False(t, d.Deserialization[0].Admits(number))

	// integer: literal with integer datatype and lexical space.
	assert.True(t, d.Deserialization[1].Admits(number))
	assert.False(t, d.Deserialization[1].Admits(bind(rdf.Literal("3.5", rdf.XSDInteger))))
	assert.False(t, d.Deserialization[1].Admits(subject))

	// id: resource whose id matches the pattern.
	assert.True(t, d.Deserialization[2].Admits(urn))
	assert.False(t, d.Deserialization[2].Admits(bind(rdf.IRI("http://x"))))

	// never admits nothing bound, but never rejects unbound inputs.
	assert.False(t, d.Deserialization[3].Admits(subject))
	assert.True(t, d.Deserialization[3].Admits(unbound))
}

func TestDiscriminants_Serialization(t *testing.T) {
	r := sumRegistry()
	d, err := r.Discriminants("word-or-digits")
	require.NoError(t, err)

	textSample := func(s string) Sample {
		return Sample{Kind: ShapeText, Lexical: func(string) (string, bool) { return s, true }}
	}
	assert.True(t, d.Serialization[0].Accepts(textSample("abc")))
	assert.False(t, d.Serialization[0].Accepts(textSample("123")))
	assert.True(t, d.Serialization[1].Accepts(textSample("123")))
	assert.False(t, d.Serialization[1].Accepts(Sample{Kind: ShapeNumber}))

	m, err := r.Discriminants("mixed")
	require.NoError(t, err)
	record := Sample{Kind: ShapeRecord, Keys: []string{"name"}}
	assert.True(t, m.Serialization[0].Accepts(record))
	assert.False(t, m.Serialization[0].Accepts(Sample{Kind: ShapeRecord, Keys: []string{"age"}}), "missing required key")
	assert.False(t, m.Serialization[0].Accepts(Sample{Kind: ShapeRecord, Keys: []string{"name", "extra"}}), "unknown key")
	assert.Empty(t, m.Serialization[3], "never has no shape")
}

func TestDiscriminants_Cached(t *testing.T) {
	r := sumRegistry()
	a, err := r.Discriminants("mixed")
	require.NoError(t, err)
	b, err := r.Discriminants("mixed")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = r.Discriminants("person")
	assert.Error(t, err, "not a sum")
	_, err = r.Discriminants("missing")
	assert.Error(t, err)
}

func TestOverlaps(t *testing.T) {
	r := sumRegistry()

	o, err := r.Overlaps("word-or-digits")
	require.NoError(t, err)
	assert.Empty(t, o)

	o, err = r.Overlaps("text-or-word")
	require.NoError(t, err)
	require.Len(t, o, 1)
	assert.Equal(t, "text", o[0].FirstName)
	assert.Equal(t, "word", o[0].SecondName)

	o, err = r.Overlaps("mixed")
	require.NoError(t, err)
	assert.Empty(t, o)
}

func TestLiteral_EffectiveDatatype(t *testing.T) {
	tests := []struct {
		name string
		l    *Literal
		want string
	}{
		{"declared", &Literal{Type: LiteralNumber, Datatype: rdf.XSDInteger}, rdf.XSDInteger},
		{"number default", &Literal{Type: LiteralNumber}, rdf.XSDDecimal},
		{"bytes default", &Literal{Type: LiteralByteString}, rdf.XSDBase64Binary},
		{"text default", &Literal{Type: LiteralTextString}, rdf.XSDString},
		{"id has none", &Literal{Type: LiteralID}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.l.EffectiveDatatype())
		})
	}
}

func TestDiscriminants_UndeclaredDatatype(t *testing.T) {
	r := NewRegistry().
		MustRegister("number", &Literal{Header: Header{Input: 1}, Type: LiteralNumber}).
		MustRegister("word", text("[a-z]+")).
		MustRegister("either", &Sum{Header: Header{Input: 1}, Variants: []Variant{
			passThrough("number", "number"),
			passThrough("word", "word"),
		}})

	d, err := r.Discriminants("either")
	require.NoError(t, err)

	bind := func(term rdf.Term) *pattern.Substitution {
		return pattern.FromTerms(1, []rdf.Term{term})
	}
	assert.True(t, d.Deserialization[0].Admits(bind(rdf.Literal("1.5", rdf.XSDDecimal))))
	assert.False(t, d.Deserialization[0].Admits(bind(rdf.Literal("1.5", rdf.XSDString))), "decimal is the default")
	assert.False(t, d.Deserialization[0].Admits(bind(rdf.Literal("abc", rdf.XSDDecimal))), "outside the decimal lexical space")
	assert.Equal(t, rdf.XSDDecimal, d.Serialization[0][0].Datatype)
}

func TestDiscriminants_BytesAcceptText(t *testing.T) {
	r := NewRegistry().
		MustRegister("hex", &Literal{Header: Header{Input: 1}, Type: LiteralByteString, Datatype: rdf.XSDHexBinary}).
		MustRegister("text", text("")).
		MustRegister("word", text("[g-z]+")).
		MustRegister("hex-or-text", &Sum{Header: Header{Input: 1}, Variants: []Variant{
			passThrough("hex", "bytes"),
			passThrough("text", "text"),
		}}).
		MustRegister("hex-or-word", &Sum{Header: Header{Input: 1}, Variants: []Variant{
			passThrough("hex", "bytes"),
			passThrough("word", "word"),
		}})

	d, err := r.Discriminants("hex-or-word")
	require.NoError(t, err)
	textSample := func(s string) Sample {
		return Sample{Kind: ShapeText, Lexical: func(string) (string, bool) { return s, true }}
	}
	assert.True(t, d.Serialization[0].Accepts(Sample{Kind: ShapeBytes}))
	assert.True(t, d.Serialization[0].Accepts(textSample("0aff")))
	assert.False(t, d.Serialization[0].Accepts(textSample("xyz")))
	assert.False(t, d.Serialization[1].Accepts(textSample("0aff")))

	o, err := r.Overlaps("hex-or-text")
	require.NoError(t, err)
	assert.Len(t, o, 1, "hex text is also text")

	o, err = r.Overlaps("hex-or-word")
	require.NoError(t, err)
	assert.Empty(t, o)
}

func TestDiscriminants_NestedSum(t *testing.T) {
	r := sumRegistry().MustRegister("outer", &Sum{Header: Header{Input: 1}, Variants: []Variant{
		passThrough("word-or-digits", "inner"),
		passThrough("person", "person"),
	}})

	d, err := r.Discriminants("outer")
	require.NoError(t, err)
	assert.Len(t, d.Serialization[0], 2, "union of inner variants")

	lit := pattern.FromTerms(1, []rdf.Term{rdf.Literal("abc", rdf.XSDString)})
	assert.True(t, d.Deserialization[0].Admits(lit))
	assert.False(t, d.Deserialization[1].Admits(lit))

	o, err := r.Overlaps("outer")
	require.NoError(t, err)
	assert.Empty(t, o)
}

func TestDiscriminants_RecursiveSum(t *testing.T) {
	r := NewRegistry().
		MustRegister("text", text("")).
		MustRegister("self", &Sum{Header: Header{Input: 1}, Variants: []Variant{
			passThrough("text", "leaf"),
			passThrough("self", "again"),
		}})

	d, err := r.Discriminants("self")
	require.NoError(t, err)
	assert.True(t, d.Serialization[1].Accepts(Sample{Kind: ShapeList}), "self reference accepts anything")
}
