package rdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTerm(t *testing.T) {
	tests := []struct {
		in   string
		want Term
	}{
		{"<http://example.org/a>", IRI("http://example.org/a")},
		{"_:b0", Blank("b0")},
		{`"Alice"`, Literal("Alice", XSDString)},
		{`"30"^^<http://www.w3.org/2001/XMLSchema#integer>`, Literal("30", XSDInteger)},
		{`"chat"@FR`, LangLiteral("chat", "fr")},
		{`"line\nbreak \"quoted\""`, Literal("line\nbreak \"quoted\"", "")},
		{`"ét\U0001F600"`, Literal("ét😀", "")},
		{"  <urn:x>  ", IRI("urn:x")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTerm(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTerm_Errors(t *testing.T) {
	for _, in := range []string{
		"",
		"<unterminated",
		"_:",
		`"open`,
		`"x"^^datatype`,
		`"x"@`,
		`"bad \q escape"`,
		`"\u12"`,
		"plain",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseTerm(in)
			assert.Error(t, err)
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		id   string
		want Term
		ok   bool
	}{
		{"http://example.org/a", IRI("http://example.org/a"), true},
		{"urn:uuid:0190", IRI("urn:uuid:0190"), true},
		{"_:b0", Blank("b0"), true},
		{"_:", Term{}, false},
		{"_:a b", Term{}, false},
		{"not an iri", Term{}, false},
		{"relative/path", Term{}, false},
		{"http://example.org/<x>", Term{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := ParseID(tt.id)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.id, got.ID())
		})
	}
}

func TestTerm_StringRoundTrip(t *testing.T) {
	terms := []Term{
		IRI("http://example.org/a"),
		Blank("n1"),
		Literal("plain", ""),
		Literal("tab\there", XSDString),
		Literal("1.5", XSDDecimal),
		LangLiteral("hello", "en"),
		Literal(`back\slash`, ""),
	}

	for _, term := range terms {
		t.Run(term.String(), func(t *testing.T) {
			back, err := ParseTerm(term.String())
			require.NoError(t, err)
			assert.Equal(t, term, back)
		})
	}
}

func TestTerm_String(t *testing.T) {
	assert.Equal(t, "<urn:a>", IRI("urn:a").String())
	assert.Equal(t, "_:x", Blank("_:x").String())
	assert.Equal(t, `"a"`, Literal("a", XSDString).String())
	assert.Equal(t, `"1"^^<http://www.w3.org/2001/XMLSchema#integer>`, Literal("1", XSDInteger).String())
	assert.Equal(t, `"a"@en`, LangLiteral("a", "en").String())
	assert.Equal(t, "", DefaultGraph.String())
}

func TestTerm_Predicates(t *testing.T) {
	assert.True(t, IRI("urn:a").IsResource())
	assert.True(t, Blank("b").IsResource())
	assert.False(t, Literal("a", "").IsResource())
	assert.True(t, DefaultGraph.IsDefaultGraph())
	assert.Equal(t, "_:b", Blank("b").ID())
	assert.Equal(t, "urn:a", IRI("urn:a").ID())
}

func TestCompare(t *testing.T) {
	assert.Equal(t, 0, Compare(IRI("a"), IRI("a")))
	assert.Equal(t, -1, Compare(IRI("a"), IRI("b")))
	assert.Equal(t, -1, Compare(IRI("z"), Blank("a")), "kind orders first")
	assert.Equal(t, 1, Compare(Literal("1", XSDInteger), Literal("1", XSDDecimal)))
	assert.Equal(t, -1, Compare(DefaultGraph, IRI("a")))
}
