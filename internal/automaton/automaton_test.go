package automaton

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Accepts(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		accept []string
		reject []string
	}{
		{
			name:   "lowercase word",
			expr:   "^[a-z]+$",
			accept: []string{"abc", "z"},
			reject: []string{"", "a1", "ABC", "abc "},
		},
		{
			name:   "implicitly anchored",
			expr:   "[a-z]+",
			accept: []string{"abc"},
			reject: []string{"1abc", "abc1"},
		},
		{
			name:   "alternation",
			expr:   "red|green|blue",
			accept: []string{"red", "green", "blue"},
			reject: []string{"re", "redgreen", "yellow"},
		},
		{
			name:   "optional sign integer",
			expr:   `[+-]?[0-9]+`,
			accept: []string{"0", "-12", "+7"},
			reject: []string{"-", "1.5", "++1"},
		},
		{
			name:   "empty pattern",
			expr:   "",
			accept: []string{""},
			reject: []string{"a"},
		},
		{
			name:   "any but newline",
			expr:   "a.c",
			accept: []string{"abc", "a☃c"},
			reject: []string{"a\nc", "ac"},
		},
		{
			name:   "case folded literal",
			expr:   "(?i)ok",
			accept: []string{"ok", "OK", "oK"},
			reject: []string{"o"},
		},
		{
			name:   "unicode class",
			expr:   `\p{Greek}+`,
			accept: []string{"αβγ"},
			reject: []string{"abc"},
		},
		{
			name:   "bounded repetition",
			expr:   "x{2,3}",
			accept: []string{"xx", "xxx"},
			reject: []string{"x", "xxxx"},
		},
		{
			name:   "end anchor in the middle never matches",
			expr:   "a$b",
			reject: []string{"ab", "a", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Compile(tt.expr)
			require.NoError(t, err)

			for _, s := range tt.accept {
				assert.True(t, a.Accepts(s), "expected %q to be accepted", s)
			}
			for _, s := range tt.reject {
				assert.False(t, a.Accepts(s), "expected %q to be rejected", s)
			}
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want error
	}{
		{"word boundary", `\bword\b`, ErrUnsupported},
		{"multi-line anchor", `(?m)^a$`, ErrUnsupported},
		{"syntax error", "a(", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.expr)
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.expr, ce.Pattern)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestNextState_MissingTransition(t *testing.T) {
	a := MustCompile("ab")

	q := a.InitialState()
	assert.False(t, a.IsFinalState(q))

	q, ok := a.NextState(q, 'a')
	require.True(t, ok)

	_, ok = a.NextState(q, 'x')
	assert.False(t, ok, "missing transition rejects immediately")

	q, ok = a.NextState(q, 'b')
	require.True(t, ok)
	assert.True(t, a.IsFinalState(q))

	_, ok = a.NextState(StateID(a.NumStates()+5), 'a')
	assert.False(t, ok, "unknown state has no transitions")
}

func TestLiteral(t *testing.T) {
	a := Literal("a.b")

	assert.True(t, a.Accepts("a.b"))
	assert.False(t, a.Accepts("axb"))
	assert.False(t, a.Accepts("a.bc"))
	assert.Equal(t, `a\.b`, a.Source())

	assert.True(t, Literal("").Accepts(""))
}

func TestUniversal(t *testing.T) {
	a := Universal()

	assert.True(t, a.Accepts(""))
	assert.True(t, a.Accepts("anything\nat all ☃"))
	assert.False(t, a.Accepts("\xff"), "invalid UTF-8 is rejected")
}

func TestIntersects(t *testing.T) {
	tests := []struct {
		name string
		a, b *Automaton
		want bool
	}{
		{"disjoint classes", MustCompile("[a-z]+"), MustCompile("[0-9]+"), false},
		{"overlapping classes", MustCompile("[a-m]+"), MustCompile("[k-z]+"), true},
		{"prefix versus literal", MustCompile("urn:a:.*"), Literal("urn:b:1"), false},
		{"prefix contains literal", MustCompile("urn:a:.*"), Literal("urn:a:1"), true},
		{"universal meets anything", Universal(), Literal("x"), true},
		{"different lengths", MustCompile("a{2}"), MustCompile("a{3}"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Intersects(tt.a, tt.b))
			assert.Equal(t, tt.want, Intersects(tt.b, tt.a), "symmetric")
		})
	}
}

func TestIsEmpty(t *testing.T) {
	assert.False(t, MustCompile("a*").IsEmpty())
	assert.True(t, MustCompile("a$b").IsEmpty())
	assert.True(t, MustCompile(`[^\x00-\x{10FFFF}]`).IsEmpty())
}

func TestEqual(t *testing.T) {
	assert.True(t, MustCompile("[a-z]+").Equal(MustCompile("[a-z]+")))
	assert.False(t, MustCompile("[a-z]+").Equal(MustCompile("[a-z]*")))

	var nilA *Automaton
	assert.True(t, nilA.Equal(nil))
	assert.False(t, nilA.Equal(Universal()))
}

func TestCompile_Deterministic(t *testing.T) {
	for i := 0; i < 5; i++ {
		assert.True(t, MustCompile(`(ab|a)c[0-9]{1,3}`).Equal(MustCompile(`(ab|a)c[0-9]{1,3}`)))
	}
}
