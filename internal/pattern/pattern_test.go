package pattern

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/distill/internal/rdf"
)

var (
	alice = rdf.Literal("Alice", "")
	bob   = rdf.Literal("Bob", "")
	p1    = rdf.Blank("p1")
)

func TestPattern_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b Pattern
		want int
	}{
		{"equal vars", Var(1), Var(1), 0},
		{"var order", Var(0), Var(2), -1},
		{"var before resource", Var(9), Resource(p1), -1},
		{"resource after var", Resource(p1), Var(0), 1},
		{"resources", Resource(rdf.IRI("a")), Resource(rdf.IRI("b")), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestParse(t *testing.T) {
	p, err := Parse("?3")
	require.NoError(t, err)
	assert.True(t, p.IsVar())
	assert.Equal(t, uint32(3), p.Index())
	assert.Equal(t, "?3", p.String())

	p, err = Parse("<urn:x>")
	require.NoError(t, err)
	assert.False(t, p.IsVar())
	assert.Equal(t, rdf.IRI("urn:x"), p.Term())

	_, err = Parse("?x")
	assert.Error(t, err)
}

func TestSubstitution_Set(t *testing.T) {
	s := NewSubstitution(2, nil)

	require.NoError(t, s.Set(0, alice))
	require.NoError(t, s.Set(0, alice), "same value is idempotent")

	err := s.Set(0, bob)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBindingConflict))

	var bce *BindingConflictError
	require.True(t, errors.As(err, &bce))
	assert.Equal(t, uint32(0), bce.Index)
	assert.Equal(t, alice, bce.Bound)

	got, ok := s.Get(0)
	assert.True(t, ok)
	assert.Equal(t, alice, got, "conflicting set leaves slot unchanged")

	assert.Error(t, s.Set(5, alice), "out of range")
}

func TestSubstitution_Seed(t *testing.T) {
	s := NewSubstitution(3, func(i uint32) (rdf.Term, bool) {
		return p1, i == 1
	})

	_, ok := s.Get(0)
	assert.False(t, ok)
	got, ok := s.Get(1)
	assert.True(t, ok)
	assert.Equal(t, p1, got)

	f := FromTerms(3, []rdf.Term{alice})
	got, ok = f.Get(0)
	assert.True(t, ok)
	assert.Equal(t, alice, got)
	assert.False(t, f.IsTotal())
}

func TestSubstitution_Apply(t *testing.T) {
	s := FromTerms(2, []rdf.Term{p1})

	assert.Equal(t, Resource(p1), s.Apply(Var(0)))
	assert.Equal(t, Var(1), s.Apply(Var(1)), "unbound variable stays a variable")
	assert.Equal(t, Resource(alice), s.Apply(Resource(alice)))
}

func TestSubstitution_IntoTotal(t *testing.T) {
	s := NewSubstitution(3, nil)
	require.NoError(t, s.Set(1, alice))

	_, err := s.IntoTotal()
	var pse *PartialSubstitutionError
	require.True(t, errors.As(err, &pse))
	assert.Equal(t, []uint32{0, 2}, pse.Unset)

	require.NoError(t, s.Set(0, p1))
	require.NoError(t, s.Set(2, bob))
	terms, err := s.IntoTotal()
	require.NoError(t, err)
	assert.Equal(t, []rdf.Term{p1, alice, bob}, terms)
}

func TestSubstitution_CloneIsIndependent(t *testing.T) {
	s := NewSubstitution(1, nil)
	c := s.Clone()
	require.NoError(t, c.Set(0, alice))

	_, ok := s.Get(0)
	assert.False(t, ok)
}

func TestSubstitution_ExtendAndTruncate(t *testing.T) {
	s := FromTerms(1, []rdf.Term{p1})
	e := s.Extend(2)
	assert.Equal(t, 3, e.Len())
	require.NoError(t, e.Set(2, alice))
	assert.Equal(t, 1, s.Len(), "original untouched")

	tr := e.Truncate(1)
	assert.Equal(t, 1, tr.Len())
	got, _ := tr.Get(0)
	assert.Equal(t, p1, got)
}

func TestSubstitution_Unify(t *testing.T) {
	s := NewSubstitution(1, nil)
	assert.NoError(t, s.Unify(Resource(alice), alice))
	assert.Error(t, s.Unify(Resource(alice), bob))
	assert.NoError(t, s.Unify(Var(0), bob))
	assert.Error(t, s.Unify(Var(0), alice))
}

func TestQuad_Instantiate(t *testing.T) {
	name := rdf.IRI("http://example.org/name")
	q := NewQuad(Var(0), Resource(name), Var(1))

	s := FromTerms(2, []rdf.Term{p1, alice})
	got, err := q.Instantiate(s, rdf.DefaultGraph)
	require.NoError(t, err)
	assert.Equal(t, rdf.NewQuad(p1, name, alice, rdf.DefaultGraph), got)

	g := rdf.IRI("http://example.org/g")
	got, err = q.InGraph(Resource(g)).Instantiate(s, rdf.DefaultGraph)
	require.NoError(t, err)
	assert.Equal(t, g, got.Graph, "explicit graph wins over current")

	_, err = q.Instantiate(FromTerms(2, []rdf.Term{p1}), rdf.DefaultGraph)
	var pse *PartialSubstitutionError
	assert.True(t, errors.As(err, &pse))
}

func TestParseQuad(t *testing.T) {
	q, err := ParseQuad(`?0 <http://example.org/name> "Alice Smith" .`)
	require.NoError(t, err)
	assert.Equal(t, Var(0), q.Subject)
	assert.Equal(t, Resource(rdf.Literal("Alice Smith", "")), q.Object)
	assert.Nil(t, q.Graph)

	q, err = ParseQuad("?0 <urn:p> ?1 ?2")
	require.NoError(t, err)
	require.NotNil(t, q.Graph)
	assert.Equal(t, Var(2), *q.Graph)

	_, err = ParseQuad("?0 <urn:p>")
	assert.Error(t, err)
	_, err = ParseQuad(`?0 <urn:p> "open`)
	assert.Error(t, err)
}

func TestDataset_MaxVar(t *testing.T) {
	d := Dataset{
		NewQuad(Var(0), Resource(rdf.IRI("urn:p")), Var(3)),
		NewQuad(Var(1), Resource(rdf.IRI("urn:p")), Resource(alice)).InGraph(Var(5)),
	}
	assert.Equal(t, uint32(6), d.MaxVar())
	assert.True(t, d.Equal(d))
	assert.False(t, d.Equal(d[:1]))
}

func TestGraphSelector_Resolve(t *testing.T) {
	g := rdf.IRI("urn:g")
	current := rdf.IRI("urn:current")
	s := FromTerms(1, []rdf.Term{g})

	got, err := InheritGraph().Resolve(s, current)
	require.NoError(t, err)
	assert.Equal(t, current, got)

	got, err = DefaultGraph().Resolve(s, current)
	require.NoError(t, err)
	assert.Equal(t, rdf.DefaultGraph, got)

	got, err = ExplicitGraph(Var(0)).Resolve(s, current)
	require.NoError(t, err)
	assert.Equal(t, g, got)

	_, err = ExplicitGraph(Var(0)).Resolve(NewSubstitution(1, nil), current)
	assert.Error(t, err)
}
