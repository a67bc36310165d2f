package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/distill/internal/engine"
	"github.com/roach88/distill/internal/rdf"
	"github.com/roach88/distill/internal/testutil"
	"github.com/roach88/distill/internal/value"
)

func createTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

var (
	alice = rdf.IRI("http://example.org/alice")
	bob   = rdf.Blank("bob")
	name  = rdf.IRI("http://example.org/name")
	knows = rdf.IRI("http://example.org/knows")
	graph = rdf.IRI("http://example.org/g")
)

func sampleQuads() []rdf.Quad {
	return []rdf.Quad{
		rdf.NewQuad(alice, name, rdf.Literal("Alice", rdf.XSDString), rdf.DefaultGraph),
		rdf.NewQuad(alice, knows, bob, rdf.DefaultGraph),
		rdf.NewQuad(bob, name, rdf.LangLiteral("Bob", "en"), graph),
		rdf.NewQuad(bob, name, rdf.Literal("Bob", rdf.XSDString), graph),
	}
}

func TestInsert_RoundTripsTerms(t *testing.T) {
	db := createTestDB(t)

	n, err := db.Insert(context.Background(), sampleQuads()...)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := db.Quads()
	require.NoError(t, err)
	assert.Equal(t, sampleQuads(), got)

	count, err := db.Len()
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestInsert_Idempotent(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()

	quads := sampleQuads()
	_, err := db.Insert(ctx, quads[2], quads[3])
	require.NoError(t, err)

	n, err := db.Insert(ctx, quads...)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "duplicates are skipped")

	got, err := db.Quads()
	require.NoError(t, err)
	assert.Equal(t, []rdf.Quad{quads[2], quads[3], quads[0], quads[1]}, got, "duplicates keep their first position")
}

func TestInsert_DuplicatesWithinBatch(t *testing.T) {
	db := createTestDB(t)
	q := sampleQuads()[0]

	n, err := db.Insert(context.Background(), q, q, q)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInsert_RejectsInvalidQuads(t *testing.T) {
	db := createTestDB(t)
	lit := rdf.Literal("x", rdf.XSDString)

	_, err := db.Insert(context.Background(), sampleQuads()[0], rdf.NewQuad(lit, name, lit, rdf.DefaultGraph))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quad 1")

	n, err := db.Len()
	require.NoError(t, err)
	assert.Zero(t, n, "nothing is written when a quad is invalid")
}

func TestInsert_CancelledContext(t *testing.T) {
	db := createTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.Insert(ctx, sampleQuads()...)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMatch(t *testing.T) {
	db := createTestDB(t)
	_, err := db.Insert(context.Background(), sampleQuads()...)
	require.NoError(t, err)

	quads := sampleQuads()
	dflt := rdf.DefaultGraph
	bobEN := rdf.LangLiteral("Bob", "en")
	unknown := rdf.IRI("http://example.org/unknown")

	tests := []struct {
		name string
		m    rdf.QuadMatch
		want []rdf.Quad
	}{
		{"all", rdf.QuadMatch{}, quads},
		{"by subject", rdf.QuadMatch{Subject: &bob}, quads[2:]},
		{"by predicate", rdf.QuadMatch{Predicate: &name}, []rdf.Quad{quads[0], quads[2], quads[3]}},
		{"by object resource", rdf.QuadMatch{Object: &bob}, quads[1:2]},
		{"literal object needs language", rdf.QuadMatch{Object: &bobEN}, quads[2:3]},
		{"default graph", rdf.QuadMatch{Graph: &dflt}, quads[:2]},
		{"named graph and subject", rdf.QuadMatch{Graph: &graph, Subject: &bob}, quads[2:]},
		{"subject and object", rdf.QuadMatch{Subject: &alice, Object: &bob}, quads[1:2]},
		{"predicate and graph", rdf.QuadMatch{Predicate: &name, Graph: &graph}, quads[2:]},
		{"fully bound", rdf.QuadMatch{Subject: &bob, Predicate: &name, Object: &bobEN, Graph: &graph}, quads[2:3]},
		{"no match", rdf.QuadMatch{Subject: &alice, Graph: &graph}, []rdf.Quad{}},
		{"unknown term", rdf.QuadMatch{Predicate: &unknown}, []rdf.Quad{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Match(tt.m)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// Same answer as the in-memory dataset.
			mem, err := rdf.NewMemory(quads...).Match(tt.m)
			require.NoError(t, err)
			assert.ElementsMatch(t, mem, got)
		})
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	quads := sampleQuads()

	db, err := Open(dir)
	require.NoError(t, err)
	_, err = db.Insert(ctx, quads[:2]...)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	n, err := db.Insert(ctx, quads...)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "terms and quads survive reopening")

	got, err := db.Quads()
	require.NoError(t, err)
	assert.Equal(t, quads, got, "sequence numbers keep increasing after reopening")
}

func TestLoad(t *testing.T) {
	db := createTestDB(t)
	_, err := db.Insert(context.Background(), sampleQuads()...)
	require.NoError(t, err)

	mem, err := db.Load()
	require.NoError(t, err)
	assert.Equal(t, sampleQuads(), mem.Quads())
}

func TestClose_Nil(t *testing.T) {
	var db *DB
	assert.NoError(t, db.Close())
}

func TestHydrate(t *testing.T) {
	db := createTestDB(t)

	e := engine.New(testutil.Registry(), engine.WithGenerator(testutil.Blanks()))
	v := value.NewRecord(
		value.P("members", value.NewList(value.TextString("a"), value.TextString("b"), value.TextString("c"))),
		value.P("lead", value.NewRecord(value.P("name", value.TextString("Alice")))),
	)
	out, err := e.DehydrateValue(v, testutil.TeamRef)
	require.NoError(t, err)
	_, err = db.Insert(context.Background(), out.Dataset.Quads()...)
	require.NoError(t, err)

	got, err := e.Hydrate(db, testutil.TeamRef, out.Inputs)
	require.NoError(t, err)
	assert.True(t, value.Equal(v, got.IntoUntyped()))
}
