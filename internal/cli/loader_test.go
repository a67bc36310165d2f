package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/distill/internal/rdf"
)

func TestLoadLayouts(t *testing.T) {
	reg, err := LoadLayouts(testLayouts)
	require.NoError(t, err)
	assert.Len(t, reg.Refs(), 6)

	reg, err = LoadLayouts("testdata/invalid")
	require.NoError(t, err, "invalid layouts still compile")
	_, ok := reg.Get("card")
	assert.True(t, ok)
}

func TestLoadLayouts_Errors(t *testing.T) {
	empty := t.TempDir()
	noLayouts := filepath.Join(t.TempDir(), "x.cue")
	require.NoError(t, os.WriteFile(noLayouts, []byte("x: 1\n"), 0o644))

	tests := []struct {
		name    string
		path    string
		code    string
		message string
	}{
		{"missing path", "/nonexistent/layouts", ErrCodeNotFound, "layouts not found"},
		{"empty directory", empty, ErrCodeNoFiles, "no CUE files found"},
		{"no layouts field", noLayouts, ErrCodeLoadFailed, "layouts is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLayouts(tt.path)
			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr), "got %v", err)
			assert.Equal(t, tt.code, loadErr.Code)
			assert.Contains(t, loadErr.Message, tt.message)
		})
	}
}

func TestLoadError_Error(t *testing.T) {
	err := &LoadError{Code: ErrCodeNotFound, Message: "layouts not found: x"}
	assert.Equal(t, "E005: layouts not found: x", err.Error())
}

func TestFindCUEFiles(t *testing.T) {
	files, err := FindCUEFiles("testdata")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join("testdata", "layouts.cue"),
		filepath.Join("testdata", "invalid", "broken.cue"),
	}, files)
}

func TestOpenDataset_RequiresExactlyOneSource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name string
		file string
		opts DatasetOptions
	}{
		{"none", "", DatasetOptions{}},
		{"file and db", testPeople, DatasetOptions{DB: filepath.Join(dir, "q.db")}},
		{"db and kv", "", DatasetOptions{DB: filepath.Join(dir, "q.db"), KV: filepath.Join(dir, "kv")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := openDataset(ctx, nil, tt.file, nil, tt.opts)
			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, ErrCodeInvalidInput, loadErr.Code)
		})
	}
}

func TestOpenDataset_NQuads(t *testing.T) {
	ctx := context.Background()

	ds, err := openDataset(ctx, nil, testPeople, nil, DatasetOptions{})
	require.NoError(t, err)
	defer ds.close()
	assert.Nil(t, ds.insert, "N-Quads files are read-only")

	quads, err := ds.Match(rdf.QuadMatch{})
	require.NoError(t, err)
	assert.Len(t, quads, 5)

	stdin := strings.NewReader(`_:a <http://example.org/name> "A" .` + "\n")
	ds, err = openDataset(ctx, nil, "-", stdin, DatasetOptions{})
	require.NoError(t, err)
	quads, err = ds.Match(rdf.QuadMatch{})
	require.NoError(t, err)
	assert.Len(t, quads, 1)

	_, err = openDataset(ctx, nil, "testdata/missing.nq", nil, DatasetOptions{})
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestParseTerms(t *testing.T) {
	terms, err := parseTerms([]string{"<http://example.org/a>", "_:b", `"c"@en`})
	require.NoError(t, err)
	assert.Equal(t, []rdf.Term{
		rdf.IRI("http://example.org/a"),
		rdf.Blank("b"),
		rdf.LangLiteral("c", "en"),
	}, terms)

	_, err = parseTerms([]string{"<http://example.org/a>", "bare"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input 1")
}

func TestParseGraph(t *testing.T) {
	g, err := parseGraph("")
	require.NoError(t, err)
	assert.True(t, g.IsDefaultGraph())

	g, err = parseGraph("<http://example.org/g>")
	require.NoError(t, err)
	assert.Equal(t, rdf.IRI("http://example.org/g"), g)

	_, err = parseGraph(`"literal"`)
	assert.Error(t, err, "literals cannot name graphs")
}
