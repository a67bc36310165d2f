package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/person.yaml")
	require.NoError(t, err)

	assert.Equal(t, "person_flow", s.Name)
	assert.Equal(t, filepath.Join("testdata", "layouts.cue"), s.Layouts, "layouts resolved against the scenario directory")
	assert.Empty(t, s.Backend)
	require.Len(t, s.Flow, 4)

	op, ref := s.Flow[0].Op()
	assert.Equal(t, OpHydrate, op)
	assert.Equal(t, "person", ref)
	assert.Equal(t, []string{"_:p"}, s.Flow[0].Inputs)
	assert.Equal(t, map[string]any{"name": "Alice", "age": 30}, s.Flow[0].Expect.Value)

	op, ref = s.Flow[2].Op()
	assert.Equal(t, OpDehydrate, op)
	assert.Equal(t, "person", ref)
	assert.Contains(t, s.Flow[2].Expect.Quads, `"bobby"`)

	require.Len(t, s.Assertions, 4)
	assert.Equal(t, AssertDatasetSize, s.Assertions[0].Type)
	assert.Equal(t, 5, s.Assertions[0].Count)
}

func TestLoadScenario_AllTestdata(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			assert.NoError(t, err)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	layouts, err := filepath.Abs("testdata/layouts.cue")
	require.NoError(t, err)

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: d\nlayouts: " + layouts + "\nflows: []\n",
			wantErr: "field flows not found",
		},
		{
			name:    "missing name",
			content: "description: d\nlayouts: " + layouts + "\nflow: [{hydrate: person, inputs: [\"_:a\"]}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\nlayouts: " + layouts + "\nflow: [{hydrate: person, inputs: [\"_:a\"]}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing layouts",
			content: "name: x\ndescription: d\nflow: [{hydrate: person, inputs: [\"_:a\"]}]\n",
			wantErr: "layouts is required",
		},
		{
			name:    "layouts not found",
			content: "name: x\ndescription: d\nlayouts: nowhere.cue\nflow: [{hydrate: person, inputs: [\"_:a\"]}]\n",
			wantErr: "layouts not found",
		},
		{
			name:    "unknown backend",
			content: "name: x\ndescription: d\nlayouts: " + layouts + "\nbackend: postgres\nflow: [{hydrate: person, inputs: [\"_:a\"]}]\n",
			wantErr: `unknown backend "postgres"`,
		},
		{
			name:    "empty",
			content: "name: x\ndescription: d\nlayouts: " + layouts + "\n",
			wantErr: "flow or assertions must be non-empty",
		},
		{
			name:    "both ops",
			content: "name: x\ndescription: d\nlayouts: " + layouts + "\nflow: [{hydrate: person, dehydrate: person, inputs: [\"_:a\"]}]\n",
			wantErr: "flow[0]: exactly one of hydrate and dehydrate",
		},
		{
			name:    "hydrate without inputs",
			content: "name: x\ndescription: d\nlayouts: " + layouts + "\nflow: [{hydrate: person}]\n",
			wantErr: "flow[0]: inputs are required",
		},
		{
			name:    "dehydrate without value",
			content: "name: x\ndescription: d\nlayouts: " + layouts + "\nflow: [{dehydrate: person}]\n",
			wantErr: "flow[0]: value is required",
		},
		{
			name:    "error and value",
			content: "name: x\ndescription: d\nlayouts: " + layouts + "\nflow: [{hydrate: person, inputs: [\"_:a\"], expect: {error: NEVER, value: 1}}]\n",
			wantErr: "error excludes value",
		},
		{
			name:    "unknown assertion",
			content: "name: x\ndescription: d\nlayouts: " + layouts + "\nassertions: [{type: final_state}]\n",
			wantErr: `unknown assertion type "final_state"`,
		},
		{
			name:    "round trip without value",
			content: "name: x\ndescription: d\nlayouts: " + layouts + "\nassertions: [{type: round_trip, layout: person}]\n",
			wantErr: "value is required for round_trip",
		},
		{
			name:    "trace count without op",
			content: "name: x\ndescription: d\nlayouts: " + layouts + "\nassertions: [{type: trace_count, layout: person}]\n",
			wantErr: "op must be hydrate or dehydrate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scenario.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
