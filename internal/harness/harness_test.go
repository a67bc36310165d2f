package harness

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/distill/internal/value"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	return s
}

func TestRun_Scenarios(t *testing.T) {
	for _, name := range []string{"person.yaml", "team.yaml", "shapes.yaml"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_Trace(t *testing.T) {
	result, err := Run(loadScenario(t, "person.yaml"))
	require.NoError(t, err)
	require.Len(t, result.Trace, 4)

	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, OpHydrate, result.Trace[0].Op)
	assert.True(t, value.Equal(
		value.NewRecord(value.P("name", value.TextString("Alice")), value.P("age", value.Int(30))),
		result.Trace[0].Value,
	))

	assert.Equal(t, "MISSING_FIELD", result.Trace[1].Error)
	assert.Nil(t, result.Trace[1].Value)

	assert.Equal(t, OpDehydrate, result.Trace[2].Op)
	assert.Equal(t, []string{
		`_:b0 <http://example.org/name> "Bob" .`,
		`_:b0 <http://example.org/nick> "bobby" .`,
	}, result.Trace[2].Quads)

	assert.Len(t, result.Quads, 5)
	assert.Equal(t, `_:b0 <http://example.org/nick> "bobby" .`, result.Quads[4])
}

func TestRun_BackendsAgree(t *testing.T) {
	var quads [][]string
	for _, backend := range []string{BackendMemory, BackendSQLite, BackendBadger} {
		s := loadScenario(t, "person.yaml")
		s.Backend = backend
		result, err := Run(s)
		require.NoError(t, err, backend)
		assert.True(t, result.Pass, "%s: %v", backend, result.Errors)
		quads = append(quads, result.Quads)
	}
	assert.Equal(t, quads[0], quads[1])
	assert.Equal(t, quads[0], quads[2])
}

func TestRun_ReportsFailures(t *testing.T) {
	s := loadScenario(t, "person.yaml")
	s.Flow[0].Expect.Value = map[string]any{"name": "Eve"}
	s.Flow[1].Expect.Error = "NEVER"
	s.Flow[2].Expect.Quads = `_:b9 <http://example.org/name> "Bob" .`
	s.Flow[3].Expect = nil
	s.Flow = append(s.Flow, FlowStep{Hydrate: "person", Inputs: []string{"_:nobody"}})
	s.Assertions = []Assertion{{Type: AssertDatasetSize, Count: 1}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)

	assert.Contains(t, result.Errors[0], `flow[0]: hydrate person: expected {"name":"Eve"}`)
	assert.Contains(t, result.Errors[1], "flow[1]: hydrate person: expected error NEVER, got MISSING_FIELD")
	assert.Contains(t, result.Errors[2], "flow[2]: dehydrate person: expected quads")
	assert.Contains(t, result.Errors[3], "flow[4]: hydrate person failed")
	assert.Contains(t, result.Errors[3], "MISSING_FIELD")
	assert.Contains(t, result.Errors[4], "Assertion failed: dataset_size")
}

func TestRun_ExpectedErrorButSuccess(t *testing.T) {
	s := loadScenario(t, "person.yaml")
	s.Flow = s.Flow[:1]
	s.Flow[0].Expect = &ExpectClause{Error: "MISSING_DATA"}
	s.Assertions = nil

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected error MISSING_DATA, got success")
}

func TestRun_SetupErrors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(s *Scenario)
		wantErr string
	}{
		{"bad layouts", func(s *Scenario) { s.Layouts = "testdata/scenarios" }, "failed to load layouts"},
		{"bad dataset", func(s *Scenario) { s.Dataset = "not n-quads" }, "failed to parse dataset"},
		{"bad input", func(s *Scenario) { s.Flow[0].Inputs = []string{"p"} }, "flow step 0: input 0"},
		{"bad value", func(s *Scenario) { s.Flow[2].Value = map[string]any{"name": struct{}{}} }, "flow step 2: value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := loadScenario(t, "person.yaml")
			tt.modify(s)
			_, err := Run(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := RunWithLogger(loadScenario(t, "person.yaml"), logger)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "scenario completed")
	assert.Contains(t, buf.String(), "scenario=person_flow")
}

func TestConvertToValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want value.Value
	}{
		{"null", nil, value.Unit{}},
		{"string", "x", value.TextString("x")},
		{"bool", true, value.Boolean(true)},
		{"int", 3, value.Int(3)},
		{"float", 1.5, value.MustParseNumber("1.5")},
		{"list", []any{1, "a"}, value.NewList(value.Int(1), value.TextString("a"))},
		{"record", map[string]any{"k": false}, value.NewRecord(value.P("k", value.Boolean(false)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convertToValue(tt.in)
			require.NoError(t, err)
			assert.True(t, value.Equal(tt.want, got), "got %v", got)
		})
	}

	_, err := convertToValue([]any{map[string]any{"k": []int{1}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `[0]: field "k": unsupported type []int`)
}
