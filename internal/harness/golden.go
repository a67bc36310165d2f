package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/distill/internal/value"
)

// TraceSnapshot captures the observable outcome of a scenario execution.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Quads        []string
}

// toValue converts the snapshot to a Value for canonical JSON
// serialization.
func (s *TraceSnapshot) toValue() value.Value {
	trace := make(value.List, len(s.Trace))
	for i, event := range s.Trace {
		ev := value.NewRecord(
			value.P("seq", value.Int(event.Seq)),
			value.P("op", value.TextString(event.Op)),
			value.P("layout", value.TextString(event.Layout)),
		)
		if len(event.Inputs) > 0 {
			ev["inputs"] = textList(event.Inputs)
		}
		if event.Value != nil {
			ev["value"] = event.Value
		}
		if len(event.Quads) > 0 {
			ev["quads"] = textList(event.Quads)
		}
		if event.Error != "" {
			ev["error"] = value.TextString(event.Error)
		}
		trace[i] = ev
	}

	return value.NewRecord(
		value.P("scenario_name", value.TextString(s.ScenarioName)),
		value.P("trace", trace),
		value.P("quads", textList(s.Quads)),
	)
}

func textList(ss []string) value.List {
	l := make(value.List, len(ss))
	for i, s := range ss {
		l[i] = value.TextString(s)
	}
	return l
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails or a value cannot be rendered
// as JSON (byte strings, non-finite numbers).
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

// Snapshot renders the golden form of result as canonical JSON.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Quads:        result.Quads,
	}
	data, err := value.MarshalJSON(snapshot.toValue())
	if err != nil {
		return nil, fmt.Errorf("render snapshot: %w", err)
	}
	return data, nil
}
