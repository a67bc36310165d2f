package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/distill/internal/engine"
	"github.com/roach88/distill/internal/layout"
	"github.com/roach88/distill/internal/rdf"
	"github.com/roach88/distill/internal/value"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			status := "ok"
			if event.Error != "" {
				status = event.Error
			}
			fmt.Fprintf(&buf, "  [%d] %s %s %v: %s\n", event.Seq, event.Op, event.Layout, event.Inputs, status)
		}
	}

	return buf.String()
}

// assertRoundTrip dehydrates the value into a scratch dataset and checks
// that hydrating it back yields the same value.
func assertRoundTrip(eng *engine.Engine, assertion Assertion) error {
	v, err := convertToValue(assertion.Value)
	if err != nil {
		return fmt.Errorf("round_trip: value: %w", err)
	}
	ref := layout.Ref(assertion.Layout)

	out, err := eng.DehydrateValue(v, ref)
	if err != nil {
		return &AssertionError{
			Type:     AssertRoundTrip,
			Expected: fmt.Sprintf("%s to dehydrate under %s", renderValue(v), ref),
			Actual:   err.Error(),
		}
	}

	back, err := eng.Hydrate(out.Dataset, ref, out.Inputs)
	if err != nil {
		return &AssertionError{
			Type:     AssertRoundTrip,
			Expected: fmt.Sprintf("dehydrated %s to hydrate under %s", renderValue(v), ref),
			Actual:   err.Error(),
		}
	}

	if got := back.IntoUntyped(); !value.Equal(v, got) {
		return &AssertionError{
			Type:     AssertRoundTrip,
			Expected: renderValue(v),
			Actual:   renderValue(got),
		}
	}
	return nil
}

// assertDatasetContains checks that every listed quad is in the dataset.
func assertDatasetContains(ds *rdf.Memory, assertion Assertion) error {
	want, err := rdf.ReadNQuads(strings.NewReader(assertion.Quads))
	if err != nil {
		return fmt.Errorf("dataset_contains: %w", err)
	}
	for _, q := range want.Quads() {
		if !ds.Contains(q) {
			return &AssertionError{
				Type:     AssertDatasetContains,
				Expected: q.String(),
				Actual:   fmt.Sprintf("not found among %d quads", ds.Len()),
			}
		}
	}
	return nil
}

// assertDatasetSize checks the number of quads in the dataset.
func assertDatasetSize(ds *rdf.Memory, assertion Assertion) error {
	if ds.Len() != assertion.Count {
		return &AssertionError{
			Type:     AssertDatasetSize,
			Expected: fmt.Sprintf("%d quads", assertion.Count),
			Actual:   fmt.Sprintf("%d quads", ds.Len()),
		}
	}
	return nil
}

// assertTraceCount checks how many steps ran the op on the layout.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == assertion.Op && event.Layout == assertion.Layout {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s steps on %s", assertion.Count, assertion.Op, assertion.Layout),
			Actual:   fmt.Sprintf("%d steps", count),
			Trace:    trace,
		}
	}
	return nil
}

// AssertionContext provides what assertions evaluate against.
type AssertionContext struct {
	Engine  *engine.Engine
	Dataset *rdf.Memory
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRoundTrip:
			if actx == nil || actx.Engine == nil {
				err = fmt.Errorf("assertion[%d]: round_trip requires an engine", i)
			} else {
				err = assertRoundTrip(actx.Engine, assertion)
			}
		case AssertDatasetContains, AssertDatasetSize:
			if actx == nil || actx.Dataset == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a dataset", i, assertion.Type)
			} else if assertion.Type == AssertDatasetContains {
				err = assertDatasetContains(actx.Dataset, assertion)
			} else {
				err = assertDatasetSize(actx.Dataset, assertion)
			}
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
