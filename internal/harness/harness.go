package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/distill/internal/compiler"
	"github.com/roach88/distill/internal/engine"
	"github.com/roach88/distill/internal/kv"
	"github.com/roach88/distill/internal/layout"
	"github.com/roach88/distill/internal/rdf"
	"github.com/roach88/distill/internal/store"
	"github.com/roach88/distill/internal/value"
)

// Harness is the scenario execution state.
type Harness struct {
	engine  *engine.Engine
	dataset backend
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh dataset for isolation. A scenario
// that cannot be set up (unloadable layouts, invalid terms or values)
// returns an error; failed expectations and assertions are reported in
// the result.
//
// Execution flow:
// 1. Load and validate the layout registry
// 2. Open the backend and load the seed dataset
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions against the final dataset and trace
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with engine and harness logging sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	ctx := context.Background()

	reg, err := compiler.Load(scenario.Layouts)
	if err != nil {
		return nil, fmt.Errorf("failed to load layouts: %w", err)
	}
	if errs := compiler.Validate(reg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid layouts: %w", errs[0])
	}

	ds, err := openBackend(ctx, scenario.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", scenario.Backend, err)
	}
	defer ds.close()

	seed, err := rdf.ReadNQuads(strings.NewReader(scenario.Dataset))
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	if err := ds.insert(ctx, seed.Quads()); err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	// One generator for the whole scenario so resources never collide
	// across dehydrate steps.
	gen := rdf.NewBlankGenerator("b")
	h := &Harness{
		engine: engine.New(reg,
			engine.WithGenerator(func() rdf.Generator { return gen }),
			engine.WithLogger(logger),
		),
		dataset: ds,
		logger:  logger,
	}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	final, err := ds.quads()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	for _, q := range final {
		result.Quads = append(result.Quads, q.String())
	}

	actx := &AssertionContext{Engine: h.engine, Dataset: rdf.NewMemory(final...)}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"steps", len(result.Trace),
		"quads", len(final),
		"pass", result.Pass,
	)
	return result, nil
}

// executeFlow runs all flow steps and validates expect clauses.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		inputs, err := parseTerms(step.Inputs)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		var opts []engine.CallOption
		if step.Graph != "" {
			opts = append(opts, engine.WithGraph(rdf.IRI(step.Graph)))
		}

		op, ref := step.Op()
		event := TraceEvent{Op: op, Layout: ref, Inputs: step.Inputs}

		switch op {
		case OpHydrate:
			err = h.hydrate(i, step, inputs, opts, &event, result)
		case OpDehydrate:
			if len(inputs) > 0 {
				opts = append(opts, engine.WithInputs(inputs...))
			}
			err = h.dehydrate(ctx, i, step, opts, &event, result)
		}
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		result.AddTrace(event)

		h.logger.Debug("flow step completed",
			"step", i,
			"op", op,
			"layout", ref,
			"error", event.Error,
		)
	}
	return nil
}

func (h *Harness) hydrate(i int, step FlowStep, inputs []rdf.Term, opts []engine.CallOption, event *TraceEvent, result *Result) error {
	typed, evalErr := h.engine.Hydrate(h.dataset, layout.Ref(step.Hydrate), inputs, opts...)
	if evalErr != nil {
		event.Error = errorCode(evalErr)
		checkError(i, step, evalErr, result)
		return nil
	}
	got := typed.IntoUntyped()
	event.Value = got
	if !checkError(i, step, nil, result) {
		return nil
	}

	if step.Expect != nil && step.Expect.Value != nil {
		want, err := convertToValue(step.Expect.Value)
		if err != nil {
			return fmt.Errorf("expected value: %w", err)
		}
		if !value.Equal(want, got) {
			result.AddError(fmt.Sprintf("flow[%d]: hydrate %s: expected %s, got %s",
				i, step.Hydrate, renderValue(want), renderValue(got)))
		}
	}
	return nil
}

func (h *Harness) dehydrate(ctx context.Context, i int, step FlowStep, opts []engine.CallOption, event *TraceEvent, result *Result) error {
	v, err := convertToValue(step.Value)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	event.Value = v

	out, evalErr := h.engine.DehydrateValue(v, layout.Ref(step.Dehydrate), opts...)
	if evalErr != nil {
		event.Error = errorCode(evalErr)
		checkError(i, step, evalErr, result)
		return nil
	}

	quads := out.Dataset.Quads()
	for _, q := range quads {
		event.Quads = append(event.Quads, q.String())
	}
	if err := h.dataset.insert(ctx, quads); err != nil {
		return fmt.Errorf("insert dehydrated quads: %w", err)
	}
	if !checkError(i, step, nil, result) {
		return nil
	}

	if step.Expect != nil && step.Expect.Quads != "" {
		want, err := rdf.ReadNQuads(strings.NewReader(step.Expect.Quads))
		if err != nil {
			return fmt.Errorf("expected quads: %w", err)
		}
		if !equalQuads(want.Quads(), quads) {
			result.AddError(fmt.Sprintf("flow[%d]: dehydrate %s: expected quads\n%s\ngot\n%s",
				i, step.Dehydrate, renderQuads(want.Quads()), renderQuads(quads)))
		}
	}
	return nil
}

// checkError compares a step's error against its expect clause, recording
// a failure. Returns true when the step succeeded as expected.
func checkError(i int, step FlowStep, err error, result *Result) bool {
	op, ref := step.Op()
	wantCode := ""
	if step.Expect != nil {
		wantCode = step.Expect.Error
	}

	switch {
	case err == nil && wantCode == "":
		return true
	case err == nil:
		result.AddError(fmt.Sprintf("flow[%d]: %s %s: expected error %s, got success", i, op, ref, wantCode))
	case wantCode == "":
		result.AddError(fmt.Sprintf("flow[%d]: %s %s failed: %v", i, op, ref, err))
	case errorCode(err) != wantCode:
		result.AddError(fmt.Sprintf("flow[%d]: %s %s: expected error %s, got %s: %v", i, op, ref, wantCode, errorCode(err), err))
	}
	return false
}

func errorCode(err error) string {
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	return err.Error()
}

func parseTerms(terms []string) ([]rdf.Term, error) {
	out := make([]rdf.Term, len(terms))
	for i, s := range terms {
		t, err := rdf.ParseTerm(s)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}

func equalQuads(a, b []rdf.Quad) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func renderQuads(quads []rdf.Quad) string {
	lines := make([]string, len(quads))
	for i, q := range quads {
		lines[i] = "  " + q.String()
	}
	return strings.Join(lines, "\n")
}

func renderValue(v value.Value) string {
	data, err := value.MarshalJSON(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// convertToValue converts a YAML-parsed value to a Value.
// YAML null becomes Unit; numbers are kept exact.
func convertToValue(val any) (value.Value, error) {
	switch v := val.(type) {
	case nil:
		return value.Unit{}, nil
	case string:
		return value.TextString(v), nil
	case bool:
		return value.Boolean(v), nil
	case int:
		return value.Int(int64(v)), nil
	case int64:
		return value.Int(v), nil
	case uint64:
		return value.ParseNumber(strconv.FormatUint(v, 10))
	case float64:
		return value.ParseNumber(strconv.FormatFloat(v, 'g', -1, 64))
	case []any:
		l := make(value.List, len(v))
		for i, elem := range v {
			ev, err := convertToValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			l[i] = ev
		}
		return l, nil
	case map[string]any:
		r := make(value.Record, len(v))
		for key, elem := range v {
			ev, err := convertToValue(elem)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			r[key] = ev
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}

// backend is a mutable dataset the flow reads and writes.
type backend interface {
	rdf.Dataset
	insert(ctx context.Context, quads []rdf.Quad) error
	quads() ([]rdf.Quad, error)
	close() error
}

func openBackend(ctx context.Context, name string) (backend, error) {
	switch name {
	case "", BackendMemory:
		return memoryBackend{rdf.NewMemory()}, nil
	case BackendSQLite:
		s, err := store.Open(":memory:")
		if err != nil {
			return nil, err
		}
		return &sqliteBackend{s: s, View: s.View(ctx), ctx: ctx}, nil
	case BackendBadger:
		db, err := kv.OpenInMemory()
		if err != nil {
			return nil, err
		}
		return badgerBackend{db}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

type memoryBackend struct {
	*rdf.Memory
}

func (b memoryBackend) insert(_ context.Context, quads []rdf.Quad) error {
	b.Insert(quads...)
	return nil
}

func (b memoryBackend) quads() ([]rdf.Quad, error) { return b.Quads(), nil }
func (memoryBackend) close() error                 { return nil }

type sqliteBackend struct {
	*store.View
	s   *store.Store
	ctx context.Context
}

func (b *sqliteBackend) insert(ctx context.Context, quads []rdf.Quad) error {
	_, err := b.s.Insert(ctx, quads...)
	return err
}

func (b *sqliteBackend) quads() ([]rdf.Quad, error) { return b.s.Quads(b.ctx) }
func (b *sqliteBackend) close() error               { return b.s.Close() }

type badgerBackend struct {
	*kv.DB
}

func (b badgerBackend) insert(ctx context.Context, quads []rdf.Quad) error {
	_, err := b.Insert(ctx, quads...)
	return err
}

func (b badgerBackend) quads() ([]rdf.Quad, error) { return b.Quads() }
func (b badgerBackend) close() error               { return b.Close() }
