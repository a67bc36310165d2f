package engine

import (
	"log/slog"

	"github.com/roach88/distill/internal/layout"
	"github.com/roach88/distill/internal/rdf"
)

// DefaultMaxDepth is the default maximum layout nesting depth of a call.
// It bounds recursion through self-referential layouts over cyclic data.
const DefaultMaxDepth = 512

// Engine evaluates layouts of one registry.
//
// Thread-safety model:
//   - Hydrate, Dehydrate and Type are safe from any goroutine.
//   - The registry and datasets are only read during a call.
//   - Each Dehydrate call draws fresh resources from its own generator.
type Engine struct {
	layouts  *layout.Registry
	maxDepth int
	newGen   func() rdf.Generator
	logger   *slog.Logger
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithMaxDepth sets the maximum nesting depth per call.
//
// Default: 512 (DefaultMaxDepth)
func WithMaxDepth(maxDepth int) Option {
	return func(e *Engine) {
		e.maxDepth = maxDepth
	}
}

// WithGenerator sets the factory of resource generators used by Dehydrate.
// The factory is called once per call.
//
// Default: rdf.UUIDGenerator
func WithGenerator(factory func() rdf.Generator) Option {
	return func(e *Engine) {
		e.newGen = factory
	}
}

// WithLogger sets the logger for per-layout debug output.
//
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine over the layouts of reg.
//
// reg must not be modified after the first call.
func New(reg *layout.Registry, opts ...Option) *Engine {
	e := &Engine{
		layouts:  reg,
		maxDepth: DefaultMaxDepth,
		newGen:   func() rdf.Generator { return rdf.UUIDGenerator{} },
	}

	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// Layouts returns the registry the engine evaluates.
func (e *Engine) Layouts() *layout.Registry {
	return e.layouts
}

// CallOption configures a single Hydrate or Dehydrate call.
type CallOption func(*callConfig)

type callConfig struct {
	graph  rdf.Term
	inputs []rdf.Term
}

// WithGraph sets the current graph of the root layout.
//
// Default: the default graph.
func WithGraph(graph rdf.Term) CallOption {
	return func(c *callConfig) {
		c.graph = graph
	}
}

// WithInputs presets the leading input resources of the root layout of a
// Dehydrate call. Inputs not preset receive fresh resources.
func WithInputs(inputs ...rdf.Term) CallOption {
	return func(c *callConfig) {
		c.inputs = inputs
	}
}

func newCallConfig(opts []CallOption) callConfig {
	c := callConfig{graph: rdf.DefaultGraph}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// lookup resolves ref, reporting UNKNOWN_LAYOUT.
func (e *Engine) lookup(ref layout.Ref) (layout.Layout, error) {
	l, ok := e.layouts.Get(ref)
	if !ok {
		return nil, NewUnknownLayoutError(ref)
	}
	return l, nil
}
