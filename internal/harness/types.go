package harness

import "github.com/roach88/distill/internal/value"

// Step operations.
const (
	OpHydrate   = "hydrate"
	OpDehydrate = "dehydrate"
)

// TraceEvent records one executed flow step.
type TraceEvent struct {
	Seq    int64    `json:"seq"`
	Op     string   `json:"op"` // "hydrate" or "dehydrate"
	Layout string   `json:"layout"`
	Inputs []string `json:"inputs,omitempty"`

	// Value is the hydrated value, or the value given to dehydrate.
	// Golden snapshots render it as canonical JSON.
	Value value.Value `json:"-"`

	// Quads are the N-Quads lines a dehydrate step produced.
	Quads []string `json:"quads,omitempty"`

	// Error is the engine error code when the step failed.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Quads is the final dataset as N-Quads lines, in dataset order.
	Quads []string `json:"quads"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Quads:  []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace, numbering it.
func (r *Result) AddTrace(event TraceEvent) {
	event.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, event)
}
