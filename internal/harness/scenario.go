package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a codec conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Layouts is the compiled layout directory or .cue file.
	// Relative paths are resolved against the scenario file's directory.
	Layouts string `yaml:"layouts"`

	// Backend selects the dataset: "memory" (default), "sqlite" or "badger".
	Backend string `yaml:"backend,omitempty"`

	// Dataset is N-Quads text loaded before the flow runs.
	Dataset string `yaml:"dataset,omitempty"`

	// Flow contains the hydrate and dehydrate steps, run in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final dataset and trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// FlowStep is a single hydrate or dehydrate call. Exactly one of Hydrate
// and Dehydrate names the layout.
type FlowStep struct {
	Hydrate   string `yaml:"hydrate,omitempty"`
	Dehydrate string `yaml:"dehydrate,omitempty"`

	// Inputs are the top-level input terms in N-Quads syntax. Optional for
	// dehydrate, where missing inputs are generated.
	Inputs []string `yaml:"inputs,omitempty"`

	// Graph is the root graph IRI. Empty means the default graph.
	Graph string `yaml:"graph,omitempty"`

	// Value is the value to dehydrate.
	Value any `yaml:"value,omitempty"`

	// Expect specifies the expected outcome. If nil the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// Op returns the step's operation and layout.
func (s FlowStep) Op() (op, layout string) {
	if s.Hydrate != "" {
		return OpHydrate, s.Hydrate
	}
	return OpDehydrate, s.Dehydrate
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Error is the expected engine error code (e.g. "MISSING_DATA").
	// When set, the step must fail with that code.
	Error string `yaml:"error,omitempty"`

	// Value is the exact value a hydrate step must produce.
	Value any `yaml:"value,omitempty"`

	// Quads is the exact N-Quads output of a dehydrate step, in order.
	Quads string `yaml:"quads,omitempty"`
}

// Assertion validates the dataset or trace after the flow.
type Assertion struct {
	// Type specifies the assertion type:
	// - "round_trip": Value survives dehydrate then hydrate under Layout
	// - "dataset_contains": Quads are all in the final dataset
	// - "dataset_size": the final dataset holds exactly Count quads
	// - "trace_count": exactly Count steps ran Op on Layout
	Type string `yaml:"type"`

	// Layout is the layout reference (round_trip, trace_count).
	Layout string `yaml:"layout,omitempty"`

	// Value is the value to round trip (round_trip).
	Value any `yaml:"value,omitempty"`

	// Quads is N-Quads text (dataset_contains).
	Quads string `yaml:"quads,omitempty"`

	// Op is "hydrate" or "dehydrate" (trace_count).
	Op string `yaml:"op,omitempty"`

	// Count is the expected number (dataset_size, trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRoundTrip       = "round_trip"
	AssertDatasetContains = "dataset_contains"
	AssertDatasetSize     = "dataset_size"
	AssertTraceCount      = "trace_count"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the layouts path BEFORE validation
	if scenario.Layouts != "" && !filepath.IsAbs(scenario.Layouts) {
		scenario.Layouts = filepath.Join(filepath.Dir(path), scenario.Layouts)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Layouts == "" {
		return fmt.Errorf("layouts is required")
	}
	if _, err := os.Stat(s.Layouts); os.IsNotExist(err) {
		return fmt.Errorf("layouts not found: %s", s.Layouts)
	}

	switch s.Backend {
	case "", BackendMemory, BackendSQLite, BackendBadger:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}

	if len(s.Flow) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("flow or assertions must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s *FlowStep) error {
	if (s.Hydrate == "") == (s.Dehydrate == "") {
		return fmt.Errorf("flow[%d]: exactly one of hydrate and dehydrate is required", index)
	}
	if s.Hydrate != "" {
		if len(s.Inputs) == 0 {
			return fmt.Errorf("flow[%d]: inputs are required for hydrate", index)
		}
		if s.Value != nil {
			return fmt.Errorf("flow[%d]: value is only allowed for dehydrate", index)
		}
		if s.Expect != nil && s.Expect.Quads != "" {
			return fmt.Errorf("flow[%d].expect: quads is only allowed for dehydrate", index)
		}
	} else {
		if s.Value == nil {
			return fmt.Errorf("flow[%d]: value is required for dehydrate", index)
		}
		if s.Expect != nil && s.Expect.Value != nil {
			return fmt.Errorf("flow[%d].expect: value is only allowed for hydrate", index)
		}
	}
	if s.Expect != nil && s.Expect.Error != "" && (s.Expect.Value != nil || s.Expect.Quads != "") {
		return fmt.Errorf("flow[%d].expect: error excludes value and quads", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRoundTrip:
		if a.Layout == "" {
			return fmt.Errorf("assertions[%d]: layout is required for round_trip", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for round_trip", index)
		}
	case AssertDatasetContains:
		if a.Quads == "" {
			return fmt.Errorf("assertions[%d]: quads are required for dataset_contains", index)
		}
	case AssertDatasetSize:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for dataset_size", index)
		}
	case AssertTraceCount:
		if a.Op != OpHydrate && a.Op != OpDehydrate {
			return fmt.Errorf("assertions[%d]: op must be hydrate or dehydrate for trace_count", index)
		}
		if a.Layout == "" {
			return fmt.Errorf("assertions[%d]: layout is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
