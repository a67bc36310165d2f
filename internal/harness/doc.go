// Package harness runs codec conformance scenarios.
//
// A scenario loads a compiled layout registry, seeds a dataset, then runs
// a flow of hydrate and dehydrate steps against it. Dehydrated quads are
// added to the same dataset, so later steps read what earlier steps wrote.
// Assertions check the final dataset, the trace of steps, and the
// dehydrate/hydrate round trip of individual values.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: team_round_trip
//	description: "A team written and read back"
//	layouts: ../layouts        # directory or .cue file, relative to the scenario
//	backend: sqlite            # memory (default), sqlite or badger
//	dataset: |
//	  _:t <http://example.org/lead> _:p .
//	flow:
//	  - hydrate: person
//	    inputs: ["_:p"]
//	    expect:
//	      value: { name: "Alice" }
//	  - dehydrate: person
//	    value: { name: "Bob" }
//	    expect:
//	      quads: |
//	        _:b0 <http://example.org/name> "Bob" .
//	assertions:
//	  - type: dataset_contains
//	    quads: |
//	      _:b0 <http://example.org/name> "Bob" .
//	  - type: round_trip
//	    layout: person
//	    value: { name: "Carol" }
//
// # Assertion Types
//
//   - round_trip: dehydrating value then hydrating the result gives value back
//   - dataset_contains: every listed quad is in the final dataset
//   - dataset_size: the final dataset holds exactly count quads
//   - trace_count: the trace holds exactly count steps of op on layout
//
// # Deterministic Testing
//
// Fresh resources are sequential blank nodes (_:b0, _:b1, ...) shared across
// the whole scenario, so dehydrated quads and golden traces are stable.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/team.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
