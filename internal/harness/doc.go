// Package harness runs propagation scenarios against reactive entities and
// records the signals they produce.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	catalog: ../catalog        # optional CUE type declarations
//	max_depth: 8               # optional propagation depth budget
//	entities:
//	  - name: a
//	    type: test::Cell
//	    properties: { value: 0 }
//	connectors:
//	  - from: a.value
//	    to: b.value
//	    function: to_string    # optional; identity when empty
//	steps:
//	  - action: set
//	    target: a.value
//	    value: 5
//	  - action: tick
//	    target: b
//	assertions:
//	  - type: trace_contains
//	    target: b.value
//	    value: "5"
//	  - type: trace_count
//	    target: b.value
//	    count: 1
//	  - type: final_state
//	    target: b.value
//	    value: "5"
//
// # Step Actions
//
//   - set, set_checked, set_no_propagate, send: write value to target
//   - tick, tick_checked: re-send the current value of a property, of every
//     property of an entity, or of every entity when target is empty
//
// # Deterministic Testing
//
// Entities without an explicit id are numbered in declaration order, and
// the events of each step are sorted, so the same scenario always produces
// the same snapshot for golden file comparison.
package harness
