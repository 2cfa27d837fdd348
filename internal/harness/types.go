package harness

import (
	"github.com/roach88/flowgraph/internal/value"
)

// TraceEvent is one signal observed on an entity property.
type TraceEvent struct {
	// Step is the 1-based index of the step that caused the signal.
	Step int `json:"step"`

	// Target is "entity.property".
	Target string `json:"target"`

	// Value is the signal payload.
	Value value.Value `json:"value"`

	// Depth is the propagation depth at which the signal was delivered;
	// 1 for the signal sent by the step itself.
	Depth int `json:"depth"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Trace contains every recorded signal, grouped by step. Within a step
	// events are ordered by target, depth and canonical value.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State holds the final value of every entity property,
	// keyed by "entity.property".
	State map[string]value.Value `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]value.Value),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Count returns the number of trace events for target.
func (r *Result) Count(target string) int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Target == target {
			n++
		}
	}
	return n
}
