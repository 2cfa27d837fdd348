package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/flowgraph/internal/value"
)

// TraceSnapshot captures the trace and final state of a scenario execution.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	State        map[string]value.Value
}

// Value converts the snapshot to a value for canonical JSON serialization.
func (s *TraceSnapshot) Value() value.Value {
	trace := make(value.Array, len(s.Trace))
	for i, ev := range s.Trace {
		trace[i] = value.Object{
			"step":   value.Int(ev.Step),
			"target": value.String(ev.Target),
			"value":  ev.Value,
			"depth":  value.Int(ev.Depth),
		}
	}

	state := make(value.Object, len(s.State))
	for k, v := range s.State {
		state[k] = v
	}

	return value.Object{
		"scenario": value.String(s.ScenarioName),
		"trace":    trace,
		"state":    state,
	}
}

// Marshal returns the canonical JSON of the snapshot.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	return value.MarshalCanonical(s.Value())
}

// Snapshot builds the snapshot of result under name.
func Snapshot(name string, result *Result) *TraceSnapshot {
	return &TraceSnapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		State:        result.State,
	}
}

// RunWithGolden executes a scenario and compares the snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result).Marshal()
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
