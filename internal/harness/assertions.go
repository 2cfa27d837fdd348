package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/flowgraph/internal/value"
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
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s = %s (depth %d)\n", ev.Step, ev.Target, render(ev.Value), ev.Depth)
		}
	}

	return buf.String()
}

func render(v value.Value) string {
	b, err := value.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// EvaluateAssertions checks every assertion against the result and returns
// the failure messages in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertFinalState:
		return assertFinalState(result.State, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// expected decodes the assertion value; ok is false when none was given.
func expected(a Assertion) (value.Value, bool, error) {
	if a.Value.Kind == 0 {
		return nil, false, nil
	}
	v, err := value.FromYAML(&a.Value)
	if err != nil {
		return nil, false, fmt.Errorf("value: %w", err)
	}
	return v, true, nil
}

// assertTraceContains checks that the trace has a signal for the target,
// carrying the expected value when one is given.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	want, hasValue, err := expected(a)
	if err != nil {
		return err
	}

	for _, ev := range trace {
		if ev.Target != a.Target {
			continue
		}
		if !hasValue || value.Equal(ev.Value, want) {
			return nil
		}
	}

	exp := fmt.Sprintf("signal on %s", a.Target)
	if hasValue {
		exp += " with value " + render(want)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: exp,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceCount checks the target received exactly the given number of signals.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Target == a.Target {
			count++
		}
	}

	if count != *a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d signals on %s", *a.Count, a.Target),
			Actual:   fmt.Sprintf("%d signals", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks the value the target holds after the last step.
func assertFinalState(state map[string]value.Value, a Assertion) error {
	want, _, err := expected(a)
	if err != nil {
		return err
	}

	got, ok := state[a.Target]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %s", a.Target, render(want)),
			Actual:   "no such property",
		}
	}
	if !value.Equal(got, want) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %s", a.Target, render(want)),
			Actual:   render(got),
		}
	}
	return nil
}
