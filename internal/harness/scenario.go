package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/flowgraph/internal/connector"
	"github.com/roach88/flowgraph/internal/graph"
)

// Scenario defines a propagation scenario.
// Scenarios build a set of entities, wire them with connectors, drive
// property writes and assert on the resulting signal trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is an optional directory of CUE type declarations. Entities
	// whose type is declared there get the declared properties and defaults.
	// Relative paths are resolved against the scenario file.
	Catalog string `yaml:"catalog,omitempty"`

	// MaxDepth overrides the propagation depth budget while the scenario runs.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// Entities are referenced by Name in connectors, steps and assertions.
	// Entities without an id get a sequential one.
	Entities []graph.EntityInstance `yaml:"entities"`

	// Connectors wire one entity property to another.
	Connectors []ConnectorStep `yaml:"connectors,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_count, final_state
	Assertions []Assertion `yaml:"assertions"`
}

// ConnectorStep declares a connector between two entity properties.
type ConnectorStep struct {
	// From is the outbound "entity.property".
	From string `yaml:"from"`

	// To is the inbound "entity.property".
	To string `yaml:"to"`

	// Function names the transform applied to each value. Empty means identity.
	Function string `yaml:"function,omitempty"`
}

// Step is one write against the entities.
type Step struct {
	// Action is one of the Action* constants.
	Action string `yaml:"action"`

	// Target is "entity.property" for writes. Ticks also accept "entity",
	// or an empty target to tick every entity.
	Target string `yaml:"target,omitempty"`

	// Value is the written value. Required for writes, ignored by ticks.
	Value yaml.Node `yaml:"value,omitempty"`
}

// Step actions.
const (
	ActionSet            = "set"
	ActionSetChecked     = "set_checked"
	ActionSetNoPropagate = "set_no_propagate"
	ActionSend           = "send"
	ActionTick           = "tick"
	ActionTickChecked    = "tick_checked"
)

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a signal for target was recorded, with value if given
	// - "trace_count": target received exactly Count signals
	// - "final_state": target holds value after the last step
	Type string `yaml:"type"`

	// Target is the "entity.property" under test.
	Target string `yaml:"target"`

	// Value is the expected value (trace_contains, final_state).
	Value yaml.Node `yaml:"value,omitempty"`

	// Count is the expected number of signals (trace_count).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := decode(data)
	if err != nil {
		return nil, err
	}

	// Resolve the catalog relative to the scenario BEFORE validation
	if s.Catalog != "" && !filepath.IsAbs(s.Catalog) {
		s.Catalog = filepath.Join(filepath.Dir(path), s.Catalog)
	}

	if err := validateScenario(s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return s, nil
}

// Parse parses a scenario from YAML. A relative catalog path is resolved
// against the working directory.
func Parse(data []byte) (*Scenario, error) {
	s, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := validateScenario(s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return s, nil
}

func decode(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &s, nil
}

// splitTarget splits "entity.property". The property may itself contain dots.
func splitTarget(target string) (entity, property string, ok bool) {
	entity, property, ok = strings.Cut(target, ".")
	if !ok || entity == "" || property == "" {
		return "", "", false
	}
	return entity, property, true
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be non-negative")
	}

	if s.Catalog != "" {
		if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
			return fmt.Errorf("catalog not found: %s", s.Catalog)
		}
	}

	if len(s.Entities) == 0 {
		return fmt.Errorf("entities list is required and must be non-empty")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.Entities))
	for i, e := range s.Entities {
		if e.Name == "" {
			return fmt.Errorf("entities[%d]: name is required", i)
		}
		if strings.Contains(e.Name, ".") {
			return fmt.Errorf("entities[%d]: name %q must not contain '.'", i, e.Name)
		}
		if names[e.Name] {
			return fmt.Errorf("entities[%d]: duplicate name %q", i, e.Name)
		}
		if e.Type.IsZero() {
			return fmt.Errorf("entities[%d]: type is required", i)
		}
		names[e.Name] = true
	}

	ref := func(where, target string) error {
		entity, _, ok := splitTarget(target)
		if !ok {
			return fmt.Errorf("%s: target %q must be entity.property", where, target)
		}
		if !names[entity] {
			return fmt.Errorf("%s: unknown entity %q", where, entity)
		}
		return nil
	}

	for i, c := range s.Connectors {
		where := fmt.Sprintf("connectors[%d]", i)
		if err := ref(where, c.From); err != nil {
			return err
		}
		if err := ref(where, c.To); err != nil {
			return err
		}
		if _, ok := connector.Lookup(c.Function); !ok {
			return fmt.Errorf("%s: unknown function %q", where, c.Function)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step, names, ref); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, ref); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step *Step, names map[string]bool, ref func(string, string) error) error {
	where := fmt.Sprintf("steps[%d]", index)

	switch step.Action {
	case ActionSet, ActionSetChecked, ActionSetNoPropagate, ActionSend:
		if err := ref(where, step.Target); err != nil {
			return err
		}
		if step.Value.Kind == 0 {
			return fmt.Errorf("%s: value is required for %s", where, step.Action)
		}
	case ActionTick, ActionTickChecked:
		if step.Target == "" {
			return nil
		}
		if _, _, ok := splitTarget(step.Target); ok {
			return ref(where, step.Target)
		}
		if !names[step.Target] {
			return fmt.Errorf("%s: unknown entity %q", where, step.Target)
		}
	case "":
		return fmt.Errorf("%s: action is required", where)
	default:
		return fmt.Errorf("%s: unknown action %q", where, step.Action)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, ref func(string, string) error) error {
	where := fmt.Sprintf("assertions[%d]", index)

	if a.Type == "" {
		return fmt.Errorf("%s: type is required", where)
	}

	switch a.Type {
	case AssertTraceContains:
	case AssertTraceCount:
		if a.Count == nil {
			return fmt.Errorf("%s: count is required for trace_count", where)
		}
		if *a.Count < 0 {
			return fmt.Errorf("%s: count must be non-negative for trace_count", where)
		}
	case AssertFinalState:
		if a.Value.Kind == 0 {
			return fmt.Errorf("%s: value is required for final_state", where)
		}
	default:
		return fmt.Errorf("%s: unknown assertion type %q", where, a.Type)
	}

	return ref(where, a.Target)
}
