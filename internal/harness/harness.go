package harness

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/flowgraph/internal/catalog"
	"github.com/roach88/flowgraph/internal/connector"
	"github.com/roach88/flowgraph/internal/frp"
	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/metrics"
	"github.com/roach88/flowgraph/internal/reactive"
	"github.com/roach88/flowgraph/internal/testutil"
	"github.com/roach88/flowgraph/internal/value"
)

// FlowType is the wrapper entity type of the flow a run assembles.
var FlowType = graph.NewEntityTypeID("flow", "Scenario")

// Harness is the scenario execution engine.
// Unless WithIDs is given, entity ids are drawn from a sequential generator
// so traces and assembled flows are reproducible.
type Harness struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	ids     graph.IDGenerator
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithMetrics sets the collectors that count executed steps.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Harness) { h.metrics = m }
}

// WithIDs draws entity and wrapper ids from gen instead of a fresh
// sequential generator per run.
func WithIDs(gen graph.IDGenerator) Option {
	return func(h *Harness) { h.ids = gen }
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: metrics.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(scenario)
}

// run is the state of one scenario execution.
type run struct {
	entities map[string]*reactive.Entity
	names    []string

	mu    sync.Mutex
	step  int
	trace []TraceEvent
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load the catalog, if any
// 2. Build entities and start recording every property
// 3. Wire connectors
// 4. Execute steps, ordering each step's trace deterministically
// 5. Capture final state and evaluate assertions
//
// Errors are returned for scenarios that cannot be executed; failed
// assertions are reported in the Result.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	res, _, err := h.execute(scenario)
	return res, err
}

// RunFlow executes a scenario like Run and also returns a flow holding every
// entity and connector relation, wrapped by an entity of FlowType named
// after the scenario.
func (h *Harness) RunFlow(scenario *Scenario) (*Result, *reactive.Flow, error) {
	return h.execute(scenario)
}

func (h *Harness) execute(scenario *Scenario) (*Result, *reactive.Flow, error) {
	if scenario.MaxDepth > 0 {
		prev := frp.SetMaxDepth(scenario.MaxDepth)
		defer frp.SetMaxDepth(prev)
	}

	var cat *catalog.Catalog
	if scenario.Catalog != "" {
		var err error
		cat, err = catalog.Load(scenario.Catalog)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}

	var ids graph.IDGenerator = testutil.NewSequentialIDs()
	if h.ids != nil {
		ids = h.ids
	}
	r := &run{entities: make(map[string]*reactive.Entity, len(scenario.Entities))}

	for i, inst := range scenario.Entities {
		e, err := buildEntity(inst, ids, cat)
		if err != nil {
			return nil, nil, fmt.Errorf("entities[%d]: %w", i, err)
		}
		r.entities[inst.Name] = e
		r.names = append(r.names, inst.Name)
	}
	sort.Strings(r.names)

	for _, name := range r.names {
		r.record(name)
	}

	var relations []*reactive.Relation
	for i, c := range scenario.Connectors {
		conn, err := r.connect(c)
		if err != nil {
			return nil, nil, fmt.Errorf("connectors[%d]: %w", i, err)
		}
		relations = append(relations, conn.Relation())
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := r.execute(i+1, step); err != nil {
			return nil, nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		h.metrics.ScenarioSteps.WithLabelValues(step.Action).Inc()
		h.logger.Debug("step executed",
			"scenario", scenario.Name,
			"step", i+1,
			"action", step.Action,
			"target", step.Target,
		)
	}

	result.Trace = r.trace
	if result.Trace == nil {
		result.Trace = []TraceEvent{}
	}
	for _, name := range r.names {
		e := r.entities[name]
		for _, prop := range e.PropertyNames() {
			v, _ := e.Get(prop)
			result.State[name+"."+prop] = v
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"events", len(result.Trace),
	)

	wrapper := reactive.NewEntityFromInstance(graph.EntityInstance{
		Type:       FlowType,
		ID:         ids.NewID(),
		Name:       scenario.Name,
		Properties: reactive.Values(map[string]any{"name": scenario.Name}),
	})
	flow := reactive.NewFlow(wrapper)
	for _, inst := range scenario.Entities {
		flow.AddEntity(r.entities[inst.Name])
	}
	for _, rel := range relations {
		flow.AddRelation(rel)
	}
	flow.DiscardDiff()

	return result, flow, nil
}

// buildEntity creates the entity for inst. Types declared in the catalog
// start from their declared properties; inst's values override defaults.
func buildEntity(inst graph.EntityInstance, ids graph.IDGenerator, cat *catalog.Catalog) (*reactive.Entity, error) {
	if inst.ID == uuid.Nil {
		inst.ID = ids.NewID()
	}

	if cat == nil {
		return reactive.NewEntityFromInstance(inst), nil
	}

	if _, ok := cat.EntityType(inst.Type); !ok {
		e := reactive.NewEntityFromInstance(inst)
		reactive.Materialize(e, cat)
		return e, nil
	}

	e, err := cat.NewEntity(inst.Type, inst.ID)
	if err != nil {
		return nil, err
	}
	for _, name := range inst.Properties.Names() {
		v := inst.Properties[name]
		if !e.AddProperty(name, graph.Mutable, v) {
			e.SetNoPropagate(name, v)
		}
	}
	for _, ty := range inst.Components {
		e.AddComponent(ty)
	}
	reactive.Materialize(e, cat)
	return e, nil
}

// record subscribes a trace recorder to every property of the named entity.
func (r *run) record(name string) {
	e := r.entities[name]
	for _, prop := range e.PropertyNames() {
		target := name + "." + prop
		e.Observe(prop, func(v value.Value) {
			depth := frp.Depth()
			r.mu.Lock()
			r.trace = append(r.trace, TraceEvent{Step: r.step, Target: target, Value: v, Depth: depth})
			r.mu.Unlock()
		})
	}
}

func (r *run) property(target string) (*reactive.Entity, string, error) {
	name, prop, ok := splitTarget(target)
	if !ok {
		return nil, "", fmt.Errorf("target %q must be entity.property", target)
	}
	e, ok := r.entities[name]
	if !ok {
		return nil, "", fmt.Errorf("unknown entity %q", name)
	}
	if !e.HasProperty(prop) {
		return nil, "", fmt.Errorf("entity %q has no property %q", name, prop)
	}
	return e, prop, nil
}

func (r *run) connect(c ConnectorStep) (*connector.Connector, error) {
	out, outProp, err := r.property(c.From)
	if err != nil {
		return nil, err
	}
	in, inProp, err := r.property(c.To)
	if err != nil {
		return nil, err
	}
	fn, ok := connector.Lookup(c.Function)
	if !ok {
		return nil, fmt.Errorf("unknown function %q", c.Function)
	}
	return connector.FromRelation(connector.NewRelation(out, outProp, in, inProp), fn)
}

// execute runs one step and sorts the events it produced.
func (r *run) execute(n int, step Step) error {
	r.mu.Lock()
	r.step = n
	start := len(r.trace)
	r.mu.Unlock()

	if err := r.apply(step); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	sortEvents(r.trace[start:])
	return nil
}

func (r *run) apply(step Step) error {
	switch step.Action {
	case ActionTick, ActionTickChecked:
		return r.tick(step)
	}

	e, prop, err := r.property(step.Target)
	if err != nil {
		return err
	}
	v, err := value.FromYAML(&step.Value)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}

	switch step.Action {
	case ActionSet:
		e.Set(prop, v)
	case ActionSetChecked:
		e.SetChecked(prop, v)
	case ActionSetNoPropagate:
		e.SetNoPropagate(prop, v)
	case ActionSend:
		e.Send(prop, v)
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

func (r *run) tick(step Step) error {
	checked := step.Action == ActionTickChecked

	if step.Target == "" {
		for _, name := range r.names {
			tickEntity(r.entities[name], checked)
		}
		return nil
	}

	if _, _, ok := splitTarget(step.Target); ok {
		e, prop, err := r.property(step.Target)
		if err != nil {
			return err
		}
		p, _ := e.Property(prop)
		if checked {
			p.TickChecked()
		} else {
			p.Tick()
		}
		return nil
	}

	e, ok := r.entities[step.Target]
	if !ok {
		return fmt.Errorf("unknown entity %q", step.Target)
	}
	tickEntity(e, checked)
	return nil
}

func tickEntity(e *reactive.Entity, checked bool) {
	if checked {
		e.TickChecked()
	} else {
		e.Tick()
	}
}

// sortEvents orders events by target, depth and canonical value. Subscriber
// invocation order within a stream is unspecified, so recording order alone
// is not reproducible.
func sortEvents(events []TraceEvent) {
	type keyed struct {
		ev  TraceEvent
		key []byte
	}
	ks := make([]keyed, len(events))
	for i, ev := range events {
		b, err := value.MarshalCanonical(ev.Value)
		if err != nil {
			b = []byte(render(ev.Value))
		}
		ks[i] = keyed{ev: ev, key: b}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		a, b := ks[i], ks[j]
		if a.ev.Target != b.ev.Target {
			return a.ev.Target < b.ev.Target
		}
		if a.ev.Depth != b.ev.Depth {
			return a.ev.Depth < b.ev.Depth
		}
		return bytes.Compare(a.key, b.key) < 0
	})
	for i := range ks {
		events[i] = ks[i].ev
	}
}
