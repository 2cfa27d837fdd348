package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/harness"
	"github.com/roach88/flowgraph/internal/metrics"
	"github.com/roach88/flowgraph/internal/value"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Persist bool // store the assembled flow
	Metrics bool // print metrics after the run
}

// RunOutput is the run command output.
type RunOutput struct {
	Name   string                 `json:"name"`
	Pass   bool                   `json:"pass"`
	Errors []string               `json:"errors,omitempty"`
	Trace  []harness.TraceEvent   `json:"trace"`
	State  map[string]value.Value `json:"state"`
	FlowID *uuid.UUID             `json:"flow_id,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Run one scenario and print its trace",
		Long: `Run a scenario: build its entities, wire its connectors, execute its steps
and print every recorded signal with the final property values.

With --persist the entities and connector relations are stored as a new flow
under freshly generated ids, so every persisted run is a distinct flow.

Exit codes:
  0 - All assertions passed
  1 - One or more assertions failed
  2 - Command error (invalid scenario, database failure, etc.)

Examples:
  flowgraph run ./scenarios/chain.yaml
  flowgraph run ./scenarios/chain.yaml --persist --db ./flows.db
  flowgraph run ./scenarios/chain.yaml --metrics`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Persist, "persist", false, "store the assembled flow in the database")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print Prometheus metrics after the run")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalid, "failed to load scenario", err)
	}

	hopts := []harness.Option{harness.WithLogger(slog.Default())}
	if opts.Persist {
		hopts = append(hopts, harness.WithIDs(graph.UUIDv7Generator{}))
	}
	result, flow, err := harness.New(hopts...).RunFlow(scenario)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "scenario execution failed", err)
	}

	out := RunOutput{
		Name:   scenario.Name,
		Pass:   result.Pass,
		Errors: result.Errors,
		Trace:  result.Trace,
		State:  result.State,
	}

	if opts.Persist {
		st, err := opts.openStore(formatter)
		if err != nil {
			return err
		}
		defer closeStore(st, formatter)

		if _, err := st.CreateFlow(cmd.Context(), flow); err != nil {
			return storeFailure(formatter, flow.ID(), err)
		}
		id := flow.ID()
		out.FlowID = &id
	}

	if err := formatter.SuccessText(out, func(w io.Writer) error {
		return writeRun(w, out)
	}); err != nil {
		return err
	}

	if opts.Metrics {
		if err := metrics.Default().WriteText(formatter.GetErrWriter()); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func writeRun(w io.Writer, out RunOutput) error {
	fmt.Fprintf(w, "Scenario %s\n", out.Name)
	for _, ev := range out.Trace {
		fmt.Fprintf(w, "  [%d] %s = %s (depth %d)\n", ev.Step, ev.Target, renderValue(ev.Value), ev.Depth)
	}

	fmt.Fprintln(w, "State:")
	keys := make([]string, 0, len(out.State))
	for k := range out.State {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s = %s\n", k, renderValue(out.State[k]))
	}

	if out.FlowID != nil {
		fmt.Fprintf(w, "Stored flow %s\n", out.FlowID)
	}

	if out.Pass {
		_, err := fmt.Fprintln(w, "✓ PASS")
		return err
	}
	fmt.Fprintln(w, "✗ FAIL")
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return nil
}

func renderValue(v value.Value) string {
	b, err := value.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
