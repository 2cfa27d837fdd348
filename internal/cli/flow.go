package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/reactive"
	"github.com/roach88/flowgraph/internal/store"
)

// openStore opens the configured database.
func (o *RootOptions) openStore(formatter *OutputFormatter) (*store.Store, error) {
	path := o.Database
	if path == "" {
		path = o.Config.DB
	}
	formatter.VerboseLog("Opening database %s", path)

	st, err := store.Open(path)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeStorage, "failed to open database", err)
	}
	return st, nil
}

// parseFlowID parses a flow id argument.
func parseFlowID(formatter *OutputFormatter, arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, formatter.Fail(ExitCommandError, ErrCodeInvalid, fmt.Sprintf("invalid flow id %q", arg), err)
	}
	return id, nil
}

// storeFailure reports a store error, distinguishing missing flows.
func storeFailure(formatter *OutputFormatter, id uuid.UUID, err error) error {
	switch {
	case errors.Is(err, store.ErrFlowNotFound):
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("flow %s not found", id), nil)
	case errors.Is(err, store.ErrFlowExists):
		return formatter.Fail(ExitCommandError, ErrCodeExists, fmt.Sprintf("flow %s already exists", id), nil)
	default:
		return formatter.Fail(ExitCommandError, ErrCodeStorage, "database operation failed", err)
	}
}

func closeStore(st *store.Store, formatter *OutputFormatter) {
	if err := st.Close(); err != nil {
		formatter.VerboseLog("error closing database: %v", err)
	}
}

// =============================================================================
// import
// =============================================================================

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Catalog string // materialize components from this catalog
}

// ImportResult is the import command output.
type ImportResult struct {
	FlowID    uuid.UUID `json:"flow_id"`
	Entities  int       `json:"entities"`
	Relations int       `json:"relations"`
	Digest    string    `json:"digest"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <flow-file>",
		Short: "Store a flow from a JSON or YAML document",
		Long: `Read a flow instance (wrapper, entities and relations) from a JSON or YAML
file, check that every relation endpoint is a member, and store it as a new flow.

With --catalog, properties declared by the components of each entity and
relation are added at their defaults before storing.

Examples:
  flowgraph import --db ./flows.db ./flow.yaml
  flowgraph import --db ./flows.db --catalog ./types ./flow.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "catalog directory used to materialize components")

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	fi, err := readFlowFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("flow file not found: %s", path), nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeInvalid, "failed to read flow", err)
	}

	flow, err := reactive.NewFlowFromInstance(fi)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalid, "invalid flow", err)
	}

	if opts.Catalog != "" {
		cat, err := loadCatalog(formatter, opts.Catalog)
		if err != nil {
			return err
		}
		for _, e := range flow.Entities() {
			reactive.Materialize(e, cat)
		}
		for _, r := range flow.Relations() {
			reactive.Materialize(r, cat)
		}
	}

	st, err := opts.openStore(formatter)
	if err != nil {
		return err
	}
	defer closeStore(st, formatter)

	res, err := st.CreateFlow(cmd.Context(), flow)
	if err != nil {
		return storeFailure(formatter, flow.ID(), err)
	}

	out := ImportResult{
		FlowID:    flow.ID(),
		Entities:  len(flow.Entities()),
		Relations: len(flow.Relations()),
		Digest:    res.Digest,
	}
	return formatter.SuccessText(out, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Imported flow %s (%d entities, %d relations)\n", out.FlowID, out.Entities, out.Relations)
		return err
	})
}

// readFlowFile decodes a flow instance by file extension; anything other
// than .yaml or .yml is read as JSON.
func readFlowFile(path string) (graph.FlowInstance, error) {
	var fi graph.FlowInstance

	data, err := os.ReadFile(path)
	if err != nil {
		return fi, err
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&fi); err != nil {
			return fi, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&fi); err != nil {
			return fi, fmt.Errorf("failed to parse JSON: %w", err)
		}
	}
	if fi.ID == uuid.Nil {
		return fi, fmt.Errorf("flow id is required")
	}
	return fi, nil
}

// =============================================================================
// export
// =============================================================================

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <flow-id>",
		Short: "Print a stored flow",
		Long: `Print the stored flat form of a flow. Text output is YAML that import
accepts; JSON output wraps the flow in the standard response.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			id, err := parseFlowID(formatter, args[0])
			if err != nil {
				return err
			}

			st, err := rootOpts.openStore(formatter)
			if err != nil {
				return err
			}
			defer closeStore(st, formatter)

			fi, err := st.LoadFlow(cmd.Context(), id)
			if err != nil {
				return storeFailure(formatter, id, err)
			}

			return formatter.SuccessText(fi, func(w io.Writer) error {
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				if err := enc.Encode(fi); err != nil {
					return err
				}
				return enc.Close()
			})
		},
	}
}

// =============================================================================
// flows, commits, delete
// =============================================================================

// NewFlowsCommand creates the flows command.
func NewFlowsCommand(rootOpts *RootOptions) *cobra.Command {
	var entity string

	cmd := &cobra.Command{
		Use:   "flows",
		Short: "List stored flows",
		Long: `List stored flows with their head commit and member counts.

With --entity only the flows that have that entity as a member are listed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			var member uuid.UUID
			if entity != "" {
				id, err := uuid.Parse(entity)
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeInvalid, fmt.Sprintf("invalid entity id %q", entity), err)
				}
				member = id
			}

			st, err := rootOpts.openStore(formatter)
			if err != nil {
				return err
			}
			defer closeStore(st, formatter)

			flows, err := st.ListFlows(cmd.Context())
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeStorage, "failed to list flows", err)
			}
			if member != uuid.Nil {
				if flows, err = flowsContaining(cmd, st, flows, member); err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeStorage, "failed to list flows", err)
				}
			}

			return formatter.SuccessText(flows, func(w io.Writer) error {
				if len(flows) == 0 {
					_, err := fmt.Fprintln(w, "No flows stored.")
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTYPE\tNAME\tHEAD\tENTITIES\tRELATIONS")
				for _, f := range flows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", f.ID, f.Type, f.Name, f.HeadSeq, f.Entities, f.Relations)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "only list flows containing this entity id")

	return cmd
}

// flowsContaining keeps the summaries of flows that have entity as a member.
func flowsContaining(cmd *cobra.Command, st *store.Store, flows []store.FlowSummary, entity uuid.UUID) ([]store.FlowSummary, error) {
	ids, err := st.FlowsContaining(cmd.Context(), entity)
	if err != nil {
		return nil, err
	}
	keep := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}

	out := make([]store.FlowSummary, 0, len(ids))
	for _, f := range flows {
		if keep[f.ID] {
			out = append(out, f)
		}
	}
	return out, nil
}

// NewCommitsCommand creates the commits command.
func NewCommitsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "commits <flow-id>",
		Short:         "List the committed diffs of a flow",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			id, err := parseFlowID(formatter, args[0])
			if err != nil {
				return err
			}

			st, err := rootOpts.openStore(formatter)
			if err != nil {
				return err
			}
			defer closeStore(st, formatter)

			commits, err := st.Commits(cmd.Context(), id)
			if err != nil {
				return storeFailure(formatter, id, err)
			}

			return formatter.SuccessText(commits, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SEQ\t+E\t-E\t+R\t-R\tDIGEST")
				for _, c := range commits {
					fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%s\n",
						c.Seq, c.EntitiesAdded, c.EntitiesRemoved, c.RelationsAdded, c.RelationsRemoved, c.Digest)
				}
				return tw.Flush()
			})
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <flow-id>",
		Short:         "Delete a stored flow and its history",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			id, err := parseFlowID(formatter, args[0])
			if err != nil {
				return err
			}

			st, err := rootOpts.openStore(formatter)
			if err != nil {
				return err
			}
			defer closeStore(st, formatter)

			if err := st.DeleteFlow(cmd.Context(), id); err != nil {
				return storeFailure(formatter, id, err)
			}

			return formatter.SuccessText(map[string]any{"deleted": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "✓ Deleted flow %s\n", id)
				return err
			})
		},
	}
}
