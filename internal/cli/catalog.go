package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/flowgraph/internal/catalog"
	"github.com/roach88/flowgraph/internal/graph"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid         bool `json:"valid"`
	Components    int  `json:"components"`
	EntityTypes   int  `json:"entity_types"`
	RelationTypes int  `json:"relation_types"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <catalog-dir>",
		Short: "Validate a CUE type catalog",
		Long: `Load the CUE component, entity type and relation type declarations in a
directory and check them against the catalog schema.

Reports the first error with its source position.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cat, err := loadCatalog(formatter, dir)
	if err != nil {
		return err
	}

	res := ValidationResult{
		Valid:         true,
		Components:    len(cat.Components()),
		EntityTypes:   len(cat.EntityTypes()),
		RelationTypes: len(cat.RelationTypes()),
	}
	return formatter.SuccessText(res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Catalog valid: %d components, %d entity types, %d relation types\n",
			res.Components, res.EntityTypes, res.RelationTypes)
		return err
	})
}

// loadCatalog loads dir, reporting load errors with their catalog code.
func loadCatalog(formatter *OutputFormatter, dir string) (*catalog.Catalog, error) {
	formatter.VerboseLog("Loading catalog from %s", dir)

	cat, err := catalog.Load(dir)
	if err == nil {
		return cat, nil
	}

	var le *catalog.LoadError
	if !errors.As(err, &le) {
		return nil, formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to load catalog", err)
	}
	if le.Code == catalog.ErrCodeNotFound || le.Code == catalog.ErrCodeNoFiles {
		return nil, formatter.Fail(ExitCommandError, le.Code, le.Message, nil)
	}

	details := map[string]any{"message": le.Message}
	if le.Pos.IsValid() {
		details["file"] = le.Pos.Filename()
		details["line"] = le.Pos.Line()
	}
	if outErr := formatter.Error(le.Code, le.Error(), details); outErr != nil {
		return nil, outErr
	}
	return nil, WrapExitError(ExitFailure, "catalog invalid", err)
}

// CatalogListing is the catalog command output.
type CatalogListing struct {
	Components    []*graph.Component    `json:"components"`
	EntityTypes   []*graph.EntityType   `json:"entity_types"`
	RelationTypes []*graph.RelationType `json:"relation_types"`
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog <catalog-dir>",
		Short: "List the types declared in a catalog",
		Long: `List every component, entity type and relation type declared in a
catalog directory, with the properties each one provides.

Examples:
  flowgraph catalog ./types
  flowgraph catalog ./types --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			cat, err := loadCatalog(formatter, args[0])
			if err != nil {
				return err
			}

			listing := CatalogListing{
				Components:    cat.Components(),
				EntityTypes:   cat.EntityTypes(),
				RelationTypes: cat.RelationTypes(),
			}
			return formatter.SuccessText(listing, func(w io.Writer) error {
				return writeCatalog(w, cat, listing)
			})
		},
	}
}

func writeCatalog(w io.Writer, cat *catalog.Catalog, l CatalogListing) error {
	var b strings.Builder

	b.WriteString("Components:\n")
	for _, c := range l.Components {
		fmt.Fprintf(&b, "  %s%s\n", c.Type, propertyList(c.Properties))
	}
	b.WriteString("Entity types:\n")
	for _, et := range l.EntityTypes {
		fmt.Fprintf(&b, "  %s%s\n", et.Type, propertyList(cat.PropertiesOf(et)))
	}
	b.WriteString("Relation types:\n")
	for _, rt := range l.RelationTypes {
		fmt.Fprintf(&b, "  %s (%s -> %s)%s\n", rt.Type, orAny(rt.OutboundType), orAny(rt.InboundType), propertyList(rt.Properties))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func propertyList(props []graph.PropertyType) string {
	if len(props) == 0 {
		return ""
	}
	parts := make([]string, len(props))
	for i, p := range props {
		parts[i] = p.Name + ":" + string(p.DataType)
		if p.Mutability == graph.Immutable {
			parts[i] += " (immutable)"
		}
	}
	return " [" + strings.Join(parts, ", ") + "]"
}

func orAny(t graph.EntityTypeID) string {
	if t.IsZero() {
		return "*"
	}
	return t.String()
}
