package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/pkg/taggraph"
)

func newTypesCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "Manage object, item and relationship types",
	}
	cmd.AddCommand(
		newTypesListCommand(flags),
		newTypesAddCommand(flags),
		newTypesActivateCommand(flags, "disable", false),
		newTypesActivateCommand(flags, "enable", true),
	)
	return cmd
}

func newTypesListCommand(flags *globalFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List object types with the item and relationship type sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withEngine(cmd, func(ctx context.Context, e *taggraph.Engine) error {
				res := e.ListActiveTypes(ctx)
				if all {
					res = e.ListTypes(ctx)
				}
				types, err := check(res)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if flags.output == "json" {
					return printJSON(out, map[string]any{
						"object_types":       types,
						"item_types":         e.ItemTypes(),
						"relationship_types": e.RelationshipTypes(),
					})
				}

				printTypes(cmd, types)
				fmt.Fprintf(out, "\nitem types: %v\n", e.ItemTypes())
				fmt.Fprintf(out, "relationship types: %v\n", e.RelationshipTypes())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include inactive object types")
	return cmd
}

func newTypesAddCommand(flags *globalFlags) *cobra.Command {
	var slug, description string

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Register an object type",
		Example: `  graphctl types add "Support Ticket"
  graphctl types add Vendor --slug supplier --description "External suppliers"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withEngine(cmd, func(ctx context.Context, e *taggraph.Engine) error {
				t, err := check(e.RegisterType(ctx, slug, args[0], description))
				if err != nil {
					return err
				}
				if flags.output == "json" {
					return printJSON(cmd.OutOrStdout(), t)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s)\n", t.Slug, t.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "type slug (default derived from NAME)")
	cmd.Flags().StringVar(&description, "description", "", "type description")
	return cmd
}

func newTypesActivateCommand(flags *globalFlags, use string, active bool) *cobra.Command {
	short := "Deactivate an object type"
	if active {
		short = "Reactivate an object type"
	}

	return &cobra.Command{
		Use:   use + " SLUG",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withEngine(cmd, func(ctx context.Context, e *taggraph.Engine) error {
				t, err := check(e.SetTypeActive(ctx, args[0], active))
				if err != nil {
					return err
				}
				if flags.output == "json" {
					return printJSON(cmd.OutOrStdout(), t)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s active=%t\n", t.Slug, t.IsActive)
				return nil
			})
		},
	}
}

func printTypes(cmd *cobra.Command, types []*domain.ObjectType) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tNAME\tACTIVE\tID")
	for _, t := range types {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", t.Slug, t.Name, t.IsActive, t.ID)
	}
	w.Flush()
}
