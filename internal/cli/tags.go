package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kaziapp/taggraph/pkg/taggraph"
)

func newTagsCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Inspect and repair tags",
	}
	cmd.AddCommand(newTagsPopularCommand(flags), newTagsRecountCommand(flags))
	return cmd
}

func newTagsPopularCommand(flags *globalFlags) *cobra.Command {
	var (
		tagType string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "popular",
		Short: "List the most used active tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withEngine(cmd, func(ctx context.Context, e *taggraph.Engine) error {
				tags, err := check(e.PopularTags(ctx, tagType, limit))
				if err != nil {
					return err
				}
				if flags.output == "json" {
					return printJSON(cmd.OutOrStdout(), tags)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SLUG\tNAME\tTYPE\tUSAGE")
				for _, t := range tags {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", t.Slug, t.Name, t.TagType, t.UsageCount)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&tagType, "type", "", "only tags of this tag type")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of tags")
	return cmd
}

func newTagsRecountCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "recount",
		Short: "Recompute usage counts from the assignment edges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withEngine(cmd, func(ctx context.Context, e *taggraph.Engine) error {
				corrected, err := check(e.RecountUsage(ctx))
				if err != nil {
					return err
				}
				if flags.output == "json" {
					return printJSON(cmd.OutOrStdout(), map[string]int{"corrected": corrected})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "corrected %d tag(s)\n", corrected)
				return nil
			})
		},
	}
}
