package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaziapp/taggraph/internal/config"
	"github.com/kaziapp/taggraph/internal/logger"
	"github.com/kaziapp/taggraph/internal/store/sqlite"
	"github.com/kaziapp/taggraph/pkg/taggraph"
)

func newReindexCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the tag suggestion index from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withEngine(cmd, func(ctx context.Context, e *taggraph.Engine) error {
				n, err := check(e.ReindexTags(ctx))
				if err != nil {
					return err
				}
				if flags.output == "json" {
					return printJSON(cmd.OutOrStdout(), map[string]int{"indexed": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexed %d tag(s)\n", n)
				return nil
			})
		},
	}
}

// migrationReport is the output of the migrate command.
type migrationReport struct {
	Path    string `json:"path"`
	Version int64  `json:"version"`
	Pending int    `json:"pending"`
}

func newMigrateCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite schema migrations and report the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Backend != config.BackendSQLite {
				return fmt.Errorf("migrate only applies to the sqlite backend (configured: %s)", cfg.Storage.Backend)
			}

			report, err := migrate(cmd.Context(), cfg, flags.verbose)
			if err != nil {
				return err
			}
			if flags.output == "json" {
				return printJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d, %d pending\n", report.Path, report.Version, report.Pending)
			return nil
		},
	}
}

// migrate opens the database, which applies pending migrations, then reads back the status.
func migrate(ctx context.Context, cfg *config.Config, verbose bool) (*migrationReport, error) {
	if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	log := logger.Discard()
	if verbose {
		log = logger.New(logger.Config{Writer: os.Stderr, Environment: cfg.App.Environment}).WithComponent("migrate")
	}

	s, err := sqlite.Open(cfg.StorePath(), log)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	version, pending, err := sqlite.MigrationStatus(ctx, s.DB())
	if err != nil {
		return nil, err
	}
	return &migrationReport{Path: cfg.StorePath(), Version: version, Pending: pending}, nil
}
