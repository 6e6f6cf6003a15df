// Package cli implements graphctl, the administrative command line for the tag graph.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaziapp/taggraph/internal/config"
	"github.com/kaziapp/taggraph/internal/logger"
	"github.com/kaziapp/taggraph/pkg/taggraph"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	dataPath string
	backend  string
	envFile  string
	output   string
	verbose  bool
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "graphctl",
		Short: "Administer a tag graph data directory",
		Long: `graphctl works directly on the store configured for the server
(DATA_PATH and STORE_BACKEND, or the flags below). Stop the server first when
using the badger backend, which takes an exclusive lock on its directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.dataPath, "data-path", "", "data directory (default from DATA_PATH)")
	pf.StringVar(&flags.backend, "store", "", "store backend: sqlite or badger (default from STORE_BACKEND)")
	pf.StringVar(&flags.envFile, "env-file", ".env", "path to .env file")
	pf.StringVarP(&flags.output, "output", "o", "table", "output format: table or json")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(
		newTypesCommand(flags),
		newTagsCommand(flags),
		newReindexCommand(flags),
		newMigrateCommand(flags),
	)
	return root
}

// Execute runs graphctl with os.Args.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}

// loadConfig builds the server configuration, letting the global flags win.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	args := []string{"--env-file", f.envFile}
	if f.dataPath != "" {
		args = append(args, "--data-path", f.dataPath)
	}
	if f.backend != "" {
		args = append(args, "--store", f.backend)
	}
	return config.Load(args)
}

// openEngine opens the configured store with the configured types.
func (f *globalFlags) openEngine(ctx context.Context, cfg *config.Config) (*taggraph.Engine, error) {
	log := logger.Discard()
	if f.verbose {
		log = logger.New(logger.Config{
			Writer:      os.Stderr,
			Level:       logger.ParseLevel(cfg.Logger.Level),
			Environment: cfg.App.Environment,
		}).WithComponent("graphctl")
	}

	return taggraph.Open(ctx, taggraph.Options{
		Backend:                cfg.Storage.Backend,
		DataPath:               cfg.Storage.DataPath,
		ExtraItemTypes:         cfg.Types.ExtraItemTypes,
		ExtraRelationshipTypes: cfg.Types.ExtraRelationshipTypes,
		SeedObjectTypes:        cfg.Types.SeedObjectTypes,
		Search:                 cfg.Search.Enabled,
		Logger:                 log,
	})
}

// withEngine loads config, opens the engine, runs fn and closes the engine.
func (f *globalFlags) withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *taggraph.Engine) error) error {
	cfg, err := f.loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	e, err := f.openEngine(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	runErr := fn(ctx, e)
	if err := e.Close(); err != nil && runErr == nil {
		return fmt.Errorf("close store: %w", err)
	}
	return runErr
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// check converts a failed result into an error.
func check[T any](r taggraph.Result[T]) (T, error) {
	return r.Data, r.Err()
}
