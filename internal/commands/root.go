// Package commands implements bilancioctl, the offline companion of the
// bilancio server: statement parsing and import, migrations and seeding.
package commands

import (
	"context"
	"fmt"

	"bilancio/internal/backend"
	"bilancio/internal/config"
	"bilancio/internal/log"

	"github.com/spf13/cobra"
)

// Version is set via ldflags during build.
var Version = "dev"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "bilancioctl",
		Short:   "Import Revolut statements and manage the bilancio database",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newParseCommand(),
		newImportCommand(),
		newMigrateCommand(),
		newSeedCommand(),
		newRecategorizeCommand(),
	)

	return rootCmd
}

// loadConfig reads the environment and validates it, for commands that touch
// the database.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func logger(cfg *config.Config) *log.Logger {
	lc := log.DefaultConfig()
	lc.Component = log.ComponentCLI
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		lc.Level = level
	}
	lc.Format = cfg.LogFormat
	return log.New(lc)
}

// openBackend creates the configured store; callers must Close the result.
func openBackend(ctx context.Context, cfg *config.Config) (*backend.BackendResult, *log.Logger, error) {
	l := logger(cfg)
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("backend config: %w", err)
	}
	res, err := backend.NewFactory(l).CreateBackend(ctx, bc)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s backend: %w", bc.Type, err)
	}
	return res, l, nil
}
