package commands

import (
	"fmt"

	"bilancio/internal/backend"

	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema of the configured backend",
	}
	cmd.AddCommand(newMigrateUpCommand(), newMigrateDownCommand(), newMigrateVersionCommand())
	return cmd
}

func migrationConfig() (backend.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return backend.Config{}, err
	}
	return backend.FromAppConfig(cfg)
}

func newMigrateUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bc, err := migrationConfig()
			if err != nil {
				return err
			}
			if err := backend.MigrateUp(bc); err != nil {
				return err
			}
			return printVersion(cmd, bc)
		},
	}
}

func newMigrateDownCommand() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			bc, err := migrationConfig()
			if err != nil {
				return err
			}
			if err := backend.MigrateDown(bc, steps); err != nil {
				return err
			}
			return printVersion(cmd, bc)
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert")

	return cmd
}

func newMigrateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bc, err := migrationConfig()
			if err != nil {
				return err
			}
			return printVersion(cmd, bc)
		},
	}
}

func printVersion(cmd *cobra.Command, bc backend.Config) error {
	v, dirty, err := backend.MigrationVersion(bc)
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s schema version %d (%s)\n", bc.Type, v, state)
	return nil
}
