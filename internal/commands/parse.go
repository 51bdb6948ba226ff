package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"bilancio/internal/statement"

	"github.com/spf13/cobra"
)

func newParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <statement>",
		Short: "Parse a statement export and print the candidate transactions as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := parseFile(args[0])
			if err != nil && !errors.Is(err, statement.ErrNoValidRows) {
				return err
			}
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func parseFile(path string) (statement.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return statement.Result{}, fmt.Errorf("reading statement: %w", err)
	}
	return statement.ParseBytes(data, filepath.Base(path))
}
