package commands

import (
	"errors"
	"fmt"

	"bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/statement"

	"github.com/spf13/cobra"
)

func newImportCommand() *cobra.Command {
	var dryRun bool
	var noRules bool

	cmd := &cobra.Command{
		Use:   "import <statement>...",
		Short: "Import one or more statement exports into the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			res, l, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer res.Close()

			svc := services.NewImportService(res.Store, res.Store, nil, cfg.ImportApplyRules && !noRules)
			out := cmd.OutOrStdout()

			for _, path := range args {
				parsed, err := parseFile(path)
				if errors.Is(err, statement.ErrNoValidRows) {
					fmt.Fprintf(out, "%s: no completed transactions (%d rows read)\n", path, parsed.RawRows)
					continue
				}
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if dryRun {
					fmt.Fprintf(out, "%s: %d candidates, %d rows skipped\n", path, len(parsed.Transactions), parsed.Skipped)
					continue
				}

				result, err := svc.Import(cmd.Context(), parsed.Transactions)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fields := log.NewFields().
					WithOperation(log.OpImport).
					WithImport(result.Imported, result.Skipped, result.Total)
				l.Debug("Statement imported", append(fields.ToSlice(), log.FieldFilename, path)...)
				fmt.Fprintf(out, "%s: imported %d, skipped %d of %d\n", path, result.Imported, result.Skipped, result.Total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse only, do not write")
	cmd.Flags().BoolVar(&noRules, "no-rules", false, "do not apply merchant rules to new rows")

	return cmd
}
