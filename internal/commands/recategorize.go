package commands

import (
	"fmt"

	"bilancio/internal/services"

	"github.com/spf13/cobra"
)

func newRecategorizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recategorize",
		Short: "Apply the merchant rules to every uncategorized transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			res, _, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer res.Close()

			n, err := services.NewCategorizationService(res.Store).RecategorizeUncategorized(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d transactions\n", n)
			return nil
		},
	}
}
