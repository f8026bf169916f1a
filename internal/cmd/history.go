package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [name]",
	Short: "Show recent enrichment attempts",
	Long: `Show enrichment attempts recorded in the store, newest first. Attempts are
recorded when enrich.history is enabled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		subject := ""
		if len(args) == 1 {
			subject = strings.TrimSpace(args[0])
		}

		formatter, err := formatterFor(cmd)
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), appConfig)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck

		entries, err := db.ListHistory(cmd.Context(), subject, limit)
		if err != nil {
			return err
		}
		rendered, err := formatter.FormatHistory(entries)
		if err != nil {
			return err
		}
		return emit(cmd, rendered)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int("limit", 20, "maximum entries (0 for all)")
}
