package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prospectlens/prospectlens/internal/core"
	"github.com/prospectlens/prospectlens/internal/core/engine"
	"github.com/prospectlens/prospectlens/internal/observability"
)

// maxWaitRetries bounds --wait so a misconfigured interval cannot loop forever.
const maxWaitRetries = 3

var enrichCmd = &cobra.Command{
	Use:   "enrich <name>...",
	Short: "Fill missing facts about prospects using the configured LLM provider",
	Long: `Ask the configured provider for the missing financial and CRM facts about each
prospect and merge the answer into the sheet. Only empty cells or changed values
are written; the company name is never rewritten.

Enrichment requests are spaced by enrich.min_interval. A request arriving too
early is reported as throttled; use --wait to sleep and retry instead.`,
	Example: `  prospectlens enrich "Acme"
  prospectlens enrich "Acme" --dry-run -o json
  prospectlens enrich "Acme" "Beta SA" --wait`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		model, _ := cmd.Flags().GetString("model")
		wait, _ := cmd.Flags().GetBool("wait")

		formatter, err := formatterFor(cmd)
		if err != nil {
			return err
		}
		sess, err := commandSession(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer sess.Close()

		logger := observability.Logger()
		opts := engine.EnrichOptions{DryRun: dryRun, Model: model}
		for _, subject := range args {
			result, err := enrichWithWait(cmd, sess.enricher, subject, opts, wait)
			if err != nil {
				return fmt.Errorf("enrich %s: %w", subject, err)
			}
			logger.Debug("Enrichment result",
				zap.String("subject", result.Subject),
				zap.String("status", string(result.Status)))

			rendered, err := formatter.FormatResult(result)
			if err != nil {
				return err
			}
			if err := emit(cmd, rendered); err != nil {
				return err
			}
		}
		return nil
	},
}

func enrichWithWait(cmd *cobra.Command, enricher *engine.Enricher, subject string, opts engine.EnrichOptions, wait bool) (*core.EnrichResult, error) {
	ctx := cmd.Context()
	for attempt := 0; ; attempt++ {
		result, err := enricher.Enrich(ctx, subject, opts)
		if err != nil {
			return nil, err
		}
		if result.Status != core.EnrichThrottled || !wait || attempt >= maxWaitRetries {
			return result, nil
		}

		observability.Logger().Info("Throttled, waiting before retry",
			zap.String("subject", result.Subject),
			zap.Duration("retry_after", result.RetryAfter))
		timer := time.NewTimer(result.RetryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func init() {
	rootCmd.AddCommand(enrichCmd)

	enrichCmd.Flags().Bool("dry-run", false, "show the merged record without saving")
	enrichCmd.Flags().String("model", "", "override the provider model")
	enrichCmd.Flags().Bool("wait", false, "sleep and retry when throttled")
}
