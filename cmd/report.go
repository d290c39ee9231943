package cmd

import (
	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/internal/outwriter"
	"github.com/spf13/cobra"
)

// reportCmd lists detection results.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show detection results, newest first.",
	Long: `Show detection results accumulated by detect runs, newest first.

Each row names the item, the rule that fired (IPD, DIF, EXPOSURE, TIME),
the metric value that crossed its threshold and the review status.

Examples:
  # Review the latest detections
  itemwatch report --tenant acme

  # Export detections for a review pipeline
  itemwatch report --tenant acme --output csv --output-file flags.csv`,
	PreRunE: sharedSetup,
	Run: func(_ *cobra.Command, _ []string) {
		results, err := store.AllDetectionResults(rootCtx, cfg.TenantID, cfg.ResultLimit)
		if err != nil {
			contract.LogFatal("Cannot list detection results", err)
		}
		if err := outwriter.WriteDetectionReport(results, cfg); err != nil {
			contract.LogFatal("Cannot write detection report", err)
		}
	},
}
