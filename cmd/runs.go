package cmd

import (
	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/internal/outwriter"
	"github.com/spf13/cobra"
)

// runsCmd lists the run ledger history.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded analysis runs, newest first.",
	Long: `List entries from the append-only run ledger, newest first.

Each entry shows the run type, the window start it covered, the dataset
fingerprint and the software version that produced it.

Examples:
  # Show the last 50 runs
  itemwatch runs --tenant acme

  # Show the last 10 runs as JSON
  itemwatch runs --tenant acme --limit 10 --output json`,
	PreRunE: sharedSetup,
	Run: func(_ *cobra.Command, _ []string) {
		runs, err := store.AllRuns(rootCtx, cfg.TenantID, cfg.ResultLimit)
		if err != nil {
			contract.LogFatal("Cannot list runs", err)
		}
		if err := outwriter.WriteRuns(runs, cfg); err != nil {
			contract.LogFatal("Cannot write runs", err)
		}
	},
}
