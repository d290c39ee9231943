package cmd

import (
	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/internal/outwriter"
	"github.com/spf13/cobra"
)

// statusCmd shows store connectivity and row counts.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display store statistics and connection details.",
	Long: `Show detailed information about the result store.

Displays:
- Backend type and connection status
- Total number of analysis runs stored for the tenant
- The most recent run and when it happened
- Per-table row counts

Examples:
  # Check store health
  itemwatch status --tenant acme`,
	PreRunE: sharedSetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := store.Status(rootCtx, cfg.TenantID)
		if err != nil {
			contract.LogFatal("Cannot get store status", err)
		}
		if err := outwriter.WriteStatus(status, cfg); err != nil {
			contract.LogFatal("Cannot write store status", err)
		}
	},
}
