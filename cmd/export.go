package cmd

import (
	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/internal/iostore"
	"github.com/spf13/cobra"
)

// exportCmd exports result history to Parquet or CSV files.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export result history to Parquet or CSV for analytics.",
	Long: `Export all stored result history for the tenant to per-table files.

Exports five datasets:
- Analysis runs - ledger metadata about each batch execution
- CTT stats - classical difficulty and discrimination history
- IRT params - 2PL parameter history
- Exposure stats - per-item exposure snapshots
- Detection results - every flag raised by detect runs

The --output-file value is used as a filename prefix; one file is written
per table.

Examples:
  # Export everything to Parquet for DuckDB/pandas
  itemwatch export --tenant acme --output-file itemwatch-data

  # Export CSV instead
  itemwatch export --tenant acme --output-file itemwatch-data --format csv`,
	PreRunE: sharedSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iostore.ExecuteExport(rootCtx, store, cfg); err != nil {
			contract.LogFatal("Cannot export data", err)
		}
	},
}
