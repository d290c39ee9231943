package cmd

import (
	"fmt"

	"github.com/itemwatch/itemwatch/core"
	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/internal/outwriter"
	"github.com/itemwatch/itemwatch/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runCmd executes a single batch task against the response window.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a batch analysis task over the response window.",
	Long: `Execute one batch task over the configured response window and append
its results to the store.

Tasks:
  ctt      - Classical test theory stats (difficulty, point-biserial, timing)
  irt      - 2PL item parameter estimation via batch gradient ascent
  exposure - Per-item exposure counts and mean response time
  detect   - Rule-based anomaly detection over accumulated result history

Every invocation is recorded on the run ledger with its parameters and a
dataset fingerprint, so any result row can be traced back to the window
and configuration that produced it.

The detect task compares the two most recent CTT/IRT rows per item, so it
is only useful after at least two ctt or irt runs have accumulated.

Examples:
  # Compute classical stats for the default 30-day window
  itemwatch run --task ctt --tenant acme

  # Fit 2PL parameters with more workers
  itemwatch run --task irt --tenant acme --workers 8

  # Flag drift, overexposure and subgroup gaps
  itemwatch run --task detect --tenant acme`,
	PreRunE: sharedSetup,
	Run: func(_ *cobra.Command, _ []string) {
		task := schema.TaskName(viper.GetString("task"))
		runType, ok := schema.ValidTaskNames[task]
		if !ok {
			contract.LogFatal("Cannot run task", fmt.Errorf("invalid task '%s'. must be ctt, irt, exposure, detect", task))
		}

		switch task {
		case schema.CttTask:
			summary, err := core.ExecuteCtt(rootCtx, cfg, store)
			if err != nil {
				contract.LogFatal("Cannot run ctt task", err)
			}
			if err := outwriter.WriteTaskSummary(summary, runType, cfg); err != nil {
				contract.LogFatal("Cannot write ctt summary", err)
			}
		case schema.IrtTask:
			summary, err := core.ExecuteIrt(rootCtx, cfg, store)
			if err != nil {
				contract.LogFatal("Cannot run irt task", err)
			}
			if err := outwriter.WriteTaskSummary(summary, runType, cfg); err != nil {
				contract.LogFatal("Cannot write irt summary", err)
			}
		case schema.ExposureTask:
			summary, err := core.ExecuteExposure(rootCtx, cfg, store)
			if err != nil {
				contract.LogFatal("Cannot run exposure task", err)
			}
			if err := outwriter.WriteTaskSummary(summary, runType, cfg); err != nil {
				contract.LogFatal("Cannot write exposure summary", err)
			}
		case schema.DetectTask:
			summary, err := core.ExecuteDetection(rootCtx, cfg, store)
			if err != nil {
				contract.LogFatal("Cannot run detect task", err)
			}
			if err := outwriter.WriteDetectionSummary(summary, cfg); err != nil {
				contract.LogFatal("Cannot write detect summary", err)
			}
		}
	},
}
