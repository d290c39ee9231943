package outwriter

import (
	"fmt"
	"io"

	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/schema"
)

// WriteTaskSummary outputs the summary for a ctt/irt/exposure run.
func WriteTaskSummary(summary *schema.TaskSummary, runType schema.RunType, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, summary)
		}, "Wrote JSON")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeTaskSummaryText(w, summary, runType)
	}, "Wrote summary")
}

// writeTaskSummaryText writes the one-line human-readable task summary.
func writeTaskSummaryText(w io.Writer, summary *schema.TaskSummary, runType schema.RunType) error {
	_, err := fmt.Fprintf(w, "✅ %s run %s wrote stats for %d items\n",
		runType, summary.AnalysisRunID, summary.ItemCount)
	return err
}

// WriteDetectionSummary outputs per-rule flag counts for a detect run.
func WriteDetectionSummary(summary *schema.DetectionSummary, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, summary)
		}, "Wrote JSON")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeDetectionSummaryText(w, summary)
	}, "Wrote summary")
}

// writeDetectionSummaryText writes the human-readable detection summary.
func writeDetectionSummaryText(w io.Writer, summary *schema.DetectionSummary) error {
	total := summary.IpdCount + summary.DifCount + summary.ExposureCount + summary.TimeCount
	fmt.Fprintf(w, "✅ detect run %s flagged %d results\n", summary.AnalysisRunID, total)
	fmt.Fprintf(w, "  ipd:      %d\n", summary.IpdCount)
	fmt.Fprintf(w, "  dif:      %d\n", summary.DifCount)
	fmt.Fprintf(w, "  exposure: %d\n", summary.ExposureCount)
	fmt.Fprintf(w, "  time:     %d\n", summary.TimeCount)
	return nil
}
