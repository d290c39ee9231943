package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteDetectionReport outputs detection results, dispatching based on the
// output format configured.
func WriteDetectionReport(results []schema.DetectionResult, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportJSON(w, results)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportCSV(w, results)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportTable(w, results, cfg)
		}, "Wrote table")
	}
}

// writeReportTable generates and writes the human-readable detection table.
func writeReportTable(w io.Writer, results []schema.DetectionResult, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Item", "Type", "Metric", "Value", "Threshold", "Status", "Created"})

	table.Configure(func(tcfg *tablewriter.Config) {
		tcfg.Row.Alignment.Global = tw.AlignRight
	})

	maxWidth := GetMaxTableItemWidth()
	var data [][]string
	flagged := 0
	for _, r := range results {
		if r.Status == schema.StatusFlagged {
			flagged++
		}
		data = append(data, []string{
			truncateID(r.ItemID, maxWidth),
			string(r.DetectionType),
			r.MetricName,
			strconv.FormatFloat(r.MetricValue, 'f', 4, 64),
			strconv.FormatFloat(r.Threshold, 'f', 4, 64),
			contract.GetStatusLabel(r.Status, cfg.UseColors),
			r.CreatedAt.Format(contract.DateTimeFormat),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d detections (%d flagged)\n", len(results), flagged)
	return err
}

// writeReportCSV writes detection results in CSV format.
func writeReportCSV(w io.Writer, results []schema.DetectionResult) error {
	header := []string{"id", "item_id", "detection_type", "metric_name", "metric_value", "threshold", "status", "details", "analysis_run_id", "created_at"}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for _, r := range results {
			details, err := json.Marshal(r.Details)
			if err != nil {
				return fmt.Errorf("failed to marshal detection details: %w", err)
			}
			rec := []string{
				r.ID,
				r.ItemID,
				string(r.DetectionType),
				r.MetricName,
				strconv.FormatFloat(r.MetricValue, 'f', -1, 64),
				strconv.FormatFloat(r.Threshold, 'f', -1, 64),
				string(r.Status),
				string(details),
				r.AnalysisRunID,
				r.CreatedAt.Format(contract.DateTimeFormat),
			}
			if err := csvWriter.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeReportJSON writes detection results in JSON format.
func writeReportJSON(w io.Writer, results []schema.DetectionResult) error {
	type JSONDetection struct {
		ID            string         `json:"id"`
		ItemID        string         `json:"itemId"`
		DetectionType string         `json:"detectionType"`
		MetricName    string         `json:"metricName"`
		MetricValue   float64        `json:"metricValue"`
		Threshold     float64        `json:"threshold"`
		Status        string         `json:"status"`
		Details       map[string]any `json:"details,omitempty"`
		AnalysisRunID string         `json:"analysisRunId"`
		CreatedAt     string         `json:"createdAt"`
	}

	output := make([]JSONDetection, len(results))
	for i, r := range results {
		output[i] = JSONDetection{
			ID:            r.ID,
			ItemID:        r.ItemID,
			DetectionType: string(r.DetectionType),
			MetricName:    r.MetricName,
			MetricValue:   r.MetricValue,
			Threshold:     r.Threshold,
			Status:        string(r.Status),
			Details:       r.Details,
			AnalysisRunID: r.AnalysisRunID,
			CreatedAt:     r.CreatedAt.Format(contract.DateTimeFormat),
		}
	}

	return writeJSON(w, output)
}
