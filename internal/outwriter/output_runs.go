package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/schema"
	"github.com/olekukonko/tablewriter"
)

// WriteRuns outputs the run ledger history, dispatching based on the output
// format configured.
func WriteRuns(runs []schema.AnalysisRun, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRunsJSON(w, runs)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRunsCSV(w, runs)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRunsTable(w, runs)
		}, "Wrote table")
	}
}

// writeRunsTable generates and writes the human-readable run ledger table.
func writeRunsTable(w io.Writer, runs []schema.AnalysisRun) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Run ID", "Type", "Since", "Dataset Hash", "Version", "Created"})

	var data [][]string
	for _, run := range runs {
		data = append(data, []string{
			run.ID,
			string(run.RunType),
			run.Since.Format(contract.DateTimeFormat),
			truncateID(run.DatasetHash, 12),
			run.SoftwareVersion,
			run.CreatedAt.Format(contract.DateTimeFormat),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d runs\n", len(runs))
	return err
}

// writeRunsCSV writes the run ledger in CSV format.
func writeRunsCSV(w io.Writer, runs []schema.AnalysisRun) error {
	header := []string{"id", "run_type", "since", "dataset_hash", "software_version", "created_at", "params"}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for _, run := range runs {
			params, err := json.Marshal(run.Params)
			if err != nil {
				return fmt.Errorf("failed to marshal run params: %w", err)
			}
			rec := []string{
				run.ID,
				string(run.RunType),
				run.Since.Format(contract.DateTimeFormat),
				run.DatasetHash,
				run.SoftwareVersion,
				run.CreatedAt.Format(contract.DateTimeFormat),
				string(params),
			}
			if err := csvWriter.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeRunsJSON writes the run ledger in JSON format.
func writeRunsJSON(w io.Writer, runs []schema.AnalysisRun) error {
	type JSONRun struct {
		ID              string         `json:"id"`
		RunType         string         `json:"runType"`
		Params          map[string]any `json:"params,omitempty"`
		Since           string         `json:"since"`
		DatasetHash     string         `json:"datasetHash"`
		SoftwareVersion string         `json:"softwareVersion"`
		CreatedAt       string         `json:"createdAt"`
	}

	output := make([]JSONRun, len(runs))
	for i, run := range runs {
		output[i] = JSONRun{
			ID:              run.ID,
			RunType:         string(run.RunType),
			Params:          run.Params,
			Since:           run.Since.Format(contract.DateTimeFormat),
			DatasetHash:     run.DatasetHash,
			SoftwareVersion: run.SoftwareVersion,
			CreatedAt:       run.CreatedAt.Format(contract.DateTimeFormat),
		}
	}

	return writeJSON(w, output)
}
