package iostore

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/internal/parquet"
	"github.com/itemwatch/itemwatch/schema"
)

// ExecuteExport writes the full result history for a tenant to per-table
// Parquet or CSV files. The output file argument is used as a path prefix.
func ExecuteExport(ctx context.Context, store *Store, cfg *contract.Config) error {
	if cfg.OutputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := store.Status(ctx, cfg.TenantID)
	if err != nil {
		return fmt.Errorf("failed to get store status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no analysis data found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total analysis runs: %d\n", status.TotalRuns)

	runs, err := store.AllRuns(ctx, cfg.TenantID, 0)
	if err != nil {
		return fmt.Errorf("failed to retrieve analysis runs: %w", err)
	}
	cttStats, err := store.AllCttStats(ctx, cfg.TenantID, 0)
	if err != nil {
		return fmt.Errorf("failed to retrieve ctt stats: %w", err)
	}
	irtParams, err := store.AllIrtParams(ctx, cfg.TenantID, 0)
	if err != nil {
		return fmt.Errorf("failed to retrieve irt params: %w", err)
	}
	exposureStats, err := store.AllExposureStats(ctx, cfg.TenantID, 0)
	if err != nil {
		return fmt.Errorf("failed to retrieve exposure stats: %w", err)
	}
	detections, err := store.AllDetectionResults(ctx, cfg.TenantID, 0)
	if err != nil {
		return fmt.Errorf("failed to retrieve detection results: %w", err)
	}

	if cfg.ExportFormat == schema.CSVExport {
		return exportCSV(cfg.OutputFile, runs, cttStats, irtParams, exposureStats, detections)
	}
	return exportParquet(cfg.OutputFile, runs, cttStats, irtParams, exposureStats, detections)
}

// exportParquet writes one Parquet file per result table.
func exportParquet(
	prefix string,
	runs []schema.AnalysisRun,
	cttStats []schema.CttStat,
	irtParams []schema.IrtParam,
	exposureStats []schema.ExposureStat,
	detections []schema.DetectionResult,
) error {
	runsFile := prefix + ".runs.parquet"
	if err := parquet.WriteAnalysisRunsParquet(parquet.ConvertAnalysisRuns(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write analysis runs: %w", err)
	}
	fmt.Printf("Exported %d analysis runs to: %s\n", len(runs), runsFile)

	cttFile := prefix + ".ctt_stats.parquet"
	if err := parquet.WriteCttStatsParquet(parquet.ConvertCttStats(cttStats), cttFile); err != nil {
		return fmt.Errorf("failed to write ctt stats: %w", err)
	}
	fmt.Printf("Exported %d ctt stat rows to: %s\n", len(cttStats), cttFile)

	irtFile := prefix + ".irt_params.parquet"
	if err := parquet.WriteIrtParamsParquet(parquet.ConvertIrtParams(irtParams), irtFile); err != nil {
		return fmt.Errorf("failed to write irt params: %w", err)
	}
	fmt.Printf("Exported %d irt param rows to: %s\n", len(irtParams), irtFile)

	exposureFile := prefix + ".exposure_stats.parquet"
	if err := parquet.WriteExposureStatsParquet(parquet.ConvertExposureStats(exposureStats), exposureFile); err != nil {
		return fmt.Errorf("failed to write exposure stats: %w", err)
	}
	fmt.Printf("Exported %d exposure rows to: %s\n", len(exposureStats), exposureFile)

	detectionFile := prefix + ".detection_results.parquet"
	if err := parquet.WriteDetectionResultsParquet(parquet.ConvertDetectionResults(detections), detectionFile); err != nil {
		return fmt.Errorf("failed to write detection results: %w", err)
	}
	fmt.Printf("Exported %d detection rows to: %s\n", len(detections), detectionFile)

	fmt.Println("\nExport complete! The Parquet files can be used with DuckDB, pandas, Spark or any other Parquet-compatible tool.")
	return nil
}

// exportCSV writes one CSV file per result table.
func exportCSV(
	prefix string,
	runs []schema.AnalysisRun,
	cttStats []schema.CttStat,
	irtParams []schema.IrtParam,
	exposureStats []schema.ExposureStat,
	detections []schema.DetectionResult,
) error {
	runsFile := prefix + ".runs.csv"
	header := []string{"id", "tenant_id", "run_type", "params", "since", "dataset_hash", "software_version", "created_at"}
	err := writeCSVFile(runsFile, header, func(w *csv.Writer) error {
		for _, run := range runs {
			params, err := json.Marshal(run.Params)
			if err != nil {
				return err
			}
			rec := []string{
				run.ID, run.TenantID, string(run.RunType), string(params),
				run.Since.Format(contract.DateTimeFormat), run.DatasetHash,
				run.SoftwareVersion, run.CreatedAt.Format(contract.DateTimeFormat),
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write analysis runs: %w", err)
	}
	fmt.Printf("Exported %d analysis runs to: %s\n", len(runs), runsFile)

	cttFile := prefix + ".ctt_stats.csv"
	header = []string{"item_id", "analysis_run_id", "n", "p_value", "discrimination", "point_biserial", "mean_time_ms", "std_time_ms", "created_at"}
	err = writeCSVFile(cttFile, header, func(w *csv.Writer) error {
		for _, stat := range cttStats {
			rec := []string{
				stat.ItemID, stat.AnalysisRunID, strconv.Itoa(stat.N),
				formatFloat(stat.PValue), formatFloat(stat.Discrimination), formatFloat(stat.PointBiserial),
				formatNullableFloat(stat.MeanTimeMs), formatNullableFloat(stat.StdTimeMs),
				stat.CreatedAt.Format(contract.DateTimeFormat),
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write ctt stats: %w", err)
	}
	fmt.Printf("Exported %d ctt stat rows to: %s\n", len(cttStats), cttFile)

	irtFile := prefix + ".irt_params.csv"
	header = []string{"item_id", "analysis_run_id", "model", "a_param", "b_param", "c_param", "d_param", "estimation_method", "n", "created_at"}
	err = writeCSVFile(irtFile, header, func(w *csv.Writer) error {
		for _, param := range irtParams {
			rec := []string{
				param.ItemID, param.AnalysisRunID, string(param.Model),
				formatFloat(param.AParam), formatFloat(param.BParam),
				formatFloat(param.CParam), formatFloat(param.DParam),
				param.EstimationMethod, strconv.Itoa(param.N),
				param.CreatedAt.Format(contract.DateTimeFormat),
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write irt params: %w", err)
	}
	fmt.Printf("Exported %d irt param rows to: %s\n", len(irtParams), irtFile)

	exposureFile := prefix + ".exposure_stats.csv"
	header = []string{"item_id", "analysis_run_id", "exposure_count", "mean_time_ms", "created_at"}
	err = writeCSVFile(exposureFile, header, func(w *csv.Writer) error {
		for _, stat := range exposureStats {
			rec := []string{
				stat.ItemID, stat.AnalysisRunID, strconv.Itoa(stat.ExposureCount),
				formatNullableFloat(stat.MeanTimeMs),
				stat.CreatedAt.Format(contract.DateTimeFormat),
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write exposure stats: %w", err)
	}
	fmt.Printf("Exported %d exposure rows to: %s\n", len(exposureStats), exposureFile)

	detectionFile := prefix + ".detection_results.csv"
	header = []string{"id", "item_id", "detection_type", "metric_name", "metric_value", "threshold", "status", "details", "analysis_run_id", "created_at"}
	err = writeCSVFile(detectionFile, header, func(w *csv.Writer) error {
		for _, result := range detections {
			details, err := json.Marshal(result.Details)
			if err != nil {
				return err
			}
			rec := []string{
				result.ID, result.ItemID, string(result.DetectionType), result.MetricName,
				formatFloat(result.MetricValue), formatFloat(result.Threshold),
				string(result.Status), string(details), result.AnalysisRunID,
				result.CreatedAt.Format(contract.DateTimeFormat),
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write detection results: %w", err)
	}
	fmt.Printf("Exported %d detection rows to: %s\n", len(detections), detectionFile)

	fmt.Println("\nExport complete!")
	return nil
}

// writeCSVFile creates a file, writes the header and delegates row writing.
func writeCSVFile(path string, header []string, writeRows func(*csv.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write(header); err != nil {
		return err
	}
	if err := writeRows(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNullableFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
