// Package parquet provides data structures and functions for exporting
// analysis data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/itemwatch/itemwatch/schema"
	"github.com/parquet-go/parquet-go"
)

// AnalysisRun maps the itemwatch_analysis_runs table to a Parquet row.
type AnalysisRun struct {
	ID              string    `parquet:"id,snappy"`
	TenantID        string    `parquet:"tenant_id,snappy"`
	RunType         string    `parquet:"run_type,snappy"`
	Params          *string   `parquet:"params,optional,snappy"`
	Since           time.Time `parquet:"since,snappy"`
	DatasetHash     string    `parquet:"dataset_hash,snappy"`
	SoftwareVersion string    `parquet:"software_version,snappy"`
	CreatedAt       time.Time `parquet:"created_at,snappy"`
}

// CttStat maps the itemwatch_item_ctt_stats table to a Parquet row.
type CttStat struct {
	ItemID         string    `parquet:"item_id,snappy"`
	AnalysisRunID  string    `parquet:"analysis_run_id,snappy"`
	N              int32     `parquet:"n,snappy"`
	PValue         float64   `parquet:"p_value,snappy"`
	Discrimination float64   `parquet:"discrimination,snappy"`
	PointBiserial  float64   `parquet:"point_biserial,snappy"`
	MeanTimeMs     *float64  `parquet:"mean_time_ms,optional,snappy"`
	StdTimeMs      *float64  `parquet:"std_time_ms,optional,snappy"`
	CreatedAt      time.Time `parquet:"created_at,snappy"`
}

// IrtParam maps the itemwatch_item_irt_params table to a Parquet row.
type IrtParam struct {
	ItemID           string    `parquet:"item_id,snappy"`
	AnalysisRunID    string    `parquet:"analysis_run_id,snappy"`
	Model            string    `parquet:"model,snappy"`
	AParam           float64   `parquet:"a_param,snappy"`
	BParam           float64   `parquet:"b_param,snappy"`
	CParam           float64   `parquet:"c_param,snappy"`
	DParam           float64   `parquet:"d_param,snappy"`
	EstimationMethod string    `parquet:"estimation_method,snappy"`
	N                int32     `parquet:"n,snappy"`
	CreatedAt        time.Time `parquet:"created_at,snappy"`
}

// ExposureStat maps the itemwatch_item_exposure_stats table to a Parquet row.
type ExposureStat struct {
	ItemID        string    `parquet:"item_id,snappy"`
	AnalysisRunID string    `parquet:"analysis_run_id,snappy"`
	ExposureCount int32     `parquet:"exposure_count,snappy"`
	MeanTimeMs    *float64  `parquet:"mean_time_ms,optional,snappy"`
	CreatedAt     time.Time `parquet:"created_at,snappy"`
}

// DetectionResult maps the itemwatch_item_detection_results table to a Parquet row.
type DetectionResult struct {
	ID            string    `parquet:"id,snappy"`
	ItemID        string    `parquet:"item_id,snappy"`
	DetectionType string    `parquet:"detection_type,snappy"`
	MetricName    string    `parquet:"metric_name,snappy"`
	MetricValue   float64   `parquet:"metric_value,snappy"`
	Threshold     float64   `parquet:"threshold,snappy"`
	Status        string    `parquet:"status,snappy"`
	Details       *string   `parquet:"details,optional,snappy"`
	AnalysisRunID string    `parquet:"analysis_run_id,snappy"`
	CreatedAt     time.Time `parquet:"created_at,snappy"`
}

// writeParquet writes rows to a Parquet file using struct schema inference.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteAnalysisRunsParquet writes analysis run rows to a Parquet file.
func WriteAnalysisRunsParquet(data []AnalysisRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteCttStatsParquet writes CTT stat rows to a Parquet file.
func WriteCttStatsParquet(data []CttStat, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteIrtParamsParquet writes IRT parameter rows to a Parquet file.
func WriteIrtParamsParquet(data []IrtParam, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteExposureStatsParquet writes exposure rows to a Parquet file.
func WriteExposureStatsParquet(data []ExposureStat, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteDetectionResultsParquet writes detection result rows to a Parquet file.
func WriteDetectionResultsParquet(data []DetectionResult, outputPath string) error {
	return writeParquet(data, outputPath)
}

// jsonString marshals a details map into a nullable JSON column value.
func jsonString(m map[string]any) *string {
	if len(m) == 0 {
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	s := string(raw)
	return &s
}

// ConvertAnalysisRuns converts schema.AnalysisRun rows for Parquet export.
func ConvertAnalysisRuns(records []schema.AnalysisRun) []AnalysisRun {
	result := make([]AnalysisRun, len(records))
	for i, record := range records {
		result[i] = AnalysisRun{
			ID:              record.ID,
			TenantID:        record.TenantID,
			RunType:         string(record.RunType),
			Params:          jsonString(record.Params),
			Since:           record.Since,
			DatasetHash:     record.DatasetHash,
			SoftwareVersion: record.SoftwareVersion,
			CreatedAt:       record.CreatedAt,
		}
	}
	return result
}

// ConvertCttStats converts schema.CttStat rows for Parquet export.
func ConvertCttStats(records []schema.CttStat) []CttStat {
	result := make([]CttStat, len(records))
	for i, record := range records {
		result[i] = CttStat{
			ItemID:         record.ItemID,
			AnalysisRunID:  record.AnalysisRunID,
			N:              int32(record.N),
			PValue:         record.PValue,
			Discrimination: record.Discrimination,
			PointBiserial:  record.PointBiserial,
			MeanTimeMs:     record.MeanTimeMs,
			StdTimeMs:      record.StdTimeMs,
			CreatedAt:      record.CreatedAt,
		}
	}
	return result
}

// ConvertIrtParams converts schema.IrtParam rows for Parquet export.
func ConvertIrtParams(records []schema.IrtParam) []IrtParam {
	result := make([]IrtParam, len(records))
	for i, record := range records {
		result[i] = IrtParam{
			ItemID:           record.ItemID,
			AnalysisRunID:    record.AnalysisRunID,
			Model:            string(record.Model),
			AParam:           record.AParam,
			BParam:           record.BParam,
			CParam:           record.CParam,
			DParam:           record.DParam,
			EstimationMethod: record.EstimationMethod,
			N:                int32(record.N),
			CreatedAt:        record.CreatedAt,
		}
	}
	return result
}

// ConvertExposureStats converts schema.ExposureStat rows for Parquet export.
func ConvertExposureStats(records []schema.ExposureStat) []ExposureStat {
	result := make([]ExposureStat, len(records))
	for i, record := range records {
		result[i] = ExposureStat{
			ItemID:        record.ItemID,
			AnalysisRunID: record.AnalysisRunID,
			ExposureCount: int32(record.ExposureCount),
			MeanTimeMs:    record.MeanTimeMs,
			CreatedAt:     record.CreatedAt,
		}
	}
	return result
}

// ConvertDetectionResults converts schema.DetectionResult rows for Parquet export.
func ConvertDetectionResults(records []schema.DetectionResult) []DetectionResult {
	result := make([]DetectionResult, len(records))
	for i, record := range records {
		result[i] = DetectionResult{
			ID:            record.ID,
			ItemID:        record.ItemID,
			DetectionType: string(record.DetectionType),
			MetricName:    record.MetricName,
			MetricValue:   record.MetricValue,
			Threshold:     record.Threshold,
			Status:        string(record.Status),
			Details:       jsonString(record.Details),
			AnalysisRunID: record.AnalysisRunID,
			CreatedAt:     record.CreatedAt,
		}
	}
	return result
}
