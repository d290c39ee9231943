package iostore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/itemwatch/itemwatch/schema"
)

// nullFloat converts an optional float into its bind value.
func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// InsertCttStat appends one classical statistics row for the tenant.
func (s *Store) InsertCttStat(ctx context.Context, tenantID string, stat *schema.CttStat) error {
	quotedTableName := quoteTableName(cttStatsTable, s.backend)

	var query string
	switch s.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`
			INSERT INTO %s (tenant_id, item_id, analysis_run_id, n, p_value, discrimination,
			                point_biserial, mean_time_ms, std_time_ms, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`
			INSERT INTO %s (tenant_id, item_id, analysis_run_id, n, p_value, discrimination,
			                point_biserial, mean_time_ms, std_time_ms, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, quotedTableName)
	}

	_, err := s.db.ExecContext(ctx, query,
		tenantID, stat.ItemID, stat.AnalysisRunID, stat.N, stat.PValue, stat.Discrimination,
		stat.PointBiserial, nullFloat(stat.MeanTimeMs), nullFloat(stat.StdTimeMs),
		formatTime(stat.CreatedAt, s.backend))
	if err != nil {
		return fmt.Errorf("failed to insert ctt stat: %w", err)
	}
	return nil
}

// InsertIrtParam appends one IRT parameter row for the tenant.
func (s *Store) InsertIrtParam(ctx context.Context, tenantID string, param *schema.IrtParam) error {
	quotedTableName := quoteTableName(irtParamsTable, s.backend)

	var query string
	switch s.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`
			INSERT INTO %s (tenant_id, item_id, analysis_run_id, model, a_param, b_param,
			                c_param, d_param, estimation_method, n, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`
			INSERT INTO %s (tenant_id, item_id, analysis_run_id, model, a_param, b_param,
			                c_param, d_param, estimation_method, n, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, quotedTableName)
	}

	_, err := s.db.ExecContext(ctx, query,
		tenantID, param.ItemID, param.AnalysisRunID, string(param.Model), param.AParam, param.BParam,
		param.CParam, param.DParam, param.EstimationMethod, param.N,
		formatTime(param.CreatedAt, s.backend))
	if err != nil {
		return fmt.Errorf("failed to insert irt params: %w", err)
	}
	return nil
}

// InsertExposureStat appends one exposure row for the tenant.
func (s *Store) InsertExposureStat(ctx context.Context, tenantID string, stat *schema.ExposureStat) error {
	quotedTableName := quoteTableName(exposureStatsTable, s.backend)

	var query string
	switch s.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`
			INSERT INTO %s (tenant_id, item_id, analysis_run_id, exposure_count, mean_time_ms, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`
			INSERT INTO %s (tenant_id, item_id, analysis_run_id, exposure_count, mean_time_ms, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, quotedTableName)
	}

	_, err := s.db.ExecContext(ctx, query,
		tenantID, stat.ItemID, stat.AnalysisRunID, stat.ExposureCount,
		nullFloat(stat.MeanTimeMs), formatTime(stat.CreatedAt, s.backend))
	if err != nil {
		return fmt.Errorf("failed to insert exposure stat: %w", err)
	}
	return nil
}

// InsertDetectionResult appends one flagged detection row for the tenant.
func (s *Store) InsertDetectionResult(ctx context.Context, tenantID string, result *schema.DetectionResult) error {
	detailsJSON, err := json.Marshal(result.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal detection details: %w", err)
	}

	quotedTableName := quoteTableName(detectionResultsTable, s.backend)

	var query string
	switch s.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`
			INSERT INTO %s (id, tenant_id, item_id, detection_type, metric_name, metric_value,
			                threshold, status, details, analysis_run_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`
			INSERT INTO %s (id, tenant_id, item_id, detection_type, metric_name, metric_value,
			                threshold, status, details, analysis_run_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, quotedTableName)
	}

	_, err = s.db.ExecContext(ctx, query,
		result.ID, tenantID, result.ItemID, string(result.DetectionType), result.MetricName,
		result.MetricValue, result.Threshold, string(result.Status), string(detailsJSON),
		result.AnalysisRunID, formatTime(result.CreatedAt, s.backend))
	if err != nil {
		return fmt.Errorf("failed to insert detection result: %w", err)
	}
	return nil
}
