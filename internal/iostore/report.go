package iostore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/itemwatch/itemwatch/schema"
)

// AllCttStats retrieves the tenant's CTT history, newest first. A limit of 0
// or less returns everything.
func (s *Store) AllCttStats(ctx context.Context, tenantID string, limit int) ([]schema.CttStat, error) {
	quotedTableName := quoteTableName(cttStatsTable, s.backend)

	var query string
	switch s.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`
			SELECT item_id, analysis_run_id, n, p_value, discrimination, point_biserial,
			       mean_time_ms, std_time_ms, created_at
			FROM %s WHERE tenant_id = $1 ORDER BY created_at DESC, id DESC
		`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`
			SELECT item_id, analysis_run_id, n, p_value, discrimination, point_biserial,
			       mean_time_ms, std_time_ms, created_at
			FROM %s WHERE tenant_id = ? ORDER BY created_at DESC, id DESC
		`, quotedTableName)
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ctt stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.CttStat

	for rows.Next() {
		var record schema.CttStat
		var meanTime, stdTime sql.NullFloat64

		switch s.backend {
		case schema.SQLiteBackend:
			var createdStr string
			if err := rows.Scan(&record.ItemID, &record.AnalysisRunID, &record.N, &record.PValue,
				&record.Discrimination, &record.PointBiserial, &meanTime, &stdTime, &createdStr); err != nil {
				return nil, fmt.Errorf("failed to scan ctt stat: %w", err)
			}
			if record.CreatedAt, err = parseStoredTime(createdStr); err != nil {
				return nil, err
			}
		default: // MySQL and PostgreSQL store as native datetime
			if err := rows.Scan(&record.ItemID, &record.AnalysisRunID, &record.N, &record.PValue,
				&record.Discrimination, &record.PointBiserial, &meanTime, &stdTime, &record.CreatedAt); err != nil {
				return nil, fmt.Errorf("failed to scan ctt stat: %w", err)
			}
		}

		if meanTime.Valid {
			record.MeanTimeMs = &meanTime.Float64
		}
		if stdTime.Valid {
			record.StdTimeMs = &stdTime.Float64
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ctt stats: %w", err)
	}

	return results, nil
}

// AllIrtParams retrieves the tenant's IRT history, newest first. A limit of
// 0 or less returns everything.
func (s *Store) AllIrtParams(ctx context.Context, tenantID string, limit int) ([]schema.IrtParam, error) {
	quotedTableName := quoteTableName(irtParamsTable, s.backend)

	var query string
	switch s.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`
			SELECT item_id, analysis_run_id, model, a_param, b_param, c_param, d_param,
			       estimation_method, n, created_at
			FROM %s WHERE tenant_id = $1 ORDER BY created_at DESC, id DESC
		`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`
			SELECT item_id, analysis_run_id, model, a_param, b_param, c_param, d_param,
			       estimation_method, n, created_at
			FROM %s WHERE tenant_id = ? ORDER BY created_at DESC, id DESC
		`, quotedTableName)
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query irt params: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.IrtParam

	for rows.Next() {
		var record schema.IrtParam
		var model string

		switch s.backend {
		case schema.SQLiteBackend:
			var createdStr string
			if err := rows.Scan(&record.ItemID, &record.AnalysisRunID, &model, &record.AParam,
				&record.BParam, &record.CParam, &record.DParam, &record.EstimationMethod,
				&record.N, &createdStr); err != nil {
				return nil, fmt.Errorf("failed to scan irt params: %w", err)
			}
			if record.CreatedAt, err = parseStoredTime(createdStr); err != nil {
				return nil, err
			}
		default: // MySQL and PostgreSQL store as native datetime
			if err := rows.Scan(&record.ItemID, &record.AnalysisRunID, &model, &record.AParam,
				&record.BParam, &record.CParam, &record.DParam, &record.EstimationMethod,
				&record.N, &record.CreatedAt); err != nil {
				return nil, fmt.Errorf("failed to scan irt params: %w", err)
			}
		}

		record.Model = schema.ModelKind(model)
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating irt params: %w", err)
	}

	return results, nil
}

// AllExposureStats retrieves the tenant's exposure history, newest first. A
// limit of 0 or less returns everything.
func (s *Store) AllExposureStats(ctx context.Context, tenantID string, limit int) ([]schema.ExposureStat, error) {
	quotedTableName := quoteTableName(exposureStatsTable, s.backend)

	var query string
	switch s.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`
			SELECT item_id, analysis_run_id, exposure_count, mean_time_ms, created_at
			FROM %s WHERE tenant_id = $1 ORDER BY created_at DESC, id DESC
		`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`
			SELECT item_id, analysis_run_id, exposure_count, mean_time_ms, created_at
			FROM %s WHERE tenant_id = ? ORDER BY created_at DESC, id DESC
		`, quotedTableName)
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exposure stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ExposureStat

	for rows.Next() {
		var record schema.ExposureStat
		var meanTime sql.NullFloat64

		switch s.backend {
		case schema.SQLiteBackend:
			var createdStr string
			if err := rows.Scan(&record.ItemID, &record.AnalysisRunID, &record.ExposureCount, &meanTime, &createdStr); err != nil {
				return nil, fmt.Errorf("failed to scan exposure stat: %w", err)
			}
			if record.CreatedAt, err = parseStoredTime(createdStr); err != nil {
				return nil, err
			}
		default: // MySQL and PostgreSQL store as native datetime
			if err := rows.Scan(&record.ItemID, &record.AnalysisRunID, &record.ExposureCount, &meanTime, &record.CreatedAt); err != nil {
				return nil, fmt.Errorf("failed to scan exposure stat: %w", err)
			}
		}

		if meanTime.Valid {
			record.MeanTimeMs = &meanTime.Float64
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exposure stats: %w", err)
	}

	return results, nil
}

// AllDetectionResults retrieves the tenant's detection results, newest
// first. A limit of 0 or less returns everything.
func (s *Store) AllDetectionResults(ctx context.Context, tenantID string, limit int) ([]schema.DetectionResult, error) {
	quotedTableName := quoteTableName(detectionResultsTable, s.backend)

	var query string
	switch s.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`
			SELECT id, item_id, detection_type, metric_name, metric_value, threshold,
			       status, details, analysis_run_id, created_at
			FROM %s WHERE tenant_id = $1 ORDER BY created_at DESC, id DESC
		`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`
			SELECT id, item_id, detection_type, metric_name, metric_value, threshold,
			       status, details, analysis_run_id, created_at
			FROM %s WHERE tenant_id = ? ORDER BY created_at DESC, id DESC
		`, quotedTableName)
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.DetectionResult

	for rows.Next() {
		var record schema.DetectionResult
		var detectionType, status string
		var detailsJSON sql.NullString

		switch s.backend {
		case schema.SQLiteBackend:
			var createdStr string
			if err := rows.Scan(&record.ID, &record.ItemID, &detectionType, &record.MetricName,
				&record.MetricValue, &record.Threshold, &status, &detailsJSON,
				&record.AnalysisRunID, &createdStr); err != nil {
				return nil, fmt.Errorf("failed to scan detection result: %w", err)
			}
			if record.CreatedAt, err = parseStoredTime(createdStr); err != nil {
				return nil, err
			}
		default: // MySQL and PostgreSQL store as native datetime
			if err := rows.Scan(&record.ID, &record.ItemID, &detectionType, &record.MetricName,
				&record.MetricValue, &record.Threshold, &status, &detailsJSON,
				&record.AnalysisRunID, &record.CreatedAt); err != nil {
				return nil, fmt.Errorf("failed to scan detection result: %w", err)
			}
		}

		record.DetectionType = schema.DetectionType(detectionType)
		record.Status = schema.DetectionStatus(status)
		if detailsJSON.Valid && detailsJSON.String != "" {
			if err := json.Unmarshal([]byte(detailsJSON.String), &record.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal detection details: %w", err)
			}
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating detection results: %w", err)
	}

	return results, nil
}
