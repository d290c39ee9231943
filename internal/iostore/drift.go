package iostore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/itemwatch/itemwatch/schema"
)

// LatestTwoCttStats returns up to the two most recent CTT rows per item for
// the tenant, rank 1 being the latest. Ties on created_at break on insert
// order.
func (s *Store) LatestTwoCttStats(ctx context.Context, tenantID string) ([]schema.RankedCttStat, error) {
	quotedTableName := quoteTableName(cttStatsTable, s.backend)

	var query string
	switch s.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`
			SELECT item_id, p_value, created_at, rn FROM (
				SELECT item_id, p_value, created_at,
				       ROW_NUMBER() OVER (PARTITION BY item_id ORDER BY created_at DESC, id DESC) AS rn
				FROM %s WHERE tenant_id = $1
			) ranked WHERE rn <= 2 ORDER BY item_id, rn
		`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`
			SELECT item_id, p_value, created_at, rn FROM (
				SELECT item_id, p_value, created_at,
				       ROW_NUMBER() OVER (PARTITION BY item_id ORDER BY created_at DESC, id DESC) AS rn
				FROM %s WHERE tenant_id = ?
			) ranked WHERE rn <= 2 ORDER BY item_id, rn
		`, quotedTableName)
	}

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranked ctt stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RankedCttStat

	for rows.Next() {
		var record schema.RankedCttStat

		switch s.backend {
		case schema.SQLiteBackend:
			var createdStr string
			if err := rows.Scan(&record.ItemID, &record.PValue, &createdStr, &record.Rank); err != nil {
				return nil, fmt.Errorf("failed to scan ranked ctt stat: %w", err)
			}
			if record.CreatedAt, err = parseStoredTime(createdStr); err != nil {
				return nil, err
			}
		default: // MySQL and PostgreSQL store as native datetime
			if err := rows.Scan(&record.ItemID, &record.PValue, &record.CreatedAt, &record.Rank); err != nil {
				return nil, fmt.Errorf("failed to scan ranked ctt stat: %w", err)
			}
		}

		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ranked ctt stats: %w", err)
	}

	return results, nil
}

// LatestTwoIrtParams returns up to the two most recent IRT rows per item
// for the tenant, rank 1 being the latest.
func (s *Store) LatestTwoIrtParams(ctx context.Context, tenantID string) ([]schema.RankedIrtParam, error) {
	quotedTableName := quoteTableName(irtParamsTable, s.backend)

	var query string
	switch s.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`
			SELECT item_id, a_param, b_param, created_at, rn FROM (
				SELECT item_id, a_param, b_param, created_at,
				       ROW_NUMBER() OVER (PARTITION BY item_id ORDER BY created_at DESC, id DESC) AS rn
				FROM %s WHERE tenant_id = $1
			) ranked WHERE rn <= 2 ORDER BY item_id, rn
		`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`
			SELECT item_id, a_param, b_param, created_at, rn FROM (
				SELECT item_id, a_param, b_param, created_at,
				       ROW_NUMBER() OVER (PARTITION BY item_id ORDER BY created_at DESC, id DESC) AS rn
				FROM %s WHERE tenant_id = ?
			) ranked WHERE rn <= 2 ORDER BY item_id, rn
		`, quotedTableName)
	}

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranked irt params: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RankedIrtParam

	for rows.Next() {
		var record schema.RankedIrtParam

		switch s.backend {
		case schema.SQLiteBackend:
			var createdStr string
			if err := rows.Scan(&record.ItemID, &record.AParam, &record.BParam, &createdStr, &record.Rank); err != nil {
				return nil, fmt.Errorf("failed to scan ranked irt params: %w", err)
			}
			if record.CreatedAt, err = parseStoredTime(createdStr); err != nil {
				return nil, err
			}
		default: // MySQL and PostgreSQL store as native datetime
			if err := rows.Scan(&record.ItemID, &record.AParam, &record.BParam, &record.CreatedAt, &record.Rank); err != nil {
				return nil, fmt.Errorf("failed to scan ranked irt params: %w", err)
			}
		}

		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ranked irt params: %w", err)
	}

	return results, nil
}

// LatestExposureStats returns the most recent exposure row per item for the
// tenant.
func (s *Store) LatestExposureStats(ctx context.Context, tenantID string) ([]schema.LatestExposure, error) {
	quotedTableName := quoteTableName(exposureStatsTable, s.backend)

	var query string
	switch s.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`
			SELECT item_id, exposure_count, mean_time_ms FROM (
				SELECT item_id, exposure_count, mean_time_ms,
				       ROW_NUMBER() OVER (PARTITION BY item_id ORDER BY created_at DESC, id DESC) AS rn
				FROM %s WHERE tenant_id = $1
			) ranked WHERE rn = 1 ORDER BY item_id
		`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`
			SELECT item_id, exposure_count, mean_time_ms FROM (
				SELECT item_id, exposure_count, mean_time_ms,
				       ROW_NUMBER() OVER (PARTITION BY item_id ORDER BY created_at DESC, id DESC) AS rn
				FROM %s WHERE tenant_id = ?
			) ranked WHERE rn = 1 ORDER BY item_id
		`, quotedTableName)
	}

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest exposure stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.LatestExposure

	for rows.Next() {
		var record schema.LatestExposure
		var meanTime sql.NullFloat64
		if err := rows.Scan(&record.ItemID, &record.ExposureCount, &meanTime); err != nil {
			return nil, fmt.Errorf("failed to scan latest exposure stat: %w", err)
		}
		if meanTime.Valid {
			record.MeanTimeMs = &meanTime.Float64
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating latest exposure stats: %w", err)
	}

	return results, nil
}
