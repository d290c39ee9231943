package iostore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/itemwatch/itemwatch/schema"
)

// ListResponses returns every response record for the tenant with
// answered_at at or after since, in answer order.
func (s *Store) ListResponses(ctx context.Context, tenantID string, since time.Time) ([]schema.ResponseRecord, error) {
	quotedTableName := quoteTableName(itemResponsesTable, s.backend)

	var query string
	switch s.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`
			SELECT item_id, session_id, is_correct, response_time_ms, answered_at, subgroup_label
			FROM %s WHERE tenant_id = $1 AND answered_at >= $2 ORDER BY answered_at, id
		`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`
			SELECT item_id, session_id, is_correct, response_time_ms, answered_at, subgroup_label
			FROM %s WHERE tenant_id = ? AND answered_at >= ? ORDER BY answered_at, id
		`, quotedTableName)
	}

	rows, err := s.db.QueryContext(ctx, query, tenantID, formatTime(since, s.backend))
	if err != nil {
		return nil, fmt.Errorf("failed to query item responses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ResponseRecord

	for rows.Next() {
		var record schema.ResponseRecord
		var isCorrect sql.NullBool
		var responseTime sql.NullInt64
		var subgroup sql.NullString

		switch s.backend {
		case schema.SQLiteBackend:
			var answeredStr string
			if err := rows.Scan(&record.ItemID, &record.SessionID, &isCorrect, &responseTime, &answeredStr, &subgroup); err != nil {
				return nil, fmt.Errorf("failed to scan item response: %w", err)
			}
			if record.AnsweredAt, err = parseStoredTime(answeredStr); err != nil {
				return nil, err
			}
		default: // MySQL and PostgreSQL store as native datetime
			if err := rows.Scan(&record.ItemID, &record.SessionID, &isCorrect, &responseTime, &record.AnsweredAt, &subgroup); err != nil {
				return nil, fmt.Errorf("failed to scan item response: %w", err)
			}
		}

		if isCorrect.Valid {
			record.IsCorrect = &isCorrect.Bool
		}
		if responseTime.Valid {
			record.ResponseTimeMs = &responseTime.Int64
		}
		if subgroup.Valid {
			record.SubgroupLabel = &subgroup.String
		}

		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item responses: %w", err)
	}

	return results, nil
}

// InsertResponse appends one response record for the tenant. Ingestion is
// normally an upstream concern; this exists for seeding and testing.
func (s *Store) InsertResponse(ctx context.Context, tenantID string, record *schema.ResponseRecord) error {
	quotedTableName := quoteTableName(itemResponsesTable, s.backend)

	var query string
	switch s.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`
			INSERT INTO %s (tenant_id, item_id, session_id, is_correct, response_time_ms, answered_at, subgroup_label)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`
			INSERT INTO %s (tenant_id, item_id, session_id, is_correct, response_time_ms, answered_at, subgroup_label)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, quotedTableName)
	}

	var isCorrect sql.NullBool
	if record.IsCorrect != nil {
		isCorrect = sql.NullBool{Bool: *record.IsCorrect, Valid: true}
	}
	var responseTime sql.NullInt64
	if record.ResponseTimeMs != nil {
		responseTime = sql.NullInt64{Int64: *record.ResponseTimeMs, Valid: true}
	}
	var subgroup sql.NullString
	if record.SubgroupLabel != nil {
		subgroup = sql.NullString{String: *record.SubgroupLabel, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		tenantID, record.ItemID, record.SessionID, isCorrect, responseTime,
		formatTime(record.AnsweredAt, s.backend), subgroup)
	if err != nil {
		return fmt.Errorf("failed to insert item response: %w", err)
	}
	return nil
}
