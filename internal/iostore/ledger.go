package iostore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/itemwatch/itemwatch/schema"
)

// CreateRun persists a new analysis run ledger entry.
func (s *Store) CreateRun(ctx context.Context, run *schema.AnalysisRun) error {
	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal run params: %w", err)
	}

	quotedTableName := quoteTableName(analysisRunsTable, s.backend)

	var query string
	switch s.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`
			INSERT INTO %s (id, tenant_id, run_type, params, since, dataset_hash, software_version, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`
			INSERT INTO %s (id, tenant_id, run_type, params, since, dataset_hash, software_version, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, quotedTableName)
	}

	_, err = s.db.ExecContext(ctx, query,
		run.ID, run.TenantID, string(run.RunType), string(paramsJSON),
		formatTime(run.Since, s.backend), run.DatasetHash, run.SoftwareVersion,
		formatTime(run.CreatedAt, s.backend))
	if err != nil {
		return fmt.Errorf("failed to insert analysis run: %w", err)
	}
	return nil
}

// AllRuns retrieves the tenant's analysis runs, newest first. A limit of 0
// or less returns the full history.
func (s *Store) AllRuns(ctx context.Context, tenantID string, limit int) ([]schema.AnalysisRun, error) {
	quotedTableName := quoteTableName(analysisRunsTable, s.backend)

	var query string
	switch s.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`
			SELECT id, tenant_id, run_type, params, since, dataset_hash, software_version, created_at
			FROM %s WHERE tenant_id = $1 ORDER BY created_at DESC, id DESC
		`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`
			SELECT id, tenant_id, run_type, params, since, dataset_hash, software_version, created_at
			FROM %s WHERE tenant_id = ? ORDER BY created_at DESC, id DESC
		`, quotedTableName)
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.AnalysisRun

	for rows.Next() {
		var run schema.AnalysisRun
		var runType, paramsJSON string
		var softwareVersion sql.NullString

		switch s.backend {
		case schema.SQLiteBackend:
			var sinceStr, createdStr string
			if err := rows.Scan(&run.ID, &run.TenantID, &runType, &paramsJSON, &sinceStr, &run.DatasetHash, &softwareVersion, &createdStr); err != nil {
				return nil, fmt.Errorf("failed to scan analysis run: %w", err)
			}
			if run.Since, err = parseStoredTime(sinceStr); err != nil {
				return nil, err
			}
			if run.CreatedAt, err = parseStoredTime(createdStr); err != nil {
				return nil, err
			}
		default: // MySQL and PostgreSQL store as native datetime
			if err := rows.Scan(&run.ID, &run.TenantID, &runType, &paramsJSON, &run.Since, &run.DatasetHash, &softwareVersion, &run.CreatedAt); err != nil {
				return nil, fmt.Errorf("failed to scan analysis run: %w", err)
			}
		}

		run.RunType = schema.RunType(runType)
		run.SoftwareVersion = softwareVersion.String
		if paramsJSON != "" {
			if err := json.Unmarshal([]byte(paramsJSON), &run.Params); err != nil {
				return nil, fmt.Errorf("failed to unmarshal run params: %w", err)
			}
		}

		results = append(results, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis runs: %w", err)
	}

	return results, nil
}

// LastRun returns the tenant's most recent run, or nil when the ledger is
// empty.
func (s *Store) LastRun(ctx context.Context, tenantID string) (*schema.AnalysisRun, error) {
	runs, err := s.AllRuns(ctx, tenantID, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
