package iostore

import (
	"context"
	"fmt"

	"github.com/itemwatch/itemwatch/schema"
)

// Status returns connectivity and row count information for the tenant.
func (s *Store) Status(ctx context.Context, tenantID string) (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:    string(s.backend),
		Connected:  s.db != nil,
		TableSizes: make(map[string]int64),
	}

	quotedRunsTable := quoteTableName(analysisRunsTable, s.backend)

	var runsQuery string
	switch s.backend {
	case schema.PostgreSQLBackend:
		runsQuery = fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE tenant_id = $1", quotedRunsTable)
	default: // SQLite and MySQL
		runsQuery = fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE tenant_id = ?", quotedRunsTable)
	}
	if err := s.db.QueryRowContext(ctx, runsQuery, tenantID).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		lastRun, err := s.LastRun(ctx, tenantID)
		if err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		if lastRun != nil {
			status.LastRunID = lastRun.ID
			status.LastRunType = string(lastRun.RunType)
			status.LastRunTime = lastRun.CreatedAt
		}
	}

	// Get table sizes
	tables := []string{
		analysisRunsTable, itemResponsesTable, cttStatsTable,
		irtParamsTable, exposureStatsTable, detectionResultsTable,
	}
	for _, table := range tables {
		quotedTable := quoteTableName(table, s.backend)

		var countQuery string
		switch s.backend {
		case schema.PostgreSQLBackend:
			countQuery = fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE tenant_id = $1", quotedTable)
		default: // SQLite and MySQL
			countQuery = fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE tenant_id = ?", quotedTable)
		}

		var count int64
		if err := s.db.QueryRowContext(ctx, countQuery, tenantID).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}
