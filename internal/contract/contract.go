// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/itemwatch/itemwatch/schema"
)

// ResponseStore defines read-only access to examinee response records.
// The engine treats this as a tenant-scoped, time-filtered stream; it never
// writes to it. This allows the analytics core to be tested without a
// real database.
type ResponseStore interface {
	// ListResponses returns every response record with answered_at >= since
	// for the tenant, including subgroup labels where known.
	ListResponses(ctx context.Context, tenantID string, since time.Time) ([]schema.ResponseRecord, error)
}

// RunLedger records batch invocations. The ledger insert must happen before
// any stat or detection rows reference the run.
type RunLedger interface {
	// CreateRun persists a new analysis run entry.
	CreateRun(ctx context.Context, run *schema.AnalysisRun) error
}

// StatWriter persists per-item results keyed by analysis run id. All writes
// are append-only inserts; history is never mutated.
type StatWriter interface {
	InsertCttStat(ctx context.Context, tenantID string, stat *schema.CttStat) error
	InsertIrtParam(ctx context.Context, tenantID string, param *schema.IrtParam) error
	InsertExposureStat(ctx context.Context, tenantID string, stat *schema.ExposureStat) error
	InsertDetectionResult(ctx context.Context, tenantID string, result *schema.DetectionResult) error
}

// DriftReader exposes the result history views the detection engine needs:
// the two most recent rows per item for drift comparison, and the latest
// exposure snapshot per item.
type DriftReader interface {
	// LatestTwoCttStats returns up to two rows per item, rank 1 = latest.
	LatestTwoCttStats(ctx context.Context, tenantID string) ([]schema.RankedCttStat, error)

	// LatestTwoIrtParams returns up to two rows per item, rank 1 = latest.
	LatestTwoIrtParams(ctx context.Context, tenantID string) ([]schema.RankedIrtParam, error)

	// LatestExposureStats returns the most recent exposure row per item.
	LatestExposureStats(ctx context.Context, tenantID string) ([]schema.LatestExposure, error)
}

// Store is the full persistence surface a batch task runs against.
type Store interface {
	ResponseStore
	RunLedger
	StatWriter
	DriftReader

	// Close releases the underlying connection.
	Close() error
}
