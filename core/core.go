// Package core implements the batch analytics engine: session scoring,
// classical test theory statistics, 2PL item response theory estimation,
// exposure tracking and rule-based anomaly detection.
package core

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/schema"
)

// newAnalysisRun builds a ledger entry for a fresh batch invocation.
// The caller persists it before writing any rows that reference it.
func newAnalysisRun(cfg *contract.Config, runType schema.RunType, params map[string]any, datasetHash string) *schema.AnalysisRun {
	return &schema.AnalysisRun{
		ID:              uuid.NewString(),
		TenantID:        cfg.TenantID,
		RunType:         runType,
		Params:          params,
		Since:           cfg.Since,
		DatasetHash:     datasetHash,
		SoftwareVersion: cfg.SoftwareVersion,
		CreatedAt:       time.Now().UTC(),
	}
}

// groupByItem partitions response records by item id.
func groupByItem(responses []schema.ResponseRecord) map[string][]schema.ResponseRecord {
	groups := make(map[string][]schema.ResponseRecord)
	for _, r := range responses {
		groups[r.ItemID] = append(groups[r.ItemID], r)
	}
	return groups
}

// sortedKeys returns the keys of a string-keyed map in lexical order, so
// per-item iteration and persistence order are deterministic across runs.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// positiveTimes extracts the strictly positive response times from a group
// of responses. Null and non-positive latencies carry no timing signal.
func positiveTimes(responses []schema.ResponseRecord) []float64 {
	var times []float64
	for _, r := range responses {
		if r.ResponseTimeMs != nil && *r.ResponseTimeMs > 0 {
			times = append(times, float64(*r.ResponseTimeMs))
		}
	}
	return times
}
