package core

import (
	"context"
	"fmt"
	"time"

	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/schema"
)

// ExecuteExposure runs the exposure task: it counts how often each item was
// administered in the window and records the mean latency where timing data
// exists.
func ExecuteExposure(ctx context.Context, cfg *contract.Config, store contract.Store) (*schema.TaskSummary, error) {
	responses, err := store.ListResponses(ctx, cfg.TenantID, cfg.Since)
	if err != nil {
		return nil, fmt.Errorf("listing responses: %w", err)
	}

	run := newAnalysisRun(cfg, schema.ExposureRun, map[string]any{
		"windowDays": cfg.WindowDays,
	}, FingerprintWindow(len(responses), cfg.Since))
	if err := store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("creating analysis run: %w", err)
	}

	groups := groupByItem(responses)
	itemIDs := sortedKeys(groups)
	for _, itemID := range itemIDs {
		rows := groups[itemID]

		// Exposure counts every administration, scored or not. Timing only
		// aggregates over usable latencies.
		stat := &schema.ExposureStat{
			ItemID:        itemID,
			AnalysisRunID: run.ID,
			ExposureCount: len(rows),
			CreatedAt:     time.Now().UTC(),
		}
		if times := positiveTimes(rows); len(times) > 0 {
			meanTime := Mean(times)
			stat.MeanTimeMs = &meanTime
		}

		if err := store.InsertExposureStat(ctx, cfg.TenantID, stat); err != nil {
			return nil, fmt.Errorf("inserting exposure stat for item %s: %w", itemID, err)
		}
	}

	return &schema.TaskSummary{AnalysisRunID: run.ID, ItemCount: len(itemIDs)}, nil
}
