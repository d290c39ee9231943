package core

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/schema"
)

// ExecuteCtt runs the classical test theory task: it reads the tenant's
// response window, records a ledger entry, and appends one stat row per item
// seen in the window.
func ExecuteCtt(ctx context.Context, cfg *contract.Config, store contract.Store) (*schema.TaskSummary, error) {
	responses, err := store.ListResponses(ctx, cfg.TenantID, cfg.Since)
	if err != nil {
		return nil, fmt.Errorf("listing responses: %w", err)
	}

	run := newAnalysisRun(cfg, schema.CttRun, map[string]any{
		"windowDays": cfg.WindowDays,
	}, FingerprintWindow(len(responses), cfg.Since))
	if err := store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("creating analysis run: %w", err)
	}

	sessionTotals := RawScores(responses)
	groups := groupByItem(responses)

	itemIDs := sortedKeys(groups)
	for _, itemID := range itemIDs {
		stat := ComputeCttStat(itemID, groups[itemID], sessionTotals)
		stat.AnalysisRunID = run.ID
		if err := store.InsertCttStat(ctx, cfg.TenantID, stat); err != nil {
			return nil, fmt.Errorf("inserting ctt stat for item %s: %w", itemID, err)
		}
	}

	return &schema.TaskSummary{AnalysisRunID: run.ID, ItemCount: len(itemIDs)}, nil
}

// ComputeCttStat derives the classical statistics for one item from its
// response rows. sessionTotals must cover every session the rows reference.
//
// The point-biserial correlates item correctness with the session's total
// score. Totals are looked up per response row, so a session answering the
// item twice contributes twice. Discrimination is reported equal to the
// point-biserial under the current model.
func ComputeCttStat(itemID string, rows []schema.ResponseRecord, sessionTotals map[string]int) *schema.CttStat {
	n := len(rows)

	var correct int
	totals := make([]float64, 0, n)
	var correctTotals, incorrectTotals []float64
	for _, r := range rows {
		total := float64(sessionTotals[r.SessionID])
		totals = append(totals, total)
		if r.Correct() {
			correct++
			correctTotals = append(correctTotals, total)
		} else {
			incorrectTotals = append(incorrectTotals, total)
		}
	}

	p := 0.0
	if n > 0 {
		p = float64(correct) / float64(n)
	}

	totalStd := SampleStdDev(totals)
	pointBiserial := 0.0
	if totalStd != 0 {
		meanCorrect := Mean(correctTotals)
		meanIncorrect := Mean(incorrectTotals)
		pointBiserial = (meanCorrect - meanIncorrect) * math.Sqrt(p*(1-p)) / totalStd
	}

	stat := &schema.CttStat{
		ItemID:         itemID,
		N:              n,
		PValue:         p,
		Discrimination: pointBiserial,
		PointBiserial:  pointBiserial,
		CreatedAt:      time.Now().UTC(),
	}

	if times := positiveTimes(rows); len(times) > 0 {
		meanTime := Mean(times)
		stdTime := SampleStdDev(times)
		stat.MeanTimeMs = &meanTime
		stat.StdTimeMs = &stdTime
	}
	return stat
}
