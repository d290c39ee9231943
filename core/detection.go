package core

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/schema"
)

// SubgroupUnknown is the DIF grouping bucket for responses without a label.
const SubgroupUnknown = "unknown"

// ExecuteDetection runs every detection rule over the current result
// history and the response window, recording one flagged row per triggered
// rule per item. All threshold comparisons are inclusive.
func ExecuteDetection(ctx context.Context, cfg *contract.Config, store contract.Store) (*schema.DetectionSummary, error) {
	cttRows, err := store.LatestTwoCttStats(ctx, cfg.TenantID)
	if err != nil {
		return nil, fmt.Errorf("reading ctt history: %w", err)
	}
	irtRows, err := store.LatestTwoIrtParams(ctx, cfg.TenantID)
	if err != nil {
		return nil, fmt.Errorf("reading irt history: %w", err)
	}
	exposureRows, err := store.LatestExposureStats(ctx, cfg.TenantID)
	if err != nil {
		return nil, fmt.Errorf("reading exposure history: %w", err)
	}
	responses, err := store.ListResponses(ctx, cfg.TenantID, cfg.Since)
	if err != nil {
		return nil, fmt.Errorf("listing responses: %w", err)
	}

	det := cfg.Detection
	run := newAnalysisRun(cfg, schema.DetectionRun, map[string]any{
		"windowDays":        cfg.WindowDays,
		"ipdPThreshold":     det.IpdPThreshold,
		"ipdAThreshold":     det.IpdAThreshold,
		"ipdBThreshold":     det.IpdBThreshold,
		"difThreshold":      det.DifThreshold,
		"difMinResponses":   det.DifMinResponses,
		"exposureThreshold": det.ExposureThreshold,
		"timeThresholdMs":   det.TimeThresholdMs,
	}, FingerprintSnapshot(len(cttRows), len(irtRows), len(exposureRows), cfg.Since))
	if err := store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("creating analysis run: %w", err)
	}

	var results []*schema.DetectionResult
	results = append(results, detectCttDrift(cttRows, det)...)
	results = append(results, detectIrtDrift(irtRows, det)...)
	results = append(results, detectOveruse(exposureRows, det)...)
	results = append(results, detectDif(responses, det)...)

	summary := &schema.DetectionSummary{AnalysisRunID: run.ID}
	for _, result := range results {
		result.ID = uuid.NewString()
		result.AnalysisRunID = run.ID
		result.Status = schema.StatusFlagged
		result.CreatedAt = time.Now().UTC()
		if err := store.InsertDetectionResult(ctx, cfg.TenantID, result); err != nil {
			return nil, fmt.Errorf("inserting detection result for item %s: %w", result.ItemID, err)
		}

		switch result.DetectionType {
		case schema.IpdDetection:
			summary.IpdCount++
		case schema.DifDetection:
			summary.DifCount++
		case schema.ExposureDetection:
			summary.ExposureCount++
		case schema.TimeDetection:
			summary.TimeCount++
		}
	}
	return summary, nil
}

// detectCttDrift flags items whose p-value moved at least the threshold
// between their two most recent CTT runs. Items with fewer than two rows of
// history have no drift to measure.
func detectCttDrift(rows []schema.RankedCttStat, det contract.DetectionConfig) []*schema.DetectionResult {
	byItem := make(map[string]map[int]schema.RankedCttStat)
	for _, row := range rows {
		if byItem[row.ItemID] == nil {
			byItem[row.ItemID] = make(map[int]schema.RankedCttStat)
		}
		byItem[row.ItemID][row.Rank] = row
	}

	var results []*schema.DetectionResult
	for _, itemID := range sortedKeys(byItem) {
		latest, hasLatest := byItem[itemID][1]
		previous, hasPrevious := byItem[itemID][2]
		if !hasLatest || !hasPrevious {
			continue
		}

		diff := math.Abs(latest.PValue - previous.PValue)
		if diff >= det.IpdPThreshold {
			results = append(results, &schema.DetectionResult{
				ItemID:        itemID,
				DetectionType: schema.IpdDetection,
				MetricName:    schema.MetricPDiff,
				MetricValue:   diff,
				Threshold:     det.IpdPThreshold,
				Details: map[string]any{
					"latest":   latest.PValue,
					"previous": previous.PValue,
				},
			})
		}
	}
	return results
}

// detectIrtDrift flags discrimination and difficulty drift between the two
// most recent IRT runs per item. Both parameters are checked independently,
// so one item can raise two flags from the same history pair.
func detectIrtDrift(rows []schema.RankedIrtParam, det contract.DetectionConfig) []*schema.DetectionResult {
	byItem := make(map[string]map[int]schema.RankedIrtParam)
	for _, row := range rows {
		if byItem[row.ItemID] == nil {
			byItem[row.ItemID] = make(map[int]schema.RankedIrtParam)
		}
		byItem[row.ItemID][row.Rank] = row
	}

	var results []*schema.DetectionResult
	for _, itemID := range sortedKeys(byItem) {
		latest, hasLatest := byItem[itemID][1]
		previous, hasPrevious := byItem[itemID][2]
		if !hasLatest || !hasPrevious {
			continue
		}

		aDiff := math.Abs(latest.AParam - previous.AParam)
		if aDiff >= det.IpdAThreshold {
			results = append(results, &schema.DetectionResult{
				ItemID:        itemID,
				DetectionType: schema.IpdDetection,
				MetricName:    schema.MetricADiff,
				MetricValue:   aDiff,
				Threshold:     det.IpdAThreshold,
				Details: map[string]any{
					"latest":   latest.AParam,
					"previous": previous.AParam,
				},
			})
		}

		bDiff := math.Abs(latest.BParam - previous.BParam)
		if bDiff >= det.IpdBThreshold {
			results = append(results, &schema.DetectionResult{
				ItemID:        itemID,
				DetectionType: schema.IpdDetection,
				MetricName:    schema.MetricBDiff,
				MetricValue:   bDiff,
				Threshold:     det.IpdBThreshold,
				Details: map[string]any{
					"latest":   latest.BParam,
					"previous": previous.BParam,
				},
			})
		}
	}
	return results
}

// detectOveruse flags items from the latest exposure snapshot: once for
// administration count at or above the exposure threshold, and once for mean
// response time at or above the time threshold.
func detectOveruse(rows []schema.LatestExposure, det contract.DetectionConfig) []*schema.DetectionResult {
	byItem := make(map[string]schema.LatestExposure, len(rows))
	for _, row := range rows {
		byItem[row.ItemID] = row
	}

	var results []*schema.DetectionResult
	for _, itemID := range sortedKeys(byItem) {
		row := byItem[itemID]

		if row.ExposureCount >= det.ExposureThreshold {
			results = append(results, &schema.DetectionResult{
				ItemID:        itemID,
				DetectionType: schema.ExposureDetection,
				MetricName:    schema.MetricCount,
				MetricValue:   float64(row.ExposureCount),
				Threshold:     float64(det.ExposureThreshold),
				Details:       map[string]any{},
			})
		}

		if row.MeanTimeMs != nil && *row.MeanTimeMs >= det.TimeThresholdMs {
			results = append(results, &schema.DetectionResult{
				ItemID:        itemID,
				DetectionType: schema.TimeDetection,
				MetricName:    schema.MetricMeanTimeMs,
				MetricValue:   *row.MeanTimeMs,
				Threshold:     det.TimeThresholdMs,
				Details:       map[string]any{},
			})
		}
	}
	return results
}

// detectDif flags items where the proportion correct differs by at least the
// threshold between subgroups. Only subgroups meeting the response floor
// enter the comparison, and at least two eligible subgroups are required.
// Unlabeled responses form their own "unknown" subgroup.
func detectDif(responses []schema.ResponseRecord, det contract.DetectionConfig) []*schema.DetectionResult {
	tallies := make(map[string]map[string]*schema.SubgroupTally)
	for _, r := range responses {
		label := SubgroupUnknown
		if r.SubgroupLabel != nil && *r.SubgroupLabel != "" {
			label = *r.SubgroupLabel
		}
		if tallies[r.ItemID] == nil {
			tallies[r.ItemID] = make(map[string]*schema.SubgroupTally)
		}
		tally := tallies[r.ItemID][label]
		if tally == nil {
			tally = &schema.SubgroupTally{}
			tallies[r.ItemID][label] = tally
		}
		tally.Total++
		if r.Correct() {
			tally.Correct++
		}
	}

	var results []*schema.DetectionResult
	for _, itemID := range sortedKeys(tallies) {
		eligible := make(map[string]schema.SubgroupTally)
		for label, tally := range tallies[itemID] {
			if tally.Total >= det.DifMinResponses {
				eligible[label] = *tally
			}
		}
		if len(eligible) < 2 {
			continue
		}

		minP, maxP := math.Inf(1), math.Inf(-1)
		for _, tally := range eligible {
			p := tally.PValue()
			minP = math.Min(minP, p)
			maxP = math.Max(maxP, p)
		}

		diff := maxP - minP
		if diff >= det.DifThreshold {
			results = append(results, &schema.DetectionResult{
				ItemID:        itemID,
				DetectionType: schema.DifDetection,
				MetricName:    schema.MetricPDiff,
				MetricValue:   diff,
				Threshold:     det.DifThreshold,
				Details:       map[string]any{"groupStats": eligible},
			})
		}
	}
	return results
}
