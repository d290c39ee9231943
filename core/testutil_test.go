package core

import (
	"context"
	"time"

	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/schema"
)

// fakeStore is an in-memory contract.Store for engine tests. Reads serve
// canned data; writes append so tests can assert on persisted rows.
type fakeStore struct {
	responses       []schema.ResponseRecord
	cttHistory      []schema.RankedCttStat
	irtHistory      []schema.RankedIrtParam
	exposureHistory []schema.LatestExposure

	listErr error

	runs       []*schema.AnalysisRun
	cttStats   []*schema.CttStat
	irtParams  []*schema.IrtParam
	exposures  []*schema.ExposureStat
	detections []*schema.DetectionResult

	lastTenant string
}

func (f *fakeStore) ListResponses(_ context.Context, tenantID string, since time.Time) ([]schema.ResponseRecord, error) {
	f.lastTenant = tenantID
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []schema.ResponseRecord
	for _, r := range f.responses {
		if !r.AnsweredAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateRun(_ context.Context, run *schema.AnalysisRun) error {
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeStore) InsertCttStat(_ context.Context, _ string, stat *schema.CttStat) error {
	f.cttStats = append(f.cttStats, stat)
	return nil
}

func (f *fakeStore) InsertIrtParam(_ context.Context, _ string, param *schema.IrtParam) error {
	f.irtParams = append(f.irtParams, param)
	return nil
}

func (f *fakeStore) InsertExposureStat(_ context.Context, _ string, stat *schema.ExposureStat) error {
	f.exposures = append(f.exposures, stat)
	return nil
}

func (f *fakeStore) InsertDetectionResult(_ context.Context, _ string, result *schema.DetectionResult) error {
	f.detections = append(f.detections, result)
	return nil
}

func (f *fakeStore) LatestTwoCttStats(_ context.Context, _ string) ([]schema.RankedCttStat, error) {
	return f.cttHistory, nil
}

func (f *fakeStore) LatestTwoIrtParams(_ context.Context, _ string) ([]schema.RankedIrtParam, error) {
	return f.irtHistory, nil
}

func (f *fakeStore) LatestExposureStats(_ context.Context, _ string) ([]schema.LatestExposure, error) {
	return f.exposureHistory, nil
}

func (f *fakeStore) Close() error { return nil }

var testWindowStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// testConfig returns a validated-shape config with library defaults.
func testConfig() *contract.Config {
	return &contract.Config{
		TenantID:        "tenant-a",
		WindowDays:      schema.DefaultWindowDays,
		Since:           testWindowStart,
		Workers:         4,
		SoftwareVersion: "test",
		Irt: contract.IrtConfig{
			MinResponses: schema.DefaultIrtMinResponses,
			MaxIters:     schema.DefaultIrtMaxIters,
			LearningRate: schema.DefaultIrtLearningRate,
			L2:           schema.DefaultIrtL2,
			Tolerance:    schema.DefaultIrtTolerance,
			MinA:         schema.DefaultIrtMinA,
			MaxA:         schema.DefaultIrtMaxA,
			MinB:         schema.DefaultIrtMinB,
			MaxB:         schema.DefaultIrtMaxB,
		},
		Detection: contract.DetectionConfig{
			IpdPThreshold:     schema.DefaultIpdPThreshold,
			IpdAThreshold:     schema.DefaultIpdAThreshold,
			IpdBThreshold:     schema.DefaultIpdBThreshold,
			DifThreshold:      schema.DefaultDifThreshold,
			DifMinResponses:   schema.DefaultDifMinResponses,
			ExposureThreshold: schema.DefaultExposureThreshold,
			TimeThresholdMs:   schema.DefaultTimeThresholdMs,
		},
	}
}

func ptr[T any](v T) *T { return &v }

// resp builds a scored response inside the test window.
func resp(itemID, sessionID string, correct bool) schema.ResponseRecord {
	return schema.ResponseRecord{
		ItemID:     itemID,
		SessionID:  sessionID,
		IsCorrect:  ptr(correct),
		AnsweredAt: testWindowStart.Add(time.Hour),
	}
}

// timedResp builds a scored response with a latency.
func timedResp(itemID, sessionID string, correct bool, timeMs int64) schema.ResponseRecord {
	r := resp(itemID, sessionID, correct)
	r.ResponseTimeMs = ptr(timeMs)
	return r
}

// labeledResp builds a scored response with a subgroup label.
func labeledResp(itemID, sessionID string, correct bool, label string) schema.ResponseRecord {
	r := resp(itemID, sessionID, correct)
	r.SubgroupLabel = ptr(label)
	return r
}
