package iostore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/itemwatch/itemwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTenant = "tenant-a"

// newTestStore opens a fresh SQLite store in a temp directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "itemwatch-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func ptr[T any](v T) *T { return &v }

func testRun(id string, runType schema.RunType, createdAt time.Time) *schema.AnalysisRun {
	return &schema.AnalysisRun{
		ID:              id,
		TenantID:        testTenant,
		RunType:         runType,
		Params:          map[string]any{"windowDays": float64(30)},
		Since:           createdAt.Add(-30 * 24 * time.Hour),
		DatasetHash:     "abc123",
		SoftwareVersion: "v0.0.1",
		CreatedAt:       createdAt,
	}
}

func TestStoreRunLedger(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateRun(ctx, testRun("run-1", schema.CttRun, base)))
	require.NoError(t, store.CreateRun(ctx, testRun("run-2", schema.IrtRun, base.Add(time.Hour))))

	t.Run("all runs newest first", func(t *testing.T) {
		runs, err := store.AllRuns(ctx, testTenant, 0)
		require.NoError(t, err)
		require.Len(t, runs, 2)

		assert.Equal(t, "run-2", runs[0].ID)
		assert.Equal(t, schema.IrtRun, runs[0].RunType)
		assert.Equal(t, "run-1", runs[1].ID)

		// Round trip of the JSON params and timestamps.
		assert.Equal(t, map[string]any{"windowDays": float64(30)}, runs[0].Params)
		assert.True(t, runs[0].CreatedAt.Equal(base.Add(time.Hour)))
		assert.True(t, runs[0].Since.Equal(base.Add(time.Hour-30*24*time.Hour)))
		assert.Equal(t, "v0.0.1", runs[0].SoftwareVersion)
	})

	t.Run("limit truncates history", func(t *testing.T) {
		runs, err := store.AllRuns(ctx, testTenant, 1)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "run-2", runs[0].ID)
	})

	t.Run("last run", func(t *testing.T) {
		last, err := store.LastRun(ctx, testTenant)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, "run-2", last.ID)
	})

	t.Run("tenant scoping", func(t *testing.T) {
		runs, err := store.AllRuns(ctx, "other-tenant", 0)
		require.NoError(t, err)
		assert.Empty(t, runs)

		last, err := store.LastRun(ctx, "other-tenant")
		require.NoError(t, err)
		assert.Nil(t, last)
	})
}

func TestStoreResponses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []*schema.ResponseRecord{
		{
			ItemID:         "q1",
			SessionID:      "s1",
			IsCorrect:      ptr(true),
			ResponseTimeMs: ptr(int64(1500)),
			AnsweredAt:     base.Add(48 * time.Hour),
			SubgroupLabel:  ptr("north"),
		},
		{
			ItemID:     "q1",
			SessionID:  "s2",
			AnsweredAt: base.Add(24 * time.Hour),
		},
		{
			ItemID:     "q2",
			SessionID:  "s1",
			IsCorrect:  ptr(false),
			AnsweredAt: base.Add(-24 * time.Hour), // before the window
		},
	}
	for _, r := range records {
		require.NoError(t, store.InsertResponse(ctx, testTenant, r))
	}

	t.Run("window filter and answer order", func(t *testing.T) {
		got, err := store.ListResponses(ctx, testTenant, base)
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, "s2", got[0].SessionID)
		assert.Nil(t, got[0].IsCorrect)
		assert.Nil(t, got[0].ResponseTimeMs)
		assert.Nil(t, got[0].SubgroupLabel)

		assert.Equal(t, "s1", got[1].SessionID)
		require.NotNil(t, got[1].IsCorrect)
		assert.True(t, *got[1].IsCorrect)
		require.NotNil(t, got[1].ResponseTimeMs)
		assert.Equal(t, int64(1500), *got[1].ResponseTimeMs)
		require.NotNil(t, got[1].SubgroupLabel)
		assert.Equal(t, "north", *got[1].SubgroupLabel)
		assert.True(t, got[1].AnsweredAt.Equal(base.Add(48*time.Hour)))
	})

	t.Run("tenant scoping", func(t *testing.T) {
		got, err := store.ListResponses(ctx, "other-tenant", base)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestStoreStatHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	stat := func(runID string, p float64, createdAt time.Time) *schema.CttStat {
		return &schema.CttStat{
			ItemID:        "q1",
			AnalysisRunID: runID,
			N:             40,
			PValue:        p,
			MeanTimeMs:    ptr(1800.5),
			CreatedAt:     createdAt,
		}
	}
	require.NoError(t, store.InsertCttStat(ctx, testTenant, stat("run-1", 0.50, base)))
	require.NoError(t, store.InsertCttStat(ctx, testTenant, stat("run-2", 0.75, base.Add(time.Hour))))
	require.NoError(t, store.InsertCttStat(ctx, testTenant, stat("run-3", 0.80, base.Add(2*time.Hour))))

	t.Run("all ctt stats newest first", func(t *testing.T) {
		stats, err := store.AllCttStats(ctx, testTenant, 0)
		require.NoError(t, err)
		require.Len(t, stats, 3)
		assert.Equal(t, "run-3", stats[0].AnalysisRunID)
		assert.InDelta(t, 0.8, stats[0].PValue, 1e-12)
		require.NotNil(t, stats[0].MeanTimeMs)
		assert.InDelta(t, 1800.5, *stats[0].MeanTimeMs, 1e-12)
		assert.Nil(t, stats[0].StdTimeMs)
	})

	t.Run("ranked query keeps two most recent", func(t *testing.T) {
		ranked, err := store.LatestTwoCttStats(ctx, testTenant)
		require.NoError(t, err)
		require.Len(t, ranked, 2)

		assert.Equal(t, 1, ranked[0].Rank)
		assert.InDelta(t, 0.80, ranked[0].PValue, 1e-12)
		assert.Equal(t, 2, ranked[1].Rank)
		assert.InDelta(t, 0.75, ranked[1].PValue, 1e-12)
	})

	t.Run("ranked query is tenant scoped", func(t *testing.T) {
		ranked, err := store.LatestTwoCttStats(ctx, "other-tenant")
		require.NoError(t, err)
		assert.Empty(t, ranked)
	})
}

func TestStoreIrtParams(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	param := func(runID string, a, b float64, createdAt time.Time) *schema.IrtParam {
		return &schema.IrtParam{
			ItemID:           "q1",
			AnalysisRunID:    runID,
			Model:            schema.TwoPL,
			AParam:           a,
			BParam:           b,
			CParam:           schema.TwoPLCParam,
			DParam:           schema.TwoPLDParam,
			EstimationMethod: schema.GradientMethod,
			N:                120,
			CreatedAt:        createdAt,
		}
	}
	require.NoError(t, store.InsertIrtParam(ctx, testTenant, param("run-1", 1.2, 0.1, base)))
	require.NoError(t, store.InsertIrtParam(ctx, testTenant, param("run-2", 1.8, -0.2, base.Add(time.Hour))))

	params, err := store.AllIrtParams(ctx, testTenant, 0)
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, schema.TwoPL, params[0].Model)
	assert.Equal(t, schema.GradientMethod, params[0].EstimationMethod)
	assert.InDelta(t, 1.8, params[0].AParam, 1e-12)

	ranked, err := store.LatestTwoIrtParams(ctx, testTenant)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.InDelta(t, 1.8, ranked[0].AParam, 1e-12)
	assert.InDelta(t, -0.2, ranked[0].BParam, 1e-12)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.InDelta(t, 1.2, ranked[1].AParam, 1e-12)
}

func TestStoreExposureStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertExposureStat(ctx, testTenant, &schema.ExposureStat{
		ItemID:        "q1",
		AnalysisRunID: "run-1",
		ExposureCount: 150,
		MeanTimeMs:    ptr(2500.0),
		CreatedAt:     base,
	}))
	require.NoError(t, store.InsertExposureStat(ctx, testTenant, &schema.ExposureStat{
		ItemID:        "q1",
		AnalysisRunID: "run-2",
		ExposureCount: 320,
		CreatedAt:     base.Add(time.Hour),
	}))

	t.Run("latest snapshot per item", func(t *testing.T) {
		latest, err := store.LatestExposureStats(ctx, testTenant)
		require.NoError(t, err)
		require.Len(t, latest, 1)
		assert.Equal(t, "q1", latest[0].ItemID)
		assert.Equal(t, 320, latest[0].ExposureCount)
		assert.Nil(t, latest[0].MeanTimeMs)
	})

	t.Run("full history", func(t *testing.T) {
		stats, err := store.AllExposureStats(ctx, testTenant, 0)
		require.NoError(t, err)
		require.Len(t, stats, 2)
		assert.Equal(t, 320, stats[0].ExposureCount)
		require.NotNil(t, stats[1].MeanTimeMs)
		assert.InDelta(t, 2500.0, *stats[1].MeanTimeMs, 1e-12)
	})
}

func TestStoreDetectionResults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result := &schema.DetectionResult{
		ID:            "det-1",
		ItemID:        "q1",
		DetectionType: schema.IpdDetection,
		MetricName:    schema.MetricPDiff,
		MetricValue:   0.25,
		Threshold:     0.2,
		Status:        schema.StatusFlagged,
		Details:       map[string]any{"latest": 0.75, "previous": 0.5},
		AnalysisRunID: "run-1",
		CreatedAt:     time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.InsertDetectionResult(ctx, testTenant, result))

	results, err := store.AllDetectionResults(ctx, testTenant, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, "det-1", got.ID)
	assert.Equal(t, schema.IpdDetection, got.DetectionType)
	assert.Equal(t, schema.MetricPDiff, got.MetricName)
	assert.Equal(t, schema.StatusFlagged, got.Status)
	assert.Equal(t, map[string]any{"latest": 0.75, "previous": 0.5}, got.Details)
	assert.Equal(t, "run-1", got.AnalysisRunID)
}

func TestStoreStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateRun(ctx, testRun("run-1", schema.CttRun, base)))
	require.NoError(t, store.InsertCttStat(ctx, testTenant, &schema.CttStat{
		ItemID:        "q1",
		AnalysisRunID: "run-1",
		N:             10,
		PValue:        0.4,
		CreatedAt:     base,
	}))

	status, err := store.Status(ctx, testTenant)
	require.NoError(t, err)

	assert.Equal(t, string(schema.SQLiteBackend), status.Backend)
	assert.True(t, status.Connected)
	assert.Equal(t, int64(1), status.TotalRuns)
	assert.Equal(t, "run-1", status.LastRunID)
	assert.Equal(t, string(schema.CttRun), status.LastRunType)
	assert.Equal(t, int64(1), status.TableSizes[analysisRunsTable])
	assert.Equal(t, int64(1), status.TableSizes[cttStatsTable])
	assert.Equal(t, int64(0), status.TableSizes[itemResponsesTable])
}

func TestStoreUnsupportedBackend(t *testing.T) {
	_, err := NewStore("oracle", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported backend")
}
