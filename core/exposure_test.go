package core

import (
	"context"
	"testing"

	"github.com/itemwatch/itemwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteExposure(t *testing.T) {
	store := &fakeStore{
		responses: []schema.ResponseRecord{
			timedResp("q1", "s1", true, 1500),
			timedResp("q1", "s2", false, 2500),
			timedResp("q1", "s3", false, -10),
			{ItemID: "q1", SessionID: "s4", AnsweredAt: testWindowStart}, // unscored, untimed
			resp("q2", "s1", true),
		},
	}
	cfg := testConfig()

	summary, err := ExecuteExposure(context.Background(), cfg, store)
	require.NoError(t, err)

	require.Len(t, store.runs, 1)
	run := store.runs[0]
	assert.Equal(t, schema.ExposureRun, run.RunType)
	assert.Equal(t, run.ID, summary.AnalysisRunID)
	assert.Equal(t, 2, summary.ItemCount)

	require.Len(t, store.exposures, 2)

	// Every administration counts toward exposure, but only positive
	// latencies enter the mean.
	q1 := store.exposures[0]
	assert.Equal(t, "q1", q1.ItemID)
	assert.Equal(t, run.ID, q1.AnalysisRunID)
	assert.Equal(t, 4, q1.ExposureCount)
	require.NotNil(t, q1.MeanTimeMs)
	assert.InDelta(t, 2000, *q1.MeanTimeMs, 1e-9)

	q2 := store.exposures[1]
	assert.Equal(t, "q2", q2.ItemID)
	assert.Equal(t, 1, q2.ExposureCount)
	assert.Nil(t, q2.MeanTimeMs)
}

func TestExecuteExposureEmptyWindow(t *testing.T) {
	store := &fakeStore{}
	summary, err := ExecuteExposure(context.Background(), testConfig(), store)
	require.NoError(t, err)

	assert.Len(t, store.runs, 1)
	assert.Zero(t, summary.ItemCount)
	assert.Empty(t, store.exposures)
}
