package outwriter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDetections() []schema.DetectionResult {
	created := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	return []schema.DetectionResult{
		{
			ID:            "det-1",
			ItemID:        "q1",
			DetectionType: schema.IpdDetection,
			MetricName:    schema.MetricPDiff,
			MetricValue:   0.25,
			Threshold:     0.2,
			Status:        schema.StatusFlagged,
			Details:       map[string]any{"latest": 0.75, "previous": 0.5},
			AnalysisRunID: "run-1",
			CreatedAt:     created,
		},
		{
			ID:            "det-2",
			ItemID:        "q2",
			DetectionType: schema.ExposureDetection,
			MetricName:    schema.MetricCount,
			MetricValue:   400,
			Threshold:     200,
			Status:        schema.StatusResolved,
			AnalysisRunID: "run-1",
			CreatedAt:     created,
		},
	}
}

func TestWriteReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReportJSON(&buf, sampleDetections()))

	var result []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	require.Len(t, result, 2)

	assert.Equal(t, "det-1", result[0]["id"])
	assert.Equal(t, "IPD", result[0]["detectionType"])
	assert.Equal(t, "p_diff", result[0]["metricName"])
	assert.Equal(t, 0.25, result[0]["metricValue"])
	assert.Equal(t, "flagged", result[0]["status"])
	assert.Equal(t, map[string]any{"latest": 0.75, "previous": 0.5}, result[0]["details"])

	// Detections without details omit the field entirely
	_, hasDetails := result[1]["details"]
	assert.False(t, hasDetails)
}

func TestWriteReportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReportCSV(&buf, sampleDetections()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3) // header + 2 rows

	assert.Contains(t, lines[0], "detection_type")
	assert.Contains(t, lines[0], "metric_value")
	assert.Contains(t, lines[1], "det-1")
	assert.Contains(t, lines[1], "IPD")
	assert.Contains(t, lines[1], "0.25")
	assert.Contains(t, lines[2], "EXPOSURE")
	assert.Contains(t, lines[2], "resolved")
}

func TestWriteReportTable(t *testing.T) {
	cfg := &contract.Config{Output: schema.TextOut, UseColors: false}

	var buf bytes.Buffer
	require.NoError(t, writeReportTable(&buf, sampleDetections(), cfg))

	out := buf.String()
	assert.Contains(t, out, "q1")
	assert.Contains(t, out, "IPD")
	assert.Contains(t, out, "p_diff")
	assert.Contains(t, out, "0.2500")
	assert.Contains(t, out, "flagged")
	assert.Contains(t, out, "resolved")
	assert.Contains(t, out, "Showing 2 detections (1 flagged)")
}

func TestWriteReportTableEmpty(t *testing.T) {
	cfg := &contract.Config{Output: schema.TextOut}

	var buf bytes.Buffer
	require.NoError(t, writeReportTable(&buf, nil, cfg))
	assert.Contains(t, buf.String(), "Showing 0 detections (0 flagged)")
}
