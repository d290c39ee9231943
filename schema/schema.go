// Package schema has configs, models and shared constants for all parts of itemwatch.
package schema

import "time"

// ResponseRecord is a single examinee response to an item, produced by
// ingestion (external) and read-only for the engine. IsCorrect and
// ResponseTimeMs are nullable in the backing store.
type ResponseRecord struct {
	ItemID         string    // Item that was administered
	SessionID      string    // Test session the response belongs to
	IsCorrect      *bool     // Whether the response was scored correct (nil = unscored)
	ResponseTimeMs *int64    // Response latency in milliseconds (nil or <=0 = unusable)
	AnsweredAt     time.Time // When the response was recorded
	SubgroupLabel  *string   // Examinee subgroup for DIF analysis (nil = unknown)
}

// Correct reports whether the response was scored correct.
// Unscored responses count as incorrect.
func (r ResponseRecord) Correct() bool {
	return r.IsCorrect != nil && *r.IsCorrect
}

// SessionScore is the derived per-session score used as the latent trait
// proxy. It is recomputed for every run and never persisted, so estimates
// always reflect the run's own data window.
type SessionScore struct {
	SessionID string
	RawScore  int     // Count of correct responses in the window
	Theta     float64 // Standardized raw score (z-score across sessions)
}

// AnalysisRun is one ledger entry per batch invocation. Immutable after
// creation; every stat and detection row references exactly one run.
type AnalysisRun struct {
	ID              string // UUID assigned at creation
	TenantID        string
	RunType         RunType
	Params          map[string]any // Thresholds and hyperparameters used by this run
	Since           time.Time      // Start of the analysis window
	DatasetHash     string         // Coarse fingerprint of the input snapshot
	SoftwareVersion string         // Engine build that produced the run
	CreatedAt       time.Time
}

// CttStat is one classical-test-theory result row per item per CTT run.
// Rows accumulate across runs and are never overwritten.
type CttStat struct {
	ItemID         string
	AnalysisRunID  string
	N              int     // Response rows contributing to this stat
	PValue         float64 // Proportion correct, always within [0,1]
	Discrimination float64 // Reported equal to PointBiserial under the current model
	PointBiserial  float64
	MeanTimeMs     *float64 // Mean of strictly positive response times (nil if none)
	StdTimeMs      *float64
	CreatedAt      time.Time
}

// IrtParam is one item-response-theory parameter row per item per IRT run.
// CParam and DParam are fixed 0/1 sentinels reserved for 3PL/4PL extension.
type IrtParam struct {
	ItemID           string
	AnalysisRunID    string
	Model            ModelKind
	AParam           float64 // Discrimination
	BParam           float64 // Difficulty
	CParam           float64 // Lower asymptote; always 0 under 2PL
	DParam           float64 // Upper asymptote; always 1 under 2PL
	EstimationMethod string
	N                int
	CreatedAt        time.Time
}

// ExposureStat is one usage row per item per exposure run.
type ExposureStat struct {
	ItemID        string
	AnalysisRunID string
	ExposureCount int
	MeanTimeMs    *float64
	CreatedAt     time.Time
}

// DetectionResult is a flagged anomaly raised by the detection engine.
// The engine only ever inserts rows with StatusFlagged; resolution is an
// external reviewer action. Re-flagging is a new row, not a status reset.
type DetectionResult struct {
	ID            string // UUID assigned at creation
	ItemID        string
	DetectionType DetectionType
	MetricName    string
	MetricValue   float64
	Threshold     float64
	Status        DetectionStatus
	Details       map[string]any
	AnalysisRunID string
	CreatedAt     time.Time
}

// TaskSummary is the result payload printed after a ctt/irt/exposure run.
type TaskSummary struct {
	AnalysisRunID string `json:"analysisRunId"`
	ItemCount     int    `json:"itemCount"`
}

// DetectionSummary is the result payload printed after a detect run,
// with per-rule flag counts.
type DetectionSummary struct {
	AnalysisRunID string `json:"analysisRunId"`
	IpdCount      int    `json:"ipdCount"`
	DifCount      int    `json:"difCount"`
	ExposureCount int    `json:"exposureCount"`
	TimeCount     int    `json:"timeCount"`
}

// RankedCttStat is a latest/previous pair element used by drift detection.
// Rank 1 is the most recent row for the item, rank 2 the one before it.
type RankedCttStat struct {
	ItemID    string
	PValue    float64
	CreatedAt time.Time
	Rank      int
}

// RankedIrtParam mirrors RankedCttStat for IRT parameter history.
type RankedIrtParam struct {
	ItemID    string
	AParam    float64
	BParam    float64
	CreatedAt time.Time
	Rank      int
}

// LatestExposure is the most recent exposure snapshot per item.
type LatestExposure struct {
	ItemID        string
	ExposureCount int
	MeanTimeMs    *float64
}

// SubgroupTally accumulates per-subgroup response counts for DIF.
type SubgroupTally struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

// PValue returns the subgroup's proportion correct, or 0 for an empty group.
func (t SubgroupTally) PValue() float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(t.Correct) / float64(t.Total)
}

// StoreStatus reports connectivity and row counts for the status command.
type StoreStatus struct {
	Backend     string
	Connected   bool
	TotalRuns   int64
	LastRunID   string
	LastRunType string
	LastRunTime time.Time
	TableSizes  map[string]int64
}
