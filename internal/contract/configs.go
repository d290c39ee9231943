package contract

import (
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/itemwatch/itemwatch/schema"
)

// Default values for configuration.
const (
	DefaultResultLimit = 50
	MaxResultLimit     = 1000
	MaxWindowDays      = 3650
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// IrtConfig holds the hyperparameters for the 2PL gradient fit. Every field
// is recorded on the run's ledger entry so historical fits stay reproducible
// even if defaults change later.
type IrtConfig struct {
	MinResponses int     // Items below this response count are skipped
	MaxIters     int     // Iteration budget per item
	LearningRate float64
	L2           float64 // Shrinkage applied to both gradients
	Tolerance    float64 // Stop when |stepA| + |stepB| falls below this
	MinA         float64 // Discrimination bounds
	MaxA         float64
	MinB         float64 // Difficulty bounds
	MaxB         float64
}

// DetectionConfig holds the rule thresholds for a detection run. Boundary
// comparisons are inclusive: a diff exactly equal to its threshold flags.
type DetectionConfig struct {
	IpdPThreshold     float64 // p-value drift between successive CTT runs
	IpdAThreshold     float64 // a-parameter drift between successive IRT runs
	IpdBThreshold     float64 // b-parameter drift between successive IRT runs
	DifThreshold      float64 // Max minus min subgroup proportion correct
	DifMinResponses   int     // Subgroups below this total are ineligible
	ExposureThreshold int     // Latest exposure count at or above this flags
	TimeThresholdMs   float64 // Latest mean response time at or above this flags
}

// Config holds the runtime configuration for a batch invocation.
// This struct remains the "final, validated" config; the algorithmic core
// never reads ambient process state.
type Config struct {
	TenantID   string
	WindowDays int
	Since      time.Time // Start of the analysis window, derived from WindowDays
	Workers    int       // Parallelism for per-item estimation

	Backend   schema.DatabaseBackend
	DBConnect string // Please use env var as this is plaintext

	Output      schema.OutputMode
	OutputFile  string
	ResultLimit int
	UseColors   bool

	ExportFormat schema.ExportFormat

	SoftwareVersion string // Recorded on every run ledger entry

	Irt       IrtConfig
	Detection DetectionConfig
}

// IrtRawInput holds optional IRT overrides from the YAML config file.
type IrtRawInput struct {
	MinResponses *int     `mapstructure:"min_responses"`
	MaxIters     *int     `mapstructure:"max_iters"`
	LearningRate *float64 `mapstructure:"learning_rate"`
	L2           *float64 `mapstructure:"l2"`
	Tolerance    *float64 `mapstructure:"tolerance"`
	MinA         *float64 `mapstructure:"min_a"`
	MaxA         *float64 `mapstructure:"max_a"`
	MinB         *float64 `mapstructure:"min_b"`
	MaxB         *float64 `mapstructure:"max_b"`
}

// DetectionRawInput holds optional detection threshold overrides from the
// YAML config file.
type DetectionRawInput struct {
	IpdP            *float64 `mapstructure:"ipd_p"`
	IpdA            *float64 `mapstructure:"ipd_a"`
	IpdB            *float64 `mapstructure:"ipd_b"`
	Dif             *float64 `mapstructure:"dif"`
	DifMinResponses *int     `mapstructure:"dif_min_responses"`
	Exposure        *int     `mapstructure:"exposure"`
	TimeMs          *float64 `mapstructure:"time_ms"`
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	Tenant      string `mapstructure:"tenant"`
	WindowDays  int    `mapstructure:"window-days"`
	Workers     int    `mapstructure:"workers"`
	Backend     string `mapstructure:"backend"`
	DBConnect   string `mapstructure:"db-connect"`
	Output      string `mapstructure:"output"`
	OutputFile  string `mapstructure:"output-file"`
	Limit       int    `mapstructure:"limit"`
	Color       string `mapstructure:"color"`
	Format      string `mapstructure:"format"`

	// --- Nested sections from the config file ---
	Irt       IrtRawInput       `mapstructure:"irt"`
	Detection DetectionRawInput `mapstructure:"detection"`
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput, now time.Time) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processWindow(cfg, input, now); err != nil {
		return err
	}
	if err := processIrtConfig(cfg, input); err != nil {
		return err
	}
	if err := processDetectionConfig(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database
// connection strings for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") && !strings.HasPrefix(connStr, "postgres://") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' or use a postgres:// URL")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all non-window fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 1. Tenant Validation ---
	// A missing tenant is a configuration error: fatal before any run is created.
	cfg.TenantID = strings.TrimSpace(input.Tenant)
	if cfg.TenantID == "" {
		return fmt.Errorf("tenant is required (set --tenant or ITEMWATCH_TENANT)")
	}

	// --- 2. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 3. ResultLimit Validation ---
	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	// --- 4. Output Validation ---
	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}
	cfg.OutputFile = input.OutputFile

	cfg.ExportFormat = schema.ExportFormat(strings.ToLower(input.Format))
	if _, ok := schema.ValidExportFormats[cfg.ExportFormat]; !ok {
		return fmt.Errorf("invalid export format '%s'. must be parquet or csv", input.Format)
	}

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 5. Backend Validation ---
	cfg.Backend = schema.DatabaseBackend(strings.ToLower(input.Backend))
	if _, ok := schema.ValidDatabaseBackends[cfg.Backend]; !ok {
		return fmt.Errorf("invalid backend '%s'. must be sqlite, postgresql, mysql", input.Backend)
	}
	cfg.DBConnect = input.DBConnect
	return ValidateDatabaseConnectionString(cfg.Backend, cfg.DBConnect)
}

// processWindow derives the analysis window start from the configured
// window length.
func processWindow(cfg *Config, input *ConfigRawInput, now time.Time) error {
	if input.WindowDays <= 0 || input.WindowDays > MaxWindowDays {
		return fmt.Errorf("window-days must be between 1 and %d (received %d)", MaxWindowDays, input.WindowDays)
	}
	cfg.WindowDays = input.WindowDays
	cfg.Since = now.Add(-time.Duration(cfg.WindowDays) * 24 * time.Hour).UTC()
	return nil
}

// processIrtConfig merges defaults with config file overrides and validates
// the resulting hyperparameters.
func processIrtConfig(cfg *Config, input *ConfigRawInput) error {
	irt := IrtConfig{
		MinResponses: schema.DefaultIrtMinResponses,
		MaxIters:     schema.DefaultIrtMaxIters,
		LearningRate: schema.DefaultIrtLearningRate,
		L2:           schema.DefaultIrtL2,
		Tolerance:    schema.DefaultIrtTolerance,
		MinA:         schema.DefaultIrtMinA,
		MaxA:         schema.DefaultIrtMaxA,
		MinB:         schema.DefaultIrtMinB,
		MaxB:         schema.DefaultIrtMaxB,
	}

	raw := input.Irt
	if raw.MinResponses != nil {
		irt.MinResponses = *raw.MinResponses
	}
	if raw.MaxIters != nil {
		irt.MaxIters = *raw.MaxIters
	}
	if raw.LearningRate != nil {
		irt.LearningRate = *raw.LearningRate
	}
	if raw.L2 != nil {
		irt.L2 = *raw.L2
	}
	if raw.Tolerance != nil {
		irt.Tolerance = *raw.Tolerance
	}
	if raw.MinA != nil {
		irt.MinA = *raw.MinA
	}
	if raw.MaxA != nil {
		irt.MaxA = *raw.MaxA
	}
	if raw.MinB != nil {
		irt.MinB = *raw.MinB
	}
	if raw.MaxB != nil {
		irt.MaxB = *raw.MaxB
	}

	if irt.MinResponses < 1 {
		return fmt.Errorf("irt min_responses must be at least 1 (received %d)", irt.MinResponses)
	}
	if irt.MaxIters < 1 {
		return fmt.Errorf("irt max_iters must be at least 1 (received %d)", irt.MaxIters)
	}
	if irt.LearningRate <= 0 || math.IsNaN(irt.LearningRate) {
		return fmt.Errorf("irt learning_rate must be positive (received %v)", irt.LearningRate)
	}
	if irt.L2 < 0 || math.IsNaN(irt.L2) {
		return fmt.Errorf("irt l2 must be non-negative (received %v)", irt.L2)
	}
	if irt.Tolerance <= 0 || math.IsNaN(irt.Tolerance) {
		return fmt.Errorf("irt tolerance must be positive (received %v)", irt.Tolerance)
	}
	if irt.MinA >= irt.MaxA {
		return fmt.Errorf("irt bounds require min_a < max_a (received %v >= %v)", irt.MinA, irt.MaxA)
	}
	if irt.MinB >= irt.MaxB {
		return fmt.Errorf("irt bounds require min_b < max_b (received %v >= %v)", irt.MinB, irt.MaxB)
	}

	cfg.Irt = irt
	return nil
}

// processDetectionConfig merges defaults with config file overrides and
// validates the resulting thresholds.
func processDetectionConfig(cfg *Config, input *ConfigRawInput) error {
	det := DetectionConfig{
		IpdPThreshold:     schema.DefaultIpdPThreshold,
		IpdAThreshold:     schema.DefaultIpdAThreshold,
		IpdBThreshold:     schema.DefaultIpdBThreshold,
		DifThreshold:      schema.DefaultDifThreshold,
		DifMinResponses:   schema.DefaultDifMinResponses,
		ExposureThreshold: schema.DefaultExposureThreshold,
		TimeThresholdMs:   schema.DefaultTimeThresholdMs,
	}

	raw := input.Detection
	if raw.IpdP != nil {
		det.IpdPThreshold = *raw.IpdP
	}
	if raw.IpdA != nil {
		det.IpdAThreshold = *raw.IpdA
	}
	if raw.IpdB != nil {
		det.IpdBThreshold = *raw.IpdB
	}
	if raw.Dif != nil {
		det.DifThreshold = *raw.Dif
	}
	if raw.DifMinResponses != nil {
		det.DifMinResponses = *raw.DifMinResponses
	}
	if raw.Exposure != nil {
		det.ExposureThreshold = *raw.Exposure
	}
	if raw.TimeMs != nil {
		det.TimeThresholdMs = *raw.TimeMs
	}

	for name, v := range map[string]float64{
		"ipd_p": det.IpdPThreshold,
		"ipd_a": det.IpdAThreshold,
		"ipd_b": det.IpdBThreshold,
		"dif":   det.DifThreshold,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("detection threshold %s must be non-negative (received %v)", name, v)
		}
	}
	if det.DifMinResponses < 1 {
		return fmt.Errorf("detection dif_min_responses must be at least 1 (received %d)", det.DifMinResponses)
	}
	if det.ExposureThreshold < 1 {
		return fmt.Errorf("detection exposure threshold must be at least 1 (received %d)", det.ExposureThreshold)
	}
	if det.TimeThresholdMs <= 0 || math.IsNaN(det.TimeThresholdMs) {
		return fmt.Errorf("detection time_ms threshold must be positive (received %v)", det.TimeThresholdMs)
	}

	cfg.Detection = det
	return nil
}
