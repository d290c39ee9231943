package schema

// RunType identifies which batch computation an analysis run performed.
type RunType string

// Analysis run types.
const (
	CttRun       RunType = "CTT"
	IrtRun       RunType = "IRT"
	ExposureRun  RunType = "EXPOSURE"
	DetectionRun RunType = "DETECTION"
)

// TaskName is the CLI-facing task selector value.
type TaskName string

// Task selector values for the run command.
const (
	CttTask      TaskName = "ctt"
	IrtTask      TaskName = "irt"
	ExposureTask TaskName = "exposure"
	DetectTask   TaskName = "detect"
)

// ValidTaskNames maps each accepted --task value to its run type.
var ValidTaskNames = map[TaskName]RunType{
	CttTask:      CttRun,
	IrtTask:      IrtRun,
	ExposureTask: ExposureRun,
	DetectTask:   DetectionRun,
}

// DetectionType identifies the rule that raised a detection result.
type DetectionType string

// Detection rule families.
const (
	IpdDetection      DetectionType = "IPD"
	DifDetection      DetectionType = "DIF"
	ExposureDetection DetectionType = "EXPOSURE"
	TimeDetection     DetectionType = "TIME"
)

// Metric names attached to detection results.
const (
	MetricPDiff      = "p_diff"
	MetricADiff      = "a_diff"
	MetricBDiff      = "b_diff"
	MetricCount      = "count"
	MetricMeanTimeMs = "mean_time_ms"
)

// DetectionStatus is the lifecycle state of a detection result.
// The engine only writes StatusFlagged; StatusResolved is set by an
// external reviewer action.
type DetectionStatus string

// Detection result states.
const (
	StatusFlagged  DetectionStatus = "flagged"
	StatusResolved DetectionStatus = "resolved"
)

// ModelKind tags which IRT model produced a parameter row. Only the 2PL
// model is implemented; the other variants are reserved so extension does
// not require a schema migration.
type ModelKind string

// IRT model variants.
const (
	TwoPL   ModelKind = "2PL"
	ThreePL ModelKind = "3PL"
	FourPL  ModelKind = "4PL"
)

// ValidModelKinds enumerates the representable IRT models.
var ValidModelKinds = map[ModelKind]struct{}{
	TwoPL:   {},
	ThreePL: {},
	FourPL:  {},
}

// Sentinel parameter values persisted for slots unused by the 2PL model.
const (
	TwoPLCParam = 0.0
	TwoPLDParam = 1.0
)

// GradientMethod tags rows fit by the batch gradient optimizer.
const GradientMethod = "gradient_2pl"

// DatabaseBackend represents the type of database backend to use.
type DatabaseBackend string

// Supported database backends.
const (
	SQLiteBackend     DatabaseBackend = "sqlite"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	MySQLBackend      DatabaseBackend = "mysql"
)

// ValidDatabaseBackends enumerates the accepted store backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	PostgreSQLBackend: {},
	MySQLBackend:      {},
}

// OutputMode controls how report results are rendered.
type OutputMode string

// Output modes for the report and runs commands.
const (
	TextOut OutputMode = "text"
	CSVOut  OutputMode = "csv"
	JSONOut OutputMode = "json"
)

// ValidOutputModes enumerates the accepted output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut: {},
	CSVOut:  {},
	JSONOut: {},
}

// ExportFormat controls the export command's file format.
type ExportFormat string

// Export formats.
const (
	ParquetExport ExportFormat = "parquet"
	CSVExport     ExportFormat = "csv"
)

// ValidExportFormats enumerates the accepted export formats.
var ValidExportFormats = map[ExportFormat]struct{}{
	ParquetExport: {},
	CSVExport:     {},
}

// Default analysis window.
const DefaultWindowDays = 30

// IRT estimation defaults. All overridable per invocation; the values a
// run actually used are recorded on its ledger entry.
const (
	DefaultIrtMinResponses = 30
	DefaultIrtMaxIters     = 250
	DefaultIrtLearningRate = 0.05
	DefaultIrtL2           = 0.01
	DefaultIrtTolerance    = 0.0005
	DefaultIrtMinA         = 0.2
	DefaultIrtMaxA         = 3.0
	DefaultIrtMinB         = -4.0
	DefaultIrtMaxB         = 4.0
)

// Detection rule defaults.
const (
	DefaultIpdPThreshold     = 0.2
	DefaultIpdAThreshold     = 0.3
	DefaultIpdBThreshold     = 0.3
	DefaultDifThreshold      = 0.2
	DefaultDifMinResponses   = 30
	DefaultExposureThreshold = 200
	DefaultTimeThresholdMs   = 120000.0
)
