package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/itemwatch/itemwatch/schema"
)

// Color variables for detection report labels.
var (
	FlaggedColor  = color.New(color.FgRed, color.Bold) // flagged results demand review
	ResolvedColor = color.New(color.FgGreen)           // resolved results are informational
)

// GetStatusLabel returns the status text for a detection result, colored
// for console output when enabled.
func GetStatusLabel(status schema.DetectionStatus, useColors bool) string {
	text := string(status)
	if !useColors {
		return text
	}
	switch status {
	case schema.StatusFlagged:
		return FlaggedColor.Sprint(text)
	case schema.StatusResolved:
		return ResolvedColor.Sprint(text)
	default:
		return text
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on
// the provided file path. It returns os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetDBFilePath returns the default path to the SQLite DB file.
func GetDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".itemwatch.db"
	}
	return filepath.Join(homeDir, ".itemwatch.db")
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
