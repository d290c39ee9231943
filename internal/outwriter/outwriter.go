// Package outwriter has output and writer logic for run history, detection
// reports and task summaries.
package outwriter

import (
	"os"

	"golang.org/x/term"
)

// GetMaxTableItemWidth calculates the maximum width for item ids in table
// output based on terminal width.
func GetMaxTableItemWidth() int {
	termWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || termWidth <= 0 {
		// Fallback to conservative default if terminal size can't be detected
		termWidth = 80 // Conservative default for narrow terminals and CI
	}

	// Reserve space for the fixed metric columns with borders and padding.
	available := termWidth - 60
	if available < 12 {
		return 12
	}
	if available > 50 {
		return 50
	}
	return available
}

// truncateID shortens an identifier for table display.
func truncateID(id string, maxWidth int) string {
	if maxWidth < 4 || len(id) <= maxWidth {
		return id
	}
	return id[:maxWidth-3] + "..."
}
