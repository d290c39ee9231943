package outwriter

import (
	"fmt"
	"io"
	"sort"

	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/schema"
)

// WriteStatus outputs store connectivity and row counts.
func WriteStatus(status schema.StoreStatus, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeStatusJSON(w, status)
		}, "Wrote JSON")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeStatusText(w, status)
	}, "Wrote status")
}

// writeStatusText writes the human-readable status report.
func writeStatusText(w io.Writer, status schema.StoreStatus) error {
	fmt.Fprintf(w, "Backend:    %s\n", status.Backend)
	fmt.Fprintf(w, "Connected:  %t\n", status.Connected)
	fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	if status.LastRunID != "" {
		fmt.Fprintf(w, "Last run:   %s (%s) at %s\n",
			status.LastRunID, status.LastRunType, status.LastRunTime.Format(contract.DateTimeFormat))
	} else {
		fmt.Fprintln(w, "Last run:   none")
	}

	tables := make([]string, 0, len(status.TableSizes))
	for name := range status.TableSizes {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	for _, name := range tables {
		fmt.Fprintf(w, "  %-40s %d rows\n", name, status.TableSizes[name])
	}
	return nil
}

// writeStatusJSON writes the status report in JSON format.
func writeStatusJSON(w io.Writer, status schema.StoreStatus) error {
	type JSONStatus struct {
		Backend     string           `json:"backend"`
		Connected   bool             `json:"connected"`
		TotalRuns   int64            `json:"totalRuns"`
		LastRunID   string           `json:"lastRunId,omitempty"`
		LastRunType string           `json:"lastRunType,omitempty"`
		LastRunTime string           `json:"lastRunTime,omitempty"`
		TableSizes  map[string]int64 `json:"tableSizes"`
	}

	out := JSONStatus{
		Backend:     status.Backend,
		Connected:   status.Connected,
		TotalRuns:   status.TotalRuns,
		LastRunID:   status.LastRunID,
		LastRunType: status.LastRunType,
		TableSizes:  status.TableSizes,
	}
	if !status.LastRunTime.IsZero() {
		out.LastRunTime = status.LastRunTime.Format(contract.DateTimeFormat)
	}
	return writeJSON(w, out)
}
