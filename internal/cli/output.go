package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/pfrederiksen/ponisha-watch/internal/watcher"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	*watcher.Report
	Metrics map[string]interface{} `json:"metrics,omitempty"`
}

// WriteOutput writes the run report in the specified format. Metrics are
// included when non-nil.
func WriteOutput(w io.Writer, report *watcher.Report, format OutputFormat, metrics map[string]interface{}) error {
	result := &OutputResult{Report: report, Metrics: metrics}

	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult) error {
	if result.NewCount == 0 {
		fmt.Fprintf(w, "No new projects found (%d checked).\n", result.Processed)
	} else {
		for _, p := range result.NewProjects {
			fmt.Fprintf(w, "NEW (%s): %s\n", p.ID, p.Title)
			fmt.Fprintf(w, "     %s\n", p.URL)
		}
		fmt.Fprintf(w, "\nTotal: %d new of %d checked, %d sent, %d failed, %d filtered\n",
			result.NewCount, result.Processed, result.Notified, result.Failed, result.Filtered)
	}

	if result.StateError != "" {
		fmt.Fprintf(w, "State not saved: %s\n", result.StateError)
	}

	if result.Metrics != nil {
		writeMetrics(w, result.Metrics)
	}
	return nil
}

func writeMetrics(w io.Writer, metrics map[string]interface{}) {
	fmt.Fprintln(w, "\nMetrics:")

	if counters, ok := metrics["counters"].(map[string]int64); ok {
		for _, name := range sortedKeys(counters) {
			fmt.Fprintf(w, "  %s: %d\n", name, counters[name])
		}
	}
	if timings, ok := metrics["timings"].(map[string]map[string]interface{}); ok {
		for _, name := range sortedKeys(timings) {
			t := timings[name]
			fmt.Fprintf(w, "  %s: count=%v total=%v min=%v max=%v\n", name, t["count"], t["total"], t["min"], t["max"])
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
