package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/kids-events/internal/site"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	RunID          string    `json:"run_id"`
	FinishedAt     time.Time `json:"finished_at"`
	BuildOnly      bool      `json:"build_only,omitempty"`
	Encoding       string    `json:"encoding,omitempty"`
	Bytes          int       `json:"bytes,omitempty"`
	Read           int       `json:"rows_read"`
	Imported       int       `json:"imported"`
	SkippedNoTitle int       `json:"skipped_no_title"`
	Upcoming       bool      `json:"upcoming"`
	Listed         int       `json:"listed"`
	Dropped        int       `json:"dropped_bad_date"`
	IndexPath      string    `json:"index_path"`
	CalendarPath   string    `json:"calendar_path,omitempty"`
}

func (r *OutputResult) setSite(res *site.Result) {
	if res == nil {
		return
	}
	r.Upcoming = res.Upcoming
	r.Listed = res.Count
	r.Dropped = res.Dropped
	r.IndexPath = res.IndexPath
	r.CalendarPath = res.CalendarPath
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat) error {
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
	if !result.BuildOnly {
		fmt.Fprintf(w, "Fetched %d bytes (%s)\n", result.Bytes, result.Encoding)
		fmt.Fprintf(w, "Imported %d events from %d rows", result.Imported, result.Read)
		if result.SkippedNoTitle > 0 {
			fmt.Fprintf(w, " (%d without title skipped)", result.SkippedNoTitle)
		}
		fmt.Fprintln(w)
	}

	section := "upcoming"
	if !result.Upcoming {
		section = "past"
	}
	fmt.Fprintf(w, "Wrote %s: %d %s events\n", result.IndexPath, result.Listed, section)
	if result.Dropped > 0 {
		fmt.Fprintf(w, "Left out %d events without a usable date\n", result.Dropped)
	}
	if result.CalendarPath != "" {
		fmt.Fprintf(w, "Wrote %s\n", result.CalendarPath)
	}
	return nil
}
