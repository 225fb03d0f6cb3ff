// Package output provides formatting and output generation for unpacked logs.
package output

import (
	"time"

	"github.com/eklitzke/bitcoin-tools/pkg/ingest"
)

// Report is the complete output of one unpack run.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary" yaml:"summary"`

	// Files describes each parsed log, in input order.
	Files []FileReport `json:"files" yaml:"files"`

	// Metadata provides context about the run.
	Metadata Metadata `json:"metadata" yaml:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	FilesParsed       int `json:"files_parsed" yaml:"files_parsed"`
	FilesWithWarnings int `json:"files_with_warnings" yaml:"files_with_warnings"`
	TotalWarnings     int `json:"total_warnings" yaml:"total_warnings"`
	TablesBuilt       int `json:"tables_built" yaml:"tables_built"`
	LinesProcessed    int `json:"lines_processed" yaml:"lines_processed"`
}

// FileReport summarises one parsed log.
type FileReport struct {
	Source string `json:"source" yaml:"source"`
	Commit string `json:"commit,omitempty" yaml:"commit,omitempty"`

	// RunID is set once the result has been stored.
	RunID int64 `json:"run_id,omitempty" yaml:"run_id,omitempty"`

	Lines        int        `json:"lines" yaml:"lines"`
	TimerTicks   int        `json:"timer_ticks" yaml:"timer_ticks"`
	FlushMarkers int        `json:"flush_markers" yaml:"flush_markers"`
	Start        *time.Time `json:"start,omitempty" yaml:"start,omitempty"`
	End          *time.Time `json:"end,omitempty" yaml:"end,omitempty"`

	// Flush is nil when the log had no flush records.
	Flush  *TableSummary  `json:"flush,omitempty" yaml:"flush,omitempty"`
	Tables []TableSummary `json:"tables" yaml:"tables"`

	Host     map[string]string `json:"host,omitempty" yaml:"host,omitempty"`
	Warnings []WarningEntry    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// TableSummary describes one event table.
type TableSummary struct {
	Event   string   `json:"event" yaml:"event"`
	Rows    int      `json:"rows" yaml:"rows"`
	Columns []string `json:"columns" yaml:"columns"`
	Missing int      `json:"missing" yaml:"missing"`
}

// WarningEntry is a recoverable condition found while parsing.
type WarningEntry struct {
	Kind    string `json:"kind" yaml:"kind"`
	Section string `json:"section,omitempty" yaml:"section,omitempty"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Metadata provides context about the run.
type Metadata struct {
	// ConfigFile is the path to the configuration file used, if any.
	ConfigFile string `json:"config_file,omitempty" yaml:"config_file,omitempty"`

	// Sources lists the log files that were parsed.
	Sources []string `json:"sources" yaml:"sources"`

	// GeneratedAt is when the report was built.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	// Duration is how long parsing took.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// NewReport creates a Report from parse results.
func NewReport(results []*ingest.Result, configFile string) *Report {
	report := &Report{
		Files: make([]FileReport, 0, len(results)),
		Metadata: Metadata{
			ConfigFile:  configFile,
			Sources:     make([]string, 0, len(results)),
			GeneratedAt: time.Now().UTC(),
		},
	}

	for _, res := range results {
		fr := newFileReport(res)
		report.Files = append(report.Files, fr)
		report.Metadata.Sources = append(report.Metadata.Sources, res.Source)

		report.Summary.FilesParsed++
		report.Summary.LinesProcessed += res.Lines
		report.Summary.TablesBuilt += len(fr.Tables)
		if fr.Flush != nil {
			report.Summary.TablesBuilt++
		}
		if len(fr.Warnings) > 0 {
			report.Summary.FilesWithWarnings++
			report.Summary.TotalWarnings += len(fr.Warnings)
		}
	}

	return report
}

func newFileReport(res *ingest.Result) FileReport {
	fr := FileReport{
		Source:       res.Source,
		Commit:       res.Commit(),
		Lines:        res.Lines,
		TimerTicks:   len(res.DataTimes),
		FlushMarkers: len(res.FlushTimes),
		Tables:       make([]TableSummary, 0, len(res.Tables)),
	}

	if start, end, ok := res.Span(); ok {
		fr.Start, fr.End = &start, &end
	}
	if res.Flush != nil {
		s := summarizeTable(res.Flush)
		fr.Flush = &s
	}
	for _, kind := range res.EventKinds() {
		fr.Tables = append(fr.Tables, summarizeTable(res.Tables[kind]))
	}

	if len(res.Host) > 0 {
		fr.Host = make(map[string]string, len(res.Host))
		for k, v := range res.Host {
			fr.Host[k] = v.String()
		}
	}

	for _, w := range res.Warnings {
		fr.Warnings = append(fr.Warnings, WarningEntry{
			Kind:    string(w.Kind),
			Section: w.Section,
			Line:    w.Line,
			Message: w.Message,
		})
	}
	return fr
}

func summarizeTable(t *ingest.Table) TableSummary {
	return TableSummary{
		Event:   t.Event,
		Rows:    t.Len(),
		Columns: t.Columns,
		Missing: t.Missing(),
	}
}

// HasWarnings returns true if any file produced warnings.
func (r *Report) HasWarnings() bool {
	return r.Summary.TotalWarnings > 0
}

// SetRunID records the store id for the file parsed from source.
func (r *Report) SetRunID(source string, id int64) {
	for i := range r.Files {
		if r.Files[i].Source == source {
			r.Files[i].RunID = id
			return
		}
	}
}
