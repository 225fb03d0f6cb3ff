package output

import (
	"context"
	"encoding/json"
	"io"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format renders the report as JSON.
func (f *JSONFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if f.opts.Quiet {
		return encoder.Encode(report.Summary)
	}
	if !f.opts.Verbose {
		return encoder.Encode(withoutHost(report))
	}
	return encoder.Encode(report)
}

// withoutHost returns a shallow copy of report with host info dropped.
func withoutHost(report *Report) *Report {
	cp := *report
	cp.Files = make([]FileReport, len(report.Files))
	for i, f := range report.Files {
		f.Host = nil
		cp.Files[i] = f
	}
	return &cp
}
