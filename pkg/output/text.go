package output

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "ibdlog: %d files parsed, %d tables built, %d warnings\n",
		report.Summary.FilesParsed,
		report.Summary.TablesBuilt,
		report.Summary.TotalWarnings)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	fmt.Fprintln(w, "=== IBD Log Report ===")
	fmt.Fprintln(w)

	for i := range report.Files {
		f.formatFile(&report.Files[i], w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d files parsed, %d tables built, %d warnings in %d files\n",
		report.Summary.FilesParsed,
		report.Summary.TablesBuilt,
		report.Summary.TotalWarnings,
		report.Summary.FilesWithWarnings)

	if f.opts.Verbose {
		fmt.Fprintf(w, "Lines processed: %d\n", report.Summary.LinesProcessed)
		_, err := fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(time.Millisecond))
		return err
	}
	return nil
}

func (f *TextFormatter) formatFile(fr *FileReport, w io.Writer) {
	fmt.Fprintf(w, "[%s]", fr.Source)
	if fr.Commit != "" {
		fmt.Fprintf(w, " commit %s", fr.Commit)
	}
	if fr.RunID != 0 {
		fmt.Fprintf(w, " run %d", fr.RunID)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %d timer ticks, %d flush markers", fr.TimerTicks, fr.FlushMarkers)
	if fr.Start != nil && fr.End != nil {
		fmt.Fprintf(w, ", %s to %s (%s)",
			fr.Start.Format(time.RFC3339),
			fr.End.Format(time.RFC3339),
			fr.End.Sub(*fr.Start).Round(time.Second))
	}
	fmt.Fprintln(w)

	if fr.Flush != nil {
		f.formatTable(fr.Flush, w)
	} else {
		fmt.Fprintln(w, "  flush: no table")
	}
	for i := range fr.Tables {
		f.formatTable(&fr.Tables[i], w)
	}

	if f.opts.Verbose && len(fr.Host) > 0 {
		keys := make([]string, 0, len(fr.Host))
		for k := range fr.Host {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(w, "  host:")
		for _, k := range keys {
			fmt.Fprintf(w, "    %s %s\n", k, fr.Host[k])
		}
	}

	for _, warn := range fr.Warnings {
		if warn.Line > 0 {
			fmt.Fprintf(w, "  warning: line %d: %s: %s\n", warn.Line, warn.Kind, warn.Message)
		} else {
			fmt.Fprintf(w, "  warning: %s: %s\n", warn.Kind, warn.Message)
		}
	}
	fmt.Fprintln(w)
}

func (f *TextFormatter) formatTable(ts *TableSummary, w io.Writer) {
	fmt.Fprintf(w, "  %s: %d rows, %d columns", ts.Event, ts.Rows, len(ts.Columns))
	if ts.Missing > 0 {
		fmt.Fprintf(w, ", %d missing", ts.Missing)
	}
	fmt.Fprintln(w)

	if f.opts.Verbose && len(ts.Columns) > 0 {
		fmt.Fprintf(w, "    columns: %s\n", strings.Join(ts.Columns, " "))
	}
}
