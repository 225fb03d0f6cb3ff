package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eklitzke/bitcoin-tools/pkg/ingest"
	"github.com/eklitzke/bitcoin-tools/pkg/parser"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Config  string   `mapstructure:"config"`
	Ignore  []string `mapstructure:"ignore"`
	Verbose bool     `mapstructure:"verbose"`
}

// Diagnostic statuses.
const (
	statusOK      = "ok"
	statusWarning = "warning"
	statusError   = "error"
)

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// census is a tolerant count of what a log contains. Unlike a parse it
// never stops at the first problem.
type census struct {
	lines       int
	sections    map[parser.Section]int
	order       []parser.Section
	badHeaders  []int
	orphans     []int
	begins      int
	finishes    int
	timerTicks  int
	flushTicks  int
	badReasons  []int
	events      map[string]int
	ignored     int
	beforeBegin int
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose <log-file>",
		Short: "Diagnose problems in an IBD trace log",
		Long: `Diagnose problems in an IBD trace log.

Unlike unpack, diagnose does not stop at the first problem. It checks:
- File existence and readability
- Section headers and their order
- The begin/finish markers of the trace
- Record counts per event kind against the timer and flush timelines
- Whether the log parses cleanly

Event kinds dropped by unpack (ignore_events in --config, or --ignore)
are dropped here too. Lines after finish are not examined.

Example:
  ibdlog diagnose debug-20240101-120000.log
  ibdlog diagnose --ignore finish_ibd debug-20240101-120000.log
  ibdlog diagnose -v debug-20240101-120000.log.zst  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &DiagnoseOptions{}
			if err := resolveFlags(cmd, opts); err != nil {
				return err
			}
			return runDiagnose(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringP("config", "c", "", "Configuration file (for ignore_events)")
	cmd.Flags().StringSlice("ignore", nil, "Event kinds to drop (can be repeated)")
	cmd.Flags().BoolP("verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, path string, opts *DiagnoseOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(ctx, opts.Config)
	if err != nil {
		return err
	}
	ignore := append(append([]string{}, cfg.IgnoreEvents...), opts.Ignore...)

	results := []DiagnosticResult{}

	result := checkLogFile(path)
	results = append(results, result)
	if result.Status == statusError {
		printDiagnostics(w, results, opts)
		return nil
	}

	c, err := scanLog(ctx, path, ignore)
	if err != nil {
		results = append(results, DiagnosticResult{
			Check:   "Read",
			Status:  statusError,
			Message: fmt.Sprintf("Cannot read log: %v", err),
			Suggests: []string{
				"Check that compressed files are complete (.gz and .zst are supported)",
			},
		})
		printDiagnostics(w, results, opts)
		return nil
	}

	results = append(results, checkSections(c))
	results = append(results, checkProtocol(c))
	results = append(results, checkAlignment(c))
	results = append(results, checkParse(ctx, path, ignore))

	printDiagnostics(w, results, opts)
	return nil
}

func checkLogFile(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Log File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = statusError
		result.Message = fmt.Sprintf("Log file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'ibdlog latest --dir <dir>' to find the newest log",
		}
		return result
	}
	if err != nil {
		result.Status = statusError
		result.Message = fmt.Sprintf("Cannot access log file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = statusError
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = statusError
		result.Message = "Log file is empty"
		result.Suggests = []string{"Check that the tracing session wrote its output"}
		return result
	}

	result.Status = statusOK
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

// scanLog counts what path contains up to the first finish marker.
// Ignored event kinds are counted apart and take no part in alignment.
func scanLog(ctx context.Context, path string, ignore []string) (*census, error) {
	src := parser.NewFileSource(path)
	defer src.Close()

	skip := make(map[string]bool, len(ignore))
	for _, k := range ignore {
		skip[k] = true
	}
	c := &census{
		sections: make(map[parser.Section]int),
		events:   make(map[string]int),
	}
	var cl parser.Classifier
	begun := false

	for {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return c, nil
		}
		if err != nil {
			return nil, err
		}
		c.lines = line.Num

		cls, err := cl.Classify(line.Text)
		switch {
		case errors.Is(err, parser.ErrMalformedHeader):
			c.badHeaders = append(c.badHeaders, line.Num)
			continue
		case errors.Is(err, parser.ErrNoSection):
			c.orphans = append(c.orphans, line.Num)
			continue
		case err != nil:
			return nil, err
		}

		switch cls.Kind {
		case parser.LineHeader:
			c.order = append(c.order, cls.Section)
			continue
		case parser.LineBlank:
			continue
		}

		c.sections[cls.Section]++
		if cls.Section != parser.SectionTrace {
			continue
		}

		fields := strings.Fields(cls.Text)
		event := fields[0]
		switch {
		case event == "begin":
			c.begins++
			begun = true
		case event == "finish":
			c.finishes++
			return c, nil
		case !begun:
			c.beforeBegin++
		case event == "time":
			switch reasonOf(fields[1:]) {
			case "timer":
				c.timerTicks++
			case "flush":
				c.flushTicks++
			default:
				c.badReasons = append(c.badReasons, line.Num)
			}
		case skip[event]:
			c.ignored++
		default:
			c.events[event]++
		}
	}
}

func reasonOf(tokens []string) string {
	for _, tok := range tokens {
		if v, ok := strings.CutPrefix(tok, "reason="); ok {
			return v
		}
	}
	return ""
}

func checkSections(c *census) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Sections",
	}

	names := make([]string, len(c.order))
	for i, s := range c.order {
		names[i] = string(s)
	}
	for _, s := range c.order {
		result.Details = append(result.Details, fmt.Sprintf("%s: %d content lines", s, c.sections[s]))
	}

	if len(c.orphans) > 0 {
		result.Status = statusError
		result.Message = fmt.Sprintf("%d content lines before any section header (first at line %d)",
			len(c.orphans), c.orphans[0])
		result.Suggests = []string{"The log must start with a '--- <section>' header"}
		return result
	}
	if len(c.badHeaders) > 0 {
		result.Status = statusError
		result.Message = fmt.Sprintf("%d malformed section headers (first at line %d)",
			len(c.badHeaders), c.badHeaders[0])
		result.Suggests = []string{"Headers must have the form '--- <lowercase name>'"}
		return result
	}
	if !containsSection(c.order, parser.SectionTrace) {
		result.Status = statusError
		result.Message = "No systemtap section"
		result.Suggests = []string{"Check that the tracing script ran and wrote a '--- systemtap' header"}
		return result
	}

	var unknown []string
	for _, s := range c.order {
		if !s.Known() {
			unknown = append(unknown, string(s))
		}
	}
	if len(unknown) > 0 {
		result.Status = statusWarning
		result.Message = fmt.Sprintf("Unknown sections will be skipped: %s", strings.Join(unknown, ", "))
		return result
	}

	result.Status = statusOK
	result.Message = fmt.Sprintf("Sections: %s", strings.Join(names, ", "))
	return result
}

func containsSection(order []parser.Section, s parser.Section) bool {
	for _, o := range order {
		if o == s {
			return true
		}
	}
	return false
}

func checkProtocol(c *census) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Trace Markers",
		Details: []string{
			fmt.Sprintf("timer ticks: %d", c.timerTicks),
			fmt.Sprintf("flush markers: %d", c.flushTicks),
		},
	}

	switch {
	case c.begins == 0:
		result.Status = statusError
		result.Message = "No begin marker; the trace never started"
	case c.begins > 1:
		result.Status = statusError
		result.Message = fmt.Sprintf("%d begin markers; the trace was restarted", c.begins)
		result.Suggests = []string{"Split the log so each trace session has its own file"}
	case c.beforeBegin > 0:
		result.Status = statusError
		result.Message = fmt.Sprintf("%d trace lines before begin", c.beforeBegin)
	case len(c.badReasons) > 0:
		result.Status = statusError
		result.Message = fmt.Sprintf("%d time lines with an unknown reason (first at line %d)",
			len(c.badReasons), c.badReasons[0])
		result.Suggests = []string{"time lines must carry reason=timer or reason=flush"}
	case c.finishes == 0:
		result.Status = statusWarning
		result.Message = "No finish marker; the log may be truncated"
	default:
		result.Status = statusOK
		result.Message = "begin and finish markers present"
	}
	return result
}

func checkAlignment(c *census) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Timeline Alignment",
	}

	kinds := make([]string, 0, len(c.events))
	for k := range c.events {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	var bad []string
	for _, k := range kinds {
		want, timeline := c.timerTicks, "timer"
		if k == ingest.FlushEvent {
			want, timeline = c.flushTicks, "flush"
		}
		detail := fmt.Sprintf("%s: %d records, %d %s entries", k, c.events[k], want, timeline)
		result.Details = append(result.Details, detail)
		if c.events[k] != want {
			bad = append(bad, k)
		}
	}

	if c.ignored > 0 {
		result.Details = append(result.Details, fmt.Sprintf("ignored: %d records", c.ignored))
	}

	if len(bad) > 0 {
		result.Status = statusError
		result.Message = fmt.Sprintf("%d of %d event kinds do not match their timeline: %s",
			len(bad), len(kinds), strings.Join(bad, ", "))
		result.Suggests = []string{
			"An event kind emitted more or fewer records than timer ticks occurred",
			"Use 'ibdlog unpack --ignore <kind>' to drop a kind that is instrumented irregularly",
		}
		return result
	}

	result.Status = statusOK
	result.Message = fmt.Sprintf("%d event kinds aligned", len(kinds))
	return result
}

func checkParse(ctx context.Context, path string, ignore []string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Parse",
	}

	res, err := ingest.ParseFile(ctx, path, ingest.WithIgnoreEvents(ignore...))
	if err != nil {
		result.Status = statusError
		result.Message = err.Error()
		switch {
		case errors.Is(err, ingest.ErrTypeCoercion):
			result.Suggests = []string{"A field value does not match the type its key declares"}
		case errors.Is(err, ingest.ErrMalformedLine):
			result.Suggests = []string{"Trace fields must be key=value tokens separated by spaces"}
		}
		return result
	}

	result.Status = statusOK
	result.Message = fmt.Sprintf("%d tables built", len(res.Tables))
	if !res.HasFlush() {
		result.Status = statusWarning
		result.Message += ", no flush table"
	}
	for _, w := range res.Warnings {
		result.Details = append(result.Details, w.String())
	}
	return result
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== IBD Log Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case statusOK:
			icon = "PASS"
			okCount++
		case statusWarning:
			icon = "WARN"
			warnCount++
		case statusError:
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != statusOK {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	switch {
	case errCount > 0:
		fmt.Fprintln(w, "\nFix the errors above before unpacking.")
	case warnCount > 0:
		fmt.Fprintln(w, "\nLog is usable but has warnings.")
	default:
		fmt.Fprintln(w, "\nLog looks good!")
	}
}
