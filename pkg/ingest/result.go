package ingest

import (
	"sort"
	"time"

	"github.com/eklitzke/bitcoin-tools/pkg/record"
)

// FlushEvent is the event kind indexed by the flush timeline.
const FlushEvent = "flush"

// Reserved trace event kinds that never become tables.
const (
	beginEvent  = "begin"
	finishEvent = "finish"
	timeEvent   = "time"
)

// Reserved reports whether kind is a control event rather than data.
func Reserved(kind string) bool {
	switch kind {
	case beginEvent, finishEvent, timeEvent:
		return true
	default:
		return false
	}
}

// Result is the outcome of ingesting one log. Nothing in this package
// modifies a Result after Parse returns it.
type Result struct {
	// Source identifies the input.
	Source string

	// Host holds the system section, keyed as in the log.
	Host record.Record

	// Config is the config section, lines joined with "\n".
	Config string

	// DataTimes is the timer timeline; every table except flush has one
	// row per entry.
	DataTimes []time.Time

	// FlushTimes is the flush timeline.
	FlushTimes []time.Time

	// Flush is the flush table, nil when no flush records were present.
	Flush *Table

	// Tables maps event kinds (except flush) to their tables.
	Tables map[string]*Table

	// Warnings lists recoverable conditions found while parsing.
	Warnings []Warning

	// Lines is the number of input lines read.
	Lines int
}

// EventKinds returns the event kinds with tables, sorted, excluding flush.
func (r *Result) EventKinds() []string {
	kinds := make([]string, 0, len(r.Tables))
	for k := range r.Tables {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Table returns the table for kind. The flush table is returned for
// FlushEvent when present.
func (r *Result) Table(kind string) (*Table, bool) {
	if kind == FlushEvent {
		return r.Flush, r.Flush != nil
	}
	t, ok := r.Tables[kind]
	return t, ok
}

// HasFlush reports whether a flush table was built.
func (r *Result) HasFlush() bool {
	return r.Flush != nil
}

// HasWarnings reports whether any recoverable condition was recorded.
func (r *Result) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Span returns the first and last timer tick.
func (r *Result) Span() (start, end time.Time, ok bool) {
	if len(r.DataTimes) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return r.DataTimes[0], r.DataTimes[len(r.DataTimes)-1], true
}

// Elapsed returns t relative to the first timer tick, the x axis used when
// comparing runs.
func (r *Result) Elapsed(t time.Time) time.Duration {
	if len(r.DataTimes) == 0 {
		return 0
	}
	return t.Sub(r.DataTimes[0])
}

// Commit returns the short git commit from host info, or "".
func (r *Result) Commit() string {
	s, ok := r.Host["git:commit"].Text()
	if !ok {
		return ""
	}
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}
