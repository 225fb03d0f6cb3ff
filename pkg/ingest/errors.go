package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every fatal error returned by Parse is a *ParseError
// whose Kind is one of these.
var (
	ErrMalformedLine = errors.New("malformed line")
	ErrTypeCoercion  = errors.New("type coercion failed")
	ErrProtocol      = errors.New("protocol error")
	ErrAlignment     = errors.New("timeline alignment mismatch")
)

// ParseError is a fatal ingestion error with its position in the input.
type ParseError struct {
	// Kind is ErrMalformedLine, ErrTypeCoercion, ErrProtocol or ErrAlignment.
	Kind error

	// Source is the input name.
	Source string

	// Line is the 1-based input line number. Alignment errors report the
	// last line read.
	Line int

	// Section is the section the line was routed to, empty before any header.
	Section string

	// Event is the trace event kind, if the error concerns one.
	Event string

	// Err carries the detail: a *record.FieldError, an *AlignmentError,
	// or a plain description.
	Err error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Source != "" {
		fmt.Fprintf(&b, "%s:%d", e.Source, e.Line)
	} else {
		fmt.Fprintf(&b, "line %d", e.Line)
	}
	if e.Section != "" {
		fmt.Fprintf(&b, " [%s]", e.Section)
	} else {
		b.WriteString(" [no section]")
	}
	if e.Event != "" {
		fmt.Fprintf(&b, " %s", e.Event)
	}
	fmt.Fprintf(&b, ": %v", e.Kind)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes the error class and the detail.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// AlignmentError reports an event kind whose record count differs from
// the length of the timeline it is indexed by.
type AlignmentError struct {
	Event    string
	Records  int
	Timeline string
	Ticks    int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("event %q has %d records but the %s timeline has %d entries",
		e.Event, e.Records, e.Timeline, e.Ticks)
}

// WarningKind classifies recoverable conditions.
type WarningKind string

const (
	// WarningMissingFlush means no flush records were present, so the
	// result has no flush table.
	WarningMissingFlush WarningKind = "missing_flush"

	// WarningUnknownSection means a section with an unrecognized name was
	// skipped.
	WarningUnknownSection WarningKind = "unknown_section"

	// WarningIgnoredSection means a system or config section appeared
	// after the trace section had started and was skipped.
	WarningIgnoredSection WarningKind = "ignored_section"
)

// Warning is a recoverable condition surfaced alongside a result.
type Warning struct {
	Kind    WarningKind
	Section string
	Line    int
	Message string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", w.Line, w.Kind, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
