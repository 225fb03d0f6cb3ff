package ingest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eklitzke/bitcoin-tools/pkg/parser"
	"github.com/eklitzke/bitcoin-tools/pkg/record"
)

type traceState int

const (
	awaitingBegin traceState = iota
	collecting
	finished
)

// route is the handler content lines of the current section go to.
type route int

const (
	routeNone route = iota
	routeSystem
	routeConfig
	routeTrace
	routeSkip
)

// Builder accumulates one log and produces its Result. It is owned by a
// single parse and is not safe for concurrent use.
type Builder struct {
	source string
	log    *zap.Logger
	ignore map[string]bool

	classifier parser.Classifier
	route      route
	traceSeen  bool
	state      traceState
	lines      int

	host   record.Record
	config []string

	dataTimes  []time.Time
	flushTimes []time.Time
	events     map[string][]record.Record
	fields     map[string]map[string]struct{}

	warnings []Warning
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for section transitions and warnings.
func WithLogger(log *zap.Logger) Option {
	return func(b *Builder) {
		if log != nil {
			b.log = log
		}
	}
}

// WithIgnoreEvents drops trace lines of the given event kinds. Dropped
// lines are not decoded and do not take part in timeline alignment.
func WithIgnoreEvents(kinds ...string) Option {
	return func(b *Builder) {
		for _, k := range kinds {
			b.ignore[k] = true
		}
	}
}

// NewBuilder creates an empty accumulator for the named source.
func NewBuilder(source string, opts ...Option) *Builder {
	b := &Builder{
		source: source,
		log:    zap.NewNop(),
		ignore: make(map[string]bool),
		host:   make(record.Record),
		events: make(map[string][]record.Record),
		fields: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Done reports whether the finish marker has been reached. No further
// lines need to be read once it returns true.
func (b *Builder) Done() bool {
	return b.state == finished
}

// Add processes one input line.
func (b *Builder) Add(line *parser.Line) error {
	if b.Done() {
		return nil
	}
	b.lines = line.Num

	c, err := b.classifier.Classify(line.Text)
	switch {
	case errors.Is(err, parser.ErrMalformedHeader):
		return b.fail(ErrMalformedLine, "", fmt.Errorf("%w: %q", err, line.Text))
	case errors.Is(err, parser.ErrNoSection):
		return b.fail(ErrProtocol, "", err)
	case err != nil:
		return b.fail(ErrMalformedLine, "", err)
	}

	switch c.Kind {
	case parser.LineHeader:
		b.enter(c.Section)
		return nil
	case parser.LineContent:
		return b.dispatch(c.Text)
	default:
		return nil
	}
}

func (b *Builder) enter(s parser.Section) {
	b.log.Debug("entering section", zap.String("section", string(s)), zap.Int("line", b.lines))

	switch {
	case s == parser.SectionTrace:
		b.traceSeen = true
		b.route = routeTrace
	case !s.Known():
		b.route = routeSkip
		b.warn(WarningUnknownSection, string(s), b.lines, fmt.Sprintf("skipping unknown section %q", s))
	case b.traceSeen:
		b.route = routeSkip
		b.warn(WarningIgnoredSection, string(s), b.lines, fmt.Sprintf("skipping %q section after trace section", s))
	case s == parser.SectionSystem:
		b.route = routeSystem
	case s == parser.SectionConfig:
		b.route = routeConfig
	}
}

func (b *Builder) dispatch(text string) error {
	switch b.route {
	case routeSystem:
		return b.addHost(text)
	case routeConfig:
		return b.addConfig(text)
	case routeTrace:
		return b.addTrace(text)
	default:
		return nil
	}
}

func (b *Builder) addConfig(text string) error {
	if key := strings.Fields(text)[0]; Reserved(key) {
		return b.fail(ErrProtocol, key, fmt.Errorf("trace event %q outside the %s section", key, parser.SectionTrace))
	}
	b.config = append(b.config, text)
	return nil
}

func (b *Builder) addHost(text string) error {
	key, value, ok := strings.Cut(text, " ")
	if Reserved(key) {
		return b.fail(ErrProtocol, key, fmt.Errorf("trace event %q outside the %s section", key, parser.SectionTrace))
	}
	if !ok || key == "" {
		return b.fail(ErrMalformedLine, "", fmt.Errorf("want \"<key> <value>\", got %q", text))
	}
	v, err := record.HostFields.Decode(key, value)
	if err != nil {
		return b.fail(ErrTypeCoercion, "", err)
	}
	b.host[key] = v
	return nil
}

func (b *Builder) addTrace(text string) error {
	tokens := strings.Fields(text)
	event, args := tokens[0], tokens[1:]

	switch b.state {
	case awaitingBegin:
		if event != beginEvent {
			return b.fail(ErrProtocol, event, fmt.Errorf("%q before begin", event))
		}
		b.state = collecting
		return nil
	case finished:
		return nil
	}

	switch event {
	case beginEvent:
		return b.fail(ErrProtocol, event, errors.New("duplicate begin"))
	case finishEvent:
		b.state = finished
		return nil
	case timeEvent:
		return b.addMarker(args)
	}

	if b.ignore[event] {
		return nil
	}

	rec, err := record.DecodeTokens(args)
	if err != nil {
		return b.fieldError(event, err)
	}
	b.events[event] = append(b.events[event], rec)

	known := b.fields[event]
	if known == nil {
		known = make(map[string]struct{}, len(rec))
		b.fields[event] = known
	}
	for k := range rec {
		known[k] = struct{}{}
	}
	return nil
}

func (b *Builder) addMarker(args []string) error {
	rec, err := record.DecodeTokens(args)
	if err != nil {
		return b.fieldError(timeEvent, err)
	}

	reason, _ := rec["reason"].Text()
	var timeline *[]time.Time
	switch reason {
	case "timer":
		timeline = &b.dataTimes
	case "flush":
		timeline = &b.flushTimes
	case "":
		return b.fail(ErrProtocol, timeEvent, errors.New("missing reason"))
	default:
		return b.fail(ErrProtocol, timeEvent, fmt.Errorf("unknown reason %q", reason))
	}

	t, ok := rec["t"].Time()
	if !ok {
		return b.fail(ErrProtocol, timeEvent, errors.New("missing t"))
	}
	*timeline = append(*timeline, t)
	return nil
}

// Finalize checks the alignment invariants and builds the Result. It must
// be called once, after the last line.
func (b *Builder) Finalize() (*Result, error) {
	if b.state == awaitingBegin {
		section := string(b.classifier.Section())
		if !b.traceSeen {
			return nil, b.fail(ErrProtocol, "", fmt.Errorf("input ended without a %q section", parser.SectionTrace))
		}
		return nil, &ParseError{Kind: ErrProtocol, Source: b.source, Line: b.lines, Section: section,
			Err: errors.New("input ended before begin")}
	}

	kinds := make([]string, 0, len(b.events))
	for k := range b.events {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	res := &Result{
		Source:     b.source,
		Host:       b.host,
		Config:     strings.Join(b.config, "\n"),
		DataTimes:  b.dataTimes,
		FlushTimes: b.flushTimes,
		Tables:     make(map[string]*Table, len(kinds)),
		Lines:      b.lines,
	}

	for _, kind := range kinds {
		timeline, name := b.dataTimes, "timer"
		if kind == FlushEvent {
			timeline, name = b.flushTimes, "flush"
		}

		recs := b.events[kind]
		if len(recs) != len(timeline) {
			return nil, &ParseError{
				Kind:    ErrAlignment,
				Source:  b.source,
				Line:    b.lines,
				Section: string(parser.SectionTrace),
				Event:   kind,
				Err:     &AlignmentError{Event: kind, Records: len(recs), Timeline: name, Ticks: len(timeline)},
			}
		}

		table := buildTable(kind, b.fields[kind], recs, timeline)
		if kind == FlushEvent {
			res.Flush = table
		} else {
			res.Tables[kind] = table
		}
	}

	if res.Flush == nil {
		msg := "no flush records; flush table is absent"
		if n := len(b.flushTimes); n > 0 {
			msg = fmt.Sprintf("%d flush markers but no flush records; flush table is absent", n)
		}
		b.warn(WarningMissingFlush, string(parser.SectionTrace), 0, msg)
	}
	res.Warnings = b.warnings

	b.log.Debug("finalized",
		zap.String("source", b.source),
		zap.Int("tables", len(res.Tables)),
		zap.Int("timer_ticks", len(res.DataTimes)),
		zap.Int("flush_markers", len(res.FlushTimes)))
	return res, nil
}

// buildTable backfills every record to the full field set and zips the
// records with their timeline.
func buildTable(kind string, fields map[string]struct{}, recs []record.Record, timeline []time.Time) *Table {
	columns := make([]string, 0, len(fields))
	for f := range fields {
		columns = append(columns, f)
	}
	sort.Strings(columns)

	rows := make([]Row, len(recs))
	for i, rec := range recs {
		full := make(record.Record, len(columns))
		for _, c := range columns {
			full[c] = rec[c]
		}
		rows[i] = Row{Time: timeline[i], Fields: full}
	}
	return &Table{Event: kind, Columns: columns, Rows: rows}
}

func (b *Builder) fail(kind error, event string, err error) error {
	return &ParseError{
		Kind:    kind,
		Source:  b.source,
		Line:    b.lines,
		Section: string(b.classifier.Section()),
		Event:   event,
		Err:     err,
	}
}

func (b *Builder) fieldError(event string, err error) error {
	kind := ErrTypeCoercion
	if errors.Is(err, record.ErrMalformedField) {
		kind = ErrMalformedLine
	}
	return b.fail(kind, event, err)
}

func (b *Builder) warn(kind WarningKind, section string, line int, msg string) {
	w := Warning{Kind: kind, Section: section, Line: line, Message: msg}
	b.warnings = append(b.warnings, w)
	b.log.Warn(msg, zap.String("kind", string(kind)), zap.String("source", b.source), zap.Int("line", w.Line))
}
