package ingest

import (
	"strings"
	"time"

	"github.com/eklitzke/bitcoin-tools/pkg/record"
)

// Row is one record aligned to its point on the timeline.
type Row struct {
	Time   time.Time
	Fields record.Record
}

// Table holds every record of one event kind. All rows carry every column;
// fields a record did not report hold record.Missing().
type Table struct {
	Event   string
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Times returns the time axis.
func (t *Table) Times() []time.Time {
	times := make([]time.Time, len(t.Rows))
	for i, row := range t.Rows {
		times[i] = row.Time
	}
	return times
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns the values of one column in row order, or nil if the
// table has no such column.
func (t *Table) Column(name string) []record.Value {
	if !t.HasColumn(name) {
		return nil
	}
	values := make([]record.Value, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row.Fields[name]
	}
	return values
}

// Missing counts the placeholder cells in the table.
func (t *Table) Missing() int {
	n := 0
	for _, row := range t.Rows {
		for _, c := range t.Columns {
			if row.Fields[c].IsMissing() {
				n++
			}
		}
	}
	return n
}

// Select returns a table with only the columns ending in ":"+suffix,
// renamed without the suffix. Select("bytes") turns "coins:bytes" into
// "coins".
func (t *Table) Select(suffix string) *Table {
	tail := ":" + suffix

	var from, to []string
	for _, c := range t.Columns {
		if strings.HasSuffix(c, tail) && len(c) > len(tail) {
			from = append(from, c)
			to = append(to, strings.TrimSuffix(c, tail))
		}
	}

	out := &Table{Event: t.Event, Columns: to, Rows: make([]Row, len(t.Rows))}
	for i, row := range t.Rows {
		fields := make(record.Record, len(from))
		for j := range from {
			fields[to[j]] = row.Fields[from[j]]
		}
		out.Rows[i] = Row{Time: row.Time, Fields: fields}
	}
	return out
}
