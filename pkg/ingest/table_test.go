package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/eklitzke/bitcoin-tools/pkg/record"
)

func sampleTable() *Table {
	t0 := time.Unix(100, 0).UTC()
	return &Table{
		Event:   "dbcache",
		Columns: []string{"coins:bytes", "coins:count", "index:bytes", "size"},
		Rows: []Row{
			{Time: t0, Fields: record.Record{
				"coins:bytes": record.Int(10), "coins:count": record.Int(1),
				"index:bytes": record.Missing(), "size": record.Int(7),
			}},
			{Time: t0.Add(time.Second), Fields: record.Record{
				"coins:bytes": record.Int(20), "coins:count": record.Int(2),
				"index:bytes": record.Int(5), "size": record.Int(8),
			}},
		},
	}
}

func TestTable_Select(t *testing.T) {
	tbl := sampleTable()

	bytes := tbl.Select("bytes")
	if got := strings.Join(bytes.Columns, ","); got != "coins,index" {
		t.Fatalf("Columns = %s, want coins,index", got)
	}
	if bytes.Len() != 2 || bytes.Event != "dbcache" {
		t.Errorf("Select() = %+v", bytes)
	}
	if n, _ := bytes.Rows[1].Fields["coins"].Int(); n != 20 {
		t.Errorf("coins[1] = %d, want 20", n)
	}
	if !bytes.Rows[0].Fields["index"].IsMissing() {
		t.Error("missing cells should stay missing after Select")
	}
	if _, ok := bytes.Rows[0].Fields["size"]; ok {
		t.Error("unselected column leaked into the result")
	}

	if none := tbl.Select("time"); len(none.Columns) != 0 || none.Len() != 2 {
		t.Errorf("Select(time) = %+v, want no columns and all rows", none)
	}
}

func TestTable_Times(t *testing.T) {
	tbl := sampleTable()
	times := tbl.Times()
	if len(times) != 2 || times[1].Sub(times[0]) != time.Second {
		t.Errorf("Times() = %v", times)
	}
	if !tbl.HasColumn("size") || tbl.HasColumn("coins") {
		t.Error("HasColumn() mismatch")
	}
	if got := tbl.Missing(); got != 1 {
		t.Errorf("Missing() = %d, want 1", got)
	}
}

func TestParseError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ParseError
		want string
	}{
		{
			name: "full",
			err: &ParseError{Kind: ErrProtocol, Source: "a.log", Line: 4, Section: "systemtap",
				Event: "time", Err: errors.New(`unknown reason "x"`)},
			want: `a.log:4 [systemtap] time: protocol error: unknown reason "x"`,
		},
		{
			name: "no source or section",
			err:  &ParseError{Kind: ErrProtocol, Line: 1, Err: errors.New("boom")},
			want: "line 1 [no section]: protocol error: boom",
		},
		{
			name: "no detail",
			err:  &ParseError{Kind: ErrMalformedLine, Source: "b", Line: 2, Section: "system"},
			want: "b:2 [system]: malformed line",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, tt.err.Kind) {
				t.Error("errors.Is should match the kind")
			}
		})
	}
}

func TestWarning_String(t *testing.T) {
	w := Warning{Kind: WarningUnknownSection, Line: 3, Message: "skipping"}
	if got := w.String(); got != "line 3: unknown_section: skipping" {
		t.Errorf("String() = %q", got)
	}
	w.Line = 0
	if got := w.String(); got != "unknown_section: skipping" {
		t.Errorf("String() = %q", got)
	}
}

func TestReserved(t *testing.T) {
	for _, k := range []string{"begin", "finish", "time"} {
		if !Reserved(k) {
			t.Errorf("Reserved(%q) = false", k)
		}
	}
	if Reserved(FlushEvent) || Reserved("dbcache") {
		t.Error("data events are not reserved")
	}
}
