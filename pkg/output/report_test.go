package output

import (
	"context"
	"strings"
	"testing"

	"github.com/eklitzke/bitcoin-tools/pkg/ingest"
)

const cleanLog = `--- system
hostname node1
git:commit 0123456789abcdef
mem:bytes 1024
--- systemtap
begin
time t=1000 elapsed=0 reason=timer
dbcache coins:bytes=10 coins:count=1
time t=1000 elapsed=0 reason=flush
flush key=1
time t=1060 elapsed=60 reason=timer
dbcache coins:bytes=20
finish
`

const warnLog = `--- extra
--- systemtap
begin
time t=2000 elapsed=0 reason=timer
utxo size=5
finish
`

func parse(t *testing.T, name, input string) *ingest.Result {
	t.Helper()
	res, err := ingest.ParseReader(context.Background(), name, strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader(%s) error = %v", name, err)
	}
	return res
}

func createTestReport(t *testing.T) *Report {
	t.Helper()
	results := []*ingest.Result{
		parse(t, "clean.log", cleanLog),
		parse(t, "warn.log", warnLog),
	}
	return NewReport(results, "ibdlog.yaml")
}

func TestNewReport(t *testing.T) {
	report := createTestReport(t)

	s := report.Summary
	if s.FilesParsed != 2 {
		t.Errorf("FilesParsed = %d, want 2", s.FilesParsed)
	}
	// clean.log: dbcache + flush; warn.log: utxo.
	if s.TablesBuilt != 3 {
		t.Errorf("TablesBuilt = %d, want 3", s.TablesBuilt)
	}
	// warn.log: unknown_section and missing_flush.
	if s.TotalWarnings != 2 || s.FilesWithWarnings != 1 {
		t.Errorf("warnings = %d in %d files, want 2 in 1", s.TotalWarnings, s.FilesWithWarnings)
	}
	if s.LinesProcessed != 13+6 {
		t.Errorf("LinesProcessed = %d, want 19", s.LinesProcessed)
	}
	if !report.HasWarnings() {
		t.Error("HasWarnings() = false, want true")
	}

	clean := report.Files[0]
	if clean.Commit != "01234567" {
		t.Errorf("Commit = %q, want 01234567", clean.Commit)
	}
	if clean.TimerTicks != 2 || clean.FlushMarkers != 1 {
		t.Errorf("ticks = %d/%d, want 2/1", clean.TimerTicks, clean.FlushMarkers)
	}
	if clean.Flush == nil || clean.Flush.Rows != 1 {
		t.Errorf("Flush = %+v, want one row", clean.Flush)
	}
	if len(clean.Tables) != 1 || clean.Tables[0].Event != "dbcache" || clean.Tables[0].Missing != 1 {
		t.Errorf("Tables = %+v, want dbcache with one missing cell", clean.Tables)
	}
	if clean.Host["mem:bytes"] != "1024" {
		t.Errorf("Host[mem:bytes] = %q, want 1024", clean.Host["mem:bytes"])
	}
	if clean.End.Sub(*clean.Start).Seconds() != 60 {
		t.Errorf("span = %v..%v, want 60s", clean.Start, clean.End)
	}

	if report.Files[1].Flush != nil {
		t.Error("warn.log should have no flush table")
	}
	if got := strings.Join(report.Metadata.Sources, ","); got != "clean.log,warn.log" {
		t.Errorf("Sources = %s", got)
	}
}

func TestReport_SetRunID(t *testing.T) {
	report := createTestReport(t)
	report.SetRunID("warn.log", 7)
	report.SetRunID("absent.log", 9)

	if report.Files[1].RunID != 7 || report.Files[0].RunID != 0 {
		t.Errorf("run ids = %d, %d, want 0, 7", report.Files[0].RunID, report.Files[1].RunID)
	}
}

func TestNewFormatter(t *testing.T) {
	for _, name := range []string{"text", "json", "yaml"} {
		f, err := NewFormatter(name, FormatOptions{})
		if err != nil {
			t.Fatalf("NewFormatter(%q) error = %v", name, err)
		}
		if f.Name() != name {
			t.Errorf("Name() = %q, want %q", f.Name(), name)
		}
	}
	if f, err := NewFormatter("", FormatOptions{}); err != nil || f.Name() != "text" {
		t.Errorf("NewFormatter(\"\") = %v, %v, want text", f, err)
	}
	if _, err := NewFormatter("xml", FormatOptions{}); err == nil {
		t.Error("NewFormatter(xml) expected error")
	}
}
