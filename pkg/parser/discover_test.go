package parser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestExpandGlobs_GlobPattern(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.log", "a.log", "c.txt")

	result, err := ExpandGlobs([]string{filepath.Join(dir, "*.log")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	want := []string{filepath.Join(dir, "a.log"), filepath.Join(dir, "b.log")}
	if len(result) != len(want) {
		t.Fatalf("ExpandGlobs() = %v, want %v", result, want)
	}
	for i := range want {
		if result[i] != want[i] {
			t.Errorf("ExpandGlobs()[%d] = %q, want %q", i, result[i], want[i])
		}
	}
}

func TestExpandGlobs_NoMatchKeptLiteral(t *testing.T) {
	pattern := filepath.Join(t.TempDir(), "*.nonexistent")
	result, err := ExpandGlobs([]string{pattern})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 1 || result[0] != pattern {
		t.Errorf("ExpandGlobs() = %v, want [%s]", result, pattern)
	}
}

func TestExpandGlobs_Deduplication(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.log")
	file := filepath.Join(dir, "a.log")

	result, err := ExpandGlobs([]string{file, filepath.Join(dir, "*.log")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 1 {
		t.Errorf("ExpandGlobs() returned %d files, want 1", len(result))
	}
}

func TestExpandGlobs_InvalidPattern(t *testing.T) {
	if _, err := ExpandGlobs([]string{"[invalid"}); err == nil {
		t.Error("ExpandGlobs() expected error for invalid pattern")
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"ibd-20180716-101500.log",
		"ibd-20180716-153000.log.gz",
		"ibd-20180715-235959.log.zst",
		"ibd-20190101-000000.txt",      // wrong extension
		"ibd-core-20200101-000000.log", // different prefix
		"ibd-20181399-000000.log",      // invalid date
		"other-20210101-000000.log",
	)
	if err := os.Mkdir(filepath.Join(dir, "ibd-20220101-000000.log"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := Latest(dir, "ibd")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	want := filepath.Join(dir, "ibd-20180716-153000.log.gz")
	if got != want {
		t.Errorf("Latest() = %q, want %q", got, want)
	}

	got, err = Latest(dir, "ibd-core")
	if err != nil {
		t.Fatalf("Latest(ibd-core) error = %v", err)
	}
	if want := filepath.Join(dir, "ibd-core-20200101-000000.log"); got != want {
		t.Errorf("Latest(ibd-core) = %q, want %q", got, want)
	}
}

func TestLatest_NoMatch(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "notes.txt")

	_, err := Latest(dir, "ibd")
	if !errors.Is(err, ErrNoLogs) {
		t.Errorf("Latest() error = %v, want ErrNoLogs", err)
	}
}

func TestLatest_Errors(t *testing.T) {
	if _, err := Latest(t.TempDir(), ""); err == nil {
		t.Error("Latest() expected error for empty prefix")
	}
	if _, err := Latest("/nonexistent/dir", "ibd"); err == nil {
		t.Error("Latest() expected error for missing directory")
	}
}
