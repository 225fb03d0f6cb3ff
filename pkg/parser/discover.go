package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"
)

// LogStampLayout is the timestamp layout embedded in log file names:
// <prefix>-<YYYYMMDD>-<HHMMSS>.log, optionally followed by .gz or .zst.
const LogStampLayout = "20060102-150405"

// ErrNoLogs is returned by Latest when no file matches the naming convention.
var ErrNoLogs = errors.New("no matching log files")

// ExpandGlobs expands file paths and glob patterns into a sorted, deduplicated
// list. A pattern that matches nothing is kept as a literal path so that the
// open error names it.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
		}
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			add(pattern)
			continue
		}
		for _, m := range matches {
			add(m)
		}
	}

	result := make([]string, 0, len(seen))
	for p := range seen {
		result = append(result, p)
	}
	slices.Sort(result)
	return result, nil
}

// Latest returns the path of the newest log for prefix in dir, judged by
// the timestamp in the file name rather than the modification time.
func Latest(dir, prefix string) (string, error) {
	if prefix == "" {
		return "", errors.New("log prefix is required")
	}
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `-(\d{8}-\d{6})\.log(?:\.gz|\.zst)?$`)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading log directory: %w", err)
	}

	var (
		best     string
		bestTime time.Time
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		ts, err := time.Parse(LogStampLayout, m[1])
		if err != nil {
			continue
		}
		// ReadDir is name-sorted, so on equal stamps the first name wins.
		if best == "" || ts.After(bestTime) {
			best, bestTime = e.Name(), ts
		}
	}

	if best == "" {
		return "", fmt.Errorf("%w for prefix %q in %s", ErrNoLogs, prefix, dir)
	}
	return filepath.Join(dir, best), nil
}
