// Package ingest builds typed, time-indexed event tables from sectioned
// systemtap logs recorded during a node's initial block download.
//
// A log consists of a system section (host facts), a config section
// (opaque text) and a systemtap section holding the trace:
//
//	--- systemtap
//	begin
//	time t=1000.0 elapsed=0.0 reason=timer
//	dbcache key=10
//	finish
//
// Every event kind becomes a Table whose rows are aligned one-to-one with
// the timer ticks; flush events are aligned with the flush markers instead.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/eklitzke/bitcoin-tools/pkg/parser"
)

// Parse reads src to the finish marker or end of input and returns the
// finished Result. src is closed on every return path. Any fatal
// condition aborts the parse and no partial result is returned.
func Parse(ctx context.Context, src parser.LineSource, opts ...Option) (res *Result, err error) {
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			res, err = nil, fmt.Errorf("closing %s: %w", src.Name(), cerr)
		}
	}()

	b := NewBuilder(src.Name(), opts...)
	for !b.Done() {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := b.Add(line); err != nil {
			return nil, err
		}
	}
	return b.Finalize()
}

// ParseFile parses the log at path.
func ParseFile(ctx context.Context, path string, opts ...Option) (*Result, error) {
	return Parse(ctx, parser.NewFileSource(path), opts...)
}

// ParseReader parses a log from r, naming it name in results and errors.
func ParseReader(ctx context.Context, name string, r io.Reader, opts ...Option) (*Result, error) {
	return Parse(ctx, parser.NewReaderSource(name, r), opts...)
}
