package parser

import (
	"context"
)

// LineSource provides an iterator over raw log lines.
// Implementations must be safe for sequential access (not concurrent).
type LineSource interface {
	// Name identifies the source in results and error messages.
	Name() string

	// Next returns the next line, including blank ones.
	// Returns io.EOF when no more lines are available and ctx.Err()
	// once ctx is cancelled.
	Next(ctx context.Context) (*Line, error)

	// Close releases any resources held by the source.
	Close() error
}
