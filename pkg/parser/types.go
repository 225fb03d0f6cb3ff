// Package parser reads sectioned instrumentation logs line by line and
// classifies each line against the section it belongs to.
package parser

// Line is a single raw input line.
type Line struct {
	// Text is the line content without the trailing newline.
	Text string

	// Source is the file path (or stream name) this line came from.
	Source string

	// Num is the 1-based line number in the source, counting blank lines.
	Num int
}
