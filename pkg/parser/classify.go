package parser

import (
	"errors"
	"regexp"
	"strings"
)

// Section names a block of the log introduced by a "--- <name>" header.
type Section string

const (
	// SectionNone is the state before any header has been seen.
	SectionNone Section = ""

	SectionSystem Section = "system"
	SectionConfig Section = "config"
	SectionTrace  Section = "systemtap"
)

// Known reports whether s is one of the sections the ingester interprets.
func (s Section) Known() bool {
	switch s {
	case SectionSystem, SectionConfig, SectionTrace:
		return true
	default:
		return false
	}
}

// LineKind is the outcome of classifying a line.
type LineKind int

const (
	// LineBlank is a whitespace-only line; it is ignored everywhere.
	LineBlank LineKind = iota

	// LineHeader switches the current section.
	LineHeader

	// LineContent is routed to the handler of the current section.
	LineContent
)

var (
	// ErrMalformedHeader is returned for lines starting with "---" that do
	// not have the form "--- <lowercase name>".
	ErrMalformedHeader = errors.New("malformed section header")

	// ErrNoSection is returned for content lines before any header.
	ErrNoSection = errors.New("content before any section header")
)

var headerPattern = regexp.MustCompile(`^--- ([a-z]+)$`)

// Classified is a classified line.
type Classified struct {
	Kind LineKind

	// Section is the new section for headers, otherwise the section the
	// line belongs to.
	Section Section

	// Text is the line without a trailing carriage return.
	Text string
}

// Classifier tracks the current section while lines are classified in
// input order. The zero value is ready to use.
type Classifier struct {
	section Section
}

// Section returns the current section.
func (c *Classifier) Section() Section {
	return c.section
}

// Classify classifies one raw line and updates the current section when
// the line is a header.
func (c *Classifier) Classify(raw string) (Classified, error) {
	text := strings.TrimSuffix(raw, "\r")
	if strings.TrimSpace(text) == "" {
		return Classified{Kind: LineBlank, Section: c.section}, nil
	}

	if strings.HasPrefix(text, "---") {
		m := headerPattern.FindStringSubmatch(text)
		if m == nil {
			return Classified{}, ErrMalformedHeader
		}
		c.section = Section(m[1])
		return Classified{Kind: LineHeader, Section: c.section, Text: text}, nil
	}

	if c.section == SectionNone {
		return Classified{}, ErrNoSection
	}
	return Classified{Kind: LineContent, Section: c.section, Text: text}, nil
}
