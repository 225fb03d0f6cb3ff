package parser

import (
	"errors"
	"testing"
)

func TestClassifier_Classify(t *testing.T) {
	var c Classifier

	steps := []struct {
		line        string
		wantKind    LineKind
		wantSection Section
		wantText    string
	}{
		{"", LineBlank, SectionNone, ""},
		{"   ", LineBlank, SectionNone, ""},
		{"--- system", LineHeader, SectionSystem, "--- system"},
		{"git:commit abc123", LineContent, SectionSystem, "git:commit abc123"},
		{"--- config", LineHeader, SectionConfig, "--- config"},
		{"dbcache=4000\r", LineContent, SectionConfig, "dbcache=4000"},
		{"\t", LineBlank, SectionConfig, ""},
		{"--- systemtap", LineHeader, SectionTrace, "--- systemtap"},
		{"begin", LineContent, SectionTrace, "begin"},
		{"--- extra", LineHeader, Section("extra"), "--- extra"},
		{"whatever", LineContent, Section("extra"), "whatever"},
	}

	for _, step := range steps {
		got, err := c.Classify(step.line)
		if err != nil {
			t.Fatalf("Classify(%q) error = %v", step.line, err)
		}
		if got.Kind != step.wantKind || got.Section != step.wantSection || got.Text != step.wantText {
			t.Errorf("Classify(%q) = %+v, want {%v %q %q}",
				step.line, got, step.wantKind, step.wantSection, step.wantText)
		}
	}
	if c.Section() != Section("extra") {
		t.Errorf("Section() = %q, want extra", c.Section())
	}
}

func TestClassifier_MalformedHeader(t *testing.T) {
	lines := []string{
		"---",
		"--- ",
		"---system",
		"--- System",
		"--- system extra",
		"--- sys2",
		"----- system",
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			c := Classifier{}
			_, err := c.Classify(line)
			if !errors.Is(err, ErrMalformedHeader) {
				t.Errorf("Classify(%q) error = %v, want ErrMalformedHeader", line, err)
			}
		})
	}
}

func TestClassifier_ContentBeforeHeader(t *testing.T) {
	var c Classifier
	_, err := c.Classify("time t=1.0 elapsed=0.0 reason=timer")
	if !errors.Is(err, ErrNoSection) {
		t.Errorf("Classify() error = %v, want ErrNoSection", err)
	}
}

func TestSection_Known(t *testing.T) {
	tests := []struct {
		section Section
		want    bool
	}{
		{SectionSystem, true},
		{SectionConfig, true},
		{SectionTrace, true},
		{SectionNone, false},
		{Section("extra"), false},
	}
	for _, tt := range tests {
		if got := tt.section.Known(); got != tt.want {
			t.Errorf("Section(%q).Known() = %v, want %v", tt.section, got, tt.want)
		}
	}
}
