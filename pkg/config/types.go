// Package config provides configuration loading and validation for ibdlog.
package config

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// LogSources lists log files or glob patterns to unpack when none are
	// given on the command line.
	LogSources []string `yaml:"log_sources,omitempty"`

	// IgnoreEvents names trace event kinds that are dropped while parsing.
	IgnoreEvents []string `yaml:"ignore_events,omitempty"`

	Store    StoreConfig     `yaml:"store,omitempty"`
	Logging  LoggingConfig   `yaml:"logging,omitempty"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// StoreConfig configures persistence of parsed results.
type StoreConfig struct {
	// Path is the DuckDB database file. Empty disables persistence.
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig configures diagnostic logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level,omitempty"`

	// File, if set, receives a copy of every log entry.
	File string `yaml:"file,omitempty"`

	level zapcore.Level
}

// ZapLevel returns the parsed level (populated during validation).
func (l *LoggingConfig) ZapLevel() zapcore.Level {
	return l.level
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnWarnings fires only when some result carries
	// warnings (default).
	WebhookTriggerOnWarnings WebhookTrigger = "on_warnings"
	// WebhookTriggerAlways fires after every run.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint that receives run reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_warnings" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
