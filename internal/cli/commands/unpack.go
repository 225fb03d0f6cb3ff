package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eklitzke/bitcoin-tools/pkg/config"
	"github.com/eklitzke/bitcoin-tools/pkg/ingest"
	"github.com/eklitzke/bitcoin-tools/pkg/logging"
	"github.com/eklitzke/bitcoin-tools/pkg/output"
	"github.com/eklitzke/bitcoin-tools/pkg/parser"
	"github.com/eklitzke/bitcoin-tools/pkg/store"
	"github.com/eklitzke/bitcoin-tools/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// Defaults for locating the newest log.
const (
	DefaultLogDir    = "."
	DefaultLogPrefix = "debug"
)

// UnpackOptions holds command-line options for the unpack command.
type UnpackOptions struct {
	Config    string   `mapstructure:"config"`
	Output    string   `mapstructure:"output"`
	Dir       string   `mapstructure:"dir"`
	Prefix    string   `mapstructure:"prefix"`
	StorePath string   `mapstructure:"store-path"`
	LogLevel  string   `mapstructure:"log-level"`
	Ignore    []string `mapstructure:"ignore"`
	Jobs      int      `mapstructure:"jobs"`
	Verbose   bool     `mapstructure:"verbose"`
	Quiet     bool     `mapstructure:"quiet"`

	// Webhook options
	WebhookURL     string `mapstructure:"webhook-url"`
	WebhookToken   string `mapstructure:"webhook-token"`
	WebhookTrigger string `mapstructure:"webhook-trigger"`
}

// NewUnpackCommand creates the unpack command.
func NewUnpackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unpack [log-file...]",
		Short: "Parse IBD trace logs into per-event tables",
		Long: `Parse systemtap IBD logs into typed, time-indexed event tables.

Log files are taken from the arguments, else from log_sources in the
config file, else the newest <prefix>-YYYYMMDD-HHMMSS.log in --dir.
Files ending in .gz or .zst are decompressed on the fly.

Every flag can also be set through an IBDLOG_ environment variable,
e.g. IBDLOG_OUTPUT=json or IBDLOG_STORE_PATH=ibd.duckdb.

Exit codes:
  0 - All logs parsed cleanly
  1 - Logs parsed with warnings (e.g. no flush table)
  2 - Configuration, runtime or parse error`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &UnpackOptions{}
			if err := resolveFlags(cmd, opts); err != nil {
				return err
			}
			return runUnpack(cmd, args, opts)
		},
	}

	cmd.Flags().StringP("config", "c", "", "Configuration file")
	cmd.Flags().StringP("output", "o", "text", "Output format (text|json|yaml)")
	cmd.Flags().String("dir", DefaultLogDir, "Directory searched for the newest log")
	cmd.Flags().String("prefix", DefaultLogPrefix, "File name prefix of logs in --dir")
	cmd.Flags().String("store-path", "", "DuckDB file to store results in")
	cmd.Flags().String("log-level", "", "Log level (debug|info|warn|error)")
	cmd.Flags().StringSlice("ignore", nil, "Event kinds to drop (can be repeated)")
	cmd.Flags().IntP("jobs", "j", runtime.NumCPU(), "Number of logs parsed concurrently")
	cmd.Flags().BoolP("verbose", "v", false, "Show columns and host info")
	cmd.Flags().BoolP("quiet", "q", false, "Summary only, no details")

	// Webhook flags
	cmd.Flags().String("webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().String("webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().String("webhook-trigger", string(config.WebhookTriggerOnWarnings), "When to fire webhook (on_warnings|always|never)")

	return cmd
}

func runUnpack(cmd *cobra.Command, args []string, opts *UnpackOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(ctx, opts.Config)
	if err != nil {
		return err
	}
	if opts.StorePath != "" {
		cfg.Store.Path = opts.StorePath
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	hooks, err := collectWebhooks(cfg, opts)
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	log, done, err := newLogger(cfg, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer done()

	files, err := resolveLogFiles(args, cfg, opts)
	if err != nil {
		return err
	}

	start := time.Now()
	ignore := append(append([]string{}, cfg.IgnoreEvents...), opts.Ignore...)
	results, err := parseAll(ctx, log, files, opts.Jobs, ingest.WithIgnoreEvents(ignore...))
	if err != nil {
		return err
	}

	report := output.NewReport(results, opts.Config)
	report.Metadata.Duration = time.Since(start)

	if cfg.Store.Path != "" {
		if err := storeResults(ctx, log, cfg.Store.Path, results, report); err != nil {
			return err
		}
	}

	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// Webhook failures are logged and never fail the run.
	client := webhook.NewClient(webhook.WithLogger(log.Named(logging.NameWebhook)))
	client.Notify(ctx, hooks, report)

	if report.HasWarnings() {
		ExitCode = 1
	}
	return nil
}

// loadConfig loads path, or validates the defaults when no file is given.
func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}
	cfg := config.DefaultConfig()
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, opts *UnpackOptions, w io.Writer) (*zap.Logger, func(), error) {
	if opts.Quiet {
		return logging.Quiet(w), func() {}, nil
	}
	log, done, err := logging.New(cfg.Logging, w)
	if err != nil {
		return nil, nil, fmt.Errorf("configuring logging: %w", err)
	}
	return log, done, nil
}

// resolveLogFiles picks the inputs: arguments first, then configured log
// sources, then the newest log in the search directory.
func resolveLogFiles(args []string, cfg *config.Config, opts *UnpackOptions) ([]string, error) {
	patterns := args
	if len(patterns) == 0 {
		patterns = cfg.LogSources
	}

	if len(patterns) > 0 {
		files, err := parser.ExpandGlobs(patterns)
		if err != nil {
			return nil, fmt.Errorf("expanding log sources: %w", err)
		}
		return files, nil
	}

	latest, err := parser.Latest(opts.Dir, opts.Prefix)
	if err != nil {
		return nil, fmt.Errorf("finding newest log: %w", err)
	}
	return []string{latest}, nil
}

// parseAll parses each file independently, at most jobs at a time.
// Results are returned in input order; the first failure cancels the rest.
func parseAll(ctx context.Context, log *zap.Logger, files []string, jobs int, opts ...ingest.Option) ([]*ingest.Result, error) {
	if jobs < 1 {
		jobs = 1
	}

	results := make([]*ingest.Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, file := range files {
		g.Go(func() error {
			fileLog := log.Named(logging.NameIngest).With(zap.String("source", file))
			fileOpts := append([]ingest.Option{ingest.WithLogger(fileLog)}, opts...)

			res, err := ingest.ParseFile(gctx, file, fileOpts...)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", file, err)
			}
			fileLog.Debug("parsed",
				zap.Int("lines", res.Lines),
				zap.Int("tables", len(res.Tables)),
				zap.Bool("flush", res.HasFlush()))
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func storeResults(ctx context.Context, log *zap.Logger, path string, results []*ingest.Result, report *output.Report) (err error) {
	st, err := store.Open(path, store.WithLogger(log.Named(logging.NameStore)))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() {
		err = errors.Join(err, st.Close())
	}()

	for _, res := range results {
		id, err := st.Save(ctx, res)
		if err != nil {
			return fmt.Errorf("storing %s: %w", res.Source, err)
		}
		report.SetRunID(res.Source, id)
	}
	return nil
}

// collectWebhooks merges config file webhooks with the CLI webhook, which
// is validated like one from the config file.
func collectWebhooks(cfg *config.Config, opts *UnpackOptions) ([]config.WebhookConfig, error) {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		hook := config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: config.WebhookTrigger(opts.WebhookTrigger),
			Timeout: config.DefaultWebhookTimeout,
		}
		if err := config.ValidateWebhook(&hook); err != nil {
			return nil, fmt.Errorf("--webhook-url/--webhook-trigger: %w", err)
		}
		webhooks = append(webhooks, hook)
	}

	return webhooks, nil
}
