package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eklitzke/bitcoin-tools/pkg/config"
	"github.com/eklitzke/bitcoin-tools/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate an ibdlog configuration file without parsing any logs.

Checks:
  - YAML syntax
  - Ignored event names (control events cannot be ignored)
  - Logging level
  - Webhook URLs and triggers
  - Log source file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(w, "\nConfiguration valid!\n")
	fmt.Fprintf(w, "  Log sources:   %d pattern(s)\n", len(cfg.LogSources))
	fmt.Fprintf(w, "  Ignored:       %d event kind(s)\n", len(cfg.IgnoreEvents))
	fmt.Fprintf(w, "  Log level:     %s\n", cfg.Logging.ZapLevel())
	fmt.Fprintf(w, "  Webhooks:      %d\n", len(cfg.Webhooks))
	if cfg.Store.Path != "" {
		fmt.Fprintf(w, "  Store:         %s\n", cfg.Store.Path)
	}

	if len(cfg.LogSources) == 0 {
		return nil
	}

	// Missing log files are reported but do not fail validation.
	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		fmt.Fprintf(w, "\nWarning: Error expanding log source patterns: %v\n", err)
		return nil
	}

	fmt.Fprintf(w, "\nLog files:\n")
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			fmt.Fprintf(w, "  - %s (warning: %v)\n", f, err)
			continue
		}
		fmt.Fprintf(w, "  - %s\n", f)
	}

	return nil
}
