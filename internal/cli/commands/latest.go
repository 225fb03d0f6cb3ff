package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eklitzke/bitcoin-tools/pkg/parser"
)

// LatestOptions holds command-line options for the latest command.
type LatestOptions struct {
	Dir    string `mapstructure:"dir"`
	Prefix string `mapstructure:"prefix"`
}

// NewLatestCommand creates the latest command.
func NewLatestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Print the newest log file",
		Long: `Print the path of the newest log in a directory.

Logs are named <prefix>-YYYYMMDD-HHMMSS.log (optionally .gz or .zst);
the newest is chosen by the timestamp in the name, not the file's
modification time.

Example:
  ibdlog latest --dir /var/log/ibd --prefix debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &LatestOptions{}
			if err := resolveFlags(cmd, opts); err != nil {
				return err
			}
			path, err := parser.Latest(opts.Dir, opts.Prefix)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().String("dir", DefaultLogDir, "Directory to search")
	cmd.Flags().String("prefix", DefaultLogPrefix, "File name prefix")

	return cmd
}
