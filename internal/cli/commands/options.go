package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables that can stand in for flags,
// e.g. IBDLOG_OUTPUT=json or IBDLOG_STORE_PATH=ibd.duckdb.
const EnvPrefix = "IBDLOG"

// resolveFlags binds a command's flags into a viper instance so each flag
// can also be set from the environment, then decodes them into out.
// Flags given on the command line take precedence over the environment.
func resolveFlags(cmd *cobra.Command, out interface{}) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("resolving options: %w", err)
	}
	return nil
}
