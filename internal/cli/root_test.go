package cli

import (
	"testing"
)

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()

	if root.Use != "ibdlog" {
		t.Errorf("Use = %q, want ibdlog", root.Use)
	}
	if !root.SilenceErrors || !root.SilenceUsage {
		t.Error("root command should leave error reporting to Execute")
	}

	want := []string{"unpack", "latest", "diagnose", "validate", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %s not registered (err = %v)", name, err)
		}
	}
}
