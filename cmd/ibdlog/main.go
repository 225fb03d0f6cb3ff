// ibdlog unpacks systemtap IBD trace logs into per-event tables.
//
// Each log is split into its system, config and systemtap sections; trace
// records are typed by key and aligned to the timer and flush timelines.
package main

import (
	"os"

	"github.com/eklitzke/bitcoin-tools/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
