package main

import (
	"fmt"
	"os"

	"github.com/lakeroad/hubspot-ingest/internal/cli/cmd"
)

// Build-time variables set via -ldflags
var (
	version   = "dev"
	gitCommit = ""
	buildDate = ""
)

func main() {
	cmd.SetVersionInfo(version, gitCommit, buildDate)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
