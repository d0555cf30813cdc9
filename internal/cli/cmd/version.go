package cmd

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Build metadata, overridden at link time through SetVersionInfo.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// SetVersionInfo records the build metadata from the main package. Empty
// values keep the defaults so plain `go build` binaries stay labelled dev.
func SetVersionInfo(v, commit, date string) {
	if v != "" {
		version = v
	}
	if commit != "" {
		gitCommit = commit
	}
	if date != "" {
		buildDate = date
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Display detailed version information about hubspot-ingest",
	Run: func(cmd *cobra.Command, args []string) {
		color.New(color.FgCyan, color.Bold).Printf("hubspot-ingest %s\n\n", version)

		label := color.New(color.FgGreen)
		for _, row := range [][2]string{
			{"Git commit", gitCommit},
			{"Built", buildDate},
			{"Go version", runtime.Version()},
			{"OS/Arch", runtime.GOOS + "/" + runtime.GOARCH},
		} {
			label.Printf("%-11s ", row[0]+":")
			fmt.Println(row[1])
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
