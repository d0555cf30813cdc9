package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lakeroad/hubspot-ingest/internal/cli/config"
	"github.com/lakeroad/hubspot-ingest/internal/cli/runner"
	"github.com/lakeroad/hubspot-ingest/internal/ingest"
)

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run one ingestion task",
	Long:  "Pull one object type from HubSpot and persist it to the configured storage backend",
	Args:  cobra.ExactArgs(1),
	Example: `  hubspot-ingest run deals
  hubspot-ingest run contacts
  hubspot-ingest run activities
  hubspot-ingest run --config prod.yaml owners`,
	ValidArgs: ingest.Tasks(),
	RunE:      runTask,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runTask(cmd *cobra.Command, args []string) error {
	task := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Println(color.GreenString("🚀 Starting %s sync", task))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	r := runner.New(runner.Options{Task: task, Verbose: verbose}, cfg)
	written, err := r.Run(ctx)
	if err != nil {
		return fmt.Errorf("task failed: %w", err)
	}

	fmt.Println(color.GreenString("✅ %s sync completed, wrote %d rows", task, written))
	return nil
}
