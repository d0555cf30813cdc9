package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lakeroad/hubspot-ingest/internal/cli/config"
	"github.com/lakeroad/hubspot-ingest/internal/ingest"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration inspection commands",
	Long:  `Commands for inspecting the effective ingestion configuration.`,
}

// showCmd prints the effective configuration after defaults, config file,
// and environment variables are merged.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		color.Cyan("Storage")
		fmt.Println(strings.Repeat("─", 40))
		fmt.Printf("  storage_type:   %s\n", cfg.StorageType)
		fmt.Printf("  bucket_name:    %s\n", cfg.BucketName)
		fmt.Printf("  local_path:     %s\n", cfg.LocalPath)
		fmt.Printf("  region:         %s\n", cfg.Region)
		fmt.Printf("  curated_prefix: %s\n", cfg.CuratedPrefix)
		fmt.Printf("  dim_prefix:     %s\n", cfg.DimPrefix)
		fmt.Printf("  compression:    %s\n", cfg.Compression)

		fmt.Println()
		color.Cyan("Sync")
		fmt.Println(strings.Repeat("─", 40))
		fmt.Printf("  sync_state_table:      %s\n", cfg.SyncStateTable)
		fmt.Printf("  incremental_parameter: %s\n", cfg.IncrementalParameter)
		fmt.Printf("  buffer_hours:          %d\n", cfg.BufferHours)
		fmt.Printf("  start_date:            %s\n", cfg.StartDate)

		fmt.Println()
		color.Cyan("HubSpot")
		fmt.Println(strings.Repeat("─", 40))
		fmt.Printf("  token:               %s\n", maskSecret(cfg.Token))
		fmt.Printf("  secret_arn:          %s\n", cfg.SecretARN)
		fmt.Printf("  token_ttl_minutes:   %d\n", cfg.TokenTTLMinutes)
		fmt.Printf("  rate_limit_pause_ms: %d\n", cfg.RateLimitPauseMS)
		fmt.Printf("  max_retries:         %d\n", cfg.MaxRetries)

		return nil
	},
}

// tasksCmd lists the tasks run accepts.
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the available ingestion tasks",
	Run: func(cmd *cobra.Command, args []string) {
		for _, task := range ingest.Tasks() {
			fmt.Println(task)
		}
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(tasksCmd)
}

func maskSecret(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "********"
}
