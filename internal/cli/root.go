package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "opspulse",
	Short: "opspulse - pipeline health monitoring for scheduled automation",
	Long: `opspulse watches the telemetry that scheduled pipelines (daily, weekly,
monthly) leave behind: run metric documents, alert logs, and artifact
manifests.

It checks duration and failure-rate thresholds, tracks consecutive
failures, deduplicates alert notifications, and assembles a versioned
operational report with retry guidance for failed commands.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("opspulse %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
