package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/opspulse/opspulse/internal/report"
	"github.com/opspulse/opspulse/internal/watch"
)

var watchDays int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-check thresholds whenever new telemetry lands",
	Long: `Monitor the logs directory and re-run the threshold check each time a
pipeline writes a new run metric document. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Builder == nil {
			return fmt.Errorf("report builder not initialized")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		return watch.Watch(ctx, Cfg.LogsDir, watchDays, Builder, func(check report.CheckResult) {
			fmt.Printf("health=%d total_runs=%d violations=%d continuous=%s\n",
				check.Health.Score, check.Summary.TotalRuns, len(check.Violations), check.ContinuousAlert.Severity)
		})
	},
}

func init() {
	watchCmd.Flags().IntVar(&watchDays, "days", 30, "Lookback window in days for each re-check")
	rootCmd.AddCommand(watchCmd)
}
