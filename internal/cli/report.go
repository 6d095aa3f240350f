package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/opspulse/opspulse/internal/report"
)

var (
	reportDays   int
	reportJSON   bool
	reportOutput string
	reportProm   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build and write the operational report",
	Long: `Assemble the full operational report for the window: health score with
breakdown, per-pipeline success rates, threshold violations, alert
rollups, artifact integrity, and retry guides for failed commands.

The report is written as JSON under docs/ops_reports/ by default; use
--output to override, --json to print the document instead, and --prom
to also export gauges in Prometheus textfile format.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Builder == nil {
			return fmt.Errorf("report builder not initialized")
		}

		now := time.Now().UTC()
		rep, err := Builder.Build(reportDays, now)
		if err != nil {
			return fmt.Errorf("building report: %w", err)
		}

		if reportProm != "" {
			check, err := Builder.Check(reportDays, now)
			if err != nil {
				return fmt.Errorf("checking thresholds for prom export: %w", err)
			}
			if err := report.WritePromFile(check, reportProm); err != nil {
				return fmt.Errorf("writing prom file: %w", err)
			}
			fmt.Printf("Updated: %s\n", reportProm)
		}

		if reportJSON {
			data, err := json.Marshal(rep)
			if err != nil {
				return fmt.Errorf("formatting report as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		path := reportOutput
		if path == "" {
			path = filepath.Join(BasePath, "docs", "ops_reports",
				fmt.Sprintf("ops-report-%s.json", now.Format("2006-01-02")))
		}
		if err := Builder.WriteJSON(rep, path); err != nil {
			return err
		}
		fmt.Printf("Updated: %s\n", path)
		return nil
	},
}

func init() {
	reportCmd.Flags().IntVar(&reportDays, "days", 7, "Lookback window in days (0 means all history)")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the report as JSON instead of writing it")
	reportCmd.Flags().StringVar(&reportOutput, "output", "", "Report output path (default docs/ops_reports/ops-report-<date>.json)")
	reportCmd.Flags().StringVar(&reportProm, "prom", "", "Also export metrics in Prometheus textfile format to this path")
	rootCmd.AddCommand(reportCmd)
}
