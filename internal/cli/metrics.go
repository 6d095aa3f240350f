package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opspulse/opspulse/internal/report"
	"github.com/opspulse/opspulse/pkg/models"
)

var (
	metricsDays int
	metricsJSON bool
)

// metricsPayload merges the scan summary with the unified health fields.
type metricsPayload struct {
	Days            int                                          `json:"days"`
	WindowStart     *time.Time                                   `json:"window_start"`
	TotalRuns       int                                          `json:"total_runs"`
	Pipelines       map[models.Pipeline]models.PipelineAggregate `json:"pipelines"`
	Totals          report.Totals                                `json:"totals"`
	HealthScore     int                                          `json:"health_score"`
	HealthBreakdown models.HealthBreakdown                       `json:"health_breakdown"`
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Summarize pipeline run metrics",
	Long: `Aggregate run metric documents per pipeline: run counts, success rates,
average and maximum durations, latest run status, and the derived health
score.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Builder == nil {
			return fmt.Errorf("report builder not initialized")
		}

		check, err := Builder.Check(metricsDays, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("summarizing metrics: %w", err)
		}

		payload := metricsPayload{
			Days:            metricsDays,
			WindowStart:     check.Summary.WindowStart,
			TotalRuns:       check.Summary.TotalRuns,
			Pipelines:       check.Summary.Pipelines,
			Totals:          check.Summary.Totals,
			HealthScore:     check.Health.Score,
			HealthBreakdown: check.Health.Breakdown,
		}

		if metricsJSON {
			data, err := json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Print(formatMetricsText(payload))
		return nil
	},
}

func formatMetricsText(p metricsPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pipeline metrics summary (last %d days)\n", p.Days)
	if p.WindowStart != nil {
		fmt.Fprintf(&b, "Window start: %s\n", p.WindowStart.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Total runs: %d\n", p.TotalRuns)

	names := make([]string, 0, len(p.Pipelines))
	active := 0
	for pipeline, agg := range p.Pipelines {
		names = append(names, string(pipeline))
		if agg.RunCount > 0 {
			active++
		}
	}
	sort.Strings(names)

	if active == 0 {
		b.WriteString("No metrics files found in window.\n")
	} else {
		b.WriteString("\n")
		for _, name := range names {
			agg := p.Pipelines[models.Pipeline(name)]
			fmt.Fprintf(&b, "- %s: runs=%d, success_rate=%.1f%%\n", name, agg.RunCount, agg.SuccessRate*100)
			fmt.Fprintf(&b, "  duration_sec(avg/max): %.2f/%.2f\n", agg.AvgDurationSec, agg.MaxDurationSec)
			if agg.Latest != nil {
				fmt.Fprintf(&b, "  latest: %s success=%t\n", agg.Latest.Timestamp.Format(time.RFC3339), agg.Latest.Success)
			}
		}
	}

	fmt.Fprintf(&b, "\nTotal command_failures: %d\n", p.Totals.CommandFailures)
	fmt.Fprintf(&b, "Total alert_count: %d\n", p.Totals.AlertCount)
	fmt.Fprintf(&b, "\nhealth_score: %d\n", p.HealthScore)
	return b.String()
}

func init() {
	metricsCmd.Flags().IntVar(&metricsDays, "days", 30, "Lookback window in days (0 means all history)")
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output the summary as JSON")
	rootCmd.AddCommand(metricsCmd)
}
