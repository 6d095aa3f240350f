package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opspulse/opspulse/internal/alert"
)

var (
	alertsDays int
	alertsJSON bool
)

// alertsPayload is the JSON shape of the alerts command.
type alertsPayload struct {
	Days           int            `json:"days"`
	Total          int            `json:"total"`
	PerDay         map[string]int `json:"per_day"`
	PipelineCounts map[string]int `json:"pipeline_counts"`
	TypeCounts     map[string]int `json:"type_counts"`
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Summarize the alert log",
	Long: `Parse alerts.log and count alerts inside the window, grouped by calendar
day, pipeline attribution, and alert type.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := readAlertLines(filepath.Join(Cfg.LogsDir, "alerts.log"))
		if err != nil {
			return err
		}

		since := time.Time{}
		if alertsDays > 0 {
			since = time.Now().UTC().AddDate(0, 0, -alertsDays)
		}
		summary := alert.Summarize(alert.ParseLines(lines), since)

		total := 0
		for _, count := range summary.PerDay {
			total += count
		}

		if alertsJSON {
			return printJSON(alertsPayload{
				Days:           alertsDays,
				Total:          total,
				PerDay:         summary.PerDay,
				PipelineCounts: summary.PipelineCounts,
				TypeCounts:     summary.TypeCounts,
			})
		}

		fmt.Printf("Alert summary (last %d days)\n", alertsDays)
		fmt.Printf("Total alerts: %d\n", total)

		if total > 0 {
			days := make([]string, 0, len(summary.PerDay))
			for day := range summary.PerDay {
				days = append(days, day)
			}
			sort.Sort(sort.Reverse(sort.StringSlice(days)))
			fmt.Println("\nPer day:")
			for _, day := range days {
				fmt.Printf("  %s  %d\n", day, summary.PerDay[day])
			}
		}

		fmt.Println("\nBy pipeline:")
		for _, name := range alert.PipelineCategories {
			fmt.Printf("  %-10s %d\n", name+":", summary.PipelineCounts[name])
		}
		fmt.Println("\nBy type:")
		for _, name := range alert.TypeCategories {
			fmt.Printf("  %-18s %d\n", name+":", summary.TypeCounts[name])
		}
		return nil
	},
}

// readAlertLines loads the alert log. A missing log is an empty summary, not
// an error; alerting may simply never have fired.
func readAlertLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading alert log: %w", err)
	}
	return strings.Split(string(data), "\n"), nil
}

func init() {
	alertsCmd.Flags().IntVar(&alertsDays, "days", 7, "Lookback window in days (0 means all history)")
	alertsCmd.Flags().BoolVar(&alertsJSON, "json", false, "Output the summary as JSON")
	rootCmd.AddCommand(alertsCmd)
}
