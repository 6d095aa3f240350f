package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/opspulse/opspulse/internal/report"
	"github.com/opspulse/opspulse/pkg/models"
)

var (
	checkDays int
	checkJSON bool
)

// checkPayload is the JSON shape of the check command, kept stable for CI
// consumers that parse it.
type checkPayload struct {
	SchemaVersion    string                 `json:"schema_version"`
	Days             int                    `json:"days"`
	ThresholdProfile string                 `json:"threshold_profile"`
	Violations       []models.Violation     `json:"violations"`
	ContinuousAlert  models.ContinuityState `json:"continuous_alert"`
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate pipeline metrics against thresholds",
	Long: `Scan run metric documents in the logs directory and evaluate each
pipeline's average duration and failure rate against the active threshold
profile, plus consecutive-failure limits.

Exits non-zero when any threshold is violated or the consecutive-failure
alert reaches critical severity, so it can gate CI jobs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Builder == nil {
			return fmt.Errorf("report builder not initialized")
		}

		check, err := Builder.Check(checkDays, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("checking thresholds: %w", err)
		}

		if checkJSON {
			payload := checkPayload{
				SchemaVersion:    report.SchemaVersion,
				Days:             checkDays,
				ThresholdProfile: check.ThresholdProfile,
				Violations:       check.Violations,
				ContinuousAlert:  check.ContinuousAlert,
			}
			data, err := json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("formatting check result as JSON: %w", err)
			}
			fmt.Println(string(data))
		} else {
			printCheckText(check)
		}

		if len(check.Violations) > 0 || check.ContinuousAlert.Severity == models.SeverityCritical {
			return fmt.Errorf("%d threshold violation(s), continuous alert severity %s",
				len(check.Violations), check.ContinuousAlert.Severity)
		}
		return nil
	},
}

func printCheckText(check report.CheckResult) {
	fmt.Printf("Metric threshold profile: %s\n", check.ThresholdProfile)

	ca := check.ContinuousAlert
	fmt.Printf("Continuous SLO alert severity: %s (warning_limit=%d, critical_limit=%d)\n",
		ca.Severity, ca.WarningLimit, ca.CriticalLimit)
	fmt.Printf("Continuous SLO alert active: %t\n", ca.Active)
	if ca.Active {
		fmt.Println("Continuous SLO breached pipelines:")
		for _, streak := range ca.ViolatedPipelines {
			latest := ""
			if streak.Latest != nil {
				latest = streak.Latest.Timestamp.Format(time.RFC3339)
			}
			fmt.Printf("- pipeline=%s severity=%s consecutive_failures=%d latest_run=%s\n",
				streak.Pipeline, streak.Severity, streak.ConsecutiveFailures, latest)
		}
	}

	if len(check.Violations) > 0 {
		fmt.Printf("Metric threshold violations (%d):\n", len(check.Violations))
		for _, v := range check.Violations {
			fmt.Printf("- pipeline=%s metric=%s threshold=%.6g observed=%.6g\n",
				v.Pipeline, v.Metric, v.Threshold, v.Observed)
		}
	} else {
		fmt.Println("No metric threshold violations.")
	}
}

func init() {
	checkCmd.Flags().IntVar(&checkDays, "days", 30, "Lookback window in days (0 means all history)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output the check result as JSON")
	rootCmd.AddCommand(checkCmd)
}
