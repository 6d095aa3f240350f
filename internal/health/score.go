// Package health condenses a scan window into a single 0-100 score.
package health

import (
	"math"

	"github.com/opspulse/opspulse/pkg/models"
)

// Formula documents the score calculation for report consumers.
const Formula = "100 - (1 - avg_success_rate) * 60 - min(25, violations * 5) - min(10, command_failures * 2) - min(5, alerts * 0.2)"

// Result is a computed health score with its full breakdown.
type Result struct {
	Score     int                    `json:"score"`
	Breakdown models.HealthBreakdown `json:"breakdown"`
}

// Score computes the operational health score from a scan result and its
// threshold violations. Pipelines without runs do not drag the average down;
// a window with no runs at all scores as if everything failed, which keeps a
// silent system from looking healthy.
func Score(scan models.ScanResult, violations []models.Violation) Result {
	var rateSum float64
	active := 0
	for _, agg := range scan.Aggregates {
		if agg.RunCount == 0 {
			continue
		}
		rateSum += agg.SuccessRate
		active++
	}
	avgSuccess := 0.0
	if active > 0 {
		avgSuccess = rateSum / float64(active)
	}

	successPenalty := (1 - avgSuccess) * 60
	violationPenalty := math.Min(25, float64(len(violations))*5)
	failurePenalty := math.Min(10, float64(scan.CommandFailures)*2)
	alertPenalty := math.Min(5, float64(scan.AlertCount)*0.2)

	raw := 100 - successPenalty - violationPenalty - failurePenalty - alertPenalty
	score := int(math.Round(raw))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Result{
		Score: score,
		Breakdown: models.HealthBreakdown{
			Factors: map[string]float64{
				"avg_success_rate": avgSuccess,
				"violation_count":  float64(len(violations)),
				"command_failures": float64(scan.CommandFailures),
				"alert_count":      float64(scan.AlertCount),
			},
			Penalties: map[string]float64{
				"success_rate":     successPenalty,
				"violations":       violationPenalty,
				"command_failures": failurePenalty,
				"alerts":           alertPenalty,
			},
			Formula: Formula,
		},
	}
}
