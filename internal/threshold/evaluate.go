package threshold

import (
	"github.com/opspulse/opspulse/pkg/models"
)

// Evaluate compares aggregates to the limits table and returns every breach.
// Pipelines without runs in the window produce no violations; absence of
// data is not a failure.
func Evaluate(aggregates map[models.Pipeline]models.PipelineAggregate, table Table) []models.Violation {
	violations := []models.Violation{}
	for _, pipeline := range models.KnownPipelines {
		agg, ok := aggregates[pipeline]
		if !ok || agg.RunCount == 0 {
			continue
		}
		limits, ok := table[pipeline]
		if !ok {
			continue
		}

		if agg.MaxDurationSec > limits.MaxDurationSec {
			violations = append(violations, models.Violation{
				Pipeline:  pipeline,
				Metric:    "max_duration_sec",
				Threshold: limits.MaxDurationSec,
				Observed:  agg.MaxDurationSec,
			})
		}

		failureRate := min(1.0, max(0.0, 1.0-agg.SuccessRate))
		if failureRate > limits.MaxFailureRate {
			violations = append(violations, models.Violation{
				Pipeline:  pipeline,
				Metric:    "failure_rate",
				Threshold: limits.MaxFailureRate,
				Observed:  failureRate,
			})
		}
	}
	return violations
}

// ViolationsByPipeline groups violations for report payloads.
func ViolationsByPipeline(violations []models.Violation) map[models.Pipeline][]models.Violation {
	grouped := make(map[models.Pipeline][]models.Violation)
	for _, v := range violations {
		grouped[v.Pipeline] = append(grouped[v.Pipeline], v)
	}
	return grouped
}
