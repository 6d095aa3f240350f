package threshold

import (
	"github.com/opspulse/opspulse/pkg/models"
)

// Default consecutive-failure limits.
const (
	DefaultWarningLimit  = 3
	DefaultCriticalLimit = 5
)

// NormalizeLimits applies defaults and keeps the critical limit at or above
// the warning limit.
func NormalizeLimits(warning, critical int) (int, int) {
	if warning <= 0 {
		warning = DefaultWarningLimit
	}
	if critical <= 0 {
		critical = DefaultCriticalLimit
	}
	if critical < warning {
		critical = warning
	}
	return warning, critical
}

// failureStreak counts consecutive failures walking newest-first; the streak
// stops at the first success.
func failureStreak(runs []models.RunRecord) int {
	streak := 0
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].Success {
			break
		}
		streak++
	}
	return streak
}

// EvaluateContinuity flags pipelines whose most recent runs are an unbroken
// failure streak at or beyond the warning limit. Overall severity is the
// worst per-pipeline severity.
func EvaluateContinuity(aggregates map[models.Pipeline]models.PipelineAggregate, warningLimit, criticalLimit int) models.ContinuityState {
	warningLimit, criticalLimit = NormalizeLimits(warningLimit, criticalLimit)
	state := models.ContinuityState{
		Limit:             warningLimit,
		WarningLimit:      warningLimit,
		CriticalLimit:     criticalLimit,
		Severity:          models.SeverityNone,
		ViolatedPipelines: []models.PipelineStreak{},
	}

	for _, pipeline := range models.KnownPipelines {
		agg, ok := aggregates[pipeline]
		if !ok || agg.RunCount == 0 {
			continue
		}
		streak := failureStreak(agg.Runs)
		if streak < warningLimit {
			continue
		}

		severity := models.SeverityWarning
		if streak >= criticalLimit {
			severity = models.SeverityCritical
		}
		state.ViolatedPipelines = append(state.ViolatedPipelines, models.PipelineStreak{
			Pipeline:            pipeline,
			ConsecutiveFailures: streak,
			Latest:              agg.Latest,
			Severity:            severity,
		})
		if severity == models.SeverityCritical || state.Severity == models.SeverityNone {
			state.Severity = severity
		}
	}
	state.Active = len(state.ViolatedPipelines) > 0
	return state
}
