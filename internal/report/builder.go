// Package report composes scan results, threshold findings, and mined log
// artifacts into the schema-versioned operational report.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/opspulse/opspulse/internal/alert"
	"github.com/opspulse/opspulse/internal/health"
	"github.com/opspulse/opspulse/internal/telemetry"
	"github.com/opspulse/opspulse/internal/threshold"
	"github.com/opspulse/opspulse/pkg/models"
)

// SchemaVersion is bumped on any breaking change to the report document.
const SchemaVersion = "1.0"

const topAlertTypesLimit = 3

// Totals are the window-wide counters of a scan summary payload.
type Totals struct {
	CommandFailures int `json:"command_failures"`
	AlertCount      int `json:"alert_count"`
}

// Summary is the scan portion of a threshold check payload.
type Summary struct {
	Pipelines   map[models.Pipeline]models.PipelineAggregate `json:"pipelines"`
	Totals      Totals                                       `json:"totals"`
	TotalRuns   int                                          `json:"total_runs"`
	WindowStart *time.Time                                   `json:"window_start"`
}

// CheckResult is the full outcome of one threshold check.
type CheckResult struct {
	ThresholdProfile string                 `json:"threshold_profile"`
	Thresholds       threshold.Table        `json:"thresholds"`
	Summary          Summary                `json:"summary"`
	Violations       []models.Violation     `json:"violations"`
	Health           health.Result          `json:"health"`
	ContinuousAlert  models.ContinuityState `json:"continuous_alert"`
}

// Builder runs checks and assembles operational reports.
type Builder interface {
	// Check scans the window and evaluates thresholds, continuity, and
	// health in one pass.
	Check(days int, now time.Time) (CheckResult, error)
	// Build assembles the full report document for the window.
	Build(days int, now time.Time) (models.OpsReport, error)
	// WriteJSON persists a report document.
	WriteJSON(rep models.OpsReport, path string) error
}

type builder struct {
	cfg      models.Config
	scanner  telemetry.Scanner
	profiles map[string]threshold.Table
}

// NewBuilder wires a Builder over cfg. profiles may be nil to use the
// built-in threshold profile table.
func NewBuilder(cfg models.Config, scanner telemetry.Scanner, profiles map[string]threshold.Table) Builder {
	return &builder{cfg: cfg, scanner: scanner, profiles: profiles}
}

func (b *builder) Check(days int, now time.Time) (CheckResult, error) {
	if days < 0 {
		days = 0
	}
	scan, err := b.scanner.Scan(days, now)
	if err != nil {
		return CheckResult{}, fmt.Errorf("scanning telemetry: %w", err)
	}

	profile, table := threshold.Resolve(b.cfg, b.profiles)
	violations := threshold.Evaluate(scan.Aggregates, table)
	continuity := threshold.EvaluateContinuity(scan.Aggregates, b.cfg.ContinuityWarningLimit, b.cfg.ContinuityCriticalLimit)

	var windowStart *time.Time
	if !scan.WindowStart.IsZero() {
		ws := scan.WindowStart
		windowStart = &ws
	}
	return CheckResult{
		ThresholdProfile: profile,
		Thresholds:       table,
		Summary: Summary{
			Pipelines:   scan.Aggregates,
			Totals:      Totals{CommandFailures: scan.CommandFailures, AlertCount: scan.AlertCount},
			TotalRuns:   scan.TotalRuns,
			WindowStart: windowStart,
		},
		Violations:      violations,
		Health:          health.Score(scan, violations),
		ContinuousAlert: continuity,
	}, nil
}

func (b *builder) Build(days int, now time.Time) (models.OpsReport, error) {
	if days < 0 {
		days = 0
	}
	check, err := b.Check(days, now)
	if err != nil {
		return models.OpsReport{}, err
	}

	since := time.Time{}
	if check.Summary.WindowStart != nil {
		since = *check.Summary.WindowStart
	}

	successRates := make(map[models.Pipeline]models.PipelineRate, len(check.Summary.Pipelines))
	for pipeline, agg := range check.Summary.Pipelines {
		successRates[pipeline] = models.PipelineRate{Runs: agg.RunCount, SuccessRate: agg.SuccessRate}
	}

	byPipeline := make(map[models.Pipeline]int)
	for _, v := range check.Violations {
		byPipeline[v.Pipeline]++
	}

	runbookPath := b.cfg.RunbookPath
	if runbookPath == "" {
		runbookPath = DefaultRunbookPath
	}

	rep := models.OpsReport{
		SchemaVersion:                 SchemaVersion,
		GeneratedAt:                   now.UTC(),
		Days:                          days,
		WindowStart:                   check.Summary.WindowStart,
		TotalRuns:                     check.Summary.TotalRuns,
		HealthScore:                   check.Health.Score,
		HealthBreakdown:               check.Health.Breakdown,
		PipelineSuccessRates:          successRates,
		ThresholdViolationsCount:      len(check.Violations),
		ThresholdViolationsByPipeline: byPipeline,
		ContinuousAlert:               check.ContinuousAlert,
		TopAlertTypes:                 collectTopAlertTypes(filepath.Join(b.cfg.LogsDir, "alerts.log"), since),
		DailyAlertSummaries:           collectDailySummaries(b.cfg.LogsDir, since),
		ArtifactIntegrity:             loadArtifactIntegrity(b.cfg.LogsDir),
		RecentCommandFailures:         check.Summary.Totals.CommandFailures,
		FailedCommandRetryGuides:      collectRetryGuides(b.cfg.LogsDir, runbookPath, since),
	}
	return rep, nil
}

// collectTopAlertTypes ranks alert classifications in the window, most
// frequent first with ties broken by type name.
func collectTopAlertTypes(alertFile string, since time.Time) []models.AlertTypeCount {
	data, err := os.ReadFile(alertFile)
	if err != nil {
		return []models.AlertTypeCount{}
	}

	counts := map[string]int{}
	for _, parsed := range alert.ParseLines(strings.Split(string(data), "\n")) {
		if !parsed.HasTime || parsed.Timestamp.UTC().Before(since) {
			continue
		}
		counts[parsed.Type]++
	}

	ranked := make([]models.AlertTypeCount, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, models.AlertTypeCount{Type: name, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Type < ranked[j].Type
	})
	if len(ranked) > topAlertTypesLimit {
		ranked = ranked[:topAlertTypesLimit]
	}
	return ranked
}

func (b *builder) WriteJSON(rep models.OpsReport, path string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
