package models

import "time"

// Severity grades a continuity finding.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Violation records one threshold breach observed in a scan window.
type Violation struct {
	Pipeline  Pipeline `json:"pipeline"`
	Metric    string   `json:"metric"`
	Threshold float64  `json:"threshold"`
	Observed  float64  `json:"observed"`
}

// PipelineStreak is one pipeline whose newest runs are all failures.
type PipelineStreak struct {
	Pipeline            Pipeline   `json:"pipeline"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	Latest              *LatestRun `json:"latest_run,omitempty"`
	Severity            Severity   `json:"severity"`
}

// ContinuityState is the outcome of consecutive-failure evaluation across
// all pipelines. Limit mirrors the warning limit for payload compatibility.
type ContinuityState struct {
	Limit             int              `json:"limit"`
	WarningLimit      int              `json:"warning_limit"`
	CriticalLimit     int              `json:"critical_limit"`
	Severity          Severity         `json:"severity"`
	Active            bool             `json:"active"`
	ViolatedPipelines []PipelineStreak `json:"violated_pipelines"`
}

// HealthBreakdown explains how a health score was produced.
type HealthBreakdown struct {
	Factors   map[string]float64 `json:"factors"`
	Penalties map[string]float64 `json:"penalties"`
	Formula   string             `json:"formula"`
}

// AlertTypeCount is one entry of the top-alert-types ranking.
type AlertTypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// PipelineRate is one row of the report's success-rate table.
type PipelineRate struct {
	Runs        int     `json:"runs"`
	SuccessRate float64 `json:"success_rate"`
}

// DailyAlertSummary is one mined alerts-summary-YYYYMMDD.md document.
type DailyAlertSummary struct {
	Date            string   `json:"date"`
	Path            string   `json:"path"`
	CommandFailures int      `json:"command_failures"`
	AlertCount      int      `json:"alert_count"`
	Alerts          []string `json:"alerts"`
}

// ArtifactCheck is one row of a weekly artifact verification document.
type ArtifactCheck struct {
	Path   string `json:"path"`
	Status string `json:"status"`
}

// ArtifactIntegrity summarizes the most recent artifact verification.
type ArtifactIntegrity struct {
	Source       string          `json:"source"`
	OKCount      int             `json:"ok_count"`
	MissingCount int             `json:"missing_count"`
	TotalCount   int             `json:"total_count"`
	Files        []ArtifactCheck `json:"files"`
}

// RetryGuide pairs a failed command with its suggested retry and a runbook
// cross-reference.
type RetryGuide struct {
	Pipeline       Pipeline `json:"pipeline"`
	FailedCommand  string   `json:"failed_command"`
	SuggestedRetry string   `json:"suggested_retry_command"`
	RunbookRef     string   `json:"runbook_reference"`
	RunbookAnchor  string   `json:"runbook_reference_anchor"`
}

// OpsReport is the schema-versioned operational report document.
type OpsReport struct {
	SchemaVersion string     `json:"schema_version"`
	GeneratedAt   time.Time  `json:"generated_at"`
	Days          int        `json:"days"`
	WindowStart   *time.Time `json:"window_start"`

	TotalRuns       int             `json:"total_runs"`
	HealthScore     int             `json:"health_score"`
	HealthBreakdown HealthBreakdown `json:"health_breakdown"`

	PipelineSuccessRates map[Pipeline]PipelineRate `json:"pipeline_success_rates"`

	ThresholdViolationsCount      int              `json:"threshold_violations_count"`
	ThresholdViolationsByPipeline map[Pipeline]int `json:"threshold_violations_by_pipeline"`
	ContinuousAlert               ContinuityState  `json:"continuous_alert"`

	TopAlertTypes       []AlertTypeCount    `json:"top_alert_types"`
	DailyAlertSummaries []DailyAlertSummary `json:"daily_alert_summaries"`

	ArtifactIntegrity        ArtifactIntegrity `json:"artifact_integrity"`
	RecentCommandFailures    int               `json:"recent_command_failures"`
	FailedCommandRetryGuides []RetryGuide      `json:"failed_command_retry_guides"`
}
