package models

import "time"

// Pipeline identifies one of the scheduled pipelines whose runs are tracked.
type Pipeline string

const (
	PipelineDaily   Pipeline = "daily"
	PipelineWeekly  Pipeline = "weekly"
	PipelineMonthly Pipeline = "monthly"
)

// KnownPipelines lists every tracked pipeline in canonical order.
var KnownPipelines = []Pipeline{PipelineDaily, PipelineWeekly, PipelineMonthly}

// IsKnownPipeline reports whether name matches a tracked pipeline.
func IsKnownPipeline(name string) bool {
	for _, p := range KnownPipelines {
		if string(p) == name {
			return true
		}
	}
	return false
}

// RunRecord is one pipeline execution as recorded in a telemetry document.
// EventTime is the resolved ordering timestamp (finished_at with started_at
// as fallback); records whose timestamps cannot be parsed are dropped by the
// scanner before they reach any consumer.
type RunRecord struct {
	Pipeline        Pipeline
	EventTime       time.Time
	DurationSec     float64
	Success         bool
	CommandFailures int
	AlertCount      int
}

// LatestRun is the most recent run of a pipeline inside the scan window.
type LatestRun struct {
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
}

// PipelineAggregate summarizes all in-window runs of one pipeline.
// Runs holds the records in scan order so continuity evaluation can walk
// them newest-first.
type PipelineAggregate struct {
	Runs           []RunRecord `json:"-"`
	RunCount       int         `json:"runs"`
	SuccessCount   int         `json:"-"`
	SuccessRate    float64     `json:"success_rate"`
	AvgDurationSec float64     `json:"avg_duration_sec"`
	MaxDurationSec float64     `json:"max_duration_sec"`
	Latest         *LatestRun  `json:"latest_run,omitempty"`
}

// ScanResult is the full output of one telemetry directory scan.
type ScanResult struct {
	Aggregates      map[Pipeline]PipelineAggregate
	TotalRuns       int
	CommandFailures int
	AlertCount      int
	// WindowStart is the inclusive lower bound of the scan window. Zero
	// when the scan was unbounded (days <= 0).
	WindowStart time.Time
}
