// Package telemetry reads per-run pipeline metric documents from the logs
// directory and folds them into per-pipeline aggregates.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/opspulse/opspulse/internal/core"
	"github.com/opspulse/opspulse/pkg/models"
)

// Scanner aggregates pipeline run records found in a logs directory.
type Scanner interface {
	// Scan collects runs whose event time falls inside the window
	// [now - days, now]. days <= 0 means unbounded.
	Scan(days int, now time.Time) (models.ScanResult, error)
}

type dirScanner struct {
	logsDir string
}

// NewScanner creates a Scanner over logsDir. The directory does not have to
// exist yet; scanning an absent directory yields an empty result.
func NewScanner(logsDir string) Scanner {
	return &dirScanner{logsDir: logsDir}
}

// runDoc is the wire format of one <pipeline>-metrics-*.json document.
type runDoc struct {
	Pipeline        string  `json:"pipeline"`
	StartedAt       string  `json:"started_at"`
	FinishedAt      string  `json:"finished_at"`
	DurationSec     float64 `json:"duration_sec"`
	Success         bool    `json:"success"`
	CommandFailures int     `json:"command_failures"`
	AlertCount      int     `json:"alert_count"`
}

// isMetricFile reports whether a directory entry looks like a run metric
// document. Attribution comes from the payload's pipeline field, not the
// file name.
func isMetricFile(name string) bool {
	return strings.HasSuffix(name, ".json") && strings.Contains(name, "-metrics-")
}

// eventTime resolves the ordering timestamp of a run document: finished_at
// when parsable, started_at as fallback.
func eventTime(doc runDoc) (time.Time, bool) {
	if ts, ok := core.ParseISOTime(doc.FinishedAt); ok {
		return ts, true
	}
	return core.ParseISOTime(doc.StartedAt)
}

func (s *dirScanner) Scan(days int, now time.Time) (models.ScanResult, error) {
	result := models.ScanResult{
		Aggregates: make(map[models.Pipeline]models.PipelineAggregate, len(models.KnownPipelines)),
	}
	for _, p := range models.KnownPipelines {
		result.Aggregates[p] = models.PipelineAggregate{}
	}
	if days > 0 {
		result.WindowStart = now.UTC().Add(-time.Duration(days) * 24 * time.Hour)
	}

	entries, err := os.ReadDir(s.logsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return models.ScanResult{}, fmt.Errorf("reading logs directory: %w", err)
	}

	runsByPipeline := make(map[models.Pipeline][]models.RunRecord)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !isMetricFile(entry.Name()) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.logsDir, entry.Name()))
		if err != nil {
			continue
		}
		var doc runDoc
		// Malformed documents are skipped; one bad writer must not sink
		// the whole scan.
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(doc.Pipeline))
		if !models.IsKnownPipeline(name) {
			continue
		}
		pipeline := models.Pipeline(name)
		ts, ok := eventTime(doc)
		if !ok {
			continue
		}
		ts = ts.UTC()
		if days > 0 && ts.Before(result.WindowStart) {
			continue
		}

		runsByPipeline[pipeline] = append(runsByPipeline[pipeline], models.RunRecord{
			Pipeline:        pipeline,
			EventTime:       ts,
			DurationSec:     doc.DurationSec,
			Success:         doc.Success,
			CommandFailures: doc.CommandFailures,
			AlertCount:      doc.AlertCount,
		})
		result.TotalRuns++
		result.CommandFailures += doc.CommandFailures
		result.AlertCount += doc.AlertCount
	}

	for pipeline, runs := range runsByPipeline {
		// Stable by event time so ties keep scan order; the newest run of
		// a tie is the last one processed.
		sort.SliceStable(runs, func(i, j int) bool {
			return runs[i].EventTime.Before(runs[j].EventTime)
		})
		result.Aggregates[pipeline] = aggregate(runs)
	}
	return result, nil
}

// aggregate folds a pipeline's in-window runs. runs must be sorted by event
// time ascending.
func aggregate(runs []models.RunRecord) models.PipelineAggregate {
	agg := models.PipelineAggregate{Runs: runs, RunCount: len(runs)}
	if len(runs) == 0 {
		return agg
	}

	var durationSum float64
	for _, run := range runs {
		if run.Success {
			agg.SuccessCount++
		}
		durationSum += run.DurationSec
		if run.DurationSec > agg.MaxDurationSec {
			agg.MaxDurationSec = run.DurationSec
		}
	}
	agg.SuccessRate = float64(agg.SuccessCount) / float64(len(runs))
	agg.AvgDurationSec = durationSum / float64(len(runs))

	latest := runs[len(runs)-1]
	agg.Latest = &models.LatestRun{Timestamp: latest.EventTime, Success: latest.Success}
	return agg
}
