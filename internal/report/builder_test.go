package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opspulse/opspulse/internal/telemetry"
	"github.com/opspulse/opspulse/pkg/models"
)

func writeJSON(t *testing.T, dir, name string, payload map[string]any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestBuilder(t *testing.T, logsDir string, cfg models.Config) Builder {
	t.Helper()
	cfg.LogsDir = logsDir
	return NewBuilder(cfg, telemetry.NewScanner(logsDir), nil)
}

// Two daily runs (one failing) and one weekly success against prod limits:
// the daily failure rate of 0.5 breaches prod's 0.10 and nothing else does.
func TestCheckEndToEndScenario(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	ts1 := now.Add(-24 * time.Hour).Format(time.RFC3339)
	ts2 := now.Format(time.RFC3339)

	writeJSON(t, dir, "daily-metrics-20260301-010101.json", map[string]any{
		"pipeline": "daily", "finished_at": ts1, "duration_sec": 10,
		"command_failures": 0, "alert_count": 0, "success": true,
	})
	writeJSON(t, dir, "daily-metrics-20260301-020202.json", map[string]any{
		"pipeline": "daily", "finished_at": ts2, "duration_sec": 20,
		"command_failures": 0, "alert_count": 0, "success": false,
	})
	writeJSON(t, dir, "weekly-metrics-20260301-030303.json", map[string]any{
		"pipeline": "weekly", "finished_at": ts2, "duration_sec": 30,
		"command_failures": 0, "alert_count": 0, "success": true,
	})

	b := newTestBuilder(t, dir, models.Config{Profile: "prod"})
	check, err := b.Check(30, now)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if check.ThresholdProfile != "prod" {
		t.Errorf("profile = %q", check.ThresholdProfile)
	}
	daily := check.Summary.Pipelines[models.PipelineDaily]
	if daily.RunCount != 2 || daily.SuccessRate != 0.5 ||
		daily.AvgDurationSec != 15 || daily.MaxDurationSec != 20 {
		t.Errorf("daily aggregate = %+v", daily)
	}

	if len(check.Violations) != 1 {
		t.Fatalf("violations = %+v", check.Violations)
	}
	v := check.Violations[0]
	if v.Pipeline != models.PipelineDaily || v.Metric != "failure_rate" {
		t.Errorf("violation = %+v", v)
	}
	if v.Observed != 0.5 || v.Threshold != 0.10 {
		t.Errorf("violation figures = %+v", v)
	}
}

func TestBuildReportDocument(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	writeJSON(t, dir, "daily-metrics-20260301-010101.json", map[string]any{
		"pipeline": "daily", "finished_at": now.Add(-time.Hour).Format(time.RFC3339),
		"duration_sec": 12, "command_failures": 1, "alert_count": 2, "success": false,
	})
	os.WriteFile(filepath.Join(dir, "alerts.log"), []byte(
		"[2026-03-01T10:00:00Z] daily pipeline: command failed: make sync\n"+
			"[2026-03-01T11:00:00Z] webhook delivery failed\n"+
			"[2026-03-01T12:00:00Z] webhook delivery failed again\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "daily-run-20260301-100000.log"), []byte(
		"[2026-03-01T10:00:00Z] ERROR daily pipeline: command failed: make sync\n"), 0o644)
	writeJSON(t, dir, "weekly-artifact-verify.json", map[string]any{
		"checks": []map[string]any{{"path": "dist/report.pdf", "status": "OK"}},
	})
	os.WriteFile(filepath.Join(dir, "alerts-summary-20260301.md"), []byte(
		"- Command failures: 1\n- Alert count: 2\n## Alerts\n- webhook delivery failed\n"), 0o644)

	b := newTestBuilder(t, dir, models.Config{Profile: "prod"})
	rep, err := b.Build(7, now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if rep.SchemaVersion != "1.0" {
		t.Errorf("schema version = %q", rep.SchemaVersion)
	}
	if rep.Days != 7 || rep.WindowStart == nil {
		t.Errorf("window = days %d, start %v", rep.Days, rep.WindowStart)
	}
	if rep.TotalRuns != 1 {
		t.Errorf("total runs = %d", rep.TotalRuns)
	}
	if rep.RecentCommandFailures != 1 {
		t.Errorf("recent command failures = %d", rep.RecentCommandFailures)
	}
	if got := rep.PipelineSuccessRates[models.PipelineDaily]; got.Runs != 1 || got.SuccessRate != 0 {
		t.Errorf("success rates = %+v", rep.PipelineSuccessRates)
	}
	// One run, failed: duration fine, failure rate breached.
	if rep.ThresholdViolationsCount != 1 || rep.ThresholdViolationsByPipeline[models.PipelineDaily] != 1 {
		t.Errorf("violations = %d by pipeline %v",
			rep.ThresholdViolationsCount, rep.ThresholdViolationsByPipeline)
	}
	if len(rep.TopAlertTypes) != 2 {
		t.Fatalf("top alert types = %+v", rep.TopAlertTypes)
	}
	if rep.TopAlertTypes[0].Type != "webhook_failed" || rep.TopAlertTypes[0].Count != 2 {
		t.Errorf("top type = %+v", rep.TopAlertTypes[0])
	}
	if rep.ArtifactIntegrity.OKCount != 1 || rep.ArtifactIntegrity.TotalCount != 1 {
		t.Errorf("artifact integrity = %+v", rep.ArtifactIntegrity)
	}
	if len(rep.FailedCommandRetryGuides) != 1 || rep.FailedCommandRetryGuides[0].FailedCommand != "make sync" {
		t.Errorf("retry guides = %+v", rep.FailedCommandRetryGuides)
	}
	if len(rep.DailyAlertSummaries) != 1 || rep.DailyAlertSummaries[0].AlertCount != 2 {
		t.Errorf("daily summaries = %+v", rep.DailyAlertSummaries)
	}
}

func TestBuildUnboundedWindowHasNilStart(t *testing.T) {
	dir := t.TempDir()
	b := newTestBuilder(t, dir, models.Config{})
	rep, err := b.Build(0, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if rep.WindowStart != nil {
		t.Errorf("window start = %v, want nil", rep.WindowStart)
	}
	if rep.Days != 0 {
		t.Errorf("days = %d", rep.Days)
	}
}

func TestTopAlertTypesTieBrokenByName(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "alerts.log"), []byte(
		"[2026-03-01T10:00:00Z] webhook delivery failed\n"+
			"[2026-03-01T10:01:00Z] success rate below threshold\n"), 0o644)

	got := collectTopAlertTypes(filepath.Join(dir, "alerts.log"), time.Time{})
	if len(got) != 2 {
		t.Fatalf("types = %+v", got)
	}
	if got[0].Type != "threshold" || got[1].Type != "webhook_failed" {
		t.Errorf("tie order = %q, %q", got[0].Type, got[1].Type)
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := newTestBuilder(t, dir, models.Config{})
	rep, err := b.Build(7, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "reports", "ops-report.json")
	if err := b.WriteJSON(rep, out); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var decoded models.OpsReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded.SchemaVersion != SchemaVersion {
		t.Errorf("schema version = %q", decoded.SchemaVersion)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("report file should end with a newline")
	}
}
