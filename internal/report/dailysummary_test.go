package report

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSummary(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectDailySummariesParsesDocument(t *testing.T) {
	dir := t.TempDir()
	writeSummary(t, dir, "alerts-summary-20260301.md", `# Daily Alerts

- Command failures: 2
- Alert count: 5

## Alerts
- webhook delivery failed
- daily pipeline: command failed: make sync
`)

	got := collectDailySummaries(dir, time.Time{})
	if len(got) != 1 {
		t.Fatalf("summaries = %d", len(got))
	}
	s := got[0]
	if s.Date != "2026-03-01" || s.CommandFailures != 2 || s.AlertCount != 5 {
		t.Errorf("summary = %+v", s)
	}
	if len(s.Alerts) != 2 || s.Alerts[0] != "webhook delivery failed" {
		t.Errorf("alerts = %v", s.Alerts)
	}
}

func TestCollectDailySummariesSkipsWeeklyAndMalformed(t *testing.T) {
	dir := t.TempDir()
	writeSummary(t, dir, "alerts-summary-20260301.md", "- Alert count: 1\n")
	writeSummary(t, dir, "alerts-summary-20260302-weekly.md", "- Alert count: 99\n")
	writeSummary(t, dir, "alerts-summary-notadate.md", "- Alert count: 99\n")

	got := collectDailySummaries(dir, time.Time{})
	if len(got) != 1 {
		t.Fatalf("summaries = %d, want 1", len(got))
	}
	if got[0].AlertCount != 1 {
		t.Errorf("summary = %+v", got[0])
	}
}

func TestCollectDailySummariesNewestFirstWithLimit(t *testing.T) {
	dir := t.TempDir()
	for day := 1; day <= 10; day++ {
		writeSummary(t, dir, fmt.Sprintf("alerts-summary-202603%02d.md", day),
			fmt.Sprintf("- Alert count: %d\n", day))
	}

	got := collectDailySummaries(dir, time.Time{})
	if len(got) != 7 {
		t.Fatalf("summaries = %d, want limit 7", len(got))
	}
	if got[0].Date != "2026-03-10" || got[6].Date != "2026-03-04" {
		t.Errorf("order = %s .. %s", got[0].Date, got[6].Date)
	}
}

func TestCollectDailySummariesWindow(t *testing.T) {
	dir := t.TempDir()
	writeSummary(t, dir, "alerts-summary-20260301.md", "- Alert count: 1\n")
	writeSummary(t, dir, "alerts-summary-20250101.md", "- Alert count: 1\n")

	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := collectDailySummaries(dir, since)
	if len(got) != 1 || got[0].Date != "2026-03-01" {
		t.Errorf("summaries = %+v", got)
	}
}

func TestCollectDailySummariesMalformedCounts(t *testing.T) {
	dir := t.TempDir()
	writeSummary(t, dir, "alerts-summary-20260301.md", "- Command failures: many\n- Alert count:\n")

	got := collectDailySummaries(dir, time.Time{})
	if len(got) != 1 {
		t.Fatal("summary missing")
	}
	if got[0].CommandFailures != 0 || got[0].AlertCount != 0 {
		t.Errorf("counts = %+v", got[0])
	}
}
