package report

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/opspulse/opspulse/pkg/models"
)

const dailySummaryLimit = 7

// collectDailySummaries mines alerts-summary-YYYYMMDD.md documents written
// by the daily rollup job, newest first, capped at dailySummaryLimit. The
// weekly rollups share the prefix and are skipped by suffix.
func collectDailySummaries(logsDir string, since time.Time) []models.DailyAlertSummary {
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		return []models.DailyAlertSummary{}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "alerts-summary-") || !strings.HasSuffix(name, ".md") {
			continue
		}
		if strings.HasSuffix(name, "-weekly.md") {
			continue
		}
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	summaries := []models.DailyAlertSummary{}
	for _, name := range names {
		dateText := strings.TrimSuffix(strings.TrimPrefix(name, "alerts-summary-"), ".md")
		date, err := time.Parse("20060102", dateText)
		if err != nil {
			continue
		}
		if date.Before(since) {
			continue
		}

		path := filepath.Join(logsDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		summary := models.DailyAlertSummary{
			Date:   date.Format("2006-01-02"),
			Path:   path,
			Alerts: []string{},
		}
		inAlerts := false
		for _, line := range strings.Split(string(data), "\n") {
			normalized := strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(normalized, "- Command failures:"):
				summary.CommandFailures = parseCount(normalized)
			case strings.HasPrefix(normalized, "- Alert count:"):
				summary.AlertCount = parseCount(normalized)
			case normalized == "## Alerts":
				inAlerts = true
			case inAlerts && strings.HasPrefix(normalized, "- "):
				summary.Alerts = append(summary.Alerts, strings.TrimSpace(normalized[2:]))
			}
		}

		summaries = append(summaries, summary)
		if len(summaries) >= dailySummaryLimit {
			break
		}
	}
	return summaries
}

// parseCount extracts the integer after the first colon; malformed rollup
// lines count as zero.
func parseCount(line string) int {
	_, after, found := strings.Cut(line, ":")
	if !found {
		return 0
	}
	value, err := strconv.Atoi(strings.TrimSpace(after))
	if err != nil {
		return 0
	}
	return value
}
