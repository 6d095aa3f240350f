package report

import (
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/opspulse/opspulse/internal/core"
	"github.com/opspulse/opspulse/pkg/models"
)

var (
	runLogNameRe = regexp.MustCompile(`^(daily|weekly|monthly)-run-(\d{8})-(\d{6})\.log$`)
	failedCmdRe  = regexp.MustCompile(`(?i)^\[([^\]]+)\]\s+ERROR\s+(daily|weekly|monthly)\s+pipeline:\s+command failed:\s+(.+)$`)
)

const retryGuideLimit = 12

// collectRetryGuides mines pipeline run logs for failed commands and turns
// them into retry guides: newest first, one guide per distinct
// (pipeline, command) pair, capped at retryGuideLimit. The suggested retry
// is the failed command verbatim; commands are deterministic, so rerunning
// the identical invocation is the recovery step.
func collectRetryGuides(logsDir, runbookPath string, since time.Time) []models.RetryGuide {
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		return []models.RetryGuide{}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	// Newest run logs first by file name.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	type row struct {
		eventTime time.Time
		pipeline  models.Pipeline
		command   string
	}
	var rows []row
	for _, name := range names {
		match := runLogNameRe.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		fileTime, err := time.Parse("20060102150405", match[2]+match[3])
		if err != nil {
			continue
		}
		fileTime = fileTime.UTC()
		if fileTime.Before(since) {
			continue
		}

		data, err := os.ReadFile(logsDir + "/" + name)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			parsed := failedCmdRe.FindStringSubmatch(strings.TrimSpace(line))
			if parsed == nil {
				continue
			}
			command := strings.TrimSpace(parsed[3])
			if command == "" {
				continue
			}
			pipeline := models.Pipeline(strings.ToLower(strings.TrimSpace(parsed[2])))

			eventTime := fileTime
			if ts, ok := core.ParseISOTime(parsed[1]); ok {
				eventTime = ts.UTC()
			}
			if eventTime.Before(since) {
				continue
			}
			rows = append(rows, row{eventTime: eventTime, pipeline: pipeline, command: command})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].eventTime.After(rows[j].eventTime) })

	headings := runbookHeadings(runbookPath)
	seen := map[string]bool{}
	guides := []models.RetryGuide{}
	for _, r := range rows {
		key := string(r.pipeline) + "\x00" + r.command
		if seen[key] {
			continue
		}
		seen[key] = true

		ref, anchor := runbookReference(runbookPath, headings, r.pipeline)
		guides = append(guides, models.RetryGuide{
			Pipeline:       r.pipeline,
			FailedCommand:  r.command,
			SuggestedRetry: r.command,
			RunbookRef:     ref,
			RunbookAnchor:  anchor,
		})
		if len(guides) >= retryGuideLimit {
			break
		}
	}
	return guides
}
