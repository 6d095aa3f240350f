package report

import (
	"os"
	"regexp"
	"strings"

	"github.com/opspulse/opspulse/pkg/models"
)

// DefaultRunbookPath is where pipeline runbook headings are looked up when
// the configuration does not name another document.
const DefaultRunbookPath = "docs/runbook.md"

var (
	runbookHeadingRe = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*$`)
	anchorStripRe    = regexp.MustCompile(`[^\p{L}\p{N}_\- ]+`)
	anchorDashRe     = regexp.MustCompile(`-+`)
	anchorSpaceRe    = regexp.MustCompile(`\s+`)
)

// githubAnchor converts a markdown heading into the anchor slug GitHub
// generates for it.
func githubAnchor(heading string) string {
	slug := anchorSpaceRe.ReplaceAllString(strings.TrimSpace(strings.ToLower(heading)), " ")
	slug = anchorStripRe.ReplaceAllString(slug, "")
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = anchorDashRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// runbookHeadings maps each pipeline to the first runbook heading that
// mentions it. English and Japanese heading forms are recognized. A missing
// or unreadable runbook yields an empty map.
func runbookHeadings(runbookPath string) map[models.Pipeline]string {
	headings := map[models.Pipeline]string{}
	data, err := os.ReadFile(runbookPath)
	if err != nil {
		return headings
	}

	markers := map[models.Pipeline][2]string{
		models.PipelineDaily:   {"daily pipeline", "日次パイプライン"},
		models.PipelineWeekly:  {"weekly pipeline", "週次パイプライン"},
		models.PipelineMonthly: {"monthly pipeline", "月次パイプライン"},
	}
	for _, line := range strings.Split(string(data), "\n") {
		match := runbookHeadingRe.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		heading := strings.TrimSpace(match[1])
		lowered := strings.ToLower(heading)
		for pipeline, m := range markers {
			if _, seen := headings[pipeline]; seen {
				continue
			}
			if strings.Contains(lowered, m[0]) || strings.Contains(heading, m[1]) {
				headings[pipeline] = heading
			}
		}
	}
	return headings
}

// runbookReference builds the cross-reference and bare anchor for one
// pipeline. Without a matching heading the reference is the plain runbook
// path and the anchor is empty.
func runbookReference(runbookPath string, headings map[models.Pipeline]string, pipeline models.Pipeline) (ref, anchor string) {
	heading, ok := headings[pipeline]
	if !ok {
		return runbookPath, ""
	}
	slug := githubAnchor(heading)
	if slug == "" {
		return runbookPath, ""
	}
	return runbookPath + "#" + slug, "#" + slug
}
