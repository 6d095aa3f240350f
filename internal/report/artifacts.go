package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/opspulse/opspulse/pkg/models"
)

// artifactVerifyFile is the weekly artifact verification document name.
const artifactVerifyFile = "weekly-artifact-verify.json"

// loadArtifactIntegrity reads the latest artifact verification results. A
// missing or corrupt document reports zero counts rather than failing; the
// report must still render when the weekly job has not run yet.
func loadArtifactIntegrity(logsDir string) models.ArtifactIntegrity {
	source := filepath.Join(logsDir, artifactVerifyFile)
	result := models.ArtifactIntegrity{Source: source, Files: []models.ArtifactCheck{}}

	data, err := os.ReadFile(source)
	if err != nil {
		return result
	}

	var doc struct {
		Checks []struct {
			Path   string `json:"path"`
			Status string `json:"status"`
		} `json:"checks"`
		Summary map[string]int `json:"summary"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return result
	}

	for _, check := range doc.Checks {
		path := strings.TrimSpace(check.Path)
		if path == "" {
			continue
		}
		status := "MISSING"
		if strings.EqualFold(strings.TrimSpace(check.Status), "OK") {
			status = "OK"
		}
		result.Files = append(result.Files, models.ArtifactCheck{Path: path, Status: status})
	}

	ok, missing := 0, 0
	for _, f := range result.Files {
		if f.Status == "OK" {
			ok++
		} else {
			missing++
		}
	}
	result.OKCount = countOrDerived(doc.Summary, "ok", ok)
	result.MissingCount = countOrDerived(doc.Summary, "missing", missing)
	result.TotalCount = countOrDerived(doc.Summary, "total", len(result.Files))
	return result
}

// countOrDerived prefers the document's own summary figure, falling back to
// the count derived from the check rows. Negative figures are floored at 0.
func countOrDerived(summary map[string]int, key string, derived int) int {
	value, ok := summary[key]
	if !ok {
		value = derived
	}
	return max(0, value)
}
