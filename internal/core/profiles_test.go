package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opspulse/opspulse/pkg/models"
)

func writeProfileFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadProfileFileValid(t *testing.T) {
	path := writeProfileFile(t, `lab:
  daily:
    max_duration_sec: 100
    max_failure_rate: 0.3
  weekly:
    max_duration_sec: 200
    max_failure_rate: 0.4
  monthly:
    max_duration_sec: 300
    max_failure_rate: 0.5
`)
	profiles, err := LoadProfileFile(path)
	if err != nil {
		t.Fatalf("LoadProfileFile: %v", err)
	}
	lab, ok := profiles["lab"]
	if !ok {
		t.Fatalf("profiles = %v", profiles)
	}
	if lab[models.PipelineDaily].MaxDurationSec != 100 || lab[models.PipelineMonthly].MaxFailureRate != 0.5 {
		t.Errorf("lab table = %+v", lab)
	}
}

func TestLoadProfileFileEmptyPathMeansBuiltins(t *testing.T) {
	profiles, err := LoadProfileFile("")
	if err != nil || profiles != nil {
		t.Errorf("got %v, %v", profiles, err)
	}
}

func TestLoadProfileFileErrors(t *testing.T) {
	if _, err := LoadProfileFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file should be an error")
	}

	if _, err := LoadProfileFile(writeProfileFile(t, "{{bad yaml")); err == nil {
		t.Error("malformed yaml should be an error")
	}

	missing := `lab:
  daily:
    max_duration_sec: 100
    max_failure_rate: 0.3
`
	if _, err := LoadProfileFile(writeProfileFile(t, missing)); err == nil {
		t.Error("profile missing a pipeline should be an error")
	}

	badRate := `lab:
  daily: {max_duration_sec: 100, max_failure_rate: 1.5}
  weekly: {max_duration_sec: 100, max_failure_rate: 0.5}
  monthly: {max_duration_sec: 100, max_failure_rate: 0.5}
`
	if _, err := LoadProfileFile(writeProfileFile(t, badRate)); err == nil {
		t.Error("out-of-range failure rate should be an error")
	}

	badDuration := `lab:
  daily: {max_duration_sec: 0, max_failure_rate: 0.5}
  weekly: {max_duration_sec: 100, max_failure_rate: 0.5}
  monthly: {max_duration_sec: 100, max_failure_rate: 0.5}
`
	if _, err := LoadProfileFile(writeProfileFile(t, badDuration)); err == nil {
		t.Error("zero duration should be an error")
	}
}
