package threshold

import (
	"testing"

	"github.com/opspulse/opspulse/pkg/models"
)

func TestDefaultProfileTable(t *testing.T) {
	want := map[string]Table{
		"prod": {
			models.PipelineDaily:   {MaxDurationSec: 900, MaxFailureRate: 0.10},
			models.PipelineWeekly:  {MaxDurationSec: 1800, MaxFailureRate: 0.20},
			models.PipelineMonthly: {MaxDurationSec: 3600, MaxFailureRate: 0.25},
		},
		"stg": {
			models.PipelineDaily:   {MaxDurationSec: 1200, MaxFailureRate: 0.20},
			models.PipelineWeekly:  {MaxDurationSec: 2400, MaxFailureRate: 0.30},
			models.PipelineMonthly: {MaxDurationSec: 4800, MaxFailureRate: 0.35},
		},
		"dev": {
			models.PipelineDaily:   {MaxDurationSec: 1800, MaxFailureRate: 0.30},
			models.PipelineWeekly:  {MaxDurationSec: 3600, MaxFailureRate: 0.40},
			models.PipelineMonthly: {MaxDurationSec: 7200, MaxFailureRate: 0.50},
		},
	}
	got := DefaultProfiles()
	for profile, table := range want {
		for pipeline, limits := range table {
			if got[profile][pipeline] != limits {
				t.Errorf("%s/%s = %+v, want %+v", profile, pipeline, got[profile][pipeline], limits)
			}
		}
	}
}

func TestResolveProfileDefaultsAndBounds(t *testing.T) {
	cfg := models.Config{
		Profile: "stg",
		ThresholdOverrides: models.ThresholdOverrides{
			MaxDurationDailySec:   "invalid",
			MaxDurationWeeklySec:  "0",
			MaxFailureRateDaily:   "1.5",
			MaxFailureRateMonthly: "-0.2",
		},
	}
	name, table := Resolve(cfg, nil)
	if name != "stg" {
		t.Errorf("profile = %q", name)
	}
	if got := table[models.PipelineDaily].MaxDurationSec; got != 1200 {
		t.Errorf("invalid override should keep profile default, got %v", got)
	}
	if got := table[models.PipelineWeekly].MaxDurationSec; got != 1.0 {
		t.Errorf("zero duration should clamp to 1, got %v", got)
	}
	if got := table[models.PipelineDaily].MaxFailureRate; got != 1.0 {
		t.Errorf("rate above 1 should clamp to 1, got %v", got)
	}
	if got := table[models.PipelineMonthly].MaxFailureRate; got != 0.0 {
		t.Errorf("negative rate should clamp to 0, got %v", got)
	}
}

func TestResolveExplicitOverrideWinsOverProfile(t *testing.T) {
	cfg := models.Config{
		Profile: "dev",
		ThresholdOverrides: models.ThresholdOverrides{
			MaxDurationDailySec: "333",
			MaxFailureRateDaily: "0.12",
		},
	}
	_, table := Resolve(cfg, nil)
	if got := table[models.PipelineDaily].MaxDurationSec; got != 333 {
		t.Errorf("daily duration = %v, want 333", got)
	}
	if got := table[models.PipelineDaily].MaxFailureRate; got != 0.12 {
		t.Errorf("daily rate = %v, want 0.12", got)
	}
	if got := table[models.PipelineWeekly].MaxDurationSec; got != 3600 {
		t.Errorf("untouched weekly duration = %v, want dev default 3600", got)
	}
	if got := table[models.PipelineMonthly].MaxFailureRate; got != 0.50 {
		t.Errorf("untouched monthly rate = %v, want dev default 0.50", got)
	}
}

func TestResolveUnknownProfileFallsBackToProd(t *testing.T) {
	name, table := Resolve(models.Config{Profile: "qa"}, nil)
	if name != "prod" {
		t.Errorf("resolved profile = %q, want prod", name)
	}
	if got := table[models.PipelineDaily].MaxDurationSec; got != 900 {
		t.Errorf("daily duration = %v, want 900", got)
	}
	if got := table[models.PipelineWeekly].MaxDurationSec; got != 1800 {
		t.Errorf("weekly duration = %v, want 1800", got)
	}
	if got := table[models.PipelineMonthly].MaxFailureRate; got != 0.25 {
		t.Errorf("monthly rate = %v, want 0.25", got)
	}
}

func TestResolveCustomProfileTable(t *testing.T) {
	custom := map[string]Table{
		"lab": {
			models.PipelineDaily:   {MaxDurationSec: 42, MaxFailureRate: 0.9},
			models.PipelineWeekly:  {MaxDurationSec: 42, MaxFailureRate: 0.9},
			models.PipelineMonthly: {MaxDurationSec: 42, MaxFailureRate: 0.9},
		},
	}
	name, table := Resolve(models.Config{Profile: "lab"}, custom)
	if name != "lab" {
		t.Errorf("profile = %q", name)
	}
	if got := table[models.PipelineDaily].MaxDurationSec; got != 42 {
		t.Errorf("custom daily duration = %v", got)
	}

	// Unknown name against a custom table still lands on prod defaults.
	name, table = Resolve(models.Config{Profile: "nope"}, custom)
	if name != "prod" {
		t.Errorf("fallback profile = %q", name)
	}
	if got := table[models.PipelineDaily].MaxDurationSec; got != 900 {
		t.Errorf("fallback daily duration = %v", got)
	}
}
