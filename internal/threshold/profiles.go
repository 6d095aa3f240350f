// Package threshold resolves per-pipeline limits and evaluates aggregates
// against them.
package threshold

import (
	"strconv"
	"strings"

	"github.com/opspulse/opspulse/pkg/models"
)

// Limits bounds one pipeline: a duration ceiling and a failure-rate ceiling.
type Limits struct {
	MaxDurationSec float64 `json:"max_duration_sec" yaml:"max_duration_sec"`
	MaxFailureRate float64 `json:"max_failure_rate" yaml:"max_failure_rate"`
}

// Table holds the limits of every pipeline for one profile.
type Table map[models.Pipeline]Limits

// FallbackProfile is used when the configured profile name is unknown.
const FallbackProfile = "prod"

// defaultProfiles is the built-in profile table. prod is tight, stg looser,
// dev permissive.
var defaultProfiles = map[string]Table{
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

// DefaultProfiles returns a copy of the built-in profile table.
func DefaultProfiles() map[string]Table {
	out := make(map[string]Table, len(defaultProfiles))
	for name, table := range defaultProfiles {
		t := make(Table, len(table))
		for p, l := range table {
			t[p] = l
		}
		out[name] = t
	}
	return out
}

// ResolveProfile picks the effective profile name. Unknown names fall back
// to prod; the caller learns which profile actually applied.
func ResolveProfile(name string, profiles map[string]Table) string {
	if profiles == nil {
		profiles = defaultProfiles
	}
	trimmed := strings.TrimSpace(name)
	if _, ok := profiles[trimmed]; ok {
		return trimmed
	}
	return FallbackProfile
}

// Resolve builds the effective limits table: profile defaults overlaid with
// any explicit overrides from cfg. Non-numeric overrides are ignored;
// numeric ones are clamped (durations to at least 1 second, failure rates
// into [0,1]). profiles may be nil to use the built-in table.
func Resolve(cfg models.Config, profiles map[string]Table) (string, Table) {
	if profiles == nil {
		profiles = defaultProfiles
	}
	name := ResolveProfile(cfg.Profile, profiles)
	base, ok := profiles[name]
	if !ok {
		base = defaultProfiles[FallbackProfile]
	}

	table := make(Table, len(base))
	for p, l := range base {
		table[p] = l
	}

	o := cfg.ThresholdOverrides
	applyDuration(table, models.PipelineDaily, o.MaxDurationDailySec)
	applyDuration(table, models.PipelineWeekly, o.MaxDurationWeeklySec)
	applyDuration(table, models.PipelineMonthly, o.MaxDurationMonthlySec)
	applyRate(table, models.PipelineDaily, o.MaxFailureRateDaily)
	applyRate(table, models.PipelineWeekly, o.MaxFailureRateWeekly)
	applyRate(table, models.PipelineMonthly, o.MaxFailureRateMonthly)
	return name, table
}

func applyDuration(table Table, p models.Pipeline, raw string) {
	value, ok := parseOverride(raw)
	if !ok {
		return
	}
	if value < 1.0 {
		value = 1.0
	}
	limits := table[p]
	limits.MaxDurationSec = value
	table[p] = limits
}

func applyRate(table Table, p models.Pipeline, raw string) {
	value, ok := parseOverride(raw)
	if !ok {
		return
	}
	value = min(1.0, max(0.0, value))
	limits := table[p]
	limits.MaxFailureRate = value
	table[p] = limits
}

func parseOverride(raw string) (float64, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
