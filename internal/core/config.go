// Package core contains configuration loading and shared parsing helpers.
package core

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/opspulse/opspulse/pkg/models"
)

// ConfigurationManager loads and normalizes the runtime configuration from
// the .opspulse.yaml file and the environment.
type ConfigurationManager interface {
	Load() (*models.Config, error)
}

// viperConfigManager implements ConfigurationManager using Viper for the
// YAML config file and the environment bindings.
type viperConfigManager struct {
	// basePath is the directory where .opspulse.yaml resides.
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// configuration relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// defaultConfig returns a Config populated with the shipped defaults.
func defaultConfig() *models.Config {
	return &models.Config{
		LogsDir:                 "logs",
		RunbookPath:             "docs/runbook.md",
		Profile:                 "prod",
		ContinuityWarningLimit:  3,
		ContinuityCriticalLimit: 5,
		DedupStatePath:          filepath.Join("logs", "alert-dedup-state.json"),
		DedupCooldownSec:        600,
		DedupTTLSec:             7 * 24 * 3600,
		ReportDays:              7,
	}
}

// Load reads .opspulse.yaml and overlays the environment. A missing config
// file is fine; invalid numeric values fall back to their defaults rather
// than failing, so a typo in one knob cannot take monitoring down.
func (cm *viperConfigManager) Load() (*models.Config, error) {
	cfg := defaultConfig()

	v := viper.New()
	v.SetConfigName(".opspulse")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("logs_dir", cfg.LogsDir)
	v.SetDefault("runbook_path", cfg.RunbookPath)
	v.SetDefault("profile", cfg.Profile)
	v.SetDefault("continuity_warning_limit", cfg.ContinuityWarningLimit)
	v.SetDefault("continuity_critical_limit", cfg.ContinuityCriticalLimit)
	v.SetDefault("dedup_state_path", cfg.DedupStatePath)
	v.SetDefault("dedup_cooldown_sec", cfg.DedupCooldownSec)
	v.SetDefault("dedup_ttl_sec", cfg.DedupTTLSec)
	v.SetDefault("report_days", cfg.ReportDays)
	v.SetDefault("notify_webhook_url", "")
	// Override keys need explicit defaults so env-only values survive
	// Unmarshal.
	for _, key := range []string{
		"threshold_overrides.max_duration_daily_sec",
		"threshold_overrides.max_duration_weekly_sec",
		"threshold_overrides.max_duration_monthly_sec",
		"threshold_overrides.max_failure_rate_daily",
		"threshold_overrides.max_failure_rate_weekly",
		"threshold_overrides.max_failure_rate_monthly",
	} {
		v.SetDefault(key, "")
	}

	// Environment names match what the pipeline jobs already export.
	bindings := map[string]string{
		"logs_dir":                  "OPSPULSE_LOGS_DIR",
		"profile":                   "METRIC_THRESHOLD_PROFILE",
		"threshold_overrides.max_duration_daily_sec":   "METRIC_MAX_DURATION_DAILY_SEC",
		"threshold_overrides.max_duration_weekly_sec":  "METRIC_MAX_DURATION_WEEKLY_SEC",
		"threshold_overrides.max_duration_monthly_sec": "METRIC_MAX_DURATION_MONTHLY_SEC",
		"threshold_overrides.max_failure_rate_daily":   "METRIC_MAX_FAILURE_RATE_DAILY",
		"threshold_overrides.max_failure_rate_weekly":  "METRIC_MAX_FAILURE_RATE_WEEKLY",
		"threshold_overrides.max_failure_rate_monthly": "METRIC_MAX_FAILURE_RATE_MONTHLY",
		"continuity_warning_limit":  "CONTINUOUS_ALERT_WARNING_LIMIT",
		"continuity_critical_limit": "CONTINUOUS_ALERT_CRITICAL_LIMIT",
		"dedup_cooldown_sec":        "ALERT_DEDUP_COOLDOWN_SEC",
		"dedup_ttl_sec":             "ALERT_DEDUP_TTL_SEC",
		"notify_webhook_url":        "ALERT_WEBHOOK_URL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading .opspulse.yaml: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	normalizeConfig(cfg)
	return cfg, nil
}

// normalizeConfig clamps numeric knobs into their valid ranges. Threshold
// override strings are left untouched; the threshold resolver owns their
// fallback semantics.
func normalizeConfig(cfg *models.Config) {
	def := defaultConfig()
	if cfg.LogsDir == "" {
		cfg.LogsDir = def.LogsDir
	}
	if cfg.RunbookPath == "" {
		cfg.RunbookPath = def.RunbookPath
	}
	if cfg.DedupStatePath == "" {
		cfg.DedupStatePath = filepath.Join(cfg.LogsDir, "alert-dedup-state.json")
	}
	if cfg.DedupCooldownSec < 0 {
		cfg.DedupCooldownSec = 0
	}
	if cfg.DedupTTLSec < 0 {
		cfg.DedupTTLSec = 0
	}
	if cfg.ContinuityWarningLimit <= 0 {
		cfg.ContinuityWarningLimit = def.ContinuityWarningLimit
	}
	if cfg.ContinuityCriticalLimit <= 0 {
		cfg.ContinuityCriticalLimit = def.ContinuityCriticalLimit
	}
	if cfg.ContinuityCriticalLimit < cfg.ContinuityWarningLimit {
		cfg.ContinuityCriticalLimit = cfg.ContinuityWarningLimit
	}
	if cfg.ReportDays < 0 {
		cfg.ReportDays = 0
	}
}
