package models

// ThresholdOverrides carries the six optional per-pipeline threshold
// overrides as raw strings. Values stay unparsed so the resolver can apply
// fallback-on-invalid semantics instead of failing at load time.
type ThresholdOverrides struct {
	MaxDurationDailySec   string `yaml:"max_duration_daily_sec,omitempty" mapstructure:"max_duration_daily_sec"`
	MaxDurationWeeklySec  string `yaml:"max_duration_weekly_sec,omitempty" mapstructure:"max_duration_weekly_sec"`
	MaxDurationMonthlySec string `yaml:"max_duration_monthly_sec,omitempty" mapstructure:"max_duration_monthly_sec"`
	MaxFailureRateDaily   string `yaml:"max_failure_rate_daily,omitempty" mapstructure:"max_failure_rate_daily"`
	MaxFailureRateWeekly  string `yaml:"max_failure_rate_weekly,omitempty" mapstructure:"max_failure_rate_weekly"`
	MaxFailureRateMonthly string `yaml:"max_failure_rate_monthly,omitempty" mapstructure:"max_failure_rate_monthly"`
}

// Config holds runtime settings read from .opspulse.yaml and the environment
// via Viper. One explicit struct is passed into every component; nothing
// reads configuration ambiently.
type Config struct {
	LogsDir     string `yaml:"logs_dir" mapstructure:"logs_dir"`
	RunbookPath string `yaml:"runbook_path" mapstructure:"runbook_path"`

	Profile            string             `yaml:"profile" mapstructure:"profile"`
	ThresholdOverrides ThresholdOverrides `yaml:"threshold_overrides,omitempty" mapstructure:"threshold_overrides"`
	ProfileFile        string             `yaml:"profile_file,omitempty" mapstructure:"profile_file"`

	ContinuityWarningLimit  int `yaml:"continuity_warning_limit" mapstructure:"continuity_warning_limit"`
	ContinuityCriticalLimit int `yaml:"continuity_critical_limit" mapstructure:"continuity_critical_limit"`

	DedupStatePath   string  `yaml:"dedup_state_path" mapstructure:"dedup_state_path"`
	DedupCooldownSec float64 `yaml:"dedup_cooldown_sec" mapstructure:"dedup_cooldown_sec"`
	DedupTTLSec      float64 `yaml:"dedup_ttl_sec" mapstructure:"dedup_ttl_sec"`

	ReportDays int `yaml:"report_days" mapstructure:"report_days"`

	// NotifyWebhookURL enables webhook notifications for deduplicated
	// alerts when non-empty.
	NotifyWebhookURL string `yaml:"notify_webhook_url,omitempty" mapstructure:"notify_webhook_url"`
}
