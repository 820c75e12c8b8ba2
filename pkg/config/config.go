package config

import "time"

// DefaultLimitBytes is the limit applied when neither limit_mb nor limit_gb
// is set to a usable value. Deliberately generous: a misconfigured limit must
// not lock an administrator out of a freshly installed host.
const DefaultLimitBytes = 200 * 1024 * 1024 * 1024 // 200 GiB

// Config is the complete trafficward configuration.
type Config struct {
	// Interface is the network interface whose counters are metered.
	Interface string `yaml:"interface"`

	// SSHPort is the administrative SSH port kept reachable while blocked.
	SSHPort int `yaml:"ssh_port"`

	// Mode selects which direction counts against the limit:
	// "egress", "ingress" or "both".
	Mode string `yaml:"mode"`

	// LimitMB is the monthly traffic limit in MiB. Takes precedence over
	// LimitGB when both are set and valid.
	LimitMB int64 `yaml:"limit_mb"`

	// LimitGB is the monthly traffic limit in GiB.
	LimitGB int64 `yaml:"limit_gb"`

	// WarningThreshold is the usage percentage at which decile warnings
	// begin. Clamped to 1-99.
	WarningThreshold int `yaml:"warning_threshold"`

	// ResetDay is the day of month (1-28) on which the billing cycle is
	// reset by the scheduled reset job.
	ResetDay int `yaml:"reset_day"`

	// StateDir holds the accounting record, lock file and history database.
	StateDir string `yaml:"state_dir"`

	// AllowUnprivileged disables the root requirement on mutating commands.
	// Only meant for tests; not documented in the sample configuration.
	AllowUnprivileged bool `yaml:"allow_unprivileged"`

	Report  ReportConfig  `yaml:"report"`
	Logging LoggingConfig `yaml:"logging"`
	Notify  NotifyConfig  `yaml:"notify"`
	Metrics MetricsConfig `yaml:"metrics"`
	Daemon  DaemonConfig  `yaml:"daemon"`
}

// ReportConfig controls the daily usage report.
type ReportConfig struct {
	// Enabled turns the daily report on.
	Enabled bool `yaml:"enabled"`

	// Hour is the local hour of day (0-23) at which the report is sent.
	// A pointer so that an explicit 0 (midnight) is distinguishable from
	// an absent key; ApplyDefaults fills the nil case.
	Hour *int `yaml:"hour"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text", "console").
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`
}

// NotifyConfig controls the notification dispatcher.
type NotifyConfig struct {
	// WebhookURL receives alert and report payloads as JSON POSTs.
	// Empty disables delivery; notifications are logged instead.
	WebhookURL string `yaml:"webhook_url"`

	// Timeout bounds a single delivery attempt.
	Timeout time.Duration `yaml:"timeout"`

	// AllowedCIDRs are the notification-service address ranges kept
	// reachable by the firewall policy while traffic is blocked.
	AllowedCIDRs []string `yaml:"allowed_cidrs"`
}

// MetricsConfig controls the Prometheus endpoint of the run daemon.
type MetricsConfig struct {
	// Listen is the address for the /metrics endpoint. Empty disables it.
	Listen string `yaml:"listen"`
}

// DaemonConfig controls the built-in scheduler of the run daemon.
type DaemonConfig struct {
	// CheckSchedule is the cron expression for periodic usage checks.
	CheckSchedule string `yaml:"check_schedule"`
}

// LimitBytes resolves the configured limit to bytes.
//
// limit_mb takes precedence over limit_gb when both are set and valid. When
// neither is usable the fixed default applies and defaulted is true so the
// caller can log a warning.
func (c *Config) LimitBytes() (limit int64, defaulted bool) {
	if c.LimitMB > 0 {
		return c.LimitMB * 1024 * 1024, false
	}
	if c.LimitGB > 0 {
		return c.LimitGB * 1024 * 1024 * 1024, false
	}
	return DefaultLimitBytes, true
}
