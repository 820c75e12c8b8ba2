package config

import "time"

// Default values applied by ApplyDefaults.
const (
	DefaultSSHPort          = 22
	DefaultMode             = "egress"
	DefaultWarningThreshold = 80
	DefaultResetDay         = 1
	DefaultReportHour       = 9
	DefaultStateDir         = "/var/lib/trafficward"
	DefaultNotifyTimeout    = 10 * time.Second
	DefaultCheckSchedule    = "*/5 * * * *"
)

// ApplyDefaults fills in zero-valued fields with their defaults and clamps
// the warning threshold into its 1-99 range. It never overrides a value the
// user set explicitly, except for the clamp.
func ApplyDefaults(cfg *Config) {
	if cfg.SSHPort == 0 {
		cfg.SSHPort = DefaultSSHPort
	}
	if cfg.Mode == "" {
		cfg.Mode = DefaultMode
	}
	if cfg.WarningThreshold == 0 {
		cfg.WarningThreshold = DefaultWarningThreshold
	}
	clampWarningThreshold(cfg)
	if cfg.ResetDay == 0 {
		cfg.ResetDay = DefaultResetDay
	}
	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDir
	}
	if cfg.Report.Hour == nil {
		h := DefaultReportHour
		cfg.Report.Hour = &h
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = DefaultNotifyTimeout
	}
	if cfg.Daemon.CheckSchedule == "" {
		cfg.Daemon.CheckSchedule = DefaultCheckSchedule
	}
}

// clampWarningThreshold keeps the warning threshold inside its 1-99 range.
// Called again after environment overrides, which would otherwise skip it.
func clampWarningThreshold(cfg *Config) {
	if cfg.WarningThreshold < 1 {
		cfg.WarningThreshold = 1
	}
	if cfg.WarningThreshold > 99 {
		cfg.WarningThreshold = 99
	}
}
