package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file at the specified path, applies
// defaults and environment variable overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	clampWarningThreshold(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies TRAFFICWARD_* environment variable overrides.
// Unparseable values are ignored; the file value stays in effect.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("TRAFFICWARD_INTERFACE"); val != "" {
		cfg.Interface = val
	}
	if val := os.Getenv("TRAFFICWARD_SSH_PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.SSHPort = i
		}
	}
	if val := os.Getenv("TRAFFICWARD_MODE"); val != "" {
		cfg.Mode = val
	}
	if val := os.Getenv("TRAFFICWARD_LIMIT_MB"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.LimitMB = i
		}
	}
	if val := os.Getenv("TRAFFICWARD_LIMIT_GB"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.LimitGB = i
		}
	}
	if val := os.Getenv("TRAFFICWARD_WARNING_THRESHOLD"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.WarningThreshold = i
		}
	}
	if val := os.Getenv("TRAFFICWARD_RESET_DAY"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.ResetDay = i
		}
	}
	if val := os.Getenv("TRAFFICWARD_STATE_DIR"); val != "" {
		cfg.StateDir = val
	}
	if val := os.Getenv("TRAFFICWARD_REPORT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Report.Enabled = b
		}
	}
	if val := os.Getenv("TRAFFICWARD_REPORT_HOUR"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Report.Hour = &i
		}
	}
	if val := os.Getenv("TRAFFICWARD_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("TRAFFICWARD_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
	if val := os.Getenv("TRAFFICWARD_NOTIFY_WEBHOOK_URL"); val != "" {
		cfg.Notify.WebhookURL = val
	}
	if val := os.Getenv("TRAFFICWARD_NOTIFY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Notify.Timeout = d
		}
	}
	if val := os.Getenv("TRAFFICWARD_METRICS_LISTEN"); val != "" {
		cfg.Metrics.Listen = val
	}
	if val := os.Getenv("TRAFFICWARD_CHECK_SCHEDULE"); val != "" {
		cfg.Daemon.CheckSchedule = val
	}
}
