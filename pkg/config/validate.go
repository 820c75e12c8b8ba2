package config

import (
	"fmt"
	"net"
)

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors. It must be called after
// ApplyDefaults; zero values the defaults would have filled are reported as
// errors here.
func Validate(cfg *Config) error {
	if cfg.Interface == "" {
		return &ValidationError{Field: "interface", Message: "network interface name is required"}
	}
	if cfg.SSHPort < 1 || cfg.SSHPort > 65535 {
		return &ValidationError{Field: "ssh_port", Message: fmt.Sprintf("port %d out of range 1-65535", cfg.SSHPort)}
	}
	switch cfg.Mode {
	case "egress", "ingress", "both":
	default:
		return &ValidationError{Field: "mode", Message: fmt.Sprintf("%q is not one of egress, ingress, both", cfg.Mode)}
	}
	if cfg.LimitMB < 0 {
		return &ValidationError{Field: "limit_mb", Message: "must not be negative"}
	}
	if cfg.LimitGB < 0 {
		return &ValidationError{Field: "limit_gb", Message: "must not be negative"}
	}
	if cfg.WarningThreshold < 1 || cfg.WarningThreshold > 99 {
		return &ValidationError{Field: "warning_threshold", Message: fmt.Sprintf("%d out of range 1-99", cfg.WarningThreshold)}
	}
	if cfg.ResetDay < 1 || cfg.ResetDay > 28 {
		return &ValidationError{Field: "reset_day", Message: fmt.Sprintf("%d out of range 1-28 (days every month has)", cfg.ResetDay)}
	}
	if cfg.Report.Hour != nil && (*cfg.Report.Hour < 0 || *cfg.Report.Hour > 23) {
		return &ValidationError{Field: "report.hour", Message: fmt.Sprintf("%d out of range 0-23", *cfg.Report.Hour)}
	}
	if cfg.StateDir == "" {
		return &ValidationError{Field: "state_dir", Message: "state directory is required"}
	}
	for _, cidr := range cfg.Notify.AllowedCIDRs {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return &ValidationError{Field: "notify.allowed_cidrs", Message: fmt.Sprintf("%q is not a valid CIDR", cidr)}
		}
	}
	if cfg.Notify.Timeout < 0 {
		return &ValidationError{Field: "notify.timeout", Message: "must not be negative"}
	}
	return nil
}
