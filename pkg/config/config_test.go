package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_MinimalConfig(t *testing.T) {
	path := writeConfigFile(t, "interface: eth0\nlimit_gb: 500\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Interface != "eth0" {
		t.Errorf("Interface = %q, want eth0", cfg.Interface)
	}
	if cfg.SSHPort != DefaultSSHPort {
		t.Errorf("SSHPort = %d, want default %d", cfg.SSHPort, DefaultSSHPort)
	}
	if cfg.Mode != "egress" {
		t.Errorf("Mode = %q, want egress default", cfg.Mode)
	}
	if cfg.WarningThreshold != 80 {
		t.Errorf("WarningThreshold = %d, want 80", cfg.WarningThreshold)
	}
	if cfg.Notify.Timeout != DefaultNotifyTimeout {
		t.Errorf("Notify.Timeout = %v, want %v", cfg.Notify.Timeout, DefaultNotifyTimeout)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "interface: [broken\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfigFile(t, "interface: eth0\nlimit_gb: 100\n")

	t.Setenv("TRAFFICWARD_INTERFACE", "ens3")
	t.Setenv("TRAFFICWARD_LIMIT_GB", "250")
	t.Setenv("TRAFFICWARD_MODE", "both")
	t.Setenv("TRAFFICWARD_NOTIFY_TIMEOUT", "5s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Interface != "ens3" {
		t.Errorf("Interface = %q, want env override ens3", cfg.Interface)
	}
	if cfg.LimitGB != 250 {
		t.Errorf("LimitGB = %d, want 250", cfg.LimitGB)
	}
	if cfg.Mode != "both" {
		t.Errorf("Mode = %q, want both", cfg.Mode)
	}
	if cfg.Notify.Timeout != 5*time.Second {
		t.Errorf("Notify.Timeout = %v, want 5s", cfg.Notify.Timeout)
	}
}

func TestLimitBytes(t *testing.T) {
	tests := []struct {
		name          string
		mb, gb        int64
		want          int64
		wantDefaulted bool
	}{
		{"mb only", 1024, 0, 1024 * 1024 * 1024, false},
		{"gb only", 0, 2, 2 * 1024 * 1024 * 1024, false},
		{"mb wins over gb", 512, 100, 512 * 1024 * 1024, false},
		{"neither set", 0, 0, DefaultLimitBytes, true},
		{"negative values fall back", -5, -1, DefaultLimitBytes, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LimitMB: tt.mb, LimitGB: tt.gb}
			got, defaulted := cfg.LimitBytes()
			if got != tt.want {
				t.Errorf("LimitBytes() = %d, want %d", got, tt.want)
			}
			if defaulted != tt.wantDefaulted {
				t.Errorf("defaulted = %v, want %v", defaulted, tt.wantDefaulted)
			}
		})
	}
}

func TestApplyDefaults_ClampsWarningThreshold(t *testing.T) {
	tests := []struct {
		name  string
		input int
		want  int
	}{
		{"zero becomes default", 0, 80},
		{"below range clamps to 1", -10, 1},
		{"above range clamps to 99", 150, 99},
		{"in range untouched", 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{WarningThreshold: tt.input}
			ApplyDefaults(cfg)
			if cfg.WarningThreshold != tt.want {
				t.Errorf("WarningThreshold = %d, want %d", cfg.WarningThreshold, tt.want)
			}
		})
	}
}

func TestLoad_ReportHourMidnight(t *testing.T) {
	path := writeConfigFile(t, "interface: eth0\nlimit_gb: 100\nreport:\n  enabled: true\n  hour: 0\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := *cfg.Report.Hour; got != 0 {
		t.Errorf("Report.Hour = %d, want explicit 0 to survive defaulting", got)
	}
}

func TestLoad_ReportHourDefaulted(t *testing.T) {
	path := writeConfigFile(t, "interface: eth0\nlimit_gb: 100\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := *cfg.Report.Hour; got != DefaultReportHour {
		t.Errorf("Report.Hour = %d, want default %d when absent", got, DefaultReportHour)
	}
}

func TestLoad_EnvWarningThresholdClamped(t *testing.T) {
	path := writeConfigFile(t, "interface: eth0\nlimit_gb: 100\n")
	t.Setenv("TRAFFICWARD_WARNING_THRESHOLD", "150")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.WarningThreshold != 99 {
		t.Errorf("WarningThreshold = %d, want env value clamped to 99", cfg.WarningThreshold)
	}
}
