package firewall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"wardworks/trafficward/pkg/netstat"
)

// Config contains the controller's enforcement parameters.
type Config struct {
	// Interface is the metered interface, cross-checked by the pre-flight.
	Interface string

	// SSHPort is the administrative port kept reachable.
	SSHPort int

	// AllowedCIDRs are notification-service ranges kept reachable.
	AllowedCIDRs []string

	// PersistDir receives the saved rulesets so the policy survives a
	// reboot. Empty disables persistence.
	PersistDir string

	// SSHConfigPath is where the pre-flight reads the sshd port from.
	// Defaults to /etc/ssh/sshd_config.
	SSHConfigPath string
}

// Controller applies and removes the allow-list policy.
type Controller struct {
	config Config
	runner Runner
	log    *slog.Logger

	// ifaceExists, detectSSHPort and listeningPorts are the pre-flight
	// probes, replaceable in tests.
	ifaceExists    func(string) bool
	detectSSHPort  func(string) (int, error)
	listeningPorts func(...string) (map[int]bool, error)
}

// NewController creates a firewall controller using the given runner.
func NewController(config Config, runner Runner, logger *slog.Logger) *Controller {
	if config.SSHConfigPath == "" {
		config.SSHConfigPath = netstat.DefaultSSHConfigPath
	}
	return &Controller{
		config:        config,
		runner:        runner,
		log:           logger.With("component", "firewall"),
		ifaceExists:    netstat.NewReader().Exists,
		detectSSHPort:  netstat.DetectSSHPort,
		listeningPorts: netstat.ListeningTCPPorts,
	}
}

// Block installs (or ensures) the allow-list policy on both address
// families and persists the resulting rulesets.
//
// Idempotent: an existing chain is flushed and rebuilt in place, so
// repeated calls neither duplicate hook references nor break established
// connections (the conntrack accept stays effective throughout).
func (c *Controller) Block(ctx context.Context) error {
	c.preflight()

	sshPort := strconv.Itoa(c.config.SSHPort)
	var errs []error
	for _, f := range []family{ipv4, ipv6} {
		if err := c.installChain(ctx, f, sshPort); err != nil {
			errs = append(errs, err)
		}
		if err := c.persist(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Unblock removes the hook references, flushes and deletes the chain on
// both families, and persists the cleared rulesets. Calling it when no
// policy is installed is a no-op, not an error.
func (c *Controller) Unblock(ctx context.Context) error {
	var errs []error
	for _, f := range []family{ipv4, ipv6} {
		if !c.chainExists(ctx, f) {
			continue
		}
		// Hook references first so no packet traverses a half-torn chain.
		for _, hook := range []string{"INPUT", "OUTPUT"} {
			for c.ruleExists(ctx, f, hook, "-j", ChainName) {
				if _, err := c.runner.Run(ctx, f.tool, "-D", hook, "-j", ChainName); err != nil {
					errs = append(errs, err)
					break
				}
			}
		}
		if _, err := c.runner.Run(ctx, f.tool, "-F", ChainName); err != nil {
			errs = append(errs, err)
		}
		if _, err := c.runner.Run(ctx, f.tool, "-X", ChainName); err != nil {
			errs = append(errs, err)
		}
		if err := c.persist(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// installChain builds the chain for one family and ensures the INPUT and
// OUTPUT hooks reference it. Rule failures are logged and the remaining
// rules still applied.
func (c *Controller) installChain(ctx context.Context, f family, sshPort string) error {
	var errs []error

	if c.chainExists(ctx, f) {
		if _, err := c.runner.Run(ctx, f.tool, "-F", ChainName); err != nil {
			errs = append(errs, err)
		}
	} else {
		if _, err := c.runner.Run(ctx, f.tool, "-N", ChainName); err != nil {
			// Creation failing usually means the tool itself is broken;
			// appending rules would only multiply the noise.
			c.log.Error("chain creation failed", "tool", f.tool, "error", err)
			return err
		}
	}

	for _, rule := range chainRules(f, sshPort, c.config.AllowedCIDRs) {
		args := append([]string{"-A", ChainName}, rule...)
		if _, err := c.runner.Run(ctx, f.tool, args...); err != nil {
			c.log.Error("rule append failed, continuing", "tool", f.tool, "rule", rule, "error", err)
			errs = append(errs, err)
		}
	}

	for _, hook := range []string{"INPUT", "OUTPUT"} {
		if c.ruleExists(ctx, f, hook, "-j", ChainName) {
			continue
		}
		if _, err := c.runner.Run(ctx, f.tool, "-I", hook, "1", "-j", ChainName); err != nil {
			c.log.Error("hook reference failed", "tool", f.tool, "hook", hook, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) chainExists(ctx context.Context, f family) bool {
	_, err := c.runner.Run(ctx, f.tool, "-n", "-L", ChainName)
	return err == nil
}

func (c *Controller) ruleExists(ctx context.Context, f family, hook string, rule ...string) bool {
	args := append([]string{"-C", hook}, rule...)
	_, err := c.runner.Run(ctx, f.tool, args...)
	return err == nil
}

// persist saves the family's full ruleset so it survives a reboot.
func (c *Controller) persist(ctx context.Context, f family) error {
	if c.config.PersistDir == "" {
		return nil
	}
	out, err := c.runner.Run(ctx, f.saveTool)
	if err != nil {
		c.log.Error("ruleset save failed", "tool", f.saveTool, "error", err)
		return err
	}
	if err := os.MkdirAll(c.config.PersistDir, 0o755); err != nil {
		return fmt.Errorf("firewall: failed to create persist dir: %w", err)
	}
	path := filepath.Join(c.config.PersistDir, f.saveFile)
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("firewall: failed to write %s: %w", path, err)
	}
	return nil
}

// preflight cross-checks the configured interface and sshd port. Findings
// are safety warnings only; blocking admin access by refusing to act on a
// stale config would be worse than proceeding.
func (c *Controller) preflight() {
	if !c.ifaceExists(c.config.Interface) {
		c.log.Warn("configured interface not present, proceeding anyway",
			"interface", c.config.Interface)
	}
	detected, err := c.detectSSHPort(c.config.SSHConfigPath)
	if err != nil {
		c.log.Warn("could not detect sshd port, keeping configured port open",
			"configured_port", c.config.SSHPort, "error", err)
		return
	}
	if detected != c.config.SSHPort {
		c.log.Warn("configured SSH port differs from detected sshd port; both the configured port and the fallback stay open",
			"configured_port", c.config.SSHPort, "detected_port", detected)
	}
	ports, err := c.listeningPorts()
	if err != nil {
		c.log.Warn("could not read listening TCP ports", "error", err)
		return
	}
	if !ports[c.config.SSHPort] {
		c.log.Warn("nothing is listening on the configured SSH port; verify admin access before relying on the allow-list",
			"configured_port", c.config.SSHPort)
	}
}
