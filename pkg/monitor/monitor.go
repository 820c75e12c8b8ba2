package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"wardworks/trafficward/pkg/accounting"
	"wardworks/trafficward/pkg/config"
	"wardworks/trafficward/pkg/firewall"
	"wardworks/trafficward/pkg/history"
	"wardworks/trafficward/pkg/metrics"
	"wardworks/trafficward/pkg/netstat"
	"wardworks/trafficward/pkg/notify"
	"wardworks/trafficward/pkg/threshold"
)

// resetLockWait bounds how long a reset waits for a concurrent check to
// release the store lock.
const resetLockWait = 30 * time.Second

// Config assembles a Monitor. Only App and Logger are required; the
// remaining fields default to the production implementations and exist
// so tests can substitute fakes.
type Config struct {
	// App is the loaded application configuration.
	App *config.Config

	// Logger receives structured log output.
	Logger *slog.Logger

	// Reader samples interface counters. Default: /sys/class/net reader.
	Reader *netstat.Reader

	// Runner executes firewall tool invocations. Default: os/exec.
	Runner firewall.Runner

	// Notifier delivers alert and report text. Default: webhook or log
	// fallback per App.Notify.
	Notifier threshold.Notifier

	// History receives per-check log entries. Nil disables the log.
	History *history.Log

	// Metrics receives per-check measurements. Nil disables them.
	Metrics *metrics.Metrics

	// Now supplies the current time. Default: time.Now.
	Now func() time.Time
}

// Monitor coordinates one host's traffic budget.
type Monitor struct {
	cfg      *config.Config
	mode     accounting.Mode
	limit    uint64
	reader   *netstat.Reader
	store    *accounting.Store
	engine   *accounting.Engine
	eval     *threshold.Evaluator
	fw       *firewall.Controller
	notifier threshold.Notifier
	hist     *history.Log
	metrics  *metrics.Metrics
	now      func() time.Time
	log      *slog.Logger
}

// CheckResult summarizes one RunCheck invocation.
type CheckResult struct {
	// Skipped is true when another invocation held the store lock and
	// this check did nothing.
	Skipped bool

	// Usage is the reconciled cycle usage.
	Usage accounting.Usage

	// Outcome is the evaluator's decision for this pass.
	Outcome threshold.Outcome
}

// New builds a Monitor from configuration, applying production defaults
// for every dependency left nil.
func New(cfg Config) (*Monitor, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("monitor: app configuration is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("monitor: logger is required")
	}
	if cfg.Reader == nil {
		cfg.Reader = netstat.NewReader()
	}
	if cfg.Runner == nil {
		cfg.Runner = firewall.ExecRunner{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.New(notify.Config{
			WebhookURL: cfg.App.Notify.WebhookURL,
			Timeout:    cfg.App.Notify.Timeout,
		}, cfg.Logger)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	mode, err := accounting.ParseMode(cfg.App.Mode)
	if err != nil {
		return nil, err
	}

	limit, defaulted := cfg.App.LimitBytes()
	if defaulted {
		cfg.Logger.Warn("no usable traffic limit configured, applying default",
			"limit_bytes", limit)
	}

	store, err := accounting.NewStore(cfg.App.StateDir, cfg.Logger)
	if err != nil {
		return nil, err
	}

	engine := accounting.NewEngine(mode, store, cfg.Logger)

	fw := firewall.NewController(firewall.Config{
		Interface:    cfg.App.Interface,
		SSHPort:      cfg.App.SSHPort,
		AllowedCIDRs: cfg.App.Notify.AllowedCIDRs,
		PersistDir:   cfg.App.StateDir,
	}, cfg.Runner, cfg.Logger)

	reportHour := config.DefaultReportHour
	if cfg.App.Report.Hour != nil {
		reportHour = *cfg.App.Report.Hour
	}
	eval := threshold.NewEvaluator(threshold.Config{
		LimitBytes:       uint64(limit),
		WarningThreshold: cfg.App.WarningThreshold,
		ReportEnabled:    cfg.App.Report.Enabled,
		ReportHour:       reportHour,
	}, fw, cfg.Notifier, cfg.Logger)

	return &Monitor{
		cfg:      cfg.App,
		mode:     mode,
		limit:    uint64(limit),
		reader:   cfg.Reader,
		store:    store,
		engine:   engine,
		eval:     eval,
		fw:       fw,
		notifier: cfg.Notifier,
		hist:     cfg.History,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
		log:      cfg.Logger.With("component", "monitor"),
	}, nil
}

// RunCheck performs one full accounting and evaluation pass.
//
// Lock contention with a concurrent invocation is not an error: the
// check is skipped and the next scheduled run catches up. A missing
// interface skips the check too, with nothing mutated, but is reported
// so the caller can log it at the command level.
func (m *Monitor) RunCheck(ctx context.Context) (*CheckResult, error) {
	start := time.Now()
	now := m.now()

	locked, err := m.store.TryLock()
	if err != nil {
		m.recordCheck(false)
		return nil, err
	}
	if !locked {
		m.log.Info("store lock held by another invocation, skipping check")
		return &CheckResult{Skipped: true}, nil
	}

	res, err := m.checkLocked(now)
	m.store.Unlock()
	if err != nil {
		m.recordCheck(false)
		return nil, err
	}

	// The markers are already persisted and enforcement is idempotent,
	// so the firewall and webhook calls run with the lock released.
	m.eval.Apply(ctx, res.Outcome)

	m.recordCheck(true)
	m.observe(res.Usage, res.Outcome, start)
	m.appendHistory(ctx, now, res.Usage, res.Outcome)

	return res, nil
}

// checkLocked is the read-compute-persist portion of a check, run under
// the store lock.
func (m *Monitor) checkLocked(now time.Time) (*CheckResult, error) {
	if !m.reader.Exists(m.cfg.Interface) {
		return nil, &netstat.InterfaceNotFoundError{Name: m.cfg.Interface}
	}
	sample, err := m.reader.Sample(m.cfg.Interface)
	if err != nil {
		return nil, err
	}

	rec := m.store.Load()
	usage, saveErr := m.engine.ComputeCycleUsage(sample, rec, now)
	if saveErr != nil {
		// Best effort: the computed usage still drives this pass.
		m.log.Warn("accounting persistence degraded", "error", saveErr)
	}

	outcome := m.eval.Evaluate(usage, rec, now)
	if outcome.RecordDirty {
		if err := m.store.Save(rec); err != nil {
			m.log.Error("failed to persist marker update", "error", err)
		}
	}

	return &CheckResult{Usage: usage, Outcome: outcome}, nil
}

// Block manually installs the firewall policy and marks the record so
// subsequent checks keep the block sticky.
func (m *Monitor) Block(ctx context.Context) error {
	if err := m.store.Lock(ctx); err != nil {
		return err
	}
	defer m.store.Unlock()

	if err := m.fw.Block(ctx); err != nil {
		return err
	}

	rec := m.store.Load()
	if rec.CycleKey == "" {
		// Fresh state: seed the record the way the first check would, so
		// the counters' historical value is not billed to this cycle.
		now := m.now()
		rec.CycleKey = accounting.CycleKey(now)
		if sample, err := m.reader.Sample(m.cfg.Interface); err == nil {
			rec.BaselineRx = sample.Rx
			rec.BaselineTx = sample.Tx
			rec.LastCheck = now
		} else {
			m.log.Warn("could not sample counters while creating record", "error", err)
		}
	}
	rec.Blocked = true
	if m.metrics != nil {
		m.metrics.RecordEnforcementAction("block")
		m.metrics.UpdateBlocked(true)
	}
	return m.store.Save(rec)
}

// Unblock manually removes the firewall policy and clears the marker.
func (m *Monitor) Unblock(ctx context.Context) error {
	if err := m.store.Lock(ctx); err != nil {
		return err
	}
	defer m.store.Unlock()

	if err := m.fw.Unblock(ctx); err != nil {
		return err
	}

	rec := m.store.Load()
	if rec.Blocked {
		rec.Blocked = false
		if err := m.store.Save(rec); err != nil {
			return err
		}
	}
	if m.metrics != nil {
		m.metrics.RecordEnforcementAction("unblock")
		m.metrics.UpdateBlocked(false)
	}
	return nil
}

// Reset clears the accounting record and lifts enforcement. Unlike the
// periodic check it waits for the lock, bounded, and fails loudly when
// it cannot get it.
func (m *Monitor) Reset(ctx context.Context) error {
	lockCtx, cancel := context.WithTimeout(ctx, resetLockWait)
	defer cancel()

	if err := m.store.Lock(lockCtx); err != nil {
		return fmt.Errorf("monitor: reset could not acquire store lock: %w", err)
	}
	defer m.store.Unlock()

	if err := m.store.Reset(); err != nil {
		return err
	}
	if err := m.fw.Unblock(ctx); err != nil {
		m.log.Error("unblock during reset failed, continuing", "error", err)
	}
	if m.metrics != nil {
		m.metrics.UpdateBlocked(false)
	}
	m.log.Info("accounting record cleared and enforcement lifted")
	return nil
}

// SendTestNotification delivers a canary through the configured channel.
func (m *Monitor) SendTestNotification(ctx context.Context) error {
	hostname, _ := os.Hostname()
	return m.notifier.Send(ctx, "Test notification",
		fmt.Sprintf("Test notification from trafficward on %s at %s. Delivery works.",
			hostname, m.now().Format(time.RFC1123)))
}

func (m *Monitor) recordCheck(ok bool) {
	if m.metrics != nil {
		m.metrics.RecordCheck(ok)
	}
}

func (m *Monitor) observe(usage accounting.Usage, outcome threshold.Outcome, start time.Time) {
	if m.metrics == nil {
		return
	}
	m.metrics.RecordCheckDuration(time.Since(start).Seconds())
	m.metrics.UpdateUsage(usage.Total.Rx, usage.Total.Tx, usage.Total.Billable,
		m.limit, float64(outcome.UsagePercent))
	m.metrics.UpdateBlocked(outcome.State == threshold.StateBlocked)
	if outcome.WarnedDecile >= 0 {
		m.metrics.RecordWarning(outcome.WarnedDecile)
	}
	if outcome.Transitioned {
		if outcome.State == threshold.StateBlocked {
			m.metrics.RecordEnforcementAction("block")
		} else {
			m.metrics.RecordEnforcementAction("unblock")
		}
	}
}

func (m *Monitor) appendHistory(ctx context.Context, now time.Time, usage accounting.Usage, outcome threshold.Outcome) {
	if m.hist == nil {
		return
	}
	entry := history.Entry{
		CheckedAt:     now,
		Cycle:         accounting.CycleKey(now),
		RxBytes:       usage.Total.Rx,
		TxBytes:       usage.Total.Tx,
		BillableBytes: usage.Total.Billable,
		UsagePercent:  float64(outcome.UsagePercent),
		State:         outcome.State.String(),
		Event:         checkEvent(outcome),
	}
	if err := m.hist.Append(ctx, entry); err != nil {
		m.log.Warn("history append failed", "error", err)
	}
}

// checkEvent collapses an evaluation outcome to the single event label
// the history log stores. State transitions outrank warnings and
// reports.
func checkEvent(outcome threshold.Outcome) string {
	switch {
	case outcome.Transitioned && outcome.State == threshold.StateBlocked:
		return "blocked"
	case outcome.Transitioned:
		return "unblocked"
	case outcome.WarnedDecile >= 0:
		return fmt.Sprintf("warning_%d", outcome.WarnedDecile)
	case outcome.ReportSent:
		return "report"
	default:
		return ""
	}
}
