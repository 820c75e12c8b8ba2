package threshold

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wardworks/trafficward/pkg/accounting"
)

// Evaluator drives block, warning and report decisions from accounting
// output.
type Evaluator struct {
	config   Config
	enforcer Enforcer
	notifier Notifier
	log      *slog.Logger
}

// NewEvaluator creates a threshold evaluator.
func NewEvaluator(config Config, enforcer Enforcer, notifier Notifier, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		config:   config,
		enforcer: enforcer,
		notifier: notifier,
		log:      logger.With("component", "threshold"),
	}
}

// Evaluate runs one pass of the state machine over a freshly computed
// usage figure, mutating the record's marker fields.
//
// It decides only. The caller persists the record, releases the store
// lock, and then invokes Apply, so the lock is never held across a
// firewall tool or webhook call. Markers are set at decision time: a
// qualifying event fires at most once per cycle (or per date) even when
// its later delivery fails.
func (e *Evaluator) Evaluate(usage accounting.Usage, rec *accounting.Record, now time.Time) Outcome {
	outcome := Outcome{WarnedDecile: -1}
	if e.config.LimitBytes > 0 {
		outcome.UsagePercent = int(usage.Total.Billable * 100 / e.config.LimitBytes)
	}

	// Cycle rollover always clears the block, independent of usage.
	if usage.RolledOver && rec.Blocked {
		e.log.Info("cycle rollover, lifting enforcement")
		rec.Blocked = false
		outcome.Transitioned = true
		outcome.RecordDirty = true
	}

	// Block before warning: a reading that jumps straight past the limit
	// gets one over-limit notice, not warning noise on the way down.
	switch {
	case rec.Blocked:
		// BLOCKED is sticky within a cycle. Usage appearing lower again
		// (counter quirks, mode changes) never lifts enforcement.

	case usage.Total.Billable >= e.config.LimitBytes:
		e.log.Warn("traffic limit reached, installing block",
			"billable_bytes", usage.Total.Billable,
			"limit_bytes", e.config.LimitBytes)
		rec.Blocked = true
		outcome.Transitioned = true
		outcome.RecordDirty = true
		outcome.Notices = append(outcome.Notices, Notice{
			Subject: "Traffic limit reached - connections blocked",
			Body: fmt.Sprintf("Monthly traffic limit reached.\n\nUsed: %s\nLimit: %s\nUsage: %d%%\n\nAll traffic except the administrative allow-list is now blocked. The block lifts automatically on %s.",
				FormatBytes(usage.Total.Billable),
				FormatBytes(e.config.LimitBytes),
				outcome.UsagePercent,
				nextCycleStart(now).Format("2006-01-02")),
		})

	default:
		if decile := e.pendingWarning(outcome.UsagePercent, rec); decile >= 0 {
			rec.MarkWarnedDecile(decile)
			outcome.WarnedDecile = decile
			outcome.RecordDirty = true
			e.log.Info("usage warning threshold crossed",
				"decile", decile, "usage_percent", outcome.UsagePercent)
			outcome.Notices = append(outcome.Notices, Notice{
				Subject: fmt.Sprintf("Traffic usage at %d%% of limit", outcome.UsagePercent),
				Body: fmt.Sprintf("Traffic usage crossed the %d%% band.\n\nUsed: %s\nLimit: %s\nRemaining: %s\n\nThe limit resets on %s.",
					decile,
					FormatBytes(usage.Total.Billable),
					FormatBytes(e.config.LimitBytes),
					FormatBytes(remaining(e.config.LimitBytes, usage.Total.Billable)),
					nextCycleStart(now).Format("2006-01-02")),
			})
		}
	}

	if rec.Blocked {
		outcome.State = StateBlocked
	}

	// Daily report, independent of block and warning state.
	if e.config.ReportEnabled && now.Hour() == e.config.ReportHour {
		date := accounting.DateKey(now)
		if !rec.HasReportedDate(date) {
			rec.MarkReportedDate(date, now)
			outcome.ReportSent = true
			outcome.RecordDirty = true
			outcome.Notices = append(outcome.Notices, Notice{
				Subject: fmt.Sprintf("Daily traffic report %s", date),
				Body: fmt.Sprintf("Daily traffic report.\n\nUsed: %s (rx %s, tx %s)\nLimit: %s\nRemaining: %s\nUsage: %d%%\nState: %s",
					FormatBytes(usage.Total.Billable),
					FormatBytes(usage.Total.Rx),
					FormatBytes(usage.Total.Tx),
					FormatBytes(e.config.LimitBytes),
					FormatBytes(remaining(e.config.LimitBytes, usage.Total.Billable)),
					outcome.UsagePercent,
					outcome.State),
			})
		}
	}

	return outcome
}

// Apply performs the firewall and notification side effects an Evaluate
// pass decided. Failures are logged and the pass continues best effort; a
// broken firewall tool or unreachable notification channel must never
// abort accounting. Both enforcer operations are idempotent, so the
// window between persisting markers and acting here is safe.
func (e *Evaluator) Apply(ctx context.Context, outcome Outcome) {
	if outcome.Transitioned {
		if outcome.State == StateBlocked {
			if err := e.enforcer.Block(ctx); err != nil {
				e.log.Error("block failed, continuing", "error", err)
			}
		} else {
			if err := e.enforcer.Unblock(ctx); err != nil {
				e.log.Error("unblock failed, continuing", "error", err)
			}
		}
	}
	for _, n := range outcome.Notices {
		if err := e.notifier.Send(ctx, n.Subject, n.Body); err != nil {
			e.log.Error("notification delivery failed", "subject", n.Subject, "error", err)
		}
	}
}

// pendingWarning returns the decile a warning should fire for, or -1.
// At most one warning per 10-percentage-point band per cycle, none below
// the configured floor.
func (e *Evaluator) pendingWarning(usagePercent int, rec *accounting.Record) int {
	decile := usagePercent / 10 * 10
	if decile > 90 {
		decile = 90
	}
	if decile < e.config.WarningThreshold {
		return -1
	}
	if rec.HasWarnedDecile(decile) {
		return -1
	}
	return decile
}

func remaining(limit, used uint64) uint64 {
	if used >= limit {
		return 0
	}
	return limit - used
}
