package threshold

import (
	"context"
	"fmt"
	"time"
)

// State is the enforcement state derived from the accounting record.
type State int

const (
	// StateNormal means traffic flows freely.
	StateNormal State = iota
	// StateBlocked means the firewall allow-list policy is installed.
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Enforcer applies and removes the firewall policy. Both operations are
// idempotent; the evaluator may call them redundantly around edge cases.
type Enforcer interface {
	Block(ctx context.Context) error
	Unblock(ctx context.Context) error
}

// Notifier delivers fully formatted alert and report text. Delivery is
// best effort; a failed notification never aborts an evaluation.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// Config contains the evaluator's thresholds.
type Config struct {
	// LimitBytes is the billable-byte limit for one cycle.
	LimitBytes uint64

	// WarningThreshold is the usage percentage (1-99) at which decile
	// warnings begin.
	WarningThreshold int

	// ReportEnabled turns the daily usage report on.
	ReportEnabled bool

	// ReportHour is the local hour (0-23) at which the report fires.
	ReportHour int
}

// Notice is a notification decided by an evaluation pass and delivered
// afterwards by Apply.
type Notice struct {
	Subject string
	Body    string
}

// Outcome summarizes the decisions of one evaluation pass. Evaluate only
// decides and marks; the firewall and notification side effects are
// carried here for Apply to perform once the record is persisted and the
// store lock released.
type Outcome struct {
	// State is the enforcement state after the pass.
	State State

	// Transitioned is true when the pass changed the enforcement state
	// (entered BLOCKED, or left it on rollover).
	Transitioned bool

	// WarnedDecile is the decile a warning fired for, or -1.
	WarnedDecile int

	// ReportSent is true when the daily report fired.
	ReportSent bool

	// UsagePercent is billable usage as an integer percentage of the
	// limit. Can exceed 100.
	UsagePercent int

	// RecordDirty is true when the pass mutated the accounting record's
	// marker fields and the caller should persist it.
	RecordDirty bool

	// Notices are the notifications this pass decided to send.
	Notices []Notice
}

// nextCycleStart returns the first instant of the next billing cycle.
func nextCycleStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
}

// FormatBytes renders a byte count for notification text.
func FormatBytes(b uint64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
		tib = 1 << 40
	)
	switch {
	case b >= tib:
		return fmt.Sprintf("%.2f TiB", float64(b)/tib)
	case b >= gib:
		return fmt.Sprintf("%.2f GiB", float64(b)/gib)
	case b >= mib:
		return fmt.Sprintf("%.2f MiB", float64(b)/mib)
	case b >= kib:
		return fmt.Sprintf("%.2f KiB", float64(b)/kib)
	default:
		return fmt.Sprintf("%d B", b)
	}
}
