package accounting

import (
	"fmt"
	"slices"
	"time"
)

// Mode selects which traffic direction counts against the limit.
type Mode int

const (
	// ModeEgress bills transmitted bytes only.
	ModeEgress Mode = iota
	// ModeIngress bills received bytes only.
	ModeIngress
	// ModeBoth bills the sum of both directions.
	ModeBoth
)

// ParseMode converts a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "egress":
		return ModeEgress, nil
	case "ingress":
		return ModeIngress, nil
	case "both":
		return ModeBoth, nil
	default:
		return ModeEgress, fmt.Errorf("accounting: unknown counting mode %q", s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeEgress:
		return "egress"
	case ModeIngress:
		return "ingress"
	case ModeBoth:
		return "both"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// CycleKey returns the billing cycle identifier for a point in time,
// e.g. "2026-08".
func CycleKey(t time.Time) string {
	return t.Format("2006-01")
}

// DateKey returns the calendar date identifier used by daily report
// markers, e.g. "2026-08-30".
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// Record is the persisted accounting state for exactly one billing cycle.
//
// Baseline holds the raw counter values at the start of the current
// observation window (last persisted check, or cycle start). Accumulated
// holds the bytes already attributed to this cycle before that window.
// At any instant, usedThisCycle = (currentCounter - baseline) + accumulated
// and must be non-negative; an apparent negative means the counter was
// reset and must be folded before use.
//
// The marker fields replace the presence-of-file flags an earlier design
// scattered across the state directory: Blocked mirrors whether the
// firewall policy is installed, WarnedDeciles records which warning bands
// have fired this cycle, and ReportedDates records which calendar days
// already got their report.
type Record struct {
	CycleKey      string    `json:"month"`
	BaselineRx    uint64    `json:"baseline_rx,string"`
	BaselineTx    uint64    `json:"baseline_tx,string"`
	AccumulatedRx uint64    `json:"accumulated_rx,string"`
	AccumulatedTx uint64    `json:"accumulated_tx,string"`
	LastCheck     time.Time `json:"last_check"`

	Blocked       bool     `json:"blocked"`
	WarnedDeciles []int    `json:"warned_deciles,omitempty"`
	ReportedDates []string `json:"reported_dates,omitempty"`
}

// HasWarnedDecile reports whether a warning for the given decile was
// already sent this cycle.
func (r *Record) HasWarnedDecile(decile int) bool {
	return slices.Contains(r.WarnedDeciles, decile)
}

// MarkWarnedDecile records that the warning for the given decile fired.
func (r *Record) MarkWarnedDecile(decile int) {
	if !r.HasWarnedDecile(decile) {
		r.WarnedDeciles = append(r.WarnedDeciles, decile)
		slices.Sort(r.WarnedDeciles)
	}
}

// HasReportedDate reports whether the daily report for the given date
// was already sent.
func (r *Record) HasReportedDate(date string) bool {
	return slices.Contains(r.ReportedDates, date)
}

// MarkReportedDate records that the daily report for the given date fired
// and prunes marker dates older than a week.
func (r *Record) MarkReportedDate(date string, now time.Time) {
	if !r.HasReportedDate(date) {
		r.ReportedDates = append(r.ReportedDates, date)
		slices.Sort(r.ReportedDates)
	}
	r.PruneReportedDates(now)
}

// PruneReportedDates drops report markers older than seven days. Markers
// that fail to parse are dropped too; they can only appear through manual
// edits of the state file.
func (r *Record) PruneReportedDates(now time.Time) {
	cutoff := now.AddDate(0, 0, -7)
	kept := r.ReportedDates[:0]
	for _, d := range r.ReportedDates {
		t, err := time.Parse(time.DateOnly, d)
		if err == nil && !t.Before(cutoff) {
			kept = append(kept, d)
		}
	}
	r.ReportedDates = kept
}

// BillableTotal is the usage figure derived from a reconciled reading.
// Recomputed on every evaluation, never persisted.
type BillableTotal struct {
	// Rx is the received bytes used this cycle.
	Rx uint64

	// Tx is the transmitted bytes used this cycle.
	Tx uint64

	// Billable is the figure compared against the limit, per Mode.
	Billable uint64
}
