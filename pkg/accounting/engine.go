package accounting

import (
	"log/slog"
	"time"

	"wardworks/trafficward/pkg/netstat"
)

// Usage is the outcome of one accounting pass.
type Usage struct {
	// Total is the usage figure for the current cycle.
	Total BillableTotal

	// RolledOver is true when this pass started a new billing cycle.
	// Cycle rollover always clears the block, independent of usage, so
	// the caller must lift any active enforcement.
	RolledOver bool

	// CounterReset is true when a counter reset (reboot or wraparound)
	// was detected and folded during this pass.
	CounterReset bool
}

// Engine reconciles fresh counter readings against the persisted record.
type Engine struct {
	mode  Mode
	store *Store
	log   *slog.Logger
}

// NewEngine creates an accounting engine for the given counting mode.
func NewEngine(mode Mode, store *Store, logger *slog.Logger) *Engine {
	return &Engine{
		mode:  mode,
		store: store,
		log:   logger.With("component", "accounting.engine"),
	}
}

// Mode returns the configured counting mode.
func (e *Engine) Mode() Mode {
	return e.mode
}

// ComputeCycleUsage combines a fresh counter sample with the record to
// produce the bytes used this cycle, mutating and persisting the record.
//
// The pass works in three steps:
//
//  1. Cycle rollover. When the record belongs to a different cycle key
//     than now, the record is replaced wholesale: baseline = sample,
//     accumulated = 0, warning markers cleared. The caller is signalled
//     to lift enforcement.
//  2. Counter reset folding. A counter below its baseline restarted from
//     zero. The bytes already attributed to the cycle are kept in
//     accumulated and the restarted counter contributes its full value,
//     so traffic before the reset is preserved and nothing is counted
//     twice. Detection is a strict less-than on either raw counter; this
//     conflates wraparound with reboot, a known approximation.
//  3. Totals. Used bytes per direction are accumulated plus the delta
//     since baseline, both guaranteed non-negative after steps 1-2. The
//     billable figure follows the counting mode. The record advances its
//     observation window (baseline = sample, accumulated = used) and is
//     persisted by atomic replace.
//
// Persistence is best effort: on write failure the computed Usage is still
// valid and the error is returned alongside it, because a transient disk
// problem must not suppress this cycle's enforcement decision.
func (e *Engine) ComputeCycleUsage(sample netstat.Sample, rec *Record, now time.Time) (Usage, error) {
	var usage Usage

	key := CycleKey(now)
	if rec.CycleKey != key {
		e.log.Info("billing cycle rollover",
			"previous_cycle", rec.CycleKey, "cycle", key)
		usage.RolledOver = true
		// Blocked survives the replacement: the threshold evaluator owns
		// that transition and needs the marker to know enforcement must
		// be lifted.
		*rec = Record{
			CycleKey:      key,
			BaselineRx:    sample.Rx,
			BaselineTx:    sample.Tx,
			Blocked:       rec.Blocked,
			ReportedDates: rec.ReportedDates,
		}
		rec.PruneReportedDates(now)
	}

	if sample.Rx < rec.BaselineRx || sample.Tx < rec.BaselineTx {
		e.log.Warn("counter reset detected, folding baseline",
			"baseline_rx", rec.BaselineRx, "baseline_tx", rec.BaselineTx,
			"sample_rx", sample.Rx, "sample_tx", sample.Tx)
		usage.CounterReset = true
		rec.BaselineRx = 0
		rec.BaselineTx = 0
	}

	usedRx := rec.AccumulatedRx + (sample.Rx - rec.BaselineRx)
	usedTx := rec.AccumulatedTx + (sample.Tx - rec.BaselineTx)

	usage.Total = e.total(usedRx, usedTx)

	rec.AccumulatedRx = usedRx
	rec.AccumulatedTx = usedTx
	rec.BaselineRx = sample.Rx
	rec.BaselineTx = sample.Tx
	rec.LastCheck = now

	if err := e.store.Save(rec); err != nil {
		e.log.Error("failed to persist accounting record, continuing with computed usage",
			"error", err)
		return usage, err
	}
	return usage, nil
}

// PeekCycleUsage computes the usage a check would produce right now
// without mutating or persisting anything. Used by read-only status
// reporting.
func (e *Engine) PeekCycleUsage(sample netstat.Sample, rec Record, now time.Time) Usage {
	var usage Usage

	if rec.CycleKey != CycleKey(now) {
		usage.RolledOver = true
		rec = Record{
			CycleKey:   CycleKey(now),
			BaselineRx: sample.Rx,
			BaselineTx: sample.Tx,
			Blocked:    rec.Blocked,
		}
	}
	if sample.Rx < rec.BaselineRx || sample.Tx < rec.BaselineTx {
		usage.CounterReset = true
		rec.BaselineRx = 0
		rec.BaselineTx = 0
	}

	usedRx := rec.AccumulatedRx + (sample.Rx - rec.BaselineRx)
	usedTx := rec.AccumulatedTx + (sample.Tx - rec.BaselineTx)
	usage.Total = e.total(usedRx, usedTx)
	return usage
}

// total derives the billable figure for the configured counting mode.
func (e *Engine) total(usedRx, usedTx uint64) BillableTotal {
	t := BillableTotal{Rx: usedRx, Tx: usedTx}
	switch e.mode {
	case ModeEgress:
		t.Billable = usedTx
	case ModeIngress:
		t.Billable = usedRx
	case ModeBoth:
		t.Billable = usedRx + usedTx
	}
	return t
}
