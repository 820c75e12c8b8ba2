package monitor

import (
	"context"
	"time"

	"wardworks/trafficward/pkg/accounting"
	"wardworks/trafficward/pkg/history"
	"wardworks/trafficward/pkg/netstat"
	"wardworks/trafficward/pkg/threshold"
)

// Status is a read-only snapshot of the budget state.
type Status struct {
	Interface    string    `json:"interface"`
	Mode         string    `json:"mode"`
	Cycle        string    `json:"cycle"`
	RxBytes      uint64    `json:"rx_bytes"`
	TxBytes      uint64    `json:"tx_bytes"`
	BillableUsed uint64    `json:"billable_bytes"`
	LimitBytes   uint64    `json:"limit_bytes"`
	UsagePercent float64   `json:"usage_percent"`
	State        string    `json:"state"`
	LastCheck    time.Time `json:"last_check"`
	NextReset    time.Time `json:"next_reset"`
	RecordPath   string    `json:"record_path"`

	// Recent holds the latest history entries when a history log is
	// configured and n was positive.
	Recent []history.Entry `json:"recent,omitempty"`
}

// Status reports current usage without mutating any persisted state.
// The figure is computed from a fresh counter sample against the stored
// record, so it reflects traffic since the last check too.
func (m *Monitor) Status(ctx context.Context, historyN int) (*Status, error) {
	now := m.now()

	if !m.reader.Exists(m.cfg.Interface) {
		return nil, &netstat.InterfaceNotFoundError{Name: m.cfg.Interface}
	}
	sample, err := m.reader.Sample(m.cfg.Interface)
	if err != nil {
		return nil, err
	}

	rec := m.store.Load()
	usage := m.engine.PeekCycleUsage(sample, *rec, now)

	state := threshold.StateNormal
	if rec.Blocked && !usage.RolledOver {
		state = threshold.StateBlocked
	}

	st := &Status{
		Interface:    m.cfg.Interface,
		Mode:         m.mode.String(),
		Cycle:        accounting.CycleKey(now),
		RxBytes:      usage.Total.Rx,
		TxBytes:      usage.Total.Tx,
		BillableUsed: usage.Total.Billable,
		LimitBytes:   m.limit,
		State:        state.String(),
		LastCheck:    rec.LastCheck,
		NextReset:    nextResetAt(now, m.cfg.ResetDay),
		RecordPath:   m.store.RecordPath(),
	}
	if m.limit > 0 {
		st.UsagePercent = float64(usage.Total.Billable) * 100 / float64(m.limit)
	}

	if m.hist != nil && historyN > 0 {
		entries, err := m.hist.Recent(ctx, historyN)
		if err != nil {
			m.log.Warn("history lookup failed", "error", err)
		} else {
			st.Recent = entries
		}
	}
	return st, nil
}

// nextResetAt returns the next scheduled cycle reset after now.
func nextResetAt(now time.Time, resetDay int) time.Time {
	if resetDay < 1 || resetDay > 28 {
		resetDay = 1
	}
	next := time.Date(now.Year(), now.Month(), resetDay, 0, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 1, 0)
	}
	return next
}
