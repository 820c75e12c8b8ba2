package accounting

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	rec := store.Load()
	if rec.CycleKey != "" {
		t.Errorf("CycleKey = %q, want empty for absent record", rec.CycleKey)
	}
	if rec.BaselineRx != 0 || rec.AccumulatedTx != 0 {
		t.Error("absent record must be all-zero")
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	rec := &Record{
		CycleKey:      "2026-06",
		BaselineRx:    18_446_744_073_709_551_000, // near uint64 max survives
		BaselineTx:    42,
		AccumulatedRx: 7,
		AccumulatedTx: 9,
		LastCheck:     time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC),
		Blocked:       true,
		WarnedDeciles: []int{80, 90},
		ReportedDates: []string{"2026-06-15"},
	}
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got := store.Load()
	if got.CycleKey != rec.CycleKey {
		t.Errorf("CycleKey = %q, want %q", got.CycleKey, rec.CycleKey)
	}
	if got.BaselineRx != rec.BaselineRx {
		t.Errorf("BaselineRx = %d, want %d", got.BaselineRx, rec.BaselineRx)
	}
	if !got.Blocked {
		t.Error("Blocked flag lost")
	}
	if !got.HasWarnedDecile(80) || !got.HasWarnedDecile(90) || got.HasWarnedDecile(70) {
		t.Errorf("WarnedDeciles = %v, want [80 90]", got.WarnedDeciles)
	}
	if !got.HasReportedDate("2026-06-15") {
		t.Error("ReportedDates lost")
	}
}

// Counters are persisted as string-encoded integers so external tooling
// never misreads them through float64 JSON parsing.
func TestStore_CountersEncodedAsStrings(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(&Record{CycleKey: "2026-06", BaselineTx: 123}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(store.RecordPath())
	if err != nil {
		t.Fatalf("failed to read record file: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("record is not valid JSON: %v", err)
	}
	if _, ok := raw["baseline_tx"].(string); !ok {
		t.Errorf("baseline_tx encoded as %T, want string", raw["baseline_tx"])
	}
	if raw["month"] != "2026-06" {
		t.Errorf("month = %v, want 2026-06", raw["month"])
	}
}

func TestStore_LoadCorruptFile(t *testing.T) {
	store := newTestStore(t)

	if err := os.WriteFile(store.RecordPath(), []byte("{\"month\": tru"), 0o600); err != nil {
		t.Fatalf("failed to plant corrupt record: %v", err)
	}

	rec := store.Load()
	if rec.CycleKey != "" {
		t.Errorf("corrupt record should load as zero record, got cycle %q", rec.CycleKey)
	}
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(&Record{CycleKey: "2026-06"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(store.RecordPath()))
	if err != nil {
		t.Fatalf("failed to list state dir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(&Record{CycleKey: "2026-06", AccumulatedTx: 999}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	rec := store.Load()
	if rec.CycleKey != "" || rec.AccumulatedTx != 0 {
		t.Errorf("record survives Reset: %+v", rec)
	}

	// Resetting an already-absent record is a no-op, not an error.
	if err := store.Reset(); err != nil {
		t.Errorf("second Reset failed: %v", err)
	}
}

func TestStore_TryLockContention(t *testing.T) {
	dir := t.TempDir()
	a, err := NewStore(dir, testLogger())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	b, err := NewStore(dir, testLogger())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ok, err := a.TryLock()
	if err != nil || !ok {
		t.Fatalf("first TryLock = (%v, %v), want acquired", ok, err)
	}
	defer a.Unlock()

	ok, err = b.TryLock()
	if err != nil {
		t.Fatalf("second TryLock errored: %v", err)
	}
	if ok {
		t.Error("second TryLock acquired a held lock")
	}
}

func TestStore_LockBoundedWait(t *testing.T) {
	dir := t.TempDir()
	a, err := NewStore(dir, testLogger())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	b, err := NewStore(dir, testLogger())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if ok, err := a.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock = (%v, %v), want acquired", ok, err)
	}
	defer a.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 1200*time.Millisecond)
	defer cancel()

	if err := b.Lock(ctx); err != ErrLockHeld {
		t.Errorf("Lock on held lock = %v, want ErrLockHeld", err)
	}
}

func TestRecord_PruneReportedDates(t *testing.T) {
	now := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	rec := &Record{ReportedDates: []string{
		"2026-06-01", // stale
		"2026-06-07", // stale (8 days)
		"2026-06-09", // within a week
		"2026-06-14",
		"garbage",
	}}

	rec.MarkReportedDate("2026-06-15", now)

	want := []string{"2026-06-09", "2026-06-14", "2026-06-15"}
	if len(rec.ReportedDates) != len(want) {
		t.Fatalf("ReportedDates = %v, want %v", rec.ReportedDates, want)
	}
	for i, d := range want {
		if rec.ReportedDates[i] != d {
			t.Errorf("ReportedDates[%d] = %q, want %q", i, rec.ReportedDates[i], d)
		}
	}
}

func TestRecord_MarkWarnedDecileIdempotent(t *testing.T) {
	rec := &Record{}
	rec.MarkWarnedDecile(80)
	rec.MarkWarnedDecile(80)
	rec.MarkWarnedDecile(50)

	if len(rec.WarnedDeciles) != 2 {
		t.Errorf("WarnedDeciles = %v, want two distinct entries", rec.WarnedDeciles)
	}
	if rec.WarnedDeciles[0] != 50 || rec.WarnedDeciles[1] != 80 {
		t.Errorf("WarnedDeciles = %v, want sorted [50 80]", rec.WarnedDeciles)
	}
}
