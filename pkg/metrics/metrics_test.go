package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestNew tests collector creation and registration.
func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)
	if m == nil {
		t.Fatal("Expected non-nil metrics")
	}

	// Gauges register eagerly; a second registration on the same
	// registry must collide.
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected duplicate registration to panic")
		}
	}()
	New(registry)
}

// TestMetrics_RecordCheck tests check counting by result.
func TestMetrics_RecordCheck(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordCheck(true)
	m.RecordCheck(true)
	m.RecordCheck(false)

	if got := testutil.ToFloat64(m.checks.WithLabelValues("ok")); got != 2 {
		t.Errorf("Expected 2 ok checks, got %.0f", got)
	}
	if got := testutil.ToFloat64(m.checks.WithLabelValues("error")); got != 1 {
		t.Errorf("Expected 1 error check, got %.0f", got)
	}
}

// TestMetrics_UpdateUsage tests cycle gauge updates.
func TestMetrics_UpdateUsage(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.UpdateUsage(1000, 2000, 2000, 10000, 20.0)

	if got := testutil.ToFloat64(m.cycleBytes.WithLabelValues("rx")); got != 1000 {
		t.Errorf("Expected rx 1000, got %.0f", got)
	}
	if got := testutil.ToFloat64(m.cycleBytes.WithLabelValues("billable")); got != 2000 {
		t.Errorf("Expected billable 2000, got %.0f", got)
	}
	if got := testutil.ToFloat64(m.limitBytes); got != 10000 {
		t.Errorf("Expected limit 10000, got %.0f", got)
	}
	if got := testutil.ToFloat64(m.usagePercent); got != 20.0 {
		t.Errorf("Expected 20 percent, got %.0f", got)
	}
}

// TestMetrics_UpdateBlocked tests the enforcement state gauge.
func TestMetrics_UpdateBlocked(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.UpdateBlocked(true)
	if got := testutil.ToFloat64(m.blocked); got != 1 {
		t.Errorf("Expected blocked gauge 1, got %.0f", got)
	}

	m.UpdateBlocked(false)
	if got := testutil.ToFloat64(m.blocked); got != 0 {
		t.Errorf("Expected blocked gauge 0, got %.0f", got)
	}
}

// TestMetrics_RecordWarning tests warning counting by decile.
func TestMetrics_RecordWarning(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordWarning(80)
	m.RecordWarning(90)
	m.RecordWarning(90)

	if got := testutil.ToFloat64(m.warnings.WithLabelValues("80")); got != 1 {
		t.Errorf("Expected 1 warning at 80, got %.0f", got)
	}
	if got := testutil.ToFloat64(m.warnings.WithLabelValues("90")); got != 2 {
		t.Errorf("Expected 2 warnings at 90, got %.0f", got)
	}
}

// TestMetrics_RecordEnforcementAction tests enforcement counting.
func TestMetrics_RecordEnforcementAction(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordEnforcementAction("block")
	m.RecordEnforcementAction("unblock")
	m.RecordEnforcementAction("block")

	if got := testutil.ToFloat64(m.enforcementActions.WithLabelValues("block")); got != 2 {
		t.Errorf("Expected 2 blocks, got %.0f", got)
	}
	if got := testutil.ToFloat64(m.enforcementActions.WithLabelValues("unblock")); got != 1 {
		t.Errorf("Expected 1 unblock, got %.0f", got)
	}
}
