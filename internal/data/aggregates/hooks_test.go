package aggregates

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/estate-backend/internal/observability"
)

func TestStoreOpClosesLabelSet(t *testing.T) {
	for _, op := range []string{OpFindByID, OpFindByDeceasedID, OpExistsForDeceased, OpSave} {
		if got := StoreOp(" " + op + " "); got != op {
			t.Fatalf("StoreOp(%q): want=%s got=%s", op, op, got)
		}
	}
	for _, op := range []string{"", "aggregate.write", "Estate.Store.Delete"} {
		if got := StoreOp(op); got != opOther {
			t.Fatalf("StoreOp(%q): want=%s got=%s", op, opOther, got)
		}
	}
}

func TestObservabilityHooksExportStoreMetrics(t *testing.T) {
	if _, ok := NewObservabilityHooks(nil).(noopHooks); !ok {
		t.Fatalf("nil metrics should yield noop hooks")
	}

	m := observability.NewMetrics()
	h := NewObservabilityHooks(m)
	h.ObserveOperation(OpSave, "success", 4*time.Millisecond)
	h.ObserveOperation("aggregate.write", "internal", time.Millisecond)
	h.IncConflict(OpSave)
	h.EventsAppended("estate.debt_added", 3)
	h.EventsAppended("estate.debt_paid", 0)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, line := range []string{
		`estate_aggregate_operations_total{operation="Estate.Store.Save",status="success"} 1.000000`,
		`estate_aggregate_operations_total{operation="other",status="internal"} 1.000000`,
		`estate_aggregate_conflicts_total{operation="Estate.Store.Save"} 1.000000`,
		`estate_events_recorded_total{type="estate.debt_added"} 3.000000`,
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("missing line %q in:\n%s", line, out)
		}
	}
	if strings.Contains(out, `type="estate.debt_paid"`) {
		t.Fatalf("zero event count was exported:\n%s", out)
	}
}
