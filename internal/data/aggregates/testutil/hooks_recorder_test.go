package testutil

import (
	"testing"
	"time"

	"github.com/yungbote/estate-backend/internal/data/aggregates"
)

func TestHooksRecorderGroupsByStoreOp(t *testing.T) {
	h := &HooksRecorder{}
	h.ObserveOperation(aggregates.OpFindByID, "success", time.Millisecond)
	h.ObserveOperation(aggregates.OpSave, "conflict", 2*time.Millisecond)
	h.ObserveOperation(aggregates.OpSave, "success", 3*time.Millisecond)
	h.IncConflict(aggregates.OpSave)
	h.EventsAppended("estate.debt_added", 2)
	h.EventsAppended("estate.debt_paid", 1)
	h.EventsAppended("estate.debt_added", 1)

	saves := h.Statuses(aggregates.OpSave)
	if len(saves) != 2 || saves[0] != "conflict" || saves[1] != "success" {
		t.Fatalf("save statuses: got=%v", saves)
	}
	if got := h.Statuses(aggregates.OpExistsForDeceased); len(got) != 0 {
		t.Fatalf("exists statuses: want none got=%v", got)
	}
	if len(h.Conflicts) != 1 || h.Conflicts[0] != aggregates.OpSave {
		t.Fatalf("conflicts: got=%v", h.Conflicts)
	}
	if h.Appended["estate.debt_added"] != 3 || h.AppendedTotal() != 4 {
		t.Fatalf("appended: got=%v", h.Appended)
	}
}
