package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/estate-backend/internal/data/aggregates"
)

// HooksRecorder records estate store signals so tests can assert on statuses and on
// which events reached the outbox.
type HooksRecorder struct {
	mu sync.Mutex

	Operations []OperationEvent
	Conflicts  []string
	Retries    []string
	Appended   map[string]int
}

type OperationEvent struct {
	Op       string
	Status   string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(op, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, OperationEvent{Op: op, Status: status, Duration: dur})
}

func (h *HooksRecorder) IncConflict(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, op)
}

func (h *HooksRecorder) IncRetry(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, op)
}

func (h *HooksRecorder) EventsAppended(eventType string, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Appended == nil {
		h.Appended = map[string]int{}
	}
	h.Appended[eventType] += n
}

// Statuses lists the recorded statuses of op in call order.
func (h *HooksRecorder) Statuses(op string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, o := range h.Operations {
		if o.Op == op {
			out = append(out, o.Status)
		}
	}
	return out
}

// AppendedTotal is the number of events reported across all types.
func (h *HooksRecorder) AppendedTotal() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, n := range h.Appended {
		total += n
	}
	return total
}
