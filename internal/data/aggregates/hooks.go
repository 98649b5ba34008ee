package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/estate-backend/internal/observability"
)

// Estate store operations. They name spans, error ops and metric labels.
const (
	OpFindByID          = "Estate.Store.FindByID"
	OpFindByDeceasedID  = "Estate.Store.FindByDeceasedID"
	OpExistsForDeceased = "Estate.Store.ExistsForDeceased"
	OpSave              = "Estate.Store.Save"

	opOther = "other"
)

var storeOps = map[string]struct{}{
	OpFindByID:          {},
	OpFindByDeceasedID:  {},
	OpExistsForDeceased: {},
	OpSave:              {},
}

// StoreOp returns op when it is a known estate store operation and "other" otherwise,
// keeping the metric label set closed.
func StoreOp(op string) string {
	op = strings.TrimSpace(op)
	if _, ok := storeOps[op]; ok {
		return op
	}
	return opOther
}

// Hooks receives estate store outcomes: every read or save with its status, version
// conflicts, retryable database failures and the events a committed save appended to
// the outbox.
type Hooks interface {
	ObserveOperation(op, status string, dur time.Duration)
	IncConflict(op string)
	IncRetry(op string)
	EventsAppended(eventType string, n int)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}
func (noopHooks) EventsAppended(string, int)                     {}

type metricsHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks reports store outcomes to metrics. A nil metrics set yields
// hooks that drop everything.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &metricsHooks{metrics: metrics}
}

func (h *metricsHooks) ObserveOperation(op, status string, dur time.Duration) {
	h.metrics.ObserveAggregateOperation(StoreOp(op), strings.TrimSpace(status), dur)
}

func (h *metricsHooks) IncConflict(op string) {
	h.metrics.IncAggregateConflict(StoreOp(op))
}

func (h *metricsHooks) IncRetry(op string) {
	h.metrics.IncAggregateRetry(StoreOp(op))
}

func (h *metricsHooks) EventsAppended(eventType string, n int) {
	if n <= 0 {
		return
	}
	h.metrics.AddEventsRecorded(strings.TrimSpace(eventType), n)
}
