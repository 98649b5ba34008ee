package estate

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a change recorded by the aggregate.
type EventType string

const (
	EventEstateRegistered         EventType = "estate.registered"
	EventEstateFrozen             EventType = "estate.frozen"
	EventEstateUnfrozen           EventType = "estate.unfrozen"
	EventEstatePhaseChanged       EventType = "estate.phase_changed"
	EventEstateInsolvencyDetected EventType = "estate.insolvency_detected"
	EventTaxComplianceUpdated     EventType = "estate.tax_compliance_updated"
	EventCashReceived             EventType = "cash.received"
	EventCashReserved             EventType = "cash.reserved"
	EventCashReservationReleased  EventType = "cash.reservation_released"
	EventReservationsReallocated  EventType = "cash.reservations_reallocated"
	EventDebtAdded                EventType = "debt.added"
	EventDebtPaid                 EventType = "debt.paid"
	EventDebtDisputed             EventType = "debt.disputed"
	EventDebtDisputeResolved      EventType = "debt.dispute_resolved"
	EventDebtWrittenOff           EventType = "debt.written_off"
	EventDebtStatuteBarred        EventType = "debt.statute_barred"
	EventAssetAdded               EventType = "asset.added"
	EventAssetRevalued            EventType = "asset.revalued"
	EventAssetDetailsUpdated      EventType = "asset.details_updated"
	EventAssetStatusChanged       EventType = "asset.status_changed"
	EventAssetEncumbered          EventType = "asset.encumbered"
	EventAssetEncumbranceCleared  EventType = "asset.encumbrance_cleared"
	EventCoOwnerAdded             EventType = "asset.co_owner_added"
	EventCoOwnerVerified          EventType = "asset.co_owner_verified"
	EventCoOwnerRemoved           EventType = "asset.co_owner_removed"
	EventLiquidationStarted       EventType = "liquidation.started"
	EventLiquidationTransitioned  EventType = "liquidation.transitioned"
	EventLiquidationSaleCompleted EventType = "liquidation.sale_completed"
	EventAssetLiquidated          EventType = "asset.liquidated"
	EventGiftRecorded             EventType = "gift.recorded"
	EventGiftContested            EventType = "gift.contested"
	EventGiftContestResolved      EventType = "gift.contest_resolved"
	EventGiftValueCorrected       EventType = "gift.value_corrected"
	EventGiftEstimateUpdated      EventType = "gift.estimate_updated"
	EventDependantRegistered      EventType = "dependant.registered"
	EventDependantClaimResolved   EventType = "dependant.claim_resolved"
)

// CommandMetadata is the actor and correlation context of one mutation. At, when set,
// fixes the clock for every timestamp the mutation writes.
type CommandMetadata struct {
	Actor         string    `json:"actor,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	At            time.Time `json:"-"`
}

// Event is one buffered change record. Events are published by the caller after the
// aggregate commits; the aggregate never publishes.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	EstateID   uuid.UUID       `json:"estate_id"`
	Type       EventType       `json:"type"`
	Sequence   int             `json:"sequence"`
	OccurredAt time.Time       `json:"occurred_at"`
	Metadata   CommandMetadata `json:"metadata"`
	Payload    map[string]any  `json:"payload,omitempty"`
}

func (e *Estate) record(t EventType, at time.Time, payload map[string]any) {
	e.pending = append(e.pending, Event{
		ID:         uuid.New(),
		EstateID:   e.id,
		Type:       t,
		Sequence:   len(e.pending) + 1,
		OccurredAt: at,
		Metadata:   CommandMetadata{Actor: e.meta.Actor, CorrelationID: e.meta.CorrelationID},
		Payload:    payload,
	})
}

// PendingEvents returns the events buffered since the last commit.
func (e *Estate) PendingEvents() []Event {
	return append([]Event(nil), e.pending...)
}

// MarkCommitted records a successful save at version and clears the event buffer.
func (e *Estate) MarkCommitted(version int64) {
	e.version = version
	e.pending = nil
}
