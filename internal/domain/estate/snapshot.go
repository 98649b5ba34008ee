package estate

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/estate-backend/internal/domain/money"
)

// Snapshot is the persisted form of an Estate: root state plus every owned child, in
// insertion order. Policy and buffered events are not part of it.
type Snapshot struct {
	ID            uuid.UUID        `json:"id"`
	DeceasedID    uuid.UUID        `json:"deceased_id"`
	Name          string           `json:"name"`
	Currency      string           `json:"currency"`
	Status        EstateStatus     `json:"status"`
	IsFrozen      bool             `json:"is_frozen"`
	FreezeReason  string           `json:"freeze_reason,omitempty"`
	FreezeHistory []FreezeRecord   `json:"freeze_history,omitempty"`
	CashOnHand    money.Money      `json:"cash_on_hand"`
	CashReserved  money.Money      `json:"cash_reserved"`
	TaxCompliance TaxCompliance    `json:"tax_compliance"`
	TaxReference  string           `json:"tax_reference,omitempty"`
	Assets        []Asset          `json:"assets"`
	Debts         []Debt           `json:"debts"`
	Gifts         []GiftInterVivos `json:"gifts"`
	Dependants    []Dependant      `json:"dependants"`
	Version       int64            `json:"version"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Snapshot returns a deep copy of the estate's state.
func (e *Estate) Snapshot() Snapshot {
	s := Snapshot{
		ID:            e.id,
		DeceasedID:    e.deceasedID,
		Name:          e.name,
		Currency:      e.currency,
		Status:        e.status,
		IsFrozen:      e.isFrozen,
		FreezeReason:  e.freezeReason,
		FreezeHistory: e.FreezeHistory(),
		CashOnHand:    e.cashOnHand,
		CashReserved:  e.cashReserved,
		TaxCompliance: e.taxCompliance,
		TaxReference:  e.taxReference,
		Assets:        make([]Asset, 0, e.assets.len()),
		Debts:         make([]Debt, 0, e.debts.len()),
		Gifts:         make([]GiftInterVivos, 0, e.gifts.len()),
		Dependants:    make([]Dependant, 0, e.dependants.len()),
		Version:       e.version,
		CreatedAt:     e.createdAt,
		UpdatedAt:     e.updatedAt,
	}
	e.assets.each(func(a *Asset) { s.Assets = append(s.Assets, *a.clone()) })
	e.debts.each(func(d *Debt) { s.Debts = append(s.Debts, *d.clone()) })
	e.gifts.each(func(g *GiftInterVivos) { s.Gifts = append(s.Gifts, *g.clone()) })
	e.dependants.each(func(d *Dependant) { s.Dependants = append(s.Dependants, *d.clone()) })
	return s
}

// Restore rebuilds an Estate from a snapshot and re-checks the ledger invariants:
// every amount is in the estate currency, per-debt reservations sum to the reserved
// total and the reserved total does not exceed cash on hand.
func Restore(s Snapshot, policy Policy) (*Estate, error) {
	const op = "Estate.Restore"
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil || s.DeceasedID == uuid.Nil {
		return nil, validationErr(op, nil, "snapshot is missing its identity")
	}
	e := &Estate{
		id:            s.ID,
		deceasedID:    s.DeceasedID,
		name:          s.Name,
		currency:      s.Currency,
		status:        s.Status,
		isFrozen:      s.IsFrozen,
		freezeReason:  s.FreezeReason,
		freezeHistory: append([]FreezeRecord(nil), s.FreezeHistory...),
		cashOnHand:    s.CashOnHand,
		cashReserved:  s.CashReserved,
		taxCompliance: s.TaxCompliance,
		taxReference:  s.TaxReference,
		assets:        newArena[Asset](),
		debts:         newArena[Debt](),
		gifts:         newArena[GiftInterVivos](),
		dependants:    newArena[Dependant](),
		version:       s.Version,
		createdAt:     s.CreatedAt,
		updatedAt:     s.UpdatedAt,
		policy:        policy,
	}
	if err := e.requireCurrency(op, e.cashOnHand); err != nil {
		return nil, err
	}
	if err := e.requireCurrency(op, e.cashReserved); err != nil {
		return nil, err
	}
	for i := range s.Assets {
		a := s.Assets[i]
		if err := e.requireCurrency(op, a.CurrentValue); err != nil {
			return nil, err
		}
		e.assets.put(a.ID, a.clone())
	}
	sumReserved := money.Zero(e.currency)
	for i := range s.Debts {
		d := s.Debts[i]
		if err := e.requireCurrency(op, d.OutstandingBalance); err != nil {
			return nil, err
		}
		next, err := sumReserved.Add(d.Reserved)
		if err != nil {
			return nil, err
		}
		sumReserved = next
		e.debts.put(d.ID, d.clone())
	}
	for i := range s.Gifts {
		g := s.Gifts[i]
		if err := e.requireCurrency(op, g.ValueAtTimeOfGift); err != nil {
			return nil, err
		}
		e.gifts.put(g.ID, g.clone())
	}
	for i := range s.Dependants {
		d := s.Dependants[i]
		e.dependants.put(d.ID, d.clone())
	}
	if !sumReserved.Equal(e.cashReserved) {
		return nil, illegalState(op, nil, "debt reservations total %s but estate reserves %s", sumReserved, e.cashReserved)
	}
	if over, _ := e.cashReserved.IsGreaterThan(e.cashOnHand); over {
		return nil, illegalState(op, ErrInsufficientCash, "reserved cash %s exceeds cash on hand %s", e.cashReserved, e.cashOnHand)
	}
	return e, nil
}
