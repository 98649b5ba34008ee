package estate

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/estate-backend/internal/domain/aggregates"
	"github.com/yungbote/estate-backend/internal/domain/money"
)

// EstateStatus is the administration phase of an estate.
type EstateStatus string

const (
	EstateOpen         EstateStatus = "OPEN"
	EstateLiquidating  EstateStatus = "LIQUIDATING"
	EstateDistributing EstateStatus = "DISTRIBUTING"
	EstateClosed       EstateStatus = "CLOSED"
)

func (s EstateStatus) String() string { return string(s) }

const (
	estateActionBeginLiquidation  = "begin_liquidation"
	estateActionBeginDistribution = "begin_distribution"
	estateActionResumeLiquidation = "resume_liquidation"
	estateActionClose             = "close"
)

var estateTransitions = transitionTable[EstateStatus]{
	{EstateOpen, estateActionBeginLiquidation}:          EstateLiquidating,
	{EstateOpen, estateActionBeginDistribution}:         EstateDistributing,
	{EstateLiquidating, estateActionBeginDistribution}:  EstateDistributing,
	{EstateDistributing, estateActionResumeLiquidation}: EstateLiquidating,
	{EstateDistributing, estateActionClose}:             EstateClosed,
}

// TaxCompliance is the estate's standing with the revenue authority.
type TaxCompliance string

const (
	TaxNotAssessed TaxCompliance = "NOT_ASSESSED"
	TaxPending     TaxCompliance = "PENDING"
	TaxCleared     TaxCompliance = "CLEARED"
	TaxExempt      TaxCompliance = "EXEMPT"
)

// IsCleared reports whether distribution may proceed from a tax standpoint.
func (t TaxCompliance) IsCleared() bool { return t == TaxCleared || t == TaxExempt }

func (t TaxCompliance) valid() bool {
	switch t {
	case TaxNotAssessed, TaxPending, TaxCleared, TaxExempt:
		return true
	}
	return false
}

// FreezeRecord is one freeze or unfreeze action.
type FreezeRecord struct {
	Frozen bool      `json:"frozen"`
	Reason string    `json:"reason"`
	Actor  string    `json:"actor,omitempty"`
	At     time.Time `json:"at"`
}

// Estate is the aggregate root of one deceased person's estate. Every mutation goes
// through an Estate method; children are never shared across estates and hold no
// reference back to the root.
type Estate struct {
	id            uuid.UUID
	deceasedID    uuid.UUID
	name          string
	currency      string
	status        EstateStatus
	isFrozen      bool
	freezeReason  string
	freezeHistory []FreezeRecord
	cashOnHand    money.Money
	cashReserved  money.Money
	taxCompliance TaxCompliance
	taxReference  string

	assets     arena[Asset]
	debts      arena[Debt]
	gifts      arena[GiftInterVivos]
	dependants arena[Dependant]

	version   int64
	createdAt time.Time
	updatedAt time.Time

	policy  Policy
	meta    CommandMetadata
	pending []Event
}

var _ aggregates.Aggregate = (*Estate)(nil)

// Contract describes the estate write boundary.
func (e *Estate) Contract() aggregates.Contract {
	return aggregates.Contract{
		Name:             "estate",
		WriteTxOwnership: aggregates.WriteTxOwnedByAggregate,
		ReadPolicy:       aggregates.ReadPolicyWholeAggregate,
		Concurrency:      aggregates.ConcurrencyOptimisticVersion,
		Notes:            "root, children and outbox events commit in one transaction; version is compared and swapped on save",
	}
}

// EstateInput describes an estate opened on death registration.
type EstateInput struct {
	ID          uuid.UUID
	DeceasedID  uuid.UUID
	Name        string
	Currency    string
	OpeningCash *money.Money
}

// NewEstate opens an estate at version 0. The store assigns version 1 on first save.
func NewEstate(in EstateInput, policy Policy, meta CommandMetadata) (*Estate, error) {
	const op = "Estate.New"
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if in.DeceasedID == uuid.Nil {
		return nil, validationErr(op, nil, "deceased id is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationErr(op, nil, "estate name is required")
	}
	cur := strings.TrimSpace(in.Currency)
	if cur == "" {
		cur = policy.Currency
	}
	zero := money.Zero(cur)
	if !zero.IsValid() {
		return nil, validationErr(op, money.ErrInvalidCurrency, "invalid currency %q", in.Currency)
	}
	cash := zero
	if in.OpeningCash != nil {
		if in.OpeningCash.Currency() != zero.Currency() {
			return nil, validationErr(op, money.ErrCurrencyMismatch, "opening cash in %s for an estate in %s", in.OpeningCash.Currency(), zero.Currency())
		}
		cash = *in.OpeningCash
	}
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	e := &Estate{
		id:            id,
		deceasedID:    in.DeceasedID,
		name:          name,
		currency:      zero.Currency(),
		status:        EstateOpen,
		cashOnHand:    cash,
		cashReserved:  zero,
		taxCompliance: TaxNotAssessed,
		assets:        newArena[Asset](),
		debts:         newArena[Debt](),
		gifts:         newArena[GiftInterVivos](),
		dependants:    newArena[Dependant](),
		policy:        policy,
		meta:          meta,
	}
	now := e.now()
	e.createdAt, e.updatedAt = now, now
	e.record(EventEstateRegistered, now, map[string]any{
		"deceased_id":  e.deceasedID.String(),
		"name":         e.name,
		"currency":     e.currency,
		"opening_cash": e.cashOnHand,
	})
	return e, nil
}

// SetCommandMetadata binds actor, correlation id and clock for the next mutation.
func (e *Estate) SetCommandMetadata(meta CommandMetadata) { e.meta = meta }

func (e *Estate) now() time.Time {
	if !e.meta.At.IsZero() {
		return e.meta.At.UTC()
	}
	return time.Now().UTC()
}

// begin guards every mutation except freeze and unfreeze.
func (e *Estate) begin(op string) (time.Time, error) {
	if e.isFrozen {
		return time.Time{}, illegalState(op, ErrEstateFrozen, "estate %s is frozen: %s", e.id, e.freezeReason)
	}
	if e.status == EstateClosed {
		return time.Time{}, illegalState(op, ErrEstateClosed, "estate %s is closed", e.id)
	}
	return e.now(), nil
}

func (e *Estate) touch(at time.Time) { e.updatedAt = at }

func (e *Estate) ID() uuid.UUID                     { return e.id }
func (e *Estate) DeceasedID() uuid.UUID             { return e.deceasedID }
func (e *Estate) Name() string                      { return e.name }
func (e *Estate) Currency() string                  { return e.currency }
func (e *Estate) Status() EstateStatus              { return e.status }
func (e *Estate) IsFrozen() bool                    { return e.isFrozen }
func (e *Estate) FreezeReason() string              { return e.freezeReason }
func (e *Estate) CashOnHand() money.Money           { return e.cashOnHand }
func (e *Estate) CashReservedForDebts() money.Money { return e.cashReserved }
func (e *Estate) TaxCompliance() TaxCompliance      { return e.taxCompliance }
func (e *Estate) TaxReference() string              { return e.taxReference }
func (e *Estate) Version() int64                    { return e.version }
func (e *Estate) CreatedAt() time.Time              { return e.createdAt }
func (e *Estate) UpdatedAt() time.Time              { return e.updatedAt }
func (e *Estate) Policy() Policy                    { return e.policy }

// FreezeHistory lists every freeze and unfreeze in order.
func (e *Estate) FreezeHistory() []FreezeRecord {
	return append([]FreezeRecord(nil), e.freezeHistory...)
}

// AvailableCash is cash on hand not reserved against debts.
func (e *Estate) AvailableCash() money.Money {
	out, err := e.cashOnHand.Subtract(e.cashReserved)
	if err != nil {
		return money.Zero(e.currency)
	}
	return out
}

// Asset returns a copy of the asset with id.
func (e *Estate) Asset(id uuid.UUID) (*Asset, bool) {
	a, ok := e.assets.get(id)
	if !ok {
		return nil, false
	}
	return a.clone(), true
}

// Assets returns copies of all assets in insertion order.
func (e *Estate) Assets() []*Asset {
	out := make([]*Asset, 0, e.assets.len())
	e.assets.each(func(a *Asset) { out = append(out, a.clone()) })
	return out
}

func (e *Estate) Debt(id uuid.UUID) (*Debt, bool) {
	d, ok := e.debts.get(id)
	if !ok {
		return nil, false
	}
	return d.clone(), true
}

func (e *Estate) Debts() []*Debt {
	out := make([]*Debt, 0, e.debts.len())
	e.debts.each(func(d *Debt) { out = append(out, d.clone()) })
	return out
}

func (e *Estate) Gift(id uuid.UUID) (*GiftInterVivos, bool) {
	g, ok := e.gifts.get(id)
	if !ok {
		return nil, false
	}
	return g.clone(), true
}

func (e *Estate) Gifts() []*GiftInterVivos {
	out := make([]*GiftInterVivos, 0, e.gifts.len())
	e.gifts.each(func(g *GiftInterVivos) { out = append(out, g.clone()) })
	return out
}

func (e *Estate) Dependant(id uuid.UUID) (*Dependant, bool) {
	d, ok := e.dependants.get(id)
	if !ok {
		return nil, false
	}
	return d.clone(), true
}

func (e *Estate) Dependants() []*Dependant {
	out := make([]*Dependant, 0, e.dependants.len())
	e.dependants.each(func(d *Dependant) { out = append(out, d.clone()) })
	return out
}

// Freeze halts every other mutation. It is always permitted; freezing a frozen estate
// replaces the reason.
func (e *Estate) Freeze(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return validationErr("Estate.Freeze", nil, "freeze reason is required")
	}
	now := e.now()
	e.isFrozen = true
	e.freezeReason = reason
	e.freezeHistory = append(e.freezeHistory, FreezeRecord{Frozen: true, Reason: reason, Actor: e.meta.Actor, At: now})
	e.touch(now)
	e.record(EventEstateFrozen, now, map[string]any{"reason": reason})
	return nil
}

// Unfreeze lifts a freeze. It is always permitted.
func (e *Estate) Unfreeze(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return validationErr("Estate.Unfreeze", nil, "unfreeze reason is required")
	}
	now := e.now()
	e.isFrozen = false
	e.freezeReason = ""
	e.freezeHistory = append(e.freezeHistory, FreezeRecord{Frozen: false, Reason: reason, Actor: e.meta.Actor, At: now})
	e.touch(now)
	e.record(EventEstateUnfrozen, now, map[string]any{"reason": reason})
	return nil
}

func (e *Estate) changePhase(op, action, note string) error {
	now, err := e.begin(op)
	if err != nil {
		return err
	}
	next, ok := estateTransitions.next(e.status, action)
	if !ok {
		return transitionErr(op, "estate "+e.id.String(), e.status.String(), action)
	}
	from := e.status
	e.status = next
	e.touch(now)
	e.record(EventEstatePhaseChanged, now, map[string]any{
		"from":   from,
		"to":     next,
		"action": action,
		"note":   strings.TrimSpace(note),
	})
	return nil
}

// BeginLiquidation moves an OPEN estate to LIQUIDATING.
func (e *Estate) BeginLiquidation(note string) error {
	return e.changePhase("Estate.BeginLiquidation", estateActionBeginLiquidation, note)
}

// BeginDistribution moves the estate to DISTRIBUTING once readiness passes.
func (e *Estate) BeginDistribution(note string) error {
	const op = "Estate.BeginDistribution"
	if r := e.ValidateDistributionReadiness(); !r.Ready {
		return illegalState(op, ErrDistributionDenied, "estate %s is not ready for distribution: %s", e.id, r.Summary())
	}
	return e.changePhase(op, estateActionBeginDistribution, note)
}

// ResumeLiquidation returns a DISTRIBUTING estate to LIQUIDATING.
func (e *Estate) ResumeLiquidation(note string) error {
	return e.changePhase("Estate.ResumeLiquidation", estateActionResumeLiquidation, note)
}

// Close ends administration of a DISTRIBUTING estate.
func (e *Estate) Close(note string) error {
	return e.changePhase("Estate.Close", estateActionClose, note)
}

// SetTaxCompliance records the revenue authority status.
func (e *Estate) SetTaxCompliance(status TaxCompliance, reference string) error {
	const op = "Estate.SetTaxCompliance"
	now, err := e.begin(op)
	if err != nil {
		return err
	}
	if !status.valid() {
		return validationErr(op, nil, "unknown tax compliance status %q", status)
	}
	from := e.taxCompliance
	e.taxCompliance = status
	e.taxReference = strings.TrimSpace(reference)
	e.touch(now)
	e.record(EventTaxComplianceUpdated, now, map[string]any{"from": from, "to": status, "reference": e.taxReference})
	return nil
}

// RegisterDependant adds a dependant with a pending claim.
func (e *Estate) RegisterDependant(in DependantInput) (*Dependant, error) {
	const op = "Estate.RegisterDependant"
	now, err := e.begin(op)
	if err != nil {
		return nil, err
	}
	d, err := NewDependant(e.id, in, now)
	if err != nil {
		return nil, err
	}
	if e.dependants.has(d.ID) {
		return nil, validationErr(op, nil, "dependant %s already registered", d.ID)
	}
	e.dependants.put(d.ID, d)
	e.touch(now)
	e.record(EventDependantRegistered, now, map[string]any{
		"dependant_id": d.ID.String(),
		"relationship": d.Relationship,
		"is_minor":     d.IsMinor,
	})
	return d.clone(), nil
}

// ResolveDependantClaim approves or rejects a dependant's claim.
func (e *Estate) ResolveDependantClaim(id uuid.UUID, approved bool, notes string) error {
	const op = "Estate.ResolveDependantClaim"
	now, err := e.begin(op)
	if err != nil {
		return err
	}
	cur, ok := e.dependants.get(id)
	if !ok {
		return unknownChild(op, "dependant", id.String())
	}
	d := cur.clone()
	if err := d.ResolveClaim(approved, notes, now); err != nil {
		return err
	}
	e.dependants.put(id, d)
	e.touch(now)
	e.record(EventDependantClaimResolved, now, map[string]any{"dependant_id": id.String(), "status": d.ClaimStatus})
	return nil
}
