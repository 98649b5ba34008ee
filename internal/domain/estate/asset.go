package estate

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/estate-backend/internal/domain/money"
)

// AssetStatus is the inventory state of an asset.
type AssetStatus string

const (
	AssetActive      AssetStatus = "ACTIVE"
	AssetEncumbered  AssetStatus = "ENCUMBERED"
	AssetDisputed    AssetStatus = "DISPUTED"
	AssetLiquidated  AssetStatus = "LIQUIDATED"
	AssetTransferred AssetStatus = "TRANSFERRED"
	AssetDeleted     AssetStatus = "DELETED"
)

func (s AssetStatus) String() string { return string(s) }

// IsTerminal reports whether the asset has left the inventory.
func (s AssetStatus) IsTerminal() bool {
	return s == AssetLiquidated || s == AssetTransferred || s == AssetDeleted
}

// Asset status actions are named after their target.
var assetActionFor = map[AssetStatus]string{
	AssetActive:      "activate",
	AssetEncumbered:  "encumber",
	AssetDisputed:    "dispute",
	AssetLiquidated:  "liquidate",
	AssetTransferred: "transfer",
	AssetDeleted:     "delete",
}

var assetTransitions = transitionTable[AssetStatus]{
	{AssetActive, "encumber"}:      AssetEncumbered,
	{AssetActive, "dispute"}:       AssetDisputed,
	{AssetActive, "liquidate"}:     AssetLiquidated,
	{AssetActive, "transfer"}:      AssetTransferred,
	{AssetActive, "delete"}:        AssetDeleted,
	{AssetEncumbered, "activate"}:  AssetActive,
	{AssetEncumbered, "dispute"}:   AssetDisputed,
	{AssetEncumbered, "liquidate"}: AssetLiquidated,
	{AssetDisputed, "activate"}:    AssetActive,
	{AssetDisputed, "encumber"}:    AssetEncumbered,
	{AssetDisputed, "delete"}:      AssetDeleted,
}

// Valuation is one entry of an asset's valuation history.
type Valuation struct {
	Value    money.Money `json:"value"`
	Valuer   string      `json:"valuer,omitempty"`
	Method   string      `json:"method,omitempty"`
	ValuedAt time.Time   `json:"valued_at"`
}

// Asset is an inventory item owned by an Estate.
type Asset struct {
	ID                uuid.UUID
	EstateID          uuid.UUID
	Name              string
	Description       string
	Details           AssetDetails
	CurrentValue      money.Money
	Status            AssetStatus
	IsEncumbered      bool
	EncumbranceReason string
	CoOwnership       *CoOwnership
	Valuations        []Valuation
	Liquidation       *AssetLiquidation
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AssetInput describes an asset to add to the inventory.
type AssetInput struct {
	ID              uuid.UUID
	Name            string
	Description     string
	Details         AssetDetails
	Value           money.Money
	Valuer          string
	ValuationMethod string
}

// NewAsset validates in and builds an ACTIVE asset with its first valuation.
func NewAsset(estateID uuid.UUID, in AssetInput, now time.Time) (*Asset, error) {
	const op = "Asset.New"
	if estateID == uuid.Nil {
		return nil, validationErr(op, nil, "missing estate id")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationErr(op, nil, "asset name is required")
	}
	details, err := normalizeDetails(op, in.Details)
	if err != nil {
		return nil, err
	}
	if !in.Value.IsValid() {
		return nil, validationErr(op, money.ErrInvalidCurrency, "asset value is required")
	}
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now = now.UTC()
	return &Asset{
		ID:           id,
		EstateID:     estateID,
		Name:         name,
		Description:  strings.TrimSpace(in.Description),
		Details:      details,
		CurrentValue: in.Value,
		Status:       AssetActive,
		Valuations: []Valuation{{
			Value:    in.Value,
			Valuer:   strings.TrimSpace(in.Valuer),
			Method:   strings.TrimSpace(in.ValuationMethod),
			ValuedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// normalizeDetails accepts both value and pointer variants and stores the value form.
func normalizeDetails(op string, d AssetDetails) (AssetDetails, error) {
	switch v := d.(type) {
	case nil:
		return nil, validationErr(op, nil, "asset details are required")
	case *LandDetails:
		if v == nil {
			return nil, validationErr(op, nil, "asset details are required")
		}
		d = *v
	case *VehicleDetails:
		if v == nil {
			return nil, validationErr(op, nil, "asset details are required")
		}
		d = *v
	case *FinancialDetails:
		if v == nil {
			return nil, validationErr(op, nil, "asset details are required")
		}
		d = *v
	case *BusinessDetails:
		if v == nil {
			return nil, validationErr(op, nil, "asset details are required")
		}
		d = *v
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Type is derived from the populated detail variant.
func (a *Asset) Type() AssetType {
	if a.Details == nil {
		return ""
	}
	return a.Details.AssetType()
}

func (a *Asset) requireMutable(op string) error {
	if a.Status.IsTerminal() {
		return illegalState(op, ErrInvalidTransition, "asset %s is %s", a.ID, a.Status)
	}
	return nil
}

func (a *Asset) requireUnencumbered(op string) error {
	if err := a.requireMutable(op); err != nil {
		return err
	}
	if a.IsEncumbered {
		return illegalState(op, ErrAssetEncumbered, "asset %s is encumbered: %s", a.ID, a.EncumbranceReason)
	}
	return nil
}

// ChangeStatus applies a manual status change. LIQUIDATED is reached only by
// receiving liquidation proceeds, and an asset with an active liquidation may not
// become DISPUTED, TRANSFERRED or DELETED.
func (a *Asset) ChangeStatus(to AssetStatus, at time.Time) error {
	const op = "Asset.ChangeStatus"
	if to == AssetLiquidated {
		return illegalState(op, ErrInvalidTransition, "asset %s becomes LIQUIDATED only when liquidation proceeds are received", a.ID)
	}
	if a.Liquidation != nil && to != AssetActive && to != AssetEncumbered {
		return illegalState(op, ErrLiquidationActive, "asset %s has liquidation %s in status %s", a.ID, a.Liquidation.ID, a.Liquidation.Status)
	}
	return a.transition(op, to, at)
}

// markLiquidated closes the asset out of the inventory once its sale proceeds are banked.
func (a *Asset) markLiquidated(at time.Time) error {
	return a.transition("Asset.MarkLiquidated", AssetLiquidated, at)
}

func (a *Asset) transition(op string, to AssetStatus, at time.Time) error {
	action, ok := assetActionFor[to]
	if !ok {
		return validationErr(op, nil, "unknown asset status %q", to)
	}
	next, ok := assetTransitions.next(a.Status, action)
	if !ok {
		return transitionErr(op, "asset "+a.ID.String(), a.Status.String(), action)
	}
	switch {
	case next == AssetEncumbered:
		a.IsEncumbered = true
	case a.Status == AssetEncumbered && next == AssetActive:
		a.IsEncumbered = false
		a.EncumbranceReason = ""
	}
	a.Status = next
	a.UpdatedAt = at.UTC()
	return nil
}

// MarkAsEncumbered sets the encumbrance flag, moving an ACTIVE asset to ENCUMBERED.
func (a *Asset) MarkAsEncumbered(reason string, at time.Time) error {
	const op = "Asset.MarkAsEncumbered"
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return validationErr(op, nil, "encumbrance reason is required")
	}
	if err := a.requireMutable(op); err != nil {
		return err
	}
	if a.IsEncumbered {
		return illegalState(op, ErrAssetEncumbered, "asset %s is already encumbered", a.ID)
	}
	if a.Status == AssetActive {
		if err := a.transition(op, AssetEncumbered, at); err != nil {
			return err
		}
	}
	a.IsEncumbered = true
	a.EncumbranceReason = reason
	a.UpdatedAt = at.UTC()
	return nil
}

// ClearEncumbrance lifts the flag, returning an ENCUMBERED asset to ACTIVE.
func (a *Asset) ClearEncumbrance(at time.Time) error {
	const op = "Asset.ClearEncumbrance"
	if err := a.requireMutable(op); err != nil {
		return err
	}
	if !a.IsEncumbered {
		return illegalState(op, nil, "asset %s is not encumbered", a.ID)
	}
	if a.Status == AssetEncumbered {
		return a.transition(op, AssetActive, at)
	}
	a.IsEncumbered = false
	a.EncumbranceReason = ""
	a.UpdatedAt = at.UTC()
	return nil
}

// UpdateValuation records a new valuation and makes it the current value.
func (a *Asset) UpdateValuation(v Valuation) error {
	const op = "Asset.UpdateValuation"
	if err := a.requireMutable(op); err != nil {
		return err
	}
	if !v.Value.IsValid() {
		return validationErr(op, money.ErrInvalidCurrency, "valuation amount is required")
	}
	if v.Value.Currency() != a.CurrentValue.Currency() {
		return validationErr(op, money.ErrCurrencyMismatch, "valuation in %s for asset valued in %s", v.Value.Currency(), a.CurrentValue.Currency())
	}
	v.Valuer = strings.TrimSpace(v.Valuer)
	v.Method = strings.TrimSpace(v.Method)
	v.ValuedAt = v.ValuedAt.UTC()
	a.Valuations = append(a.Valuations, v)
	a.CurrentValue = v.Value
	a.UpdatedAt = v.ValuedAt
	return nil
}

// UpdateDetails replaces the detail payload; the variant cannot change.
func (a *Asset) UpdateDetails(d AssetDetails, at time.Time) error {
	const op = "Asset.UpdateDetails"
	if err := a.requireUnencumbered(op); err != nil {
		return err
	}
	details, err := normalizeDetails(op, d)
	if err != nil {
		return err
	}
	if details.AssetType() != a.Type() {
		return validationErr(op, nil, "asset %s is %s, cannot take %s details", a.ID, a.Type(), details.AssetType())
	}
	a.Details = details
	a.UpdatedAt = at.UTC()
	return nil
}

// AddCoOwner registers a co-owner claim. The claim does not reduce the estate's
// share until verified.
func (a *Asset) AddCoOwner(in CoOwnerInput, at time.Time) (*AssetCoOwner, error) {
	const op = "Asset.AddCoOwner"
	if err := a.requireUnencumbered(op); err != nil {
		return nil, err
	}
	identity := strings.TrimSpace(in.OwnerIdentity)
	if identity == "" {
		return nil, validationErr(op, nil, "owner identity is required")
	}
	if err := validateSharePercentage(op, in.SharePercentage); err != nil {
		return nil, err
	}
	if !in.OwnershipType.valid() {
		return nil, validationErr(op, nil, "unknown ownership type %q", in.OwnershipType)
	}
	co := a.CoOwnership
	if co == nil {
		co = &CoOwnership{OwnershipType: in.OwnershipType}
	}
	hasActive := false
	for _, o := range co.CoOwners {
		if !o.IsActive {
			continue
		}
		hasActive = true
		if strings.EqualFold(o.OwnerIdentity, identity) {
			return nil, validationErr(op, ErrDuplicateCoOwner, "owner %s already holds a share of asset %s", identity, a.ID)
		}
	}
	if hasActive && co.OwnershipType != in.OwnershipType {
		return nil, validationErr(op, nil, "asset %s is held as %s, cannot add a %s co-owner", a.ID, co.OwnershipType, in.OwnershipType)
	}
	total := co.TotalSharePercentage().Add(in.SharePercentage)
	if total.GreaterThan(hundredPercent) {
		return nil, validationErr(op, ErrShareCapExceeded, "co-owner shares would total %s percent", total)
	}
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	at = at.UTC()
	owner := AssetCoOwner{
		ID:              id,
		AssetID:         a.ID,
		OwnerIdentity:   identity,
		OwnerName:       strings.TrimSpace(in.OwnerName),
		SharePercentage: in.SharePercentage,
		OwnershipType:   in.OwnershipType,
		IsActive:        true,
		EvidenceRef:     in.EvidenceRef,
		AddedAt:         at,
	}
	if !hasActive {
		co.OwnershipType = in.OwnershipType
	}
	co.CoOwners = append(co.CoOwners, owner)
	a.CoOwnership = co
	a.UpdatedAt = at
	return &co.CoOwners[len(co.CoOwners)-1], nil
}

// VerifyCoOwner confirms a claim so that it counts against the estate's share.
func (a *Asset) VerifyCoOwner(coOwnerID uuid.UUID, by string, evidenceRef *string, at time.Time) error {
	const op = "Asset.VerifyCoOwner"
	if err := a.requireMutable(op); err != nil {
		return err
	}
	o := a.coOwner(coOwnerID)
	if o == nil {
		return unknownChild(op, "co-owner", coOwnerID.String())
	}
	if err := o.verify(by, evidenceRef, at); err != nil {
		return err
	}
	a.UpdatedAt = at.UTC()
	return nil
}

// RemoveCoOwner deactivates a claim; the record is kept.
func (a *Asset) RemoveCoOwner(coOwnerID uuid.UUID, at time.Time) error {
	const op = "Asset.RemoveCoOwner"
	if err := a.requireUnencumbered(op); err != nil {
		return err
	}
	o := a.coOwner(coOwnerID)
	if o == nil {
		return unknownChild(op, "co-owner", coOwnerID.String())
	}
	if err := o.deactivate(at); err != nil {
		return err
	}
	a.UpdatedAt = at.UTC()
	return nil
}

func (a *Asset) coOwner(id uuid.UUID) *AssetCoOwner {
	if a.CoOwnership == nil {
		return nil
	}
	return a.CoOwnership.find(id)
}

// EstateSharePercent is the percentage of the asset that passes through the estate.
func (a *Asset) EstateSharePercent() decimal.Decimal {
	if a.CoOwnership == nil {
		return hundredPercent
	}
	if a.CoOwnership.HasSurvivor() {
		return decimal.Zero
	}
	share := hundredPercent.Sub(a.CoOwnership.VerifiedSharePercentage())
	if share.IsNegative() {
		return decimal.Zero
	}
	return share
}

// GetDistributableValue is the part of the current value that belongs to the estate.
// Liquidated value is zero here because it already sits in the cash ledger.
func (a *Asset) GetDistributableValue() (money.Money, error) {
	zero := money.Zero(a.CurrentValue.Currency())
	if a.Status == AssetLiquidated || (a.Liquidation != nil && a.Liquidation.Status.proceedsRealized()) {
		return zero, nil
	}
	if a.Status == AssetTransferred || a.Status == AssetDeleted {
		return zero, nil
	}
	share := a.EstateSharePercent()
	if share.IsZero() {
		return zero, nil
	}
	return a.CurrentValue.Percent(share)
}

func (a *Asset) clone() *Asset {
	c := *a
	if a.CoOwnership != nil {
		c.CoOwnership = a.CoOwnership.clone()
	}
	c.Valuations = append([]Valuation(nil), a.Valuations...)
	if a.Liquidation != nil {
		c.Liquidation = a.Liquidation.clone()
	}
	return &c
}

type assetJSON struct {
	ID                uuid.UUID         `json:"id"`
	EstateID          uuid.UUID         `json:"estate_id"`
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	Details           json.RawMessage   `json:"details"`
	CurrentValue      money.Money       `json:"current_value"`
	Status            AssetStatus       `json:"status"`
	IsEncumbered      bool              `json:"is_encumbered"`
	EncumbranceReason string            `json:"encumbrance_reason,omitempty"`
	CoOwnership       *CoOwnership      `json:"co_ownership,omitempty"`
	Valuations        []Valuation       `json:"valuations"`
	Liquidation       *AssetLiquidation `json:"liquidation,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// MarshalJSON writes the detail variant as a tagged envelope.
func (a Asset) MarshalJSON() ([]byte, error) {
	details, err := MarshalAssetDetails(a.Details)
	if err != nil {
		return nil, err
	}
	return json.Marshal(assetJSON{
		ID:                a.ID,
		EstateID:          a.EstateID,
		Name:              a.Name,
		Description:       a.Description,
		Details:           details,
		CurrentValue:      a.CurrentValue,
		Status:            a.Status,
		IsEncumbered:      a.IsEncumbered,
		EncumbranceReason: a.EncumbranceReason,
		CoOwnership:       a.CoOwnership,
		Valuations:        a.Valuations,
		Liquidation:       a.Liquidation,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	})
}

func (a *Asset) UnmarshalJSON(raw []byte) error {
	var in assetJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return err
	}
	details, err := UnmarshalAssetDetails(in.Details)
	if err != nil {
		return err
	}
	*a = Asset{
		ID:                in.ID,
		EstateID:          in.EstateID,
		Name:              in.Name,
		Description:       in.Description,
		Details:           details,
		CurrentValue:      in.CurrentValue,
		Status:            in.Status,
		IsEncumbered:      in.IsEncumbered,
		EncumbranceReason: in.EncumbranceReason,
		CoOwnership:       in.CoOwnership,
		Valuations:        in.Valuations,
		Liquidation:       in.Liquidation,
		CreatedAt:         in.CreatedAt,
		UpdatedAt:         in.UpdatedAt,
	}
	return nil
}
