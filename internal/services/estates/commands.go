package estates

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/estate-backend/internal/domain/estate"
	"github.com/yungbote/estate-backend/internal/domain/money"
)

// Command is one validated estate mutation. Apply must call exactly one Estate
// method; it may run more than once when a save loses a version race.
type Command interface {
	Name() string
	Apply(e *estate.Estate) error
}

// creator is implemented by commands that open a child entity. The service fixes
// the id before the first attempt so a retried command reuses it.
type creator interface {
	ensureID()
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// Estate phase and flags.

type Freeze struct{ Reason string }

func (Freeze) Name() string                   { return "Freeze" }
func (c Freeze) Apply(e *estate.Estate) error { return e.Freeze(c.Reason) }

type Unfreeze struct{ Reason string }

func (Unfreeze) Name() string                   { return "Unfreeze" }
func (c Unfreeze) Apply(e *estate.Estate) error { return e.Unfreeze(c.Reason) }

type BeginLiquidation struct{ Note string }

func (BeginLiquidation) Name() string                   { return "BeginLiquidation" }
func (c BeginLiquidation) Apply(e *estate.Estate) error { return e.BeginLiquidation(c.Note) }

type BeginDistribution struct{ Note string }

func (BeginDistribution) Name() string                   { return "BeginDistribution" }
func (c BeginDistribution) Apply(e *estate.Estate) error { return e.BeginDistribution(c.Note) }

type ResumeLiquidation struct{ Note string }

func (ResumeLiquidation) Name() string                   { return "ResumeLiquidation" }
func (c ResumeLiquidation) Apply(e *estate.Estate) error { return e.ResumeLiquidation(c.Note) }

type CloseEstate struct{ Note string }

func (CloseEstate) Name() string                   { return "CloseEstate" }
func (c CloseEstate) Apply(e *estate.Estate) error { return e.Close(c.Note) }

type SetTaxCompliance struct {
	Status    estate.TaxCompliance
	Reference string
}

func (SetTaxCompliance) Name() string { return "SetTaxCompliance" }
func (c SetTaxCompliance) Apply(e *estate.Estate) error {
	return e.SetTaxCompliance(c.Status, c.Reference)
}

// Cash and debts.

type RecordCashReceipt struct {
	Amount    money.Money
	Source    string
	Reference string
}

func (RecordCashReceipt) Name() string { return "RecordCashReceipt" }
func (c RecordCashReceipt) Apply(e *estate.Estate) error {
	return e.RecordCashReceipt(c.Amount, c.Source, c.Reference)
}

type AddDebt struct{ In estate.DebtInput }

func (*AddDebt) Name() string { return "AddDebt" }
func (c *AddDebt) ensureID()   { ensureID(&c.In.ID) }
func (c *AddDebt) Apply(e *estate.Estate) error {
	_, err := e.AddDebt(c.In)
	return err
}

type PayDebt struct {
	DebtID    uuid.UUID
	Amount    money.Money
	Reference string
}

func (PayDebt) Name() string { return "PayDebt" }
func (c PayDebt) Apply(e *estate.Estate) error {
	return e.PayDebt(c.DebtID, c.Amount, c.Reference)
}

type DisputeDebt struct {
	DebtID uuid.UUID
	Reason string
}

func (DisputeDebt) Name() string                   { return "DisputeDebt" }
func (c DisputeDebt) Apply(e *estate.Estate) error { return e.DisputeDebt(c.DebtID, c.Reason) }

type ResolveDebtDispute struct {
	DebtID     uuid.UUID
	Resolution estate.DisputeResolution
}

func (ResolveDebtDispute) Name() string { return "ResolveDebtDispute" }
func (c ResolveDebtDispute) Apply(e *estate.Estate) error {
	return e.ResolveDebtDispute(c.DebtID, c.Resolution)
}

type WriteOffDebt struct {
	DebtID       uuid.UUID
	Amount       *money.Money
	Reason       string
	AuthorizedBy string
}

func (WriteOffDebt) Name() string { return "WriteOffDebt" }
func (c WriteOffDebt) Apply(e *estate.Estate) error {
	return e.WriteOffDebt(c.DebtID, c.Amount, c.Reason, c.AuthorizedBy)
}

type MarkDebtStatuteBarred struct {
	DebtID uuid.UUID
	Reason string
}

func (MarkDebtStatuteBarred) Name() string { return "MarkDebtStatuteBarred" }
func (c MarkDebtStatuteBarred) Apply(e *estate.Estate) error {
	return e.MarkDebtStatuteBarred(c.DebtID, c.Reason)
}

type ReserveCashForDebt struct {
	DebtID uuid.UUID
	Amount money.Money
}

func (ReserveCashForDebt) Name() string { return "ReserveCashForDebt" }
func (c ReserveCashForDebt) Apply(e *estate.Estate) error {
	return e.ReserveCashForDebt(c.DebtID, c.Amount)
}

// ReleaseDebtReservation releases Amount, or the whole reservation when nil.
type ReleaseDebtReservation struct {
	DebtID uuid.UUID
	Amount *money.Money
}

func (ReleaseDebtReservation) Name() string { return "ReleaseDebtReservation" }
func (c ReleaseDebtReservation) Apply(e *estate.Estate) error {
	return e.ReleaseDebtReservation(c.DebtID, c.Amount)
}

type ReallocateReservations struct{}

func (ReallocateReservations) Name() string                 { return "ReallocateReservations" }
func (ReallocateReservations) Apply(e *estate.Estate) error { return e.ReallocateReservations() }

// Assets and co-owners.

type AddAsset struct{ In estate.AssetInput }

func (*AddAsset) Name() string { return "AddAsset" }
func (c *AddAsset) ensureID()   { ensureID(&c.In.ID) }
func (c *AddAsset) Apply(e *estate.Estate) error {
	_, err := e.AddAsset(c.In)
	return err
}

type RevalueAsset struct {
	AssetID uuid.UUID
	Value   money.Money
	Valuer  string
	Method  string
}

func (RevalueAsset) Name() string { return "RevalueAsset" }
func (c RevalueAsset) Apply(e *estate.Estate) error {
	return e.RevalueAsset(c.AssetID, c.Value, c.Valuer, c.Method)
}

type UpdateAssetDetails struct {
	AssetID uuid.UUID
	Details estate.AssetDetails
}

func (UpdateAssetDetails) Name() string { return "UpdateAssetDetails" }
func (c UpdateAssetDetails) Apply(e *estate.Estate) error {
	return e.UpdateAssetDetails(c.AssetID, c.Details)
}

type ChangeAssetStatus struct {
	AssetID uuid.UUID
	To      estate.AssetStatus
	Reason  string
}

func (ChangeAssetStatus) Name() string { return "ChangeAssetStatus" }
func (c ChangeAssetStatus) Apply(e *estate.Estate) error {
	return e.ChangeAssetStatus(c.AssetID, c.To, c.Reason)
}

type EncumberAsset struct {
	AssetID uuid.UUID
	Reason  string
}

func (EncumberAsset) Name() string                   { return "EncumberAsset" }
func (c EncumberAsset) Apply(e *estate.Estate) error { return e.EncumberAsset(c.AssetID, c.Reason) }

type ClearAssetEncumbrance struct{ AssetID uuid.UUID }

func (ClearAssetEncumbrance) Name() string { return "ClearAssetEncumbrance" }
func (c ClearAssetEncumbrance) Apply(e *estate.Estate) error {
	return e.ClearAssetEncumbrance(c.AssetID)
}

type AddAssetCoOwner struct {
	AssetID uuid.UUID
	In      estate.CoOwnerInput
}

func (*AddAssetCoOwner) Name() string { return "AddAssetCoOwner" }
func (c *AddAssetCoOwner) ensureID()   { ensureID(&c.In.ID) }
func (c *AddAssetCoOwner) Apply(e *estate.Estate) error {
	_, err := e.AddAssetCoOwner(c.AssetID, c.In)
	return err
}

type VerifyAssetCoOwner struct {
	AssetID     uuid.UUID
	CoOwnerID   uuid.UUID
	EvidenceRef *string
}

func (VerifyAssetCoOwner) Name() string { return "VerifyAssetCoOwner" }
func (c VerifyAssetCoOwner) Apply(e *estate.Estate) error {
	return e.VerifyAssetCoOwner(c.AssetID, c.CoOwnerID, c.EvidenceRef)
}

type RemoveAssetCoOwner struct {
	AssetID   uuid.UUID
	CoOwnerID uuid.UUID
	Reason    string
}

func (RemoveAssetCoOwner) Name() string { return "RemoveAssetCoOwner" }
func (c RemoveAssetCoOwner) Apply(e *estate.Estate) error {
	return e.RemoveAssetCoOwner(c.AssetID, c.CoOwnerID, c.Reason)
}

// Liquidation.

type StartLiquidation struct {
	AssetID uuid.UUID
	In      estate.LiquidationInput
}

func (*StartLiquidation) Name() string { return "StartLiquidation" }
func (c *StartLiquidation) ensureID()   { ensureID(&c.In.ID) }
func (c *StartLiquidation) Apply(e *estate.Estate) error {
	_, err := e.StartLiquidation(c.AssetID, c.In)
	return err
}

type AdvanceLiquidation struct {
	AssetID uuid.UUID
	Action  estate.LiquidationAction
	Note    string
}

func (AdvanceLiquidation) Name() string { return "AdvanceLiquidation" }
func (c AdvanceLiquidation) Apply(e *estate.Estate) error {
	return e.AdvanceLiquidation(c.AssetID, c.Action, c.Note)
}

type ApproveLiquidation struct {
	AssetID       uuid.UUID
	CourtOrderRef string
}

func (ApproveLiquidation) Name() string { return "ApproveLiquidation" }
func (c ApproveLiquidation) Apply(e *estate.Estate) error {
	return e.ApproveLiquidation(c.AssetID, c.CourtOrderRef)
}

type ScheduleLiquidationAuction struct {
	AssetID   uuid.UUID
	AuctionAt time.Time
}

func (ScheduleLiquidationAuction) Name() string { return "ScheduleLiquidationAuction" }
func (c ScheduleLiquidationAuction) Apply(e *estate.Estate) error {
	return e.ScheduleLiquidationAuction(c.AssetID, c.AuctionAt)
}

type RecordLiquidationSale struct {
	AssetID uuid.UUID
	Amount  money.Money
	Buyer   estate.BuyerInfo
}

func (RecordLiquidationSale) Name() string { return "RecordLiquidationSale" }
func (c RecordLiquidationSale) Apply(e *estate.Estate) error {
	return e.RecordLiquidationSale(c.AssetID, c.Amount, c.Buyer)
}

type ReceiveLiquidationProceeds struct{ AssetID uuid.UUID }

func (ReceiveLiquidationProceeds) Name() string { return "ReceiveLiquidationProceeds" }
func (c ReceiveLiquidationProceeds) Apply(e *estate.Estate) error {
	return e.ReceiveLiquidationProceeds(c.AssetID)
}

// Gifts inter vivos.

type RecordGift struct{ In estate.GiftInput }

func (*RecordGift) Name() string { return "RecordGift" }
func (c *RecordGift) ensureID()   { ensureID(&c.In.ID) }
func (c *RecordGift) Apply(e *estate.Estate) error {
	_, err := e.RecordGift(c.In)
	return err
}

type ContestGift struct {
	GiftID uuid.UUID
	Reason string
}

func (ContestGift) Name() string                   { return "ContestGift" }
func (c ContestGift) Apply(e *estate.Estate) error { return e.ContestGift(c.GiftID, c.Reason) }

type ResolveGiftContest struct {
	GiftID  uuid.UUID
	Outcome estate.GiftStatus
	Notes   string
}

func (ResolveGiftContest) Name() string { return "ResolveGiftContest" }
func (c ResolveGiftContest) Apply(e *estate.Estate) error {
	return e.ResolveGiftContest(c.GiftID, c.Outcome, c.Notes)
}

type CorrectGiftValue struct {
	GiftID uuid.UUID
	Value  money.Money
	Reason string
}

func (CorrectGiftValue) Name() string { return "CorrectGiftValue" }
func (c CorrectGiftValue) Apply(e *estate.Estate) error {
	return e.CorrectGiftValue(c.GiftID, c.Value, c.Reason)
}

type UpdateGiftEstimate struct {
	GiftID uuid.UUID
	Value  money.Money
}

func (UpdateGiftEstimate) Name() string { return "UpdateGiftEstimate" }
func (c UpdateGiftEstimate) Apply(e *estate.Estate) error {
	return e.UpdateGiftEstimate(c.GiftID, c.Value)
}

// Dependants.

type RegisterDependant struct{ In estate.DependantInput }

func (*RegisterDependant) Name() string { return "RegisterDependant" }
func (c *RegisterDependant) ensureID()   { ensureID(&c.In.ID) }
func (c *RegisterDependant) Apply(e *estate.Estate) error {
	_, err := e.RegisterDependant(c.In)
	return err
}

type ResolveDependantClaim struct {
	DependantID uuid.UUID
	Approved    bool
	Notes       string
}

func (ResolveDependantClaim) Name() string { return "ResolveDependantClaim" }
func (c ResolveDependantClaim) Apply(e *estate.Estate) error {
	return e.ResolveDependantClaim(c.DependantID, c.Approved, c.Notes)
}
