package estate

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/estate-backend/internal/domain/money"
)

// AddAsset adds an item to the estate inventory.
func (e *Estate) AddAsset(in AssetInput) (*Asset, error) {
	const op = "Estate.AddAsset"
	now, err := e.begin(op)
	if err != nil {
		return nil, err
	}
	if err := e.requireCurrency(op, in.Value); err != nil {
		return nil, err
	}
	a, err := NewAsset(e.id, in, now)
	if err != nil {
		return nil, err
	}
	if e.assets.has(a.ID) {
		return nil, validationErr(op, nil, "asset %s already registered", a.ID)
	}
	e.assets.put(a.ID, a)
	e.touch(now)
	e.record(EventAssetAdded, now, map[string]any{
		"asset_id": a.ID.String(),
		"name":     a.Name,
		"type":     a.Type(),
		"value":    a.CurrentValue,
	})
	return a.clone(), nil
}

// mutateAsset stages fn on a copy of the asset and swaps it in only when fn succeeds.
func (e *Estate) mutateAsset(op string, assetID uuid.UUID, fn func(a *Asset, now time.Time) error) (*Asset, time.Time, error) {
	now, err := e.begin(op)
	if err != nil {
		return nil, now, err
	}
	cur, ok := e.assets.get(assetID)
	if !ok {
		return nil, now, unknownChild(op, "asset", assetID.String())
	}
	a := cur.clone()
	if err := fn(a, now); err != nil {
		return nil, now, err
	}
	e.assets.put(a.ID, a)
	e.touch(now)
	return a, now, nil
}

// RevalueAsset records a new valuation.
func (e *Estate) RevalueAsset(assetID uuid.UUID, value money.Money, valuer, method string) error {
	a, now, err := e.mutateAsset("Estate.RevalueAsset", assetID, func(a *Asset, now time.Time) error {
		return a.UpdateValuation(Valuation{Value: value, Valuer: valuer, Method: method, ValuedAt: now})
	})
	if err != nil {
		return err
	}
	e.record(EventAssetRevalued, now, map[string]any{"asset_id": a.ID.String(), "value": a.CurrentValue, "valuer": strings.TrimSpace(valuer)})
	return nil
}

// UpdateAssetDetails replaces the detail payload within the same variant.
func (e *Estate) UpdateAssetDetails(assetID uuid.UUID, details AssetDetails) error {
	a, now, err := e.mutateAsset("Estate.UpdateAssetDetails", assetID, func(a *Asset, now time.Time) error {
		return a.UpdateDetails(details, now)
	})
	if err != nil {
		return err
	}
	e.record(EventAssetDetailsUpdated, now, map[string]any{"asset_id": a.ID.String(), "type": a.Type()})
	return nil
}

// ChangeAssetStatus moves an asset along its transition table.
func (e *Estate) ChangeAssetStatus(assetID uuid.UUID, to AssetStatus, reason string) error {
	var from AssetStatus
	a, now, err := e.mutateAsset("Estate.ChangeAssetStatus", assetID, func(a *Asset, now time.Time) error {
		from = a.Status
		return a.ChangeStatus(to, now)
	})
	if err != nil {
		return err
	}
	e.record(EventAssetStatusChanged, now, map[string]any{
		"asset_id": a.ID.String(),
		"from":     from,
		"to":       a.Status,
		"reason":   strings.TrimSpace(reason),
	})
	return nil
}

// EncumberAsset flags an asset as encumbered.
func (e *Estate) EncumberAsset(assetID uuid.UUID, reason string) error {
	a, now, err := e.mutateAsset("Estate.EncumberAsset", assetID, func(a *Asset, now time.Time) error {
		return a.MarkAsEncumbered(reason, now)
	})
	if err != nil {
		return err
	}
	e.record(EventAssetEncumbered, now, map[string]any{"asset_id": a.ID.String(), "reason": a.EncumbranceReason})
	return nil
}

// ClearAssetEncumbrance lifts an encumbrance.
func (e *Estate) ClearAssetEncumbrance(assetID uuid.UUID) error {
	a, now, err := e.mutateAsset("Estate.ClearAssetEncumbrance", assetID, func(a *Asset, now time.Time) error {
		return a.ClearEncumbrance(now)
	})
	if err != nil {
		return err
	}
	e.record(EventAssetEncumbranceCleared, now, map[string]any{"asset_id": a.ID.String(), "status": a.Status})
	return nil
}

// AddAssetCoOwner registers a co-owner claim against an asset.
func (e *Estate) AddAssetCoOwner(assetID uuid.UUID, in CoOwnerInput) (*AssetCoOwner, error) {
	var owner AssetCoOwner
	a, now, err := e.mutateAsset("Estate.AddAssetCoOwner", assetID, func(a *Asset, now time.Time) error {
		o, err := a.AddCoOwner(in, now)
		if err != nil {
			return err
		}
		owner = *o
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.record(EventCoOwnerAdded, now, map[string]any{
		"asset_id":         a.ID.String(),
		"co_owner_id":      owner.ID.String(),
		"owner_identity":   owner.OwnerIdentity,
		"share_percentage": owner.SharePercentage.String(),
		"ownership_type":   owner.OwnershipType,
	})
	return &owner, nil
}

// VerifyAssetCoOwner confirms a co-owner claim.
func (e *Estate) VerifyAssetCoOwner(assetID, coOwnerID uuid.UUID, evidenceRef *string) error {
	a, now, err := e.mutateAsset("Estate.VerifyAssetCoOwner", assetID, func(a *Asset, now time.Time) error {
		return a.VerifyCoOwner(coOwnerID, e.meta.Actor, evidenceRef, now)
	})
	if err != nil {
		return err
	}
	e.record(EventCoOwnerVerified, now, map[string]any{
		"asset_id":    a.ID.String(),
		"co_owner_id": coOwnerID.String(),
		"verified_by": e.meta.Actor,
	})
	return nil
}

// RemoveAssetCoOwner deactivates a co-owner claim.
func (e *Estate) RemoveAssetCoOwner(assetID, coOwnerID uuid.UUID, reason string) error {
	a, now, err := e.mutateAsset("Estate.RemoveAssetCoOwner", assetID, func(a *Asset, now time.Time) error {
		return a.RemoveCoOwner(coOwnerID, now)
	})
	if err != nil {
		return err
	}
	e.record(EventCoOwnerRemoved, now, map[string]any{
		"asset_id":    a.ID.String(),
		"co_owner_id": coOwnerID.String(),
		"reason":      strings.TrimSpace(reason),
	})
	return nil
}

// StartLiquidation opens a DRAFT liquidation on an asset. An asset carries at most
// one active liquidation.
func (e *Estate) StartLiquidation(assetID uuid.UUID, in LiquidationInput) (*AssetLiquidation, error) {
	const op = "Estate.StartLiquidation"
	a, now, err := e.mutateAsset(op, assetID, func(a *Asset, now time.Time) error {
		if err := a.requireMutable(op); err != nil {
			return err
		}
		if a.Liquidation != nil {
			return illegalState(op, ErrLiquidationActive, "asset %s already has liquidation %s in status %s", a.ID, a.Liquidation.ID, a.Liquidation.Status)
		}
		if a.Status == AssetDisputed {
			return illegalState(op, nil, "asset %s is disputed", a.ID)
		}
		l, err := NewLiquidation(a, in, e.policy, now)
		if err != nil {
			return err
		}
		a.Liquidation = l
		a.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	l := a.Liquidation
	e.record(EventLiquidationStarted, now, map[string]any{
		"asset_id":        a.ID.String(),
		"liquidation_id":  l.ID.String(),
		"type":            l.Type,
		"target_amount":   l.TargetAmount,
		"reserve_price":   l.ReservePrice,
		"commission_rate": l.CommissionRate.String(),
	})
	return l.clone(), nil
}

// mutateLiquidation stages fn on the asset's active liquidation.
func (e *Estate) mutateLiquidation(op string, assetID uuid.UUID, fn func(a *Asset, l *AssetLiquidation, now time.Time) error) (*Asset, *AssetLiquidation, time.Time, error) {
	var l *AssetLiquidation
	a, now, err := e.mutateAsset(op, assetID, func(a *Asset, now time.Time) error {
		if a.Liquidation == nil {
			return illegalState(op, ErrNoLiquidation, "asset %s has no active liquidation", a.ID)
		}
		l = a.Liquidation
		return fn(a, l, now)
	})
	return a, l, now, err
}

func (e *Estate) recordLiquidationStep(a *Asset, l *AssetLiquidation, now time.Time) {
	step := l.History[len(l.History)-1]
	e.record(EventLiquidationTransitioned, now, map[string]any{
		"asset_id":       a.ID.String(),
		"liquidation_id": l.ID.String(),
		"from":           step.From,
		"to":             step.To,
		"action":         step.Action,
		"note":           step.Note,
	})
}

// AdvanceLiquidation applies a payload-free liquidation action. CLOSE and CANCEL end
// the process and clear the asset's liquidation.
func (e *Estate) AdvanceLiquidation(assetID uuid.UUID, action LiquidationAction, note string) error {
	a, l, now, err := e.mutateLiquidation("Estate.AdvanceLiquidation", assetID, func(a *Asset, l *AssetLiquidation, now time.Time) error {
		if err := l.Apply(action, note, now); err != nil {
			return err
		}
		if l.Status.IsTerminal() {
			a.Liquidation = nil
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.recordLiquidationStep(a, l, now)
	return nil
}

// ApproveLiquidation records approval of a pending liquidation.
func (e *Estate) ApproveLiquidation(assetID uuid.UUID, courtOrderRef string) error {
	a, l, now, err := e.mutateLiquidation("Estate.ApproveLiquidation", assetID, func(a *Asset, l *AssetLiquidation, now time.Time) error {
		return l.Approve(e.meta.Actor, courtOrderRef, now)
	})
	if err != nil {
		return err
	}
	e.recordLiquidationStep(a, l, now)
	return nil
}

// ScheduleLiquidationAuction schedules a public auction.
func (e *Estate) ScheduleLiquidationAuction(assetID uuid.UUID, auctionAt time.Time) error {
	a, l, now, err := e.mutateLiquidation("Estate.ScheduleLiquidationAuction", assetID, func(a *Asset, l *AssetLiquidation, now time.Time) error {
		return l.ScheduleAuction(auctionAt, now)
	})
	if err != nil {
		return err
	}
	e.recordLiquidationStep(a, l, now)
	return nil
}

// RecordLiquidationSale records the completed sale of an asset.
func (e *Estate) RecordLiquidationSale(assetID uuid.UUID, actual money.Money, buyer BuyerInfo) error {
	const op = "Estate.RecordLiquidationSale"
	a, l, now, err := e.mutateLiquidation(op, assetID, func(a *Asset, l *AssetLiquidation, now time.Time) error {
		if err := e.requireCurrency(op, actual); err != nil {
			return err
		}
		return l.RecordSaleCompletion(actual, buyer, e.policy, now)
	})
	if err != nil {
		return err
	}
	e.record(EventLiquidationSaleCompleted, now, map[string]any{
		"asset_id":          a.ID.String(),
		"liquidation_id":    l.ID.String(),
		"actual_amount":     *l.ActualAmount,
		"commission_amount": *l.CommissionAmount,
		"net_proceeds":      *l.NetProceeds,
		"buyer":             l.Buyer.Name,
	})
	return nil
}

// ReceiveLiquidationProceeds banks the net proceeds: cash on hand rises by the net
// amount and the asset becomes LIQUIDATED, so its value leaves the inventory and
// enters the cash ledger in the same step.
func (e *Estate) ReceiveLiquidationProceeds(assetID uuid.UUID) error {
	const op = "Estate.ReceiveLiquidationProceeds"
	var cash money.Money
	a, l, now, err := e.mutateLiquidation(op, assetID, func(a *Asset, l *AssetLiquidation, now time.Time) error {
		net, err := l.ReceiveProceeds(now)
		if err != nil {
			return err
		}
		if cash, err = e.cashOnHand.Add(net); err != nil {
			return err
		}
		return a.markLiquidated(now)
	})
	if err != nil {
		return err
	}
	e.cashOnHand = cash
	e.record(EventAssetLiquidated, now, map[string]any{
		"asset_id":       a.ID.String(),
		"liquidation_id": l.ID.String(),
		"net_proceeds":   *l.NetProceeds,
		"cash_on_hand":   e.cashOnHand,
	})
	return nil
}
