package estate

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/estate-backend/internal/domain/money"
)

// RecordGift adds a lifetime gift to the estate.
func (e *Estate) RecordGift(in GiftInput) (*GiftInterVivos, error) {
	const op = "Estate.RecordGift"
	now, err := e.begin(op)
	if err != nil {
		return nil, err
	}
	if err := e.requireCurrency(op, in.ValueAtTimeOfGift); err != nil {
		return nil, err
	}
	g, err := NewGift(e.id, in, now)
	if err != nil {
		return nil, err
	}
	if e.gifts.has(g.ID) {
		return nil, validationErr(op, nil, "gift %s already recorded", g.ID)
	}
	e.gifts.put(g.ID, g)
	e.touch(now)
	e.record(EventGiftRecorded, now, map[string]any{
		"gift_id":                g.ID.String(),
		"recipient_id":           g.RecipientID.String(),
		"value_at_time_of_gift":  g.ValueAtTimeOfGift,
		"is_subject_to_hotchpot": g.IsSubjectToHotchpot,
	})
	return g.clone(), nil
}

func (e *Estate) mutateGift(op string, giftID uuid.UUID, fn func(g *GiftInterVivos, now time.Time) error) (*GiftInterVivos, time.Time, error) {
	now, err := e.begin(op)
	if err != nil {
		return nil, now, err
	}
	cur, ok := e.gifts.get(giftID)
	if !ok {
		return nil, now, unknownChild(op, "gift", giftID.String())
	}
	g := cur.clone()
	if err := fn(g, now); err != nil {
		return nil, now, err
	}
	e.gifts.put(g.ID, g)
	e.touch(now)
	return g, now, nil
}

// ContestGift records a challenge to a gift.
func (e *Estate) ContestGift(giftID uuid.UUID, reason string) error {
	g, now, err := e.mutateGift("Estate.ContestGift", giftID, func(g *GiftInterVivos, now time.Time) error {
		return g.Challenge(reason, e.meta.Actor, now)
	})
	if err != nil {
		return err
	}
	e.record(EventGiftContested, now, map[string]any{"gift_id": g.ID.String(), "reason": g.Contest.Reason})
	return nil
}

// ResolveGiftContest settles a challenge with outcome.
func (e *Estate) ResolveGiftContest(giftID uuid.UUID, outcome GiftStatus, notes string) error {
	g, now, err := e.mutateGift("Estate.ResolveGiftContest", giftID, func(g *GiftInterVivos, now time.Time) error {
		return g.ResolveContest(outcome, notes, now)
	})
	if err != nil {
		return err
	}
	e.record(EventGiftContestResolved, now, map[string]any{
		"gift_id":                g.ID.String(),
		"outcome":                g.Status,
		"is_subject_to_hotchpot": g.IsSubjectToHotchpot,
	})
	return nil
}

// CorrectGiftValue replaces the value at gifting with a reasoned correction.
func (e *Estate) CorrectGiftValue(giftID uuid.UUID, value money.Money, reason string) error {
	g, now, err := e.mutateGift("Estate.CorrectGiftValue", giftID, func(g *GiftInterVivos, now time.Time) error {
		return g.CorrectValue(value, reason, e.meta.Actor, now)
	})
	if err != nil {
		return err
	}
	c := g.Corrections[len(g.Corrections)-1]
	e.record(EventGiftValueCorrected, now, map[string]any{
		"gift_id":   g.ID.String(),
		"previous":  c.Previous,
		"corrected": c.Corrected,
		"reason":    c.Reason,
	})
	return nil
}

// UpdateGiftEstimate tracks a gift's current market value.
func (e *Estate) UpdateGiftEstimate(giftID uuid.UUID, value money.Money) error {
	g, now, err := e.mutateGift("Estate.UpdateGiftEstimate", giftID, func(g *GiftInterVivos, now time.Time) error {
		return g.UpdateEstimate(value, now)
	})
	if err != nil {
		return err
	}
	e.record(EventGiftEstimateUpdated, now, map[string]any{"gift_id": g.ID.String(), "estimate": *g.CurrentEstimatedValue})
	return nil
}

// IsGiftSubstantial judges a gift against the estate's gross value and the policy
// threshold.
func (e *Estate) IsGiftSubstantial(giftID uuid.UUID) (bool, error) {
	g, ok := e.gifts.get(giftID)
	if !ok {
		return false, unknownChild("Estate.IsGiftSubstantial", "gift", giftID.String())
	}
	gross, err := e.CalculateGrossValue()
	if err != nil {
		return false, err
	}
	return g.IsSubstantial(gross, e.policy.SubstantialGiftPercent)
}

// SubstantialGifts lists gifts at or above the policy threshold.
func (e *Estate) SubstantialGifts() ([]*GiftInterVivos, error) {
	gross, err := e.CalculateGrossValue()
	if err != nil {
		return nil, err
	}
	var out []*GiftInterVivos
	for _, g := range e.gifts.values() {
		ok, err := g.IsSubstantial(gross, e.policy.SubstantialGiftPercent)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, g.clone())
		}
	}
	return out, nil
}

// BeneficiaryShare is one beneficiary's weight in a distribution.
type BeneficiaryShare struct {
	BeneficiaryID uuid.UUID
	Weight        decimal.Decimal
}

// DistributionLine is one beneficiary's computed entitlement.
type DistributionLine struct {
	BeneficiaryID     uuid.UUID   `json:"beneficiary_id"`
	Gross             money.Money `json:"gross"`
	HotchpotDeduction money.Money `json:"hotchpot_deduction"`
	Net               money.Money `json:"net"`
}

// PlanDistribution splits the distributable pool by weight and deducts each
// beneficiary's hotchpot gifts from their share, never below zero. It is read-only
// and refuses an estate that is not ready.
func (e *Estate) PlanDistribution(shares []BeneficiaryShare) ([]DistributionLine, error) {
	const op = "Estate.PlanDistribution"
	if len(shares) == 0 {
		return nil, validationErr(op, nil, "at least one beneficiary share is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(shares))
	ratios := make([]decimal.Decimal, len(shares))
	for i, s := range shares {
		if s.BeneficiaryID == uuid.Nil {
			return nil, validationErr(op, nil, "share %d has no beneficiary", i)
		}
		if _, dup := seen[s.BeneficiaryID]; dup {
			return nil, validationErr(op, nil, "beneficiary %s appears twice", s.BeneficiaryID)
		}
		seen[s.BeneficiaryID] = struct{}{}
		ratios[i] = s.Weight
	}
	if r := e.ValidateDistributionReadiness(); !r.Ready {
		return nil, illegalState(op, ErrDistributionDenied, "estate %s is not ready for distribution: %s", e.id, r.Summary())
	}
	pool, err := e.CalculateDistributablePool()
	if err != nil {
		return nil, err
	}
	parts, err := pool.Allocate(ratios)
	if err != nil {
		return nil, err
	}

	received := map[uuid.UUID]money.Money{}
	e.gifts.each(func(g *GiftInterVivos) {
		if err != nil {
			return
		}
		prev, ok := received[g.RecipientID]
		if !ok {
			prev = money.Zero(e.currency)
		}
		received[g.RecipientID], err = prev.Add(g.GetHotchpotValue())
	})
	if err != nil {
		return nil, err
	}

	out := make([]DistributionLine, len(shares))
	for i, s := range shares {
		deduction, ok := received[s.BeneficiaryID]
		if !ok {
			deduction = money.Zero(e.currency)
		}
		if deduction, err = deduction.Min(parts[i]); err != nil {
			return nil, err
		}
		net, err := parts[i].Subtract(deduction)
		if err != nil {
			return nil, err
		}
		out[i] = DistributionLine{BeneficiaryID: s.BeneficiaryID, Gross: parts[i], HotchpotDeduction: deduction, Net: net}
	}
	return out, nil
}
