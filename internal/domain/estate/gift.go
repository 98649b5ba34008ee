package estate

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/estate-backend/internal/domain/money"
)

// GiftStatus is the lifecycle state of a lifetime gift.
type GiftStatus string

const (
	GiftConfirmed          GiftStatus = "CONFIRMED"
	GiftContested          GiftStatus = "CONTESTED"
	GiftExcluded           GiftStatus = "EXCLUDED"
	GiftReclassifiedAsLoan GiftStatus = "RECLASSIFIED_AS_LOAN"
	GiftVoid               GiftStatus = "VOID"
)

func (s GiftStatus) String() string { return string(s) }

const (
	giftActionContest    = "contest"
	giftActionUphold     = "uphold"
	giftActionExclude    = "exclude"
	giftActionReclassify = "reclassify"
	giftActionVoid       = "void"
)

var giftTransitions = transitionTable[GiftStatus]{
	{GiftConfirmed, giftActionContest}:    GiftContested,
	{GiftContested, giftActionUphold}:     GiftConfirmed,
	{GiftContested, giftActionExclude}:    GiftExcluded,
	{GiftContested, giftActionReclassify}: GiftReclassifiedAsLoan,
	{GiftContested, giftActionVoid}:       GiftVoid,
}

var giftResolutionAction = map[GiftStatus]string{
	GiftConfirmed:          giftActionUphold,
	GiftExcluded:           giftActionExclude,
	GiftReclassifiedAsLoan: giftActionReclassify,
	GiftVoid:               giftActionVoid,
}

// GiftContest records a challenge and its resolution.
type GiftContest struct {
	Reason      string     `json:"reason"`
	ContestedBy string     `json:"contested_by"`
	ContestedAt time.Time  `json:"contested_at"`
	Outcome     GiftStatus `json:"outcome,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// GiftValueCorrection is an explicit, reasoned change to the value at gifting.
type GiftValueCorrection struct {
	Previous    money.Money `json:"previous"`
	Corrected   money.Money `json:"corrected"`
	Reason      string      `json:"reason"`
	CorrectedBy string      `json:"corrected_by"`
	At          time.Time   `json:"at"`
}

// GiftInterVivos is a gift the deceased made during their lifetime.
type GiftInterVivos struct {
	ID                    uuid.UUID             `json:"id"`
	EstateID              uuid.UUID             `json:"estate_id"`
	RecipientID           uuid.UUID             `json:"recipient_id"`
	Description           string                `json:"description"`
	AssetType             AssetType             `json:"asset_type,omitempty"`
	ValueAtTimeOfGift     money.Money           `json:"value_at_time_of_gift"`
	CurrentEstimatedValue *money.Money          `json:"current_estimated_value,omitempty"`
	DateGiven             time.Time             `json:"date_given"`
	IsSubjectToHotchpot   bool                  `json:"is_subject_to_hotchpot"`
	Status                GiftStatus            `json:"status"`
	Contest               *GiftContest          `json:"contest,omitempty"`
	Corrections           []GiftValueCorrection `json:"corrections,omitempty"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

// GiftInput describes a lifetime gift to record.
type GiftInput struct {
	ID                  uuid.UUID
	RecipientID         uuid.UUID
	Description         string
	AssetType           AssetType
	ValueAtTimeOfGift   money.Money
	DateGiven           time.Time
	IsSubjectToHotchpot bool
}

// NewGift validates in and records a CONFIRMED gift.
func NewGift(estateID uuid.UUID, in GiftInput, now time.Time) (*GiftInterVivos, error) {
	const op = "Gift.New"
	if estateID == uuid.Nil {
		return nil, validationErr(op, nil, "missing estate id")
	}
	if in.RecipientID == uuid.Nil {
		return nil, validationErr(op, nil, "recipient is required")
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, validationErr(op, nil, "gift description is required")
	}
	if !in.ValueAtTimeOfGift.IsValid() || !in.ValueAtTimeOfGift.IsPositive() {
		return nil, validationErr(op, money.ErrNegativeAmount, "gift value must be positive")
	}
	if in.DateGiven.IsZero() {
		return nil, validationErr(op, nil, "date given is required")
	}
	now = now.UTC()
	if in.DateGiven.After(now) {
		return nil, validationErr(op, nil, "date given %s is in the future", in.DateGiven.Format(time.DateOnly))
	}
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &GiftInterVivos{
		ID:                  id,
		EstateID:            estateID,
		RecipientID:         in.RecipientID,
		Description:         desc,
		AssetType:           in.AssetType,
		ValueAtTimeOfGift:   in.ValueAtTimeOfGift,
		DateGiven:           in.DateGiven.UTC(),
		IsSubjectToHotchpot: in.IsSubjectToHotchpot,
		Status:              GiftConfirmed,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// GetHotchpotValue is the amount added back to the distributable pool. Only the value
// at the time of gifting counts.
func (g *GiftInterVivos) GetHotchpotValue() money.Money {
	if g.IsSubjectToHotchpot && g.Status == GiftConfirmed {
		return g.ValueAtTimeOfGift
	}
	return money.Zero(g.ValueAtTimeOfGift.Currency())
}

// IsSubstantial reports whether the gift is at least thresholdPercent of gross.
func (g *GiftInterVivos) IsSubstantial(gross money.Money, thresholdPercent decimal.Decimal) (bool, error) {
	threshold, err := gross.Percent(thresholdPercent)
	if err != nil {
		return false, err
	}
	below, err := g.ValueAtTimeOfGift.IsLessThan(threshold)
	if err != nil {
		return false, err
	}
	return !below, nil
}

// Challenge contests a confirmed gift.
func (g *GiftInterVivos) Challenge(reason, contestedBy string, at time.Time) error {
	const op = "Gift.Contest"
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return validationErr(op, nil, "contest reason is required")
	}
	next, ok := giftTransitions.next(g.Status, giftActionContest)
	if !ok {
		return transitionErr(op, "gift "+g.ID.String(), g.Status.String(), giftActionContest)
	}
	at = at.UTC()
	g.Contest = &GiftContest{Reason: reason, ContestedBy: strings.TrimSpace(contestedBy), ContestedAt: at}
	g.Status = next
	g.UpdatedAt = at
	return nil
}

// ResolveContest settles a challenge. Exclusion and reclassification take the gift out
// of hotchpot permanently.
func (g *GiftInterVivos) ResolveContest(outcome GiftStatus, notes string, at time.Time) error {
	const op = "Gift.ResolveContest"
	action, ok := giftResolutionAction[outcome]
	if !ok {
		return validationErr(op, nil, "%q is not a contest outcome", outcome)
	}
	next, ok := giftTransitions.next(g.Status, action)
	if !ok || g.Contest == nil {
		return transitionErr(op, "gift "+g.ID.String(), g.Status.String(), action)
	}
	at = at.UTC()
	resolved := *g.Contest
	resolved.Outcome = outcome
	resolved.Notes = strings.TrimSpace(notes)
	resolved.ResolvedAt = &at
	g.Contest = &resolved
	g.Status = next
	if next == GiftExcluded || next == GiftReclassifiedAsLoan {
		g.IsSubjectToHotchpot = false
	}
	g.UpdatedAt = at
	return nil
}

// CorrectValue replaces the value at gifting, keeping the prior value on record.
func (g *GiftInterVivos) CorrectValue(value money.Money, reason, correctedBy string, at time.Time) error {
	const op = "Gift.CorrectValue"
	reason = strings.TrimSpace(reason)
	correctedBy = strings.TrimSpace(correctedBy)
	if reason == "" || correctedBy == "" {
		return validationErr(op, nil, "a value correction requires a reason and an actor")
	}
	if g.Status != GiftConfirmed && g.Status != GiftContested {
		return illegalState(op, ErrInvalidTransition, "gift %s is %s", g.ID, g.Status)
	}
	if !value.IsValid() || !value.IsPositive() {
		return validationErr(op, money.ErrNegativeAmount, "gift value must be positive")
	}
	if value.Currency() != g.ValueAtTimeOfGift.Currency() {
		return validationErr(op, money.ErrCurrencyMismatch, "correction in %s for gift valued in %s", value.Currency(), g.ValueAtTimeOfGift.Currency())
	}
	at = at.UTC()
	g.Corrections = append(g.Corrections, GiftValueCorrection{
		Previous:    g.ValueAtTimeOfGift,
		Corrected:   value,
		Reason:      reason,
		CorrectedBy: correctedBy,
		At:          at,
	})
	g.ValueAtTimeOfGift = value
	g.UpdatedAt = at
	return nil
}

// UpdateEstimate tracks the current market value. It never affects hotchpot.
func (g *GiftInterVivos) UpdateEstimate(value money.Money, at time.Time) error {
	const op = "Gift.UpdateEstimate"
	if !value.IsValid() {
		return validationErr(op, money.ErrInvalidCurrency, "estimate is required")
	}
	if value.Currency() != g.ValueAtTimeOfGift.Currency() {
		return validationErr(op, money.ErrCurrencyMismatch, "estimate in %s for gift valued in %s", value.Currency(), g.ValueAtTimeOfGift.Currency())
	}
	g.CurrentEstimatedValue = &value
	g.UpdatedAt = at.UTC()
	return nil
}

func (g *GiftInterVivos) clone() *GiftInterVivos {
	c := *g
	c.CurrentEstimatedValue = cloneMoney(g.CurrentEstimatedValue)
	if g.Contest != nil {
		ct := *g.Contest
		ct.ResolvedAt = cloneTime(g.Contest.ResolvedAt)
		c.Contest = &ct
	}
	c.Corrections = append([]GiftValueCorrection(nil), g.Corrections...)
	return &c
}
