package estate

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/estate-backend/internal/domain/money"
)

// LiquidationStatus is a state of the asset-to-cash process.
type LiquidationStatus string

const (
	LiquidationDraft             LiquidationStatus = "DRAFT"
	LiquidationPendingApproval   LiquidationStatus = "PENDING_APPROVAL"
	LiquidationApproved          LiquidationStatus = "APPROVED"
	LiquidationListedForSale     LiquidationStatus = "LISTED_FOR_SALE"
	LiquidationAuctionScheduled  LiquidationStatus = "AUCTION_SCHEDULED"
	LiquidationSalePending       LiquidationStatus = "SALE_PENDING"
	LiquidationAuctionInProgress LiquidationStatus = "AUCTION_IN_PROGRESS"
	LiquidationSaleCompleted     LiquidationStatus = "SALE_COMPLETED"
	LiquidationProceedsReceived  LiquidationStatus = "PROCEEDS_RECEIVED"
	LiquidationDistributed       LiquidationStatus = "DISTRIBUTED"
	LiquidationClosed            LiquidationStatus = "CLOSED"
	LiquidationCancelled         LiquidationStatus = "CANCELLED"
	LiquidationFailed            LiquidationStatus = "FAILED"
	LiquidationExpired           LiquidationStatus = "EXPIRED"
)

func (s LiquidationStatus) String() string { return string(s) }

// IsTerminal reports CLOSED or CANCELLED.
func (s LiquidationStatus) IsTerminal() bool {
	return s == LiquidationClosed || s == LiquidationCancelled
}

// proceedsRealized reports whether the sale value has moved into the cash ledger.
func (s LiquidationStatus) proceedsRealized() bool {
	return s == LiquidationProceedsReceived || s == LiquidationDistributed || s == LiquidationClosed
}

// LiquidationAction drives one liquidation transition.
type LiquidationAction string

const (
	LiquidationSubmit          LiquidationAction = "submit"
	LiquidationApprove         LiquidationAction = "approve"
	LiquidationReject          LiquidationAction = "reject"
	LiquidationList            LiquidationAction = "list"
	LiquidationScheduleAuction LiquidationAction = "schedule_auction"
	LiquidationAcceptOffer     LiquidationAction = "accept_offer"
	LiquidationStartAuction    LiquidationAction = "start_auction"
	LiquidationCompleteSale    LiquidationAction = "complete_sale"
	LiquidationFail            LiquidationAction = "fail"
	LiquidationExpire          LiquidationAction = "expire"
	LiquidationReceiveProceeds LiquidationAction = "receive_proceeds"
	LiquidationDistribute      LiquidationAction = "distribute"
	LiquidationClose           LiquidationAction = "close"
	LiquidationCancel          LiquidationAction = "cancel"
)

var liquidationTransitions = transitionTable[LiquidationStatus]{
	{LiquidationDraft, string(LiquidationSubmit)}:                   LiquidationPendingApproval,
	{LiquidationDraft, string(LiquidationCancel)}:                   LiquidationCancelled,
	{LiquidationPendingApproval, string(LiquidationApprove)}:        LiquidationApproved,
	{LiquidationPendingApproval, string(LiquidationReject)}:         LiquidationDraft,
	{LiquidationPendingApproval, string(LiquidationCancel)}:         LiquidationCancelled,
	{LiquidationApproved, string(LiquidationList)}:                  LiquidationListedForSale,
	{LiquidationApproved, string(LiquidationScheduleAuction)}:       LiquidationAuctionScheduled,
	{LiquidationApproved, string(LiquidationCancel)}:                LiquidationCancelled,
	{LiquidationListedForSale, string(LiquidationAcceptOffer)}:      LiquidationSalePending,
	{LiquidationListedForSale, string(LiquidationExpire)}:           LiquidationExpired,
	{LiquidationListedForSale, string(LiquidationCancel)}:           LiquidationCancelled,
	{LiquidationAuctionScheduled, string(LiquidationStartAuction)}:  LiquidationAuctionInProgress,
	{LiquidationAuctionScheduled, string(LiquidationFail)}:          LiquidationFailed,
	{LiquidationAuctionScheduled, string(LiquidationCancel)}:        LiquidationCancelled,
	{LiquidationSalePending, string(LiquidationCompleteSale)}:       LiquidationSaleCompleted,
	{LiquidationSalePending, string(LiquidationFail)}:               LiquidationFailed,
	{LiquidationSalePending, string(LiquidationCancel)}:             LiquidationCancelled,
	{LiquidationAuctionInProgress, string(LiquidationCompleteSale)}: LiquidationSaleCompleted,
	{LiquidationAuctionInProgress, string(LiquidationFail)}:         LiquidationFailed,
	{LiquidationSaleCompleted, string(LiquidationReceiveProceeds)}:  LiquidationProceedsReceived,
	{LiquidationProceedsReceived, string(LiquidationDistribute)}:    LiquidationDistributed,
	{LiquidationDistributed, string(LiquidationClose)}:              LiquidationClosed,
	{LiquidationFailed, string(LiquidationList)}:                    LiquidationListedForSale,
	{LiquidationFailed, string(LiquidationScheduleAuction)}:         LiquidationAuctionScheduled,
	{LiquidationFailed, string(LiquidationCancel)}:                  LiquidationCancelled,
	{LiquidationExpired, string(LiquidationList)}:                   LiquidationListedForSale,
	{LiquidationExpired, string(LiquidationScheduleAuction)}:        LiquidationAuctionScheduled,
	{LiquidationExpired, string(LiquidationCancel)}:                 LiquidationCancelled,
}

// LiquidationType is the sale channel.
type LiquidationType string

const (
	LiquidationPrivateSale   LiquidationType = "PRIVATE_SALE"
	LiquidationPublicAuction LiquidationType = "PUBLIC_AUCTION"
	LiquidationTender        LiquidationType = "TENDER"
)

func (t LiquidationType) valid() bool {
	return t == LiquidationPrivateSale || t == LiquidationPublicAuction || t == LiquidationTender
}

// BuyerInfo identifies the purchaser of a liquidated asset.
type BuyerInfo struct {
	Name        string `json:"name"`
	IdentityRef string `json:"identity_ref,omitempty"`
	Contact     string `json:"contact,omitempty"`
}

// LiquidationApproval records who authorised the sale.
type LiquidationApproval struct {
	ApprovedBy    string    `json:"approved_by"`
	CourtOrderRef string    `json:"court_order_ref,omitempty"`
	ApprovedAt    time.Time `json:"approved_at"`
}

// LiquidationTransition is one entry of the transition history.
type LiquidationTransition struct {
	From   LiquidationStatus `json:"from"`
	To     LiquidationStatus `json:"to"`
	Action LiquidationAction `json:"action"`
	Note   string            `json:"note,omitempty"`
	At     time.Time         `json:"at"`
}

// AssetLiquidation converts one asset into cash.
type AssetLiquidation struct {
	ID                 uuid.UUID               `json:"id"`
	AssetID            uuid.UUID               `json:"asset_id"`
	EstateID           uuid.UUID               `json:"estate_id"`
	Type               LiquidationType         `json:"type"`
	Reason             string                  `json:"reason,omitempty"`
	TargetAmount       money.Money             `json:"target_amount"`
	ReservePrice       money.Money             `json:"reserve_price"`
	CommissionRate     decimal.Decimal         `json:"commission_rate"`
	ActualAmount       *money.Money            `json:"actual_amount,omitempty"`
	CommissionAmount   *money.Money            `json:"commission_amount,omitempty"`
	NetProceeds        *money.Money            `json:"net_proceeds,omitempty"`
	Status             LiquidationStatus       `json:"status"`
	Buyer              *BuyerInfo              `json:"buyer,omitempty"`
	Approval           *LiquidationApproval    `json:"approval,omitempty"`
	AuctionAt          *time.Time              `json:"auction_at,omitempty"`
	SaleCompletedAt    *time.Time              `json:"sale_completed_at,omitempty"`
	ProceedsReceivedAt *time.Time              `json:"proceeds_received_at,omitempty"`
	History            []LiquidationTransition `json:"history"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

// LiquidationInput describes a liquidation to open.
type LiquidationInput struct {
	ID             uuid.UUID
	Type           LiquidationType
	Reason         string
	TargetAmount   money.Money
	ReservePrice   money.Money
	CommissionRate decimal.Decimal
}

// NewLiquidation validates in against policy and opens a DRAFT liquidation.
func NewLiquidation(a *Asset, in LiquidationInput, policy Policy, now time.Time) (*AssetLiquidation, error) {
	const op = "AssetLiquidation.New"
	if !in.Type.valid() {
		return nil, validationErr(op, nil, "unknown liquidation type %q", in.Type)
	}
	if !in.TargetAmount.IsValid() || !in.TargetAmount.IsPositive() {
		return nil, validationErr(op, money.ErrNegativeAmount, "target amount must be positive")
	}
	if !in.ReservePrice.IsValid() {
		return nil, validationErr(op, money.ErrInvalidCurrency, "reserve price is required")
	}
	over, err := in.ReservePrice.IsGreaterThan(in.TargetAmount)
	if err != nil {
		return nil, err
	}
	if over {
		return nil, validationErr(op, nil, "reserve price %s exceeds target amount %s", in.ReservePrice, in.TargetAmount)
	}
	if in.TargetAmount.Currency() != a.CurrentValue.Currency() {
		return nil, validationErr(op, money.ErrCurrencyMismatch, "liquidation in %s for asset valued in %s", in.TargetAmount.Currency(), a.CurrentValue.Currency())
	}
	if in.CommissionRate.IsNegative() || in.CommissionRate.GreaterThan(policy.MaxCommissionRate) {
		return nil, validationErr(op, nil, "commission rate %s must be within 0..%s", in.CommissionRate, policy.MaxCommissionRate)
	}
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now = now.UTC()
	return &AssetLiquidation{
		ID:             id,
		AssetID:        a.ID,
		EstateID:       a.EstateID,
		Type:           in.Type,
		Reason:         strings.TrimSpace(in.Reason),
		TargetAmount:   in.TargetAmount,
		ReservePrice:   in.ReservePrice,
		CommissionRate: in.CommissionRate,
		Status:         LiquidationDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CanTransition reports whether action is accepted from the current status.
func (l *AssetLiquidation) CanTransition(action LiquidationAction) bool {
	_, ok := liquidationTransitions.next(l.Status, string(action))
	return ok
}

// AvailableActions lists the actions accepted from the current status.
func (l *AssetLiquidation) AvailableActions() []LiquidationAction {
	raw := liquidationTransitions.actions(l.Status)
	out := make([]LiquidationAction, len(raw))
	for i, a := range raw {
		out[i] = LiquidationAction(a)
	}
	return out
}

// Apply performs a transition that carries no payload beyond a note.
func (l *AssetLiquidation) Apply(action LiquidationAction, note string, at time.Time) error {
	switch action {
	case LiquidationApprove, LiquidationScheduleAuction, LiquidationCompleteSale, LiquidationReceiveProceeds:
		return validationErr("AssetLiquidation.Apply", nil, "action %s requires its own payload", action)
	}
	return l.transition(action, note, at)
}

func (l *AssetLiquidation) transition(action LiquidationAction, note string, at time.Time) error {
	next, ok := liquidationTransitions.next(l.Status, string(action))
	if !ok {
		return transitionErr("AssetLiquidation."+string(action), "liquidation "+l.ID.String(), l.Status.String(), string(action))
	}
	at = at.UTC()
	l.History = append(l.History, LiquidationTransition{
		From:   l.Status,
		To:     next,
		Action: action,
		Note:   strings.TrimSpace(note),
		At:     at,
	})
	l.Status = next
	l.UpdatedAt = at
	return nil
}

// Approve records the approver and moves PENDING_APPROVAL to APPROVED.
func (l *AssetLiquidation) Approve(approvedBy, courtOrderRef string, at time.Time) error {
	approvedBy = strings.TrimSpace(approvedBy)
	if approvedBy == "" {
		return validationErr("AssetLiquidation.Approve", nil, "approver is required")
	}
	if err := l.transition(LiquidationApprove, courtOrderRef, at); err != nil {
		return err
	}
	l.Approval = &LiquidationApproval{
		ApprovedBy:    approvedBy,
		CourtOrderRef: strings.TrimSpace(courtOrderRef),
		ApprovedAt:    at.UTC(),
	}
	return nil
}

// ScheduleAuction sets the auction date.
func (l *AssetLiquidation) ScheduleAuction(auctionAt time.Time, at time.Time) error {
	if auctionAt.IsZero() {
		return validationErr("AssetLiquidation.ScheduleAuction", nil, "auction date is required")
	}
	if err := l.transition(LiquidationScheduleAuction, "", at); err != nil {
		return err
	}
	when := auctionAt.UTC()
	l.AuctionAt = &when
	return nil
}

// RecordSaleCompletion validates the sale amount and computes commission and net
// proceeds. Amounts below the reserve price are always rejected; the target band is
// checked when policy selects it.
func (l *AssetLiquidation) RecordSaleCompletion(actual money.Money, buyer BuyerInfo, policy Policy, at time.Time) error {
	const op = "AssetLiquidation.RecordSaleCompletion"
	if !l.CanTransition(LiquidationCompleteSale) {
		return transitionErr(op, "liquidation "+l.ID.String(), l.Status.String(), string(LiquidationCompleteSale))
	}
	if !actual.IsValid() || !actual.IsPositive() {
		return validationErr(op, money.ErrNegativeAmount, "sale amount must be positive")
	}
	buyer.Name = strings.TrimSpace(buyer.Name)
	if buyer.Name == "" {
		return validationErr(op, nil, "buyer name is required")
	}
	below, err := actual.IsLessThan(l.ReservePrice)
	if err != nil {
		return err
	}
	if below {
		return validationErr(op, ErrBelowReservePrice, "sale amount %s is below reserve price %s", actual, l.ReservePrice)
	}
	if policy.SaleValidation == SaleValidationTargetBand {
		low, err := l.TargetAmount.Multiply(policy.TargetBandLow)
		if err != nil {
			return err
		}
		high, err := l.TargetAmount.Multiply(policy.TargetBandHigh)
		if err != nil {
			return err
		}
		tooLow, _ := actual.IsLessThan(low)
		tooHigh, _ := actual.IsGreaterThan(high)
		if tooLow || tooHigh {
			return validationErr(op, ErrOutsideTargetBand, "sale amount %s is outside %s..%s", actual, low, high)
		}
	}
	commission, err := actual.Multiply(l.CommissionRate)
	if err != nil {
		return err
	}
	net, err := actual.Subtract(commission)
	if err != nil {
		return err
	}
	if err := l.transition(LiquidationCompleteSale, buyer.Name, at); err != nil {
		return err
	}
	when := at.UTC()
	l.ActualAmount = &actual
	l.CommissionAmount = &commission
	l.NetProceeds = &net
	l.Buyer = &buyer
	l.SaleCompletedAt = &when
	return nil
}

// ReceiveProceeds marks the net proceeds as banked and returns them.
func (l *AssetLiquidation) ReceiveProceeds(at time.Time) (money.Money, error) {
	const op = "AssetLiquidation.ReceiveProceeds"
	if l.NetProceeds == nil {
		return money.Money{}, illegalState(op, nil, "liquidation %s has no recorded sale", l.ID)
	}
	if err := l.transition(LiquidationReceiveProceeds, "", at); err != nil {
		return money.Money{}, err
	}
	when := at.UTC()
	l.ProceedsReceivedAt = &when
	return *l.NetProceeds, nil
}

func (l *AssetLiquidation) clone() *AssetLiquidation {
	c := *l
	c.ActualAmount = cloneMoney(l.ActualAmount)
	c.CommissionAmount = cloneMoney(l.CommissionAmount)
	c.NetProceeds = cloneMoney(l.NetProceeds)
	if l.Buyer != nil {
		b := *l.Buyer
		c.Buyer = &b
	}
	if l.Approval != nil {
		ap := *l.Approval
		c.Approval = &ap
	}
	c.AuctionAt = cloneTime(l.AuctionAt)
	c.SaleCompletedAt = cloneTime(l.SaleCompletedAt)
	c.ProceedsReceivedAt = cloneTime(l.ProceedsReceivedAt)
	c.History = append([]LiquidationTransition(nil), l.History...)
	return &c
}

func cloneMoney(m *money.Money) *money.Money {
	if m == nil {
		return nil
	}
	v := *m
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
