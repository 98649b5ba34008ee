package estate

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/estate-backend/internal/domain/money"
)

// DebtStatus is the lifecycle state of a creditor claim.
type DebtStatus string

const (
	DebtOutstanding   DebtStatus = "OUTSTANDING"
	DebtPartiallyPaid DebtStatus = "PARTIALLY_PAID"
	DebtSettled       DebtStatus = "SETTLED"
	DebtDisputed      DebtStatus = "DISPUTED"
	DebtWrittenOff    DebtStatus = "WRITTEN_OFF"
)

func (s DebtStatus) String() string { return string(s) }

// IsTerminal reports whether no further balance movement is possible.
func (s DebtStatus) IsTerminal() bool { return s == DebtSettled || s == DebtWrittenOff }

const (
	debtActionPay          = "pay"
	debtActionSettle       = "settle"
	debtActionDispute      = "dispute"
	debtActionReinstate    = "reinstate"
	debtActionReinstatePay = "reinstate_partially_paid"
	debtActionExtinguish   = "extinguish"
	debtActionWriteOff     = "write_off"
	debtActionWriteOffPart = "write_off_partial"
)

var debtTransitions = transitionTable[DebtStatus]{
	{DebtOutstanding, debtActionPay}:            DebtPartiallyPaid,
	{DebtOutstanding, debtActionSettle}:         DebtSettled,
	{DebtOutstanding, debtActionDispute}:        DebtDisputed,
	{DebtOutstanding, debtActionWriteOff}:       DebtWrittenOff,
	{DebtOutstanding, debtActionWriteOffPart}:   DebtOutstanding,
	{DebtPartiallyPaid, debtActionPay}:          DebtPartiallyPaid,
	{DebtPartiallyPaid, debtActionSettle}:       DebtSettled,
	{DebtPartiallyPaid, debtActionDispute}:      DebtDisputed,
	{DebtPartiallyPaid, debtActionWriteOff}:     DebtWrittenOff,
	{DebtPartiallyPaid, debtActionWriteOffPart}: DebtPartiallyPaid,
	{DebtDisputed, debtActionReinstate}:         DebtOutstanding,
	{DebtDisputed, debtActionReinstatePay}:      DebtPartiallyPaid,
	{DebtDisputed, debtActionExtinguish}:        DebtSettled,
	{DebtDisputed, debtActionWriteOff}:          DebtWrittenOff,
}

// DisputeOutcome is how a debt dispute was resolved.
type DisputeOutcome string

const (
	// DisputeClaimValid restores the claim as it stood.
	DisputeClaimValid DisputeOutcome = "CLAIM_VALID"
	// DisputeClaimAdjusted restores the claim with a reduced balance.
	DisputeClaimAdjusted DisputeOutcome = "CLAIM_ADJUSTED"
	// DisputeClaimInvalid extinguishes the claim.
	DisputeClaimInvalid DisputeOutcome = "CLAIM_INVALID"
)

// DisputeInfo records an open or resolved dispute.
type DisputeInfo struct {
	Reason      string         `json:"reason"`
	RaisedBy    string         `json:"raised_by"`
	RaisedAt    time.Time      `json:"raised_at"`
	PriorStatus DebtStatus     `json:"prior_status"`
	Outcome     DisputeOutcome `json:"outcome,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
}

// DisputeResolution is the payload for resolving a dispute.
type DisputeResolution struct {
	Outcome        DisputeOutcome
	AdjustedAmount *money.Money
	Notes          string
}

// DebtPayment is one applied payment.
type DebtPayment struct {
	Amount    money.Money `json:"amount"`
	Reference string      `json:"reference,omitempty"`
	PaidAt    time.Time   `json:"paid_at"`
}

// WriteOff is one recorded forgiveness.
type WriteOff struct {
	Amount       money.Money `json:"amount"`
	Reason       string      `json:"reason"`
	AuthorizedBy string      `json:"authorized_by"`
	At           time.Time   `json:"at"`
}

// Debt is a creditor claim owned by an Estate.
type Debt struct {
	ID                  uuid.UUID     `json:"id"`
	EstateID            uuid.UUID     `json:"estate_id"`
	CreditorName        string        `json:"creditor_name"`
	CreditorContact     string        `json:"creditor_contact,omitempty"`
	Description         string        `json:"description,omitempty"`
	Type                DebtType      `json:"type"`
	Priority            DebtPriority  `json:"priority"`
	InitialAmount       money.Money   `json:"initial_amount"`
	OutstandingBalance  money.Money   `json:"outstanding_balance"`
	Reserved            money.Money   `json:"reserved"`
	IsSecured           bool          `json:"is_secured"`
	SecuredAssetID      *uuid.UUID    `json:"secured_asset_id,omitempty"`
	Status              DebtStatus    `json:"status"`
	Dispute             *DisputeInfo  `json:"dispute,omitempty"`
	IsStatuteBarred     bool          `json:"is_statute_barred"`
	StatuteBarredReason string        `json:"statute_barred_reason,omitempty"`
	Payments            []DebtPayment `json:"payments"`
	WriteOffs           []WriteOff    `json:"write_offs"`
	IncurredAt          *time.Time    `json:"incurred_at,omitempty"`
	DueAt               *time.Time    `json:"due_at,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// DebtInput describes a new creditor claim.
type DebtInput struct {
	ID              uuid.UUID
	CreditorName    string
	CreditorContact string
	Description     string
	Type            DebtType
	Amount          money.Money
	IsSecured       bool
	SecuredAssetID  *uuid.UUID
	IsStatuteBarred bool
	IncurredAt      *time.Time
	DueAt           *time.Time
}

// NewDebt validates in and builds an OUTSTANDING debt for estateID.
func NewDebt(estateID uuid.UUID, in DebtInput, now time.Time) (*Debt, error) {
	const op = "Debt.New"
	if estateID == uuid.Nil {
		return nil, validationErr(op, nil, "missing estate id")
	}
	name := strings.TrimSpace(in.CreditorName)
	if name == "" {
		return nil, validationErr(op, nil, "creditor name is required")
	}
	debtType, err := ParseDebtType(string(in.Type))
	if err != nil {
		return nil, err
	}
	if !in.Amount.IsValid() || !in.Amount.IsPositive() {
		return nil, validationErr(op, money.ErrNegativeAmount, "debt amount must be positive")
	}
	if in.SecuredAssetID != nil && !in.IsSecured {
		return nil, validationErr(op, nil, "secured asset given for an unsecured debt")
	}
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now = now.UTC()
	return &Debt{
		ID:                 id,
		EstateID:           estateID,
		CreditorName:       name,
		CreditorContact:    strings.TrimSpace(in.CreditorContact),
		Description:        strings.TrimSpace(in.Description),
		Type:               debtType,
		Priority:           PriorityFor(debtType, in.IsSecured),
		InitialAmount:      in.Amount,
		OutstandingBalance: in.Amount,
		Reserved:           money.Zero(in.Amount.Currency()),
		IsSecured:          in.IsSecured,
		SecuredAssetID:     in.SecuredAssetID,
		Status:             DebtOutstanding,
		IsStatuteBarred:    in.IsStatuteBarred,
		IncurredAt:         in.IncurredAt,
		DueAt:              in.DueAt,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// IsWaterfallEligible reports whether the debt takes part in priority enforcement.
func (d *Debt) IsWaterfallEligible() bool {
	return d.Status != DebtDisputed && !d.IsStatuteBarred && !d.Status.IsTerminal()
}

// HasOutstandingBalance reports a non-zero balance.
func (d *Debt) HasOutstandingBalance() bool { return d.OutstandingBalance.IsPositive() }

// RecordPayment decreases the balance, settling the debt when it reaches zero.
func (d *Debt) RecordPayment(amount money.Money, reference string, at time.Time) error {
	const op = "Debt.RecordPayment"
	if !amount.IsValid() || !amount.IsPositive() {
		return validationErr(op, money.ErrNegativeAmount, "payment amount must be positive")
	}
	over, err := amount.IsGreaterThan(d.OutstandingBalance)
	if err != nil {
		return err
	}
	if over {
		return illegalState(op, ErrOverpayment, "payment %s exceeds outstanding balance %s of debt %s", amount, d.OutstandingBalance, d.ID)
	}
	remaining, err := d.OutstandingBalance.Subtract(amount)
	if err != nil {
		return err
	}
	action := debtActionPay
	if remaining.IsZero() {
		action = debtActionSettle
	}
	next, ok := debtTransitions.next(d.Status, action)
	if !ok {
		return transitionErr(op, "debt "+d.ID.String(), d.Status.String(), action)
	}
	at = at.UTC()
	d.OutstandingBalance = remaining
	d.Status = next
	d.Payments = append(d.Payments, DebtPayment{Amount: amount, Reference: strings.TrimSpace(reference), PaidAt: at})
	d.UpdatedAt = at
	return nil
}

// MarkDisputed moves the debt out of the waterfall until resolved.
func (d *Debt) MarkDisputed(reason, raisedBy string, at time.Time) error {
	const op = "Debt.Dispute"
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return validationErr(op, nil, "dispute reason is required")
	}
	next, ok := debtTransitions.next(d.Status, debtActionDispute)
	if !ok {
		return transitionErr(op, "debt "+d.ID.String(), d.Status.String(), debtActionDispute)
	}
	at = at.UTC()
	d.Dispute = &DisputeInfo{
		Reason:      reason,
		RaisedBy:    strings.TrimSpace(raisedBy),
		RaisedAt:    at,
		PriorStatus: d.Status,
	}
	d.Status = next
	d.UpdatedAt = at
	return nil
}

// ResolveDispute restores, adjusts or extinguishes a disputed claim.
func (d *Debt) ResolveDispute(res DisputeResolution, at time.Time) error {
	const op = "Debt.ResolveDispute"
	if d.Status != DebtDisputed || d.Dispute == nil {
		return transitionErr(op, "debt "+d.ID.String(), d.Status.String(), "resolve dispute")
	}
	balance := d.OutstandingBalance
	var action string
	switch res.Outcome {
	case DisputeClaimValid:
		action = d.reinstateAction()
	case DisputeClaimAdjusted:
		if res.AdjustedAmount == nil || !res.AdjustedAmount.IsValid() {
			return validationErr(op, nil, "adjusted amount is required")
		}
		over, err := res.AdjustedAmount.IsGreaterThan(d.OutstandingBalance)
		if err != nil {
			return err
		}
		if over {
			return validationErr(op, nil, "adjusted amount %s exceeds outstanding balance %s", *res.AdjustedAmount, d.OutstandingBalance)
		}
		balance = *res.AdjustedAmount
		if balance.IsZero() {
			action = debtActionExtinguish
		} else {
			action = d.reinstateAction()
		}
	case DisputeClaimInvalid:
		balance = money.Zero(d.OutstandingBalance.Currency())
		action = debtActionExtinguish
	default:
		return validationErr(op, nil, "unknown dispute outcome %q", res.Outcome)
	}
	next, ok := debtTransitions.next(d.Status, action)
	if !ok {
		return transitionErr(op, "debt "+d.ID.String(), d.Status.String(), action)
	}
	at = at.UTC()
	resolved := *d.Dispute
	resolved.Outcome = res.Outcome
	resolved.Notes = strings.TrimSpace(res.Notes)
	resolved.ResolvedAt = &at
	d.Dispute = &resolved
	d.OutstandingBalance = balance
	d.Status = next
	d.UpdatedAt = at
	return nil
}

func (d *Debt) reinstateAction() string {
	if d.Dispute != nil && d.Dispute.PriorStatus == DebtPartiallyPaid {
		return debtActionReinstatePay
	}
	return debtActionReinstate
}

// WriteOff forgives amount, or the whole balance when amount is nil.
func (d *Debt) WriteOff(amount *money.Money, reason, authorizedBy string, at time.Time) error {
	const op = "Debt.WriteOff"
	reason = strings.TrimSpace(reason)
	authorizedBy = strings.TrimSpace(authorizedBy)
	if reason == "" || authorizedBy == "" {
		return validationErr(op, nil, "write-off requires a reason and an authorizer")
	}
	forgiven := d.OutstandingBalance
	if amount != nil {
		if !amount.IsValid() || !amount.IsPositive() {
			return validationErr(op, money.ErrNegativeAmount, "write-off amount must be positive")
		}
		over, err := amount.IsGreaterThan(d.OutstandingBalance)
		if err != nil {
			return err
		}
		if over {
			return illegalState(op, ErrOverpayment, "write-off %s exceeds outstanding balance %s", *amount, d.OutstandingBalance)
		}
		forgiven = *amount
	}
	remaining, err := d.OutstandingBalance.Subtract(forgiven)
	if err != nil {
		return err
	}
	action := debtActionWriteOffPart
	if remaining.IsZero() {
		action = debtActionWriteOff
	}
	next, ok := debtTransitions.next(d.Status, action)
	if !ok {
		return transitionErr(op, "debt "+d.ID.String(), d.Status.String(), action)
	}
	at = at.UTC()
	d.OutstandingBalance = remaining
	d.Status = next
	d.WriteOffs = append(d.WriteOffs, WriteOff{Amount: forgiven, Reason: reason, AuthorizedBy: authorizedBy, At: at})
	d.UpdatedAt = at
	return nil
}

// MarkStatuteBarred excludes the debt from mandatory payment; it is kept for audit.
func (d *Debt) MarkStatuteBarred(reason string, at time.Time) error {
	const op = "Debt.MarkStatuteBarred"
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return validationErr(op, nil, "statute-barred reason is required")
	}
	if d.IsStatuteBarred {
		return illegalState(op, nil, "debt %s is already statute-barred", d.ID)
	}
	if d.Status.IsTerminal() {
		return transitionErr(op, "debt "+d.ID.String(), d.Status.String(), "mark statute-barred")
	}
	d.IsStatuteBarred = true
	d.StatuteBarredReason = reason
	d.UpdatedAt = at.UTC()
	return nil
}

// TotalPaid sums recorded payments.
func (d *Debt) TotalPaid() money.Money {
	out := money.Zero(d.InitialAmount.Currency())
	for _, p := range d.Payments {
		if next, err := out.Add(p.Amount); err == nil {
			out = next
		}
	}
	return out
}

func (d *Debt) clone() *Debt {
	c := *d
	if d.SecuredAssetID != nil {
		id := *d.SecuredAssetID
		c.SecuredAssetID = &id
	}
	if d.Dispute != nil {
		info := *d.Dispute
		if d.Dispute.ResolvedAt != nil {
			t := *d.Dispute.ResolvedAt
			info.ResolvedAt = &t
		}
		c.Dispute = &info
	}
	c.Payments = append([]DebtPayment(nil), d.Payments...)
	c.WriteOffs = append([]WriteOff(nil), d.WriteOffs...)
	if d.IncurredAt != nil {
		t := *d.IncurredAt
		c.IncurredAt = &t
	}
	if d.DueAt != nil {
		t := *d.DueAt
		c.DueAt = &t
	}
	return &c
}
