package estate

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/estate-backend/internal/domain/money"
)

// RecordCashReceipt credits cash collected into the estate account.
func (e *Estate) RecordCashReceipt(amount money.Money, source, reference string) error {
	const op = "Estate.RecordCashReceipt"
	now, err := e.begin(op)
	if err != nil {
		return err
	}
	if err := e.requireCurrency(op, amount); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return validationErr(op, money.ErrNegativeAmount, "receipt amount must be positive")
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return validationErr(op, nil, "receipt source is required")
	}
	cash, err := e.cashOnHand.Add(amount)
	if err != nil {
		return err
	}
	e.cashOnHand = cash
	e.touch(now)
	e.record(EventCashReceived, now, map[string]any{
		"amount":       amount,
		"source":       source,
		"reference":    strings.TrimSpace(reference),
		"cash_on_hand": e.cashOnHand,
	})
	return nil
}

// AddDebt registers a creditor claim. With auto-reserve enabled, cash is set aside
// against it up to what is currently available. Crossing into insolvency is recorded.
func (e *Estate) AddDebt(in DebtInput) (*Debt, error) {
	const op = "Estate.AddDebt"
	now, err := e.begin(op)
	if err != nil {
		return nil, err
	}
	if err := e.requireCurrency(op, in.Amount); err != nil {
		return nil, err
	}
	d, err := NewDebt(e.id, in, now)
	if err != nil {
		return nil, err
	}
	if e.debts.has(d.ID) {
		return nil, validationErr(op, nil, "debt %s already registered", d.ID)
	}
	if d.SecuredAssetID != nil && !e.assets.has(*d.SecuredAssetID) {
		return nil, unknownChild(op, "secured asset", d.SecuredAssetID.String())
	}
	wasSolvent := e.isSolvent()

	reserve := money.Zero(e.currency)
	if e.policy.AutoReserveOnDebt && d.IsWaterfallEligible() {
		if reserve, err = e.AvailableCash().Min(d.OutstandingBalance); err != nil {
			return nil, err
		}
	}
	reserved, err := e.cashReserved.Add(reserve)
	if err != nil {
		return nil, err
	}
	d.Reserved = reserve

	e.debts.put(d.ID, d)
	e.cashReserved = reserved
	e.touch(now)
	e.record(EventDebtAdded, now, map[string]any{
		"debt_id":  d.ID.String(),
		"creditor": d.CreditorName,
		"type":     d.Type,
		"tier":     d.Priority.Rank(),
		"amount":   d.InitialAmount,
		"reserved": d.Reserved,
	})
	if wasSolvent && !e.isSolvent() {
		s := e.Solvency()
		e.record(EventEstateInsolvencyDetected, now, map[string]any{
			"net_worth":   s.NetWorth,
			"liabilities": s.Liabilities,
			"deficit":     s.Deficit,
		})
	}
	return d.clone(), nil
}

// blockingDebt returns the highest-priority eligible debt with a balance that
// outranks target, earliest registered first.
func (e *Estate) blockingDebt(target *Debt) *Debt {
	var blocker *Debt
	e.debts.each(func(d *Debt) {
		if d.ID == target.ID || !d.IsWaterfallEligible() || !d.HasOutstandingBalance() {
			return
		}
		if !d.Priority.Outranks(target.Priority) {
			return
		}
		if blocker == nil || d.Priority.Outranks(blocker.Priority) {
			blocker = d
		}
	})
	return blocker
}

// PayDebt is the waterfall gatekeeper. It rejects a payment while any eligible debt of
// a strictly higher priority still carries a balance, and otherwise applies the payment
// to the debt, the cash on hand and the debt's reservation together.
func (e *Estate) PayDebt(debtID uuid.UUID, amount money.Money, reference string) error {
	const op = "Estate.PayDebt"
	now, err := e.begin(op)
	if err != nil {
		return err
	}
	cur, ok := e.debts.get(debtID)
	if !ok {
		return unknownChild(op, "debt", debtID.String())
	}
	if err := e.requireCurrency(op, amount); err != nil {
		return err
	}
	if cur.IsStatuteBarred {
		return illegalState(op, nil, "debt %s is statute-barred and excluded from payment", cur.ID)
	}
	if b := e.blockingDebt(cur); b != nil {
		return illegalState(op, ErrPriorityViolation,
			"cannot pay %s debt %s to %s while %s debt %s to %s has outstanding balance %s",
			cur.Priority, cur.ID, cur.CreditorName, b.Priority, b.ID, b.CreditorName, b.OutstandingBalance)
	}
	spendable, err := e.AvailableCash().Add(cur.Reserved)
	if err != nil {
		return err
	}
	short, err := spendable.IsLessThan(amount)
	if err != nil {
		return err
	}
	if short {
		return illegalState(op, ErrInsufficientCash, "payment %s exceeds spendable cash %s for debt %s", amount, spendable, cur.ID)
	}
	release, err := amount.Min(cur.Reserved)
	if err != nil {
		return err
	}

	d := cur.clone()
	if err := d.RecordPayment(amount, reference, now); err != nil {
		return err
	}
	if d.Reserved, err = d.Reserved.Subtract(release); err != nil {
		return err
	}
	cash, err := e.cashOnHand.Subtract(amount)
	if err != nil {
		return err
	}
	reserved, err := e.cashReserved.Subtract(release)
	if err != nil {
		return err
	}

	e.debts.put(d.ID, d)
	e.cashOnHand = cash
	e.cashReserved = reserved
	e.touch(now)
	e.record(EventDebtPaid, now, map[string]any{
		"debt_id":             d.ID.String(),
		"amount":              amount,
		"reference":           strings.TrimSpace(reference),
		"outstanding_balance": d.OutstandingBalance,
		"status":              d.Status,
		"cash_on_hand":        e.cashOnHand,
	})
	return nil
}

// DisputeDebt takes a debt out of the waterfall and releases its reservation.
func (e *Estate) DisputeDebt(debtID uuid.UUID, reason string) error {
	const op = "Estate.DisputeDebt"
	now, err := e.begin(op)
	if err != nil {
		return err
	}
	cur, ok := e.debts.get(debtID)
	if !ok {
		return unknownChild(op, "debt", debtID.String())
	}
	d := cur.clone()
	if err := d.MarkDisputed(reason, e.meta.Actor, now); err != nil {
		return err
	}
	reserved, err := e.releaseAll(d)
	if err != nil {
		return err
	}
	e.debts.put(d.ID, d)
	e.cashReserved = reserved
	e.touch(now)
	e.record(EventDebtDisputed, now, map[string]any{"debt_id": d.ID.String(), "reason": d.Dispute.Reason})
	return nil
}

// ResolveDebtDispute restores, adjusts or extinguishes a disputed debt.
func (e *Estate) ResolveDebtDispute(debtID uuid.UUID, res DisputeResolution) error {
	const op = "Estate.ResolveDebtDispute"
	now, err := e.begin(op)
	if err != nil {
		return err
	}
	cur, ok := e.debts.get(debtID)
	if !ok {
		return unknownChild(op, "debt", debtID.String())
	}
	d := cur.clone()
	if err := d.ResolveDispute(res, now); err != nil {
		return err
	}
	e.debts.put(d.ID, d)
	e.touch(now)
	e.record(EventDebtDisputeResolved, now, map[string]any{
		"debt_id":             d.ID.String(),
		"outcome":             res.Outcome,
		"outstanding_balance": d.OutstandingBalance,
		"status":              d.Status,
	})
	return nil
}

// WriteOffDebt forgives all or part of a debt. Reservation above the remaining balance
// is released.
func (e *Estate) WriteOffDebt(debtID uuid.UUID, amount *money.Money, reason, authorizedBy string) error {
	const op = "Estate.WriteOffDebt"
	now, err := e.begin(op)
	if err != nil {
		return err
	}
	cur, ok := e.debts.get(debtID)
	if !ok {
		return unknownChild(op, "debt", debtID.String())
	}
	d := cur.clone()
	if err := d.WriteOff(amount, reason, authorizedBy, now); err != nil {
		return err
	}
	release := money.Zero(e.currency)
	if over, _ := d.Reserved.IsGreaterThan(d.OutstandingBalance); over {
		if release, err = d.Reserved.Subtract(d.OutstandingBalance); err != nil {
			return err
		}
	}
	if d.Reserved, err = d.Reserved.Subtract(release); err != nil {
		return err
	}
	reserved, err := e.cashReserved.Subtract(release)
	if err != nil {
		return err
	}
	e.debts.put(d.ID, d)
	e.cashReserved = reserved
	e.touch(now)
	w := d.WriteOffs[len(d.WriteOffs)-1]
	e.record(EventDebtWrittenOff, now, map[string]any{
		"debt_id":             d.ID.String(),
		"amount":              w.Amount,
		"reason":              w.Reason,
		"authorized_by":       w.AuthorizedBy,
		"outstanding_balance": d.OutstandingBalance,
		"status":              d.Status,
	})
	return nil
}

// MarkDebtStatuteBarred excludes a debt from mandatory payment and releases its
// reservation. The debt is retained.
func (e *Estate) MarkDebtStatuteBarred(debtID uuid.UUID, reason string) error {
	const op = "Estate.MarkDebtStatuteBarred"
	now, err := e.begin(op)
	if err != nil {
		return err
	}
	cur, ok := e.debts.get(debtID)
	if !ok {
		return unknownChild(op, "debt", debtID.String())
	}
	d := cur.clone()
	if err := d.MarkStatuteBarred(reason, now); err != nil {
		return err
	}
	reserved, err := e.releaseAll(d)
	if err != nil {
		return err
	}
	e.debts.put(d.ID, d)
	e.cashReserved = reserved
	e.touch(now)
	e.record(EventDebtStatuteBarred, now, map[string]any{"debt_id": d.ID.String(), "reason": d.StatuteBarredReason})
	return nil
}

// releaseAll zeroes d's reservation and returns the new estate-level total.
func (e *Estate) releaseAll(d *Debt) (money.Money, error) {
	reserved, err := e.cashReserved.Subtract(d.Reserved)
	if err != nil {
		return money.Money{}, err
	}
	d.Reserved = money.Zero(e.currency)
	return reserved, nil
}

// ReserveCashForDebt sets aside available cash against an eligible debt.
func (e *Estate) ReserveCashForDebt(debtID uuid.UUID, amount money.Money) error {
	const op = "Estate.ReserveCashForDebt"
	now, err := e.begin(op)
	if err != nil {
		return err
	}
	cur, ok := e.debts.get(debtID)
	if !ok {
		return unknownChild(op, "debt", debtID.String())
	}
	if err := e.requireCurrency(op, amount); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return validationErr(op, money.ErrNegativeAmount, "reservation must be positive")
	}
	if !cur.IsWaterfallEligible() {
		return illegalState(op, nil, "debt %s in status %s cannot hold a reservation", cur.ID, cur.Status)
	}
	if short, _ := e.AvailableCash().IsLessThan(amount); short {
		return illegalState(op, ErrInsufficientCash, "reservation %s exceeds available cash %s", amount, e.AvailableCash())
	}
	next, err := cur.Reserved.Add(amount)
	if err != nil {
		return err
	}
	if over, _ := next.IsGreaterThan(cur.OutstandingBalance); over {
		return validationErr(op, nil, "reservation %s would exceed outstanding balance %s of debt %s", next, cur.OutstandingBalance, cur.ID)
	}
	reserved, err := e.cashReserved.Add(amount)
	if err != nil {
		return err
	}
	d := cur.clone()
	d.Reserved = next
	d.UpdatedAt = now
	e.debts.put(d.ID, d)
	e.cashReserved = reserved
	e.touch(now)
	e.record(EventCashReserved, now, map[string]any{"debt_id": d.ID.String(), "amount": amount, "debt_reserved": d.Reserved})
	return nil
}

// ReleaseDebtReservation returns reserved cash to available; nil releases it all.
func (e *Estate) ReleaseDebtReservation(debtID uuid.UUID, amount *money.Money) error {
	const op = "Estate.ReleaseDebtReservation"
	now, err := e.begin(op)
	if err != nil {
		return err
	}
	cur, ok := e.debts.get(debtID)
	if !ok {
		return unknownChild(op, "debt", debtID.String())
	}
	release := cur.Reserved
	if amount != nil {
		if err := e.requireCurrency(op, *amount); err != nil {
			return err
		}
		release = *amount
	}
	left, err := cur.Reserved.Subtract(release)
	if err != nil {
		return validationErr(op, err, "release %s exceeds reservation %s of debt %s", release, cur.Reserved, cur.ID)
	}
	reserved, err := e.cashReserved.Subtract(release)
	if err != nil {
		return err
	}
	d := cur.clone()
	d.Reserved = left
	d.UpdatedAt = now
	e.debts.put(d.ID, d)
	e.cashReserved = reserved
	e.touch(now)
	e.record(EventCashReservationReleased, now, map[string]any{"debt_id": d.ID.String(), "amount": release, "debt_reserved": d.Reserved})
	return nil
}

// ReallocateReservations rebuilds every reservation in waterfall order: all
// reservations are released, then eligible debts are funded tier by tier in
// registration order until available cash runs out.
func (e *Estate) ReallocateReservations() error {
	const op = "Estate.ReallocateReservations"
	now, err := e.begin(op)
	if err != nil {
		return err
	}
	staged := make([]*Debt, 0, e.debts.len())
	e.debts.each(func(d *Debt) { staged = append(staged, d.clone()) })
	sort.SliceStable(staged, func(i, j int) bool { return staged[i].Priority.Outranks(staged[j].Priority) })

	available := e.cashOnHand
	total := money.Zero(e.currency)
	for _, d := range staged {
		d.Reserved = money.Zero(e.currency)
		if !d.IsWaterfallEligible() || !d.HasOutstandingBalance() || available.IsZero() {
			continue
		}
		take, err := available.Min(d.OutstandingBalance)
		if err != nil {
			return err
		}
		if available, err = available.Subtract(take); err != nil {
			return err
		}
		if total, err = total.Add(take); err != nil {
			return err
		}
		d.Reserved = take
	}
	for _, d := range staged {
		e.debts.put(d.ID, d)
	}
	e.cashReserved = total
	e.touch(now)
	e.record(EventReservationsReallocated, now, map[string]any{"cash_reserved": total, "cash_on_hand": e.cashOnHand})
	return nil
}

func (e *Estate) requireCurrency(op string, m money.Money) error {
	if !m.IsValid() {
		return validationErr(op, money.ErrInvalidCurrency, "amount is required")
	}
	if m.Currency() != e.currency {
		return validationErr(op, money.ErrCurrencyMismatch, "amount in %s for an estate in %s", m.Currency(), e.currency)
	}
	return nil
}
