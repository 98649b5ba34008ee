package estate

import (
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/estate-backend/internal/domain/aggregates"
)

func TestPayDebtEnforcesWaterfall(t *testing.T) {
	e := newTestEstate(t, "100000")
	funeral := mustAddDebt(t, e, DebtTypeFuneralExpenses, "50000")
	unsecured := mustAddDebt(t, e, DebtTypePersonalLoan, "20000")

	err := e.PayDebt(unsecured.ID, kes("20000"), "")
	requireCode(t, err, aggregates.CodeIllegalState)
	requireIs(t, err, ErrPriorityViolation)
	if !strings.Contains(err.Error(), funeral.ID.String()) {
		t.Fatalf("priority violation should name the blocking debt %s: %v", funeral.ID, err)
	}
	requireMoney(t, "cash after rejected payment", e.CashOnHand(), "100000")

	if err := e.PayDebt(funeral.ID, kes("50000"), "RCPT-1"); err != nil {
		t.Fatalf("pay funeral: %v", err)
	}
	before := e.CashOnHand()
	if err := e.PayDebt(unsecured.ID, kes("20000"), "RCPT-2"); err != nil {
		t.Fatalf("pay unsecured: %v", err)
	}
	spent, err := before.Subtract(e.CashOnHand())
	if err != nil {
		t.Fatalf("subtract: %v", err)
	}
	requireMoney(t, "cash decrease", spent, "20000")
	requireMoney(t, "reserved", e.CashReservedForDebts(), "0")

	d, _ := e.Debt(unsecured.ID)
	if d.Status != DebtSettled {
		t.Fatalf("unsecured status: want=%s got=%s", DebtSettled, d.Status)
	}
}

func TestPayDebtIgnoresDisputedAndStatuteBarredBlockers(t *testing.T) {
	e := newTestEstate(t, "100000")
	funeral := mustAddDebt(t, e, DebtTypeFuneralExpenses, "10000")
	rates := mustAddDebt(t, e, DebtTypeRates, "5000")
	unsecured := mustAddDebt(t, e, DebtTypeCreditCard, "3000")

	if err := e.DisputeDebt(funeral.ID, "invoice not recognised"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if err := e.MarkDebtStatuteBarred(rates.ID, "older than limitation period"); err != nil {
		t.Fatalf("statute-barred: %v", err)
	}
	if err := e.PayDebt(unsecured.ID, kes("3000"), ""); err != nil {
		t.Fatalf("pay unsecured with only excluded blockers: %v", err)
	}

	err := e.PayDebt(rates.ID, kes("100"), "")
	requireCode(t, err, aggregates.CodeIllegalState)

	err = e.PayDebt(funeral.ID, kes("100"), "")
	requireIs(t, err, ErrInvalidTransition)
}

func TestPayDebtRejectsInsufficientCashWithoutPartialEffect(t *testing.T) {
	e := newTestEstate(t, "1000")
	d := mustAddDebt(t, e, DebtTypeFuneralExpenses, "5000")
	requireMoney(t, "auto reserve", e.CashReservedForDebts(), "1000")

	err := e.PayDebt(d.ID, kes("2000"), "")
	requireCode(t, err, aggregates.CodeIllegalState)
	requireIs(t, err, ErrInsufficientCash)

	got, _ := e.Debt(d.ID)
	requireMoney(t, "balance after failed pay", got.OutstandingBalance, "5000")
	requireMoney(t, "cash after failed pay", e.CashOnHand(), "1000")
	requireMoney(t, "reserved after failed pay", e.CashReservedForDebts(), "1000")
}

func TestPayDebtRejectsOverpayment(t *testing.T) {
	e := newTestEstate(t, "10000")
	d := mustAddDebt(t, e, DebtTypeFuneralExpenses, "500")
	err := e.PayDebt(d.ID, kes("600"), "")
	requireCode(t, err, aggregates.CodeIllegalState)
	requireIs(t, err, ErrOverpayment)
	requireMoney(t, "cash", e.CashOnHand(), "10000")
}

func TestUnknownDebtIsReported(t *testing.T) {
	e := newTestEstate(t, "100")
	err := e.PayDebt(uuid.New(), kes("1"), "")
	requireIs(t, err, ErrUnknownChild)
}

func TestWaterfallOrderingProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	types := []DebtType{
		DebtTypeFuneralExpenses, DebtTypeAdministrationExpenses, DebtTypeMortgage,
		DebtTypeTax, DebtTypeWages, DebtTypePersonalLoan, DebtTypeMedicalBills,
	}
	for round := 0; round < 50; round++ {
		e := newTestEstate(t, "10000000")
		n := rng.Intn(8) + 2
		for i := 0; i < n; i++ {
			d := mustAddDebt(t, e, types[rng.Intn(len(types))], "1000")
			switch rng.Intn(6) {
			case 0:
				if err := e.DisputeDebt(d.ID, "challenged"); err != nil {
					t.Fatalf("dispute: %v", err)
				}
			case 1:
				if err := e.MarkDebtStatuteBarred(d.ID, "stale"); err != nil {
					t.Fatalf("statute-barred: %v", err)
				}
			}
		}
		for step := 0; step < 4*n; step++ {
			var open []*Debt
			for _, d := range e.Debts() {
				if d.IsWaterfallEligible() && d.HasOutstandingBalance() {
					open = append(open, d)
				}
			}
			if len(open) == 0 {
				break
			}
			target := open[rng.Intn(len(open))]
			blocked := false
			for _, d := range open {
				if d.Priority.Outranks(target.Priority) {
					blocked = true
				}
			}
			err := e.PayDebt(target.ID, target.OutstandingBalance, "")
			if blocked {
				requireIs(t, err, ErrPriorityViolation)
				continue
			}
			if err != nil {
				t.Fatalf("round %d: pay %s with no higher-priority balance: %v", round, target.Priority, err)
			}
		}
		remaining := e.Debts()
		sort.SliceStable(remaining, func(i, j int) bool { return remaining[i].Priority.Outranks(remaining[j].Priority) })
		for _, d := range remaining {
			if !d.IsWaterfallEligible() || !d.HasOutstandingBalance() {
				continue
			}
			if err := e.PayDebt(d.ID, d.OutstandingBalance, ""); err != nil {
				t.Fatalf("round %d: pay %s in waterfall order: %v", round, d.Priority, err)
			}
		}
	}
}

func TestAddDebtReservesAvailableCashAndDetectsInsolvency(t *testing.T) {
	e := newTestEstate(t, "3000")
	first := mustAddDebt(t, e, DebtTypeFuneralExpenses, "2000")
	second := mustAddDebt(t, e, DebtTypePersonalLoan, "2000")

	d1, _ := e.Debt(first.ID)
	d2, _ := e.Debt(second.ID)
	requireMoney(t, "first reserve", d1.Reserved, "2000")
	requireMoney(t, "second reserve", d2.Reserved, "1000")
	requireMoney(t, "available", e.AvailableCash(), "0")

	var insolvency int
	for _, ev := range e.PendingEvents() {
		if ev.Type == EventEstateInsolvencyDetected {
			insolvency++
		}
	}
	if insolvency != 1 {
		t.Fatalf("insolvency events: want=1 got=%d", insolvency)
	}
	if e.Solvency().IsSolvent {
		t.Fatalf("solvency: want insolvent")
	}
	requireMoney(t, "deficit", e.Solvency().Deficit, "1000")
}

func TestReservationLifecycle(t *testing.T) {
	policy := DefaultPolicy()
	policy.AutoReserveOnDebt = false
	e := newTestEstateWithPolicy(t, "5000", policy)
	unsecured := mustAddDebt(t, e, DebtTypeCreditCard, "4000")
	funeral := mustAddDebt(t, e, DebtTypeFuneralExpenses, "3000")
	requireMoney(t, "no auto reserve", e.CashReservedForDebts(), "0")

	if err := e.ReserveCashForDebt(unsecured.ID, kes("4000")); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	err := e.ReserveCashForDebt(funeral.ID, kes("2000"))
	requireIs(t, err, ErrInsufficientCash)

	if err := e.ReallocateReservations(); err != nil {
		t.Fatalf("reallocate: %v", err)
	}
	f, _ := e.Debt(funeral.ID)
	u, _ := e.Debt(unsecured.ID)
	requireMoney(t, "funeral reserved first", f.Reserved, "3000")
	requireMoney(t, "unsecured gets the rest", u.Reserved, "2000")
	requireMoney(t, "total reserved", e.CashReservedForDebts(), "5000")

	partial := kes("500")
	if err := e.ReleaseDebtReservation(unsecured.ID, &partial); err != nil {
		t.Fatalf("release: %v", err)
	}
	requireMoney(t, "available after release", e.AvailableCash(), "500")

	if err := e.DisputeDebt(unsecured.ID, "amount contested"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	u, _ = e.Debt(unsecured.ID)
	requireMoney(t, "disputed reservation released", u.Reserved, "0")
	requireMoney(t, "total reserved", e.CashReservedForDebts(), "3000")
}

func TestDisputeResolutionOutcomes(t *testing.T) {
	e := newTestEstate(t, "0")
	valid := mustAddDebt(t, e, DebtTypePersonalLoan, "1000")
	adjusted := mustAddDebt(t, e, DebtTypePersonalLoan, "1000")
	invalid := mustAddDebt(t, e, DebtTypePersonalLoan, "1000")
	for _, d := range []*Debt{valid, adjusted, invalid} {
		if err := e.DisputeDebt(d.ID, "unverified"); err != nil {
			t.Fatalf("dispute: %v", err)
		}
	}
	if err := e.ResolveDebtDispute(valid.ID, DisputeResolution{Outcome: DisputeClaimValid}); err != nil {
		t.Fatalf("resolve valid: %v", err)
	}
	amt := kes("400")
	if err := e.ResolveDebtDispute(adjusted.ID, DisputeResolution{Outcome: DisputeClaimAdjusted, AdjustedAmount: &amt}); err != nil {
		t.Fatalf("resolve adjusted: %v", err)
	}
	if err := e.ResolveDebtDispute(invalid.ID, DisputeResolution{Outcome: DisputeClaimInvalid}); err != nil {
		t.Fatalf("resolve invalid: %v", err)
	}
	v, _ := e.Debt(valid.ID)
	a, _ := e.Debt(adjusted.ID)
	i, _ := e.Debt(invalid.ID)
	if v.Status != DebtOutstanding || a.Status != DebtOutstanding || i.Status != DebtSettled {
		t.Fatalf("statuses: want=[OUTSTANDING OUTSTANDING SETTLED] got=[%s %s %s]", v.Status, a.Status, i.Status)
	}
	requireMoney(t, "adjusted balance", a.OutstandingBalance, "400")
	requireMoney(t, "invalid balance", i.OutstandingBalance, "0")
}

func TestWriteOffPartialAndFull(t *testing.T) {
	e := newTestEstate(t, "1000")
	d := mustAddDebt(t, e, DebtTypeMedicalBills, "1000")
	part := kes("700")
	if err := e.WriteOffDebt(d.ID, &part, "hardship", "court"); err != nil {
		t.Fatalf("partial write-off: %v", err)
	}
	got, _ := e.Debt(d.ID)
	requireMoney(t, "balance", got.OutstandingBalance, "300")
	requireMoney(t, "reservation trimmed", got.Reserved, "300")
	requireMoney(t, "estate reserved", e.CashReservedForDebts(), "300")
	if got.Status != DebtOutstanding {
		t.Fatalf("status after partial: want=%s got=%s", DebtOutstanding, got.Status)
	}
	if err := e.WriteOffDebt(d.ID, nil, "forgiven", "creditor"); err != nil {
		t.Fatalf("full write-off: %v", err)
	}
	got, _ = e.Debt(d.ID)
	if got.Status != DebtWrittenOff || len(got.WriteOffs) != 2 {
		t.Fatalf("after full write-off: status=%s records=%d", got.Status, len(got.WriteOffs))
	}
	requireMoney(t, "estate reserved", e.CashReservedForDebts(), "0")
	if err := e.WriteOffDebt(d.ID, nil, "again", "creditor"); err == nil {
		t.Fatalf("write-off of written-off debt should fail")
	}
}

func TestSecuredFlagPromotesTier(t *testing.T) {
	e := newTestEstate(t, "0")
	a := mustAddLand(t, e, "500000")
	d, err := e.AddDebt(DebtInput{
		CreditorName:   "Bank",
		Type:           DebtTypePersonalLoan,
		Amount:         kes("1000"),
		IsSecured:      true,
		SecuredAssetID: &a.ID,
	})
	if err != nil {
		t.Fatalf("add secured: %v", err)
	}
	if d.Priority.Tier != TierSecured {
		t.Fatalf("tier: want=%d got=%d", TierSecured, d.Priority.Tier)
	}
	missing := uuid.New()
	_, err = e.AddDebt(DebtInput{CreditorName: "Bank", Type: DebtTypeMortgage, Amount: kes("1"), IsSecured: true, SecuredAssetID: &missing})
	requireIs(t, err, ErrUnknownChild)
}

func TestRecordCashReceipt(t *testing.T) {
	e := newTestEstate(t, "0")
	if err := e.RecordCashReceipt(kes("2500.75"), "bank balance", "ACC-1"); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	requireMoney(t, "cash", e.CashOnHand(), "2500.75")
	requireCode(t, e.RecordCashReceipt(kes("0"), "bank", ""), aggregates.CodeValidation)
	requireCode(t, e.RecordCashReceipt(kes("1"), "", ""), aggregates.CodeValidation)
}
