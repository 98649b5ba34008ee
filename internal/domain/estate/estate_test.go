package estate

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/yungbote/estate-backend/internal/domain/aggregates"
	"github.com/yungbote/estate-backend/internal/domain/money"
)

func TestNewEstateValidation(t *testing.T) {
	usd := money.MustNew("1", "USD")
	cases := []struct {
		name string
		in   EstateInput
	}{
		{name: "missing deceased", in: EstateInput{Name: "Estate"}},
		{name: "missing name", in: EstateInput{DeceasedID: uuid.New()}},
		{name: "bad currency", in: EstateInput{DeceasedID: uuid.New(), Name: "Estate", Currency: "KS"}},
		{name: "opening cash currency", in: EstateInput{DeceasedID: uuid.New(), Name: "Estate", OpeningCash: &usd}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEstate(tc.in, DefaultPolicy(), testMeta())
			requireCode(t, err, aggregates.CodeValidation)
		})
	}

	e := newTestEstate(t, "5000")
	if e.Status() != EstateOpen || e.Version() != 0 || e.Currency() != "KES" {
		t.Fatalf("new estate: status=%s version=%d currency=%s", e.Status(), e.Version(), e.Currency())
	}
	if !e.CreatedAt().Equal(testClock) {
		t.Fatalf("created at: want=%s got=%s", testClock, e.CreatedAt())
	}
	requireMoney(t, "available cash", e.AvailableCash(), "5000")
}

func TestFrozenEstateRejectsMutations(t *testing.T) {
	e := newTestEstate(t, "1000")
	a := mustAddLand(t, e, "100")
	if err := e.Freeze("court injunction"); err != nil {
		t.Fatalf("freeze: %v", err)
	}

	mutations := map[string]func() error{
		"record cash": func() error { return e.RecordCashReceipt(kes("1"), "rent", "") },
		"add debt": func() error {
			_, err := e.AddDebt(DebtInput{CreditorName: "Hospital", Type: DebtTypeMedicalBills, Amount: kes("1")})
			return err
		},
		"revalue asset":   func() error { return e.RevalueAsset(a.ID, kes("200"), "", "") },
		"begin liquidate": func() error { return e.BeginLiquidation("") },
		"set tax":         func() error { return e.SetTaxCompliance(TaxCleared, "KRA-1") },
	}
	for name, fn := range mutations {
		t.Run(name, func(t *testing.T) {
			err := fn()
			requireCode(t, err, aggregates.CodeIllegalState)
			requireIs(t, err, ErrEstateFrozen)
		})
	}
	requireMoney(t, "cash after rejected mutations", e.CashOnHand(), "1000")

	if err := e.Freeze("second injunction"); err != nil {
		t.Fatalf("refreeze: %v", err)
	}
	if e.FreezeReason() != "second injunction" {
		t.Fatalf("freeze reason: got=%q", e.FreezeReason())
	}
	if err := e.Unfreeze("injunction lifted"); err != nil {
		t.Fatalf("unfreeze: %v", err)
	}
	if err := e.RecordCashReceipt(kes("1"), "rent", ""); err != nil {
		t.Fatalf("record cash after unfreeze: %v", err)
	}
	history := e.FreezeHistory()
	if len(history) != 3 || !history[0].Frozen || history[2].Frozen {
		t.Fatalf("freeze history: got=%+v", history)
	}
	if history[0].Actor != "executor-1" {
		t.Fatalf("freeze actor: want=executor-1 got=%s", history[0].Actor)
	}
	err := e.Freeze("  ")
	requireCode(t, err, aggregates.CodeValidation)
}

func TestReadinessReportsEveryIssueInOrder(t *testing.T) {
	e := newTestEstate(t, "100")
	mustAddDebt(t, e, DebtTypeFuneralExpenses, "500")
	disputed := mustAddLand(t, e, "10")
	if err := e.ChangeAssetStatus(disputed.ID, AssetDisputed, "boundary claim"); err != nil {
		t.Fatalf("dispute asset: %v", err)
	}
	selling := mustAddLand(t, e, "10")
	startPrivateSale(t, e, selling)
	g := mustRecordGift(t, e, uuid.New(), "50")
	if err := e.ContestGift(g.ID, "challenged"); err != nil {
		t.Fatalf("contest gift: %v", err)
	}
	if err := e.Freeze("audit"); err != nil {
		t.Fatalf("freeze: %v", err)
	}

	r := e.ValidateDistributionReadiness()
	if r.Ready {
		t.Fatalf("ready: want=false")
	}
	want := []ReadinessCode{
		ReadinessEstateFrozen,
		ReadinessEstateInsolvent,
		ReadinessPriorityDebtOutstanding,
		ReadinessAssetDisputed,
		ReadinessGiftContested,
		ReadinessLiquidationInProgress,
		ReadinessTaxNotCleared,
	}
	if len(r.Issues) != len(want) {
		t.Fatalf("issues: want=%d got=%d (%s)", len(want), len(r.Issues), r.Summary())
	}
	for i, code := range want {
		if r.Issues[i].Code != code {
			t.Fatalf("issue %d: want=%s got=%s", i, code, r.Issues[i].Code)
		}
	}
}

func TestReadinessIgnoresNonMandatoryTiers(t *testing.T) {
	e := newTestEstate(t, "10000")
	mustAddDebt(t, e, DebtTypePersonalLoan, "100")
	if err := e.SetTaxCompliance(TaxExempt, ""); err != nil {
		t.Fatalf("tax: %v", err)
	}
	r := e.ValidateDistributionReadiness()
	if !r.Ready {
		t.Fatalf("ready: want=true got issues %s", r.Summary())
	}
	mustAddDebt(t, e, DebtTypeMortgage, "100")
	if r := e.ValidateDistributionReadiness(); !r.Has(ReadinessPriorityDebtOutstanding) {
		t.Fatalf("secured debt should block distribution: %s", r.Summary())
	}
}

func TestBeginDistributionRequiresReadiness(t *testing.T) {
	e := newTestEstate(t, "1000")
	err := e.BeginDistribution("")
	requireCode(t, err, aggregates.CodeIllegalState)
	requireIs(t, err, ErrDistributionDenied)
	if e.Status() != EstateOpen {
		t.Fatalf("status after denied distribution: got=%s", e.Status())
	}

	if err := e.SetTaxCompliance(TaxCleared, "KRA/2026/001"); err != nil {
		t.Fatalf("tax: %v", err)
	}
	if err := e.BeginDistribution("all clear"); err != nil {
		t.Fatalf("begin distribution: %v", err)
	}
	if err := e.ResumeLiquidation("late asset found"); err != nil {
		t.Fatalf("resume liquidation: %v", err)
	}
	if err := e.BeginDistribution(""); err != nil {
		t.Fatalf("begin distribution again: %v", err)
	}
	if err := e.Close("administration complete"); err != nil {
		t.Fatalf("close: %v", err)
	}
	err = e.RecordCashReceipt(kes("1"), "refund", "")
	requireIs(t, err, ErrEstateClosed)
	err = e.BeginLiquidation("")
	requireIs(t, err, ErrEstateClosed)
	if err := e.Freeze("post-closure audit"); err != nil {
		t.Fatalf("freeze closed estate: %v", err)
	}
}

func TestPlanDistributionDeductsHotchpot(t *testing.T) {
	e := newTestEstate(t, "900000")
	heirA, heirB := uuid.New(), uuid.New()
	mustRecordGift(t, e, heirA, "100000")
	if err := e.SetTaxCompliance(TaxCleared, "KRA-9"); err != nil {
		t.Fatalf("tax: %v", err)
	}

	pool, err := e.CalculateDistributablePool()
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	requireMoney(t, "distributable pool", pool, "1000000")

	lines, err := e.PlanDistribution([]BeneficiaryShare{
		{BeneficiaryID: heirA, Weight: pct("1")},
		{BeneficiaryID: heirB, Weight: pct("1")},
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireMoney(t, "heir A gross", lines[0].Gross, "500000")
	requireMoney(t, "heir A deduction", lines[0].HotchpotDeduction, "100000")
	requireMoney(t, "heir A net", lines[0].Net, "400000")
	requireMoney(t, "heir B net", lines[1].Net, "500000")
	requireMoney(t, "cash unchanged", e.CashOnHand(), "900000")

	_, err = e.PlanDistribution([]BeneficiaryShare{{BeneficiaryID: heirA, Weight: pct("1")}, {BeneficiaryID: heirA, Weight: pct("2")}})
	requireCode(t, err, aggregates.CodeValidation)
	_, err = e.PlanDistribution(nil)
	requireCode(t, err, aggregates.CodeValidation)
}

func TestPlanDistributionFloorsDeductionAtZero(t *testing.T) {
	e := newTestEstate(t, "100")
	heirA, heirB := uuid.New(), uuid.New()
	mustRecordGift(t, e, heirA, "2000")
	if err := e.SetTaxCompliance(TaxExempt, ""); err != nil {
		t.Fatalf("tax: %v", err)
	}
	lines, err := e.PlanDistribution([]BeneficiaryShare{
		{BeneficiaryID: heirA, Weight: pct("1")},
		{BeneficiaryID: heirB, Weight: pct("1")},
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireMoney(t, "heir A net", lines[0].Net, "0")
	requireMoney(t, "heir A deduction", lines[0].HotchpotDeduction, "1050")
	requireMoney(t, "heir B net", lines[1].Net, "1050")
}

func TestPlanDistributionRefusesUnreadyEstate(t *testing.T) {
	e := newTestEstate(t, "100")
	_, err := e.PlanDistribution([]BeneficiaryShare{{BeneficiaryID: uuid.New(), Weight: pct("1")}})
	requireIs(t, err, ErrDistributionDenied)
}

func TestSolvency(t *testing.T) {
	e := newTestEstate(t, "1000")
	mustAddLand(t, e, "500")
	mustAddDebt(t, e, DebtTypeCreditCard, "1200")
	s := e.Solvency()
	if !s.IsSolvent {
		t.Fatalf("solvent: want=true got=%+v", s)
	}
	requireMoney(t, "surplus", s.Surplus, "300")

	mustAddDebt(t, e, DebtTypeWages, "800")
	s = e.Solvency()
	if s.IsSolvent {
		t.Fatalf("solvent: want=false got=%+v", s)
	}
	requireMoney(t, "deficit", s.Deficit, "500")
	pool, _ := e.CalculateDistributablePool()
	requireMoney(t, "insolvent pool", pool, "0")
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	e := newTestEstate(t, "50000")
	land := mustAddLand(t, e, "1000000")
	o, err := e.AddAssetCoOwner(land.ID, CoOwnerInput{OwnerIdentity: "ID-9", SharePercentage: pct("25"), OwnershipType: TenancyInCommon})
	if err != nil {
		t.Fatalf("co-owner: %v", err)
	}
	if err := e.VerifyAssetCoOwner(land.ID, o.ID, nil); err != nil {
		t.Fatalf("verify: %v", err)
	}
	funeral := mustAddDebt(t, e, DebtTypeFuneralExpenses, "30000")
	if err := e.PayDebt(funeral.ID, kes("10000"), "RCPT-1"); err != nil {
		t.Fatalf("pay: %v", err)
	}
	mustAddDebt(t, e, DebtTypePersonalLoan, "40000")
	mustRecordGift(t, e, uuid.New(), "20000")
	if _, err := e.RegisterDependant(DependantInput{Name: "A. Wanjiru", Relationship: RelationshipChild, IsMinor: true}); err != nil {
		t.Fatalf("dependant: %v", err)
	}
	e.MarkCommitted(4)

	raw, err := json.Marshal(e.Snapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	r, err := Restore(s, DefaultPolicy())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if r.ID() != e.ID() || r.Version() != 4 || r.Status() != e.Status() {
		t.Fatalf("identity: want=%s/4/%s got=%s/%d/%s", e.ID(), e.Status(), r.ID(), r.Version(), r.Status())
	}
	requireMoney(t, "cash on hand", r.CashOnHand(), e.CashOnHand().Amount().StringFixed(2))
	requireMoney(t, "cash reserved", r.CashReservedForDebts(), e.CashReservedForDebts().Amount().StringFixed(2))
	if len(r.Debts()) != 2 || len(r.Assets()) != 1 || len(r.Gifts()) != 1 || len(r.Dependants()) != 1 {
		t.Fatalf("children: debts=%d assets=%d gifts=%d dependants=%d", len(r.Debts()), len(r.Assets()), len(r.Gifts()), len(r.Dependants()))
	}
	restoredLand, _ := r.Asset(land.ID)
	v, _ := restoredLand.GetDistributableValue()
	requireMoney(t, "restored co-owned value", v, "750000")
	if _, ok := restoredLand.Details.(LandDetails); !ok {
		t.Fatalf("restored details: got=%T", restoredLand.Details)
	}
	wantPool, _ := e.CalculateDistributablePool()
	gotPool, _ := r.CalculateDistributablePool()
	if !gotPool.Equal(wantPool) {
		t.Fatalf("pool: want=%s got=%s", wantPool, gotPool)
	}
	if len(r.PendingEvents()) != 0 {
		t.Fatalf("restored estate has %d pending events", len(r.PendingEvents()))
	}

	loan := r.Debts()[1]
	err = r.PayDebt(loan.ID, kes("1"), "")
	requireIs(t, err, ErrPriorityViolation)
}

func TestRestoreRejectsBrokenLedger(t *testing.T) {
	e := newTestEstate(t, "1000")
	mustAddDebt(t, e, DebtTypeFuneralExpenses, "400")

	s := e.Snapshot()
	s.CashReserved = kes("399")
	_, err := Restore(s, DefaultPolicy())
	requireCode(t, err, aggregates.CodeIllegalState)

	s = e.Snapshot()
	s.CashOnHand = kes("300")
	_, err = Restore(s, DefaultPolicy())
	requireIs(t, err, ErrInsufficientCash)

	s = e.Snapshot()
	s.Currency = "USD"
	_, err = Restore(s, DefaultPolicy())
	requireCode(t, err, aggregates.CodeValidation)
}

func TestEventsCarryMetadataAndSequence(t *testing.T) {
	e := newTestEstate(t, "1000")
	events := e.PendingEvents()
	if len(events) != 1 || events[0].Type != EventEstateRegistered || events[0].Sequence != 1 {
		t.Fatalf("registration events: got=%+v", events)
	}

	e.SetCommandMetadata(CommandMetadata{Actor: "clerk-7", CorrelationID: "req-42", At: testClock.AddDate(0, 0, 1)})
	mustAddDebt(t, e, DebtTypeFuneralExpenses, "100")
	err := e.PayDebt(uuid.New(), kes("1"), "")
	requireIs(t, err, ErrUnknownChild)

	events = e.PendingEvents()
	if len(events) != 2 {
		t.Fatalf("events: want=2 got=%d", len(events))
	}
	last := events[1]
	if last.Type != EventDebtAdded || last.Sequence != 2 {
		t.Fatalf("debt event: type=%s seq=%d", last.Type, last.Sequence)
	}
	if last.Metadata.Actor != "clerk-7" || last.Metadata.CorrelationID != "req-42" {
		t.Fatalf("metadata: got=%+v", last.Metadata)
	}
	if !last.OccurredAt.Equal(testClock.AddDate(0, 0, 1)) || last.EstateID != e.ID() {
		t.Fatalf("event envelope: got=%+v", last)
	}

	e.MarkCommitted(1)
	if e.Version() != 1 || len(e.PendingEvents()) != 0 {
		t.Fatalf("after commit: version=%d pending=%d", e.Version(), len(e.PendingEvents()))
	}
	if err := e.RecordCashReceipt(kes("5"), "interest", "BANK-1"); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if got := e.PendingEvents(); len(got) != 1 || got[0].Sequence != 1 || got[0].Type != EventCashReceived {
		t.Fatalf("post-commit events: got=%+v", got)
	}
}

func TestDependantClaims(t *testing.T) {
	e := newTestEstate(t, "0")
	_, err := e.RegisterDependant(DependantInput{Name: "Cousin", Relationship: "COUSIN"})
	requireCode(t, err, aggregates.CodeValidation)

	d, err := e.RegisterDependant(DependantInput{Name: "J. Akinyi", Relationship: RelationshipSpouse})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if d.ClaimStatus != ClaimPending {
		t.Fatalf("claim: want=%s got=%s", ClaimPending, d.ClaimStatus)
	}
	if err := e.ResolveDependantClaim(d.ID, true, "marriage certificate"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, _ := e.Dependant(d.ID)
	if got.ClaimStatus != ClaimApproved {
		t.Fatalf("claim: want=%s got=%s", ClaimApproved, got.ClaimStatus)
	}
	err = e.ResolveDependantClaim(d.ID, false, "")
	requireIs(t, err, ErrInvalidTransition)
	err = e.ResolveDependantClaim(uuid.New(), true, "")
	requireIs(t, err, ErrUnknownChild)
}

func TestChildGettersReturnCopies(t *testing.T) {
	e := newTestEstate(t, "1000")
	d := mustAddDebt(t, e, DebtTypeFuneralExpenses, "100")
	d.OutstandingBalance = kes("0")
	got, _ := e.Debt(d.ID)
	requireMoney(t, "stored balance", got.OutstandingBalance, "100")
}
