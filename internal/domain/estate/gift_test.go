package estate

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/estate-backend/internal/domain/aggregates"
)

func mustRecordGift(t *testing.T, e *Estate, recipient uuid.UUID, value string) *GiftInterVivos {
	t.Helper()
	g, err := e.RecordGift(GiftInput{
		RecipientID:         recipient,
		Description:         "Plot transferred to eldest son",
		AssetType:           AssetTypeLand,
		ValueAtTimeOfGift:   kes(value),
		DateGiven:           testClock.AddDate(-3, 0, 0),
		IsSubjectToHotchpot: true,
	})
	if err != nil {
		t.Fatalf("record gift: %v", err)
	}
	return g
}

func TestSubstantialGiftKeepsValueAtGifting(t *testing.T) {
	e := newTestEstate(t, "1000000")
	g := mustRecordGift(t, e, uuid.New(), "200000")

	ok, err := e.IsGiftSubstantial(g.ID)
	if err != nil {
		t.Fatalf("is substantial: %v", err)
	}
	if !ok {
		t.Fatalf("substantial: want=true got=false")
	}
	if err := e.UpdateGiftEstimate(g.ID, kes("500000")); err != nil {
		t.Fatalf("update estimate: %v", err)
	}
	got, _ := e.Gift(g.ID)
	requireMoney(t, "hotchpot value", got.GetHotchpotValue(), "200000")
	requireMoney(t, "estimate", *got.CurrentEstimatedValue, "500000")
	total, err := e.CalculateHotchpot()
	if err != nil {
		t.Fatalf("hotchpot: %v", err)
	}
	requireMoney(t, "estate hotchpot", total, "200000")

	small := mustRecordGift(t, e, uuid.New(), "99999.99")
	ok, _ = e.IsGiftSubstantial(small.ID)
	if ok {
		t.Fatalf("gift below threshold reported substantial")
	}
	list, err := e.SubstantialGifts()
	if err != nil {
		t.Fatalf("substantial gifts: %v", err)
	}
	if len(list) != 1 || list[0].ID != g.ID {
		t.Fatalf("substantial gifts: want=[%s] got=%d entries", g.ID, len(list))
	}
}

func TestRecordGiftValidation(t *testing.T) {
	e := newTestEstate(t, "0")
	_, err := e.RecordGift(GiftInput{
		RecipientID:       uuid.New(),
		Description:       "Car",
		ValueAtTimeOfGift: kes("1000"),
		DateGiven:         testClock.AddDate(0, 0, 1),
	})
	requireCode(t, err, aggregates.CodeValidation)
	_, err = e.RecordGift(GiftInput{
		Description:       "Car",
		ValueAtTimeOfGift: kes("1000"),
		DateGiven:         testClock,
	})
	requireCode(t, err, aggregates.CodeValidation)
	if len(e.Gifts()) != 0 {
		t.Fatalf("rejected gifts were stored")
	}
}

func TestGiftContestOutcomes(t *testing.T) {
	cases := []struct {
		outcome       GiftStatus
		wantHotchpot  string
		wantSubjectTo bool
	}{
		{outcome: GiftConfirmed, wantHotchpot: "200000", wantSubjectTo: true},
		{outcome: GiftExcluded, wantHotchpot: "0", wantSubjectTo: false},
		{outcome: GiftReclassifiedAsLoan, wantHotchpot: "0", wantSubjectTo: false},
		{outcome: GiftVoid, wantHotchpot: "0", wantSubjectTo: true},
	}
	for _, tc := range cases {
		t.Run(string(tc.outcome), func(t *testing.T) {
			e := newTestEstate(t, "1000000")
			g := mustRecordGift(t, e, uuid.New(), "200000")
			if err := e.ContestGift(g.ID, "beneficiary disputes the gift"); err != nil {
				t.Fatalf("contest: %v", err)
			}
			got, _ := e.Gift(g.ID)
			requireMoney(t, "contested hotchpot", got.GetHotchpotValue(), "0")
			if got.Contest.ContestedBy != "executor-1" {
				t.Fatalf("contested by: want=executor-1 got=%s", got.Contest.ContestedBy)
			}

			if err := e.ResolveGiftContest(g.ID, tc.outcome, "court ruling"); err != nil {
				t.Fatalf("resolve: %v", err)
			}
			got, _ = e.Gift(g.ID)
			if got.Status != tc.outcome {
				t.Fatalf("status: want=%s got=%s", tc.outcome, got.Status)
			}
			requireMoney(t, "resolved hotchpot", got.GetHotchpotValue(), tc.wantHotchpot)
			if got.IsSubjectToHotchpot != tc.wantSubjectTo {
				t.Fatalf("subject to hotchpot: want=%v got=%v", tc.wantSubjectTo, got.IsSubjectToHotchpot)
			}
			if got.Contest.ResolvedAt == nil || got.Contest.Outcome != tc.outcome {
				t.Fatalf("contest record: got=%+v", got.Contest)
			}
		})
	}
}

func TestGiftContestTransitions(t *testing.T) {
	e := newTestEstate(t, "0")
	g := mustRecordGift(t, e, uuid.New(), "1000")

	err := e.ResolveGiftContest(g.ID, GiftExcluded, "")
	requireIs(t, err, ErrInvalidTransition)
	err = e.ResolveGiftContest(g.ID, GiftContested, "")
	requireCode(t, err, aggregates.CodeValidation)
	err = e.ContestGift(g.ID, "")
	requireCode(t, err, aggregates.CodeValidation)

	if err := e.ContestGift(g.ID, "loan, not gift"); err != nil {
		t.Fatalf("contest: %v", err)
	}
	err = e.ContestGift(g.ID, "again")
	requireIs(t, err, ErrInvalidTransition)
	if err := e.ResolveGiftContest(g.ID, GiftExcluded, ""); err != nil {
		t.Fatalf("exclude: %v", err)
	}
	err = e.ContestGift(g.ID, "reopen")
	requireIs(t, err, ErrInvalidTransition)
}

func TestCorrectGiftValueKeepsHistory(t *testing.T) {
	e := newTestEstate(t, "0")
	g := mustRecordGift(t, e, uuid.New(), "200000")

	err := e.CorrectGiftValue(g.ID, kes("250000"), "")
	requireCode(t, err, aggregates.CodeValidation)

	if err := e.CorrectGiftValue(g.ID, kes("250000"), "valuation report found"); err != nil {
		t.Fatalf("correct: %v", err)
	}
	got, _ := e.Gift(g.ID)
	requireMoney(t, "corrected hotchpot", got.GetHotchpotValue(), "250000")
	if len(got.Corrections) != 1 {
		t.Fatalf("corrections: want=1 got=%d", len(got.Corrections))
	}
	c := got.Corrections[0]
	requireMoney(t, "previous value", c.Previous, "200000")
	if c.CorrectedBy != "executor-1" {
		t.Fatalf("corrected by: want=executor-1 got=%s", c.CorrectedBy)
	}
}
