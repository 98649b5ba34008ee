package estate

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/estate-backend/internal/domain/aggregates"
	"github.com/yungbote/estate-backend/internal/domain/money"
)

var testClock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func kes(amount string) money.Money { return money.MustNew(amount, "KES") }

func pct(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func testMeta() CommandMetadata {
	return CommandMetadata{Actor: "executor-1", CorrelationID: "corr-1", At: testClock}
}

func newTestEstate(t *testing.T, cash string) *Estate {
	t.Helper()
	return newTestEstateWithPolicy(t, cash, DefaultPolicy())
}

func newTestEstateWithPolicy(t *testing.T, cash string, policy Policy) *Estate {
	t.Helper()
	opening := kes(cash)
	e, err := NewEstate(EstateInput{
		DeceasedID:  uuid.New(),
		Name:        "Estate of the late W. Kamau",
		OpeningCash: &opening,
	}, policy, testMeta())
	if err != nil {
		t.Fatalf("new estate: %v", err)
	}
	return e
}

func mustAddDebt(t *testing.T, e *Estate, debtType DebtType, amount string) *Debt {
	t.Helper()
	d, err := e.AddDebt(DebtInput{CreditorName: string(debtType) + " creditor", Type: debtType, Amount: kes(amount)})
	if err != nil {
		t.Fatalf("add %s debt: %v", debtType, err)
	}
	return d
}

func mustAddLand(t *testing.T, e *Estate, value string) *Asset {
	t.Helper()
	a, err := e.AddAsset(AssetInput{
		Name:    "Plot in Kiambu",
		Details: LandDetails{TitleNumber: "KIAMBU/RUIRU/1234", SizeAcres: pct("0.5")},
		Value:   kes(value),
		Valuer:  "Valuer & Co",
	})
	if err != nil {
		t.Fatalf("add asset: %v", err)
	}
	return a
}

func requireCode(t *testing.T, err error, code aggregates.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !aggregates.IsCode(err, code) {
		t.Fatalf("code: want=%s got=%s (%v)", code, aggregates.CodeOf(err), err)
	}
}

func requireIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error: want %v got=%v", target, err)
	}
}

func requireMoney(t *testing.T, label string, got money.Money, want string) {
	t.Helper()
	if !got.Equal(kes(want)) {
		t.Fatalf("%s: want=%s got=%s", label, kes(want), got)
	}
}
