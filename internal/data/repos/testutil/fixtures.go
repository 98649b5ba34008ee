package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/estate-backend/internal/domain/estate"
	"github.com/yungbote/estate-backend/internal/domain/money"
)

// Clock is the fixed command time used by fixtures.
var Clock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func Meta() estate.CommandMetadata {
	return estate.CommandMetadata{Actor: "executor-1", CorrelationID: "corr-1", At: Clock}
}

func KES(amount string) money.Money {
	return money.MustNew(amount, money.DefaultCurrency)
}

func Pct(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// NewEstate builds an unsaved estate with opening cash under the default policy.
func NewEstate(tb testing.TB, openingCash string) *estate.Estate {
	tb.Helper()
	cash := KES(openingCash)
	e, err := estate.NewEstate(estate.EstateInput{
		DeceasedID:  uuid.New(),
		Name:        "Estate of the late J. Kamau",
		OpeningCash: &cash,
	}, estate.DefaultPolicy(), Meta())
	if err != nil {
		tb.Fatalf("new estate: %v", err)
	}
	return e
}

func AddLand(tb testing.TB, e *estate.Estate, value string) *estate.Asset {
	tb.Helper()
	a, err := e.AddAsset(estate.AssetInput{
		Name:    "Plot KIAMBU/RUIRU/1234",
		Details: estate.LandDetails{TitleNumber: "KIAMBU/RUIRU/1234", County: "Kiambu"},
		Value:   KES(value),
	})
	if err != nil {
		tb.Fatalf("add land: %v", err)
	}
	return a
}

func AddDebt(tb testing.TB, e *estate.Estate, t estate.DebtType, amount string) *estate.Debt {
	tb.Helper()
	d, err := e.AddDebt(estate.DebtInput{
		CreditorName: "Creditor " + string(t),
		Type:         t,
		Amount:       KES(amount),
	})
	if err != nil {
		tb.Fatalf("add debt: %v", err)
	}
	return d
}
