package estate

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yungbote/estate-backend/internal/domain/money"
)

// SaleValidation selects how a liquidation sale amount is checked.
type SaleValidation string

const (
	// SaleValidationReserveFloor rejects amounts below the reserve price.
	SaleValidationReserveFloor SaleValidation = "reserve_floor"
	// SaleValidationTargetBand additionally requires the amount to fall inside a band
	// around the target amount.
	SaleValidationTargetBand SaleValidation = "target_band"
)

// Policy carries the statutory knobs the ledger applies. It is configuration, not
// state, and is never persisted with an estate.
type Policy struct {
	Currency                   string
	SubstantialGiftPercent     decimal.Decimal
	AutoReserveOnDebt          bool
	MaxCommissionRate          decimal.Decimal
	SaleValidation             SaleValidation
	TargetBandLow              decimal.Decimal
	TargetBandHigh             decimal.Decimal
	MandatoryPriorityTierLimit PriorityTier
}

// DefaultPolicy is the conservative canonical policy.
func DefaultPolicy() Policy {
	return Policy{
		Currency:                   money.DefaultCurrency,
		SubstantialGiftPercent:     decimal.NewFromInt(10),
		AutoReserveOnDebt:          true,
		MaxCommissionRate:          decimal.RequireFromString("0.5"),
		SaleValidation:             SaleValidationReserveFloor,
		TargetBandLow:              decimal.RequireFromString("0.70"),
		TargetBandHigh:             decimal.RequireFromString("1.30"),
		MandatoryPriorityTierLimit: TierSecured,
	}
}

// Validate checks internal consistency of a policy loaded from configuration.
func (p Policy) Validate() error {
	const op = "Policy.Validate"
	if money.Zero(p.Currency).Currency() == "" {
		return validationErr(op, money.ErrInvalidCurrency, "invalid currency %q", p.Currency)
	}
	if p.SubstantialGiftPercent.IsNegative() || p.SubstantialGiftPercent.GreaterThan(decimal.NewFromInt(100)) {
		return validationErr(op, nil, "substantial gift percent %s must be within 0..100", p.SubstantialGiftPercent)
	}
	if p.MaxCommissionRate.IsNegative() || p.MaxCommissionRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return validationErr(op, nil, "max commission rate %s must be within [0,1)", p.MaxCommissionRate)
	}
	switch p.SaleValidation {
	case SaleValidationReserveFloor:
	case SaleValidationTargetBand:
		if !p.TargetBandLow.IsPositive() || p.TargetBandHigh.LessThan(p.TargetBandLow) {
			return validationErr(op, nil, "target band %s..%s is invalid", p.TargetBandLow, p.TargetBandHigh)
		}
	default:
		return validationErr(op, nil, "unknown sale validation %q", p.SaleValidation)
	}
	if !p.MandatoryPriorityTierLimit.Valid() {
		return validationErr(op, nil, "mandatory tier limit %d is out of range", p.MandatoryPriorityTierLimit)
	}
	return nil
}

// ParseSaleValidation accepts the configuration spelling of a sale validation mode.
func ParseSaleValidation(raw string) (SaleValidation, error) {
	switch v := SaleValidation(strings.ToLower(strings.TrimSpace(raw))); v {
	case "":
		return SaleValidationReserveFloor, nil
	case SaleValidationReserveFloor, SaleValidationTargetBand:
		return v, nil
	default:
		return "", fmt.Errorf("unknown sale validation %q", raw)
	}
}
