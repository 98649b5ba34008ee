package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/yungbote/estate-backend/internal/domain/aggregates"
)

// DefaultCurrency is the ledger currency when none is configured.
const DefaultCurrency = "KES"

// Scale is the number of fractional digits a Money amount may carry.
const Scale = 2

var (
	ErrNegativeAmount    = errors.New("money amount is negative")
	ErrCurrencyMismatch  = errors.New("money currency mismatch")
	ErrInvalidCurrency   = errors.New("money currency is invalid")
	ErrTooManyFractional = errors.New("money amount has more than two fractional digits")
	ErrInvalidFactor     = errors.New("money factor is negative")
	ErrInvalidRatios     = errors.New("money allocation ratios are invalid")
	ErrAmountOutOfRange  = errors.New("money amount does not fit in int64 minor units")
)

var (
	hundred   = decimal.NewFromInt(100)
	minorUnit = decimal.New(1, Scale)
	maxMinor  = decimal.NewFromInt(math.MaxInt64)
	one       = decimal.NewFromInt(1)
)

// Money is an exact, non-negative, currency-tagged amount. The zero value is not usable;
// construct with New, FromMinor, FromString or Zero.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New validates amount and currency and returns a Money.
func New(amount decimal.Decimal, currency string) (Money, error) {
	const op = "Money.New"
	cur, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, aggregates.NewError(aggregates.CodeValidation, op, err.Error(), err)
	}
	if amount.IsNegative() {
		return Money{}, aggregates.Errorf(aggregates.CodeValidation, op, ErrNegativeAmount, "amount %s is negative", amount.String())
	}
	if !amount.Equal(amount.Truncate(Scale)) {
		return Money{}, aggregates.Errorf(aggregates.CodeValidation, op, ErrTooManyFractional, "amount %s has more than %d fractional digits", amount.String(), Scale)
	}
	if err := checkRange(op, amount); err != nil {
		return Money{}, err
	}
	return Money{amount: amount, currency: cur}, nil
}

// MustNew is New for constants and tests; it panics on invalid input.
func MustNew(amount string, currency string) Money {
	m, err := FromString(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// FromString parses a decimal literal such as "50000.00".
func FromString(amount string, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, aggregates.NewError(aggregates.CodeValidation, "Money.FromString", fmt.Sprintf("invalid amount %q", amount), err)
	}
	return New(d, currency)
}

// FromMinor builds Money from integer minor units (cents).
func FromMinor(minor int64, currency string) (Money, error) {
	return New(decimal.New(minor, -Scale), currency)
}

// Zero returns a zero amount in currency. An invalid currency yields an untagged zero
// that fails on the first arithmetic call.
func Zero(currency string) Money {
	cur, err := normalizeCurrency(currency)
	if err != nil {
		return Money{amount: decimal.Zero}
	}
	return Money{amount: decimal.Zero, currency: cur}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }

// Minor returns the amount in integer minor units. Every constructor and operation
// keeps the amount within int64 minor units.
func (m Money) Minor() int64 {
	return m.amount.Mul(minorUnit).IntPart()
}

// IsValid reports whether m was built through a constructor.
func (m Money) IsValid() bool {
	return m.currency != ""
}

// Add returns m + o.
func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency("Money.Add", o); err != nil {
		return Money{}, err
	}
	out := m.amount.Add(o.amount)
	if err := checkRange("Money.Add", out); err != nil {
		return Money{}, err
	}
	return Money{amount: out, currency: m.currency}, nil
}

// Subtract returns m - o and rejects a negative result.
func (m Money) Subtract(o Money) (Money, error) {
	const op = "Money.Subtract"
	if err := m.sameCurrency(op, o); err != nil {
		return Money{}, err
	}
	out := m.amount.Sub(o.amount)
	if out.IsNegative() {
		return Money{}, aggregates.Errorf(aggregates.CodeValidation, op, ErrNegativeAmount, "%s minus %s is negative", m, o)
	}
	return Money{amount: out, currency: m.currency}, nil
}

// Multiply scales m by factor and rounds half away from zero to minor units.
func (m Money) Multiply(factor decimal.Decimal) (Money, error) {
	const op = "Money.Multiply"
	if !m.IsValid() {
		return Money{}, aggregates.NewError(aggregates.CodeValidation, op, "money has no currency", ErrInvalidCurrency)
	}
	if factor.IsNegative() {
		return Money{}, aggregates.Errorf(aggregates.CodeValidation, op, ErrInvalidFactor, "factor %s is negative", factor.String())
	}
	out := m.amount.Mul(factor).Round(Scale)
	if err := checkRange(op, out); err != nil {
		return Money{}, err
	}
	return Money{amount: out, currency: m.currency}, nil
}

// Percent returns pct percent of m, rounded to minor units.
func (m Money) Percent(pct decimal.Decimal) (Money, error) {
	return m.Multiply(pct.Div(hundred))
}

// Cmp compares two amounts of the same currency.
func (m Money) Cmp(o Money) (int, error) {
	if err := m.sameCurrency("Money.Cmp", o); err != nil {
		return 0, err
	}
	return m.amount.Cmp(o.amount), nil
}

// IsGreaterThan reports m > o.
func (m Money) IsGreaterThan(o Money) (bool, error) {
	c, err := m.Cmp(o)
	return c > 0, err
}

// IsLessThan reports m < o.
func (m Money) IsLessThan(o Money) (bool, error) {
	c, err := m.Cmp(o)
	return c < 0, err
}

// Equal reports whether both currency and amount match.
func (m Money) Equal(o Money) bool {
	return m.currency == o.currency && m.amount.Equal(o.amount)
}

// Min returns the smaller of m and o.
func (m Money) Min(o Money) (Money, error) {
	c, err := m.Cmp(o)
	if err != nil {
		return Money{}, err
	}
	if c <= 0 {
		return m, nil
	}
	return o, nil
}

// Allocate splits m into len(ratios) parts proportional to ratios. Parts are computed in
// minor units by floor division; leftover units go one at a time to the non-zero ratios
// in slice order, so the parts always sum to m.
func (m Money) Allocate(ratios []decimal.Decimal) ([]Money, error) {
	const op = "Money.Allocate"
	if !m.IsValid() {
		return nil, aggregates.NewError(aggregates.CodeValidation, op, "money has no currency", ErrInvalidCurrency)
	}
	if len(ratios) == 0 {
		return nil, aggregates.NewError(aggregates.CodeValidation, op, "at least one ratio is required", ErrInvalidRatios)
	}
	total := decimal.Zero
	for i, r := range ratios {
		if r.IsNegative() {
			return nil, aggregates.Errorf(aggregates.CodeValidation, op, ErrInvalidRatios, "ratio %d is negative", i)
		}
		total = total.Add(r)
	}
	if total.IsZero() {
		return nil, aggregates.NewError(aggregates.CodeValidation, op, "ratios sum to zero", ErrInvalidRatios)
	}
	if len(ratios) == 1 {
		return []Money{m}, nil
	}

	units := m.amount.Shift(Scale)
	parts := make([]decimal.Decimal, len(ratios))
	allocated := decimal.Zero
	for i, r := range ratios {
		q, _ := units.Mul(r).QuoRem(total, 0)
		parts[i] = q
		allocated = allocated.Add(q)
	}
	remainder := units.Sub(allocated)
	for remainder.IsPositive() {
		for i, r := range ratios {
			if !remainder.IsPositive() {
				break
			}
			if r.IsZero() {
				continue
			}
			parts[i] = parts[i].Add(one)
			remainder = remainder.Sub(one)
		}
	}

	out := make([]Money, len(parts))
	for i, p := range parts {
		out[i] = Money{amount: p.Shift(-Scale), currency: m.currency}
	}
	return out, nil
}

func checkRange(op string, amount decimal.Decimal) error {
	if amount.Shift(Scale).GreaterThan(maxMinor) {
		return aggregates.Errorf(aggregates.CodeValidation, op, ErrAmountOutOfRange, "amount %s exceeds %s minor units", amount.String(), maxMinor.String())
	}
	return nil
}

// Sum adds a list of amounts in currency; an empty list is zero.
func Sum(currency string, items ...Money) (Money, error) {
	acc := Zero(currency)
	for _, it := range items {
		next, err := acc.Add(it)
		if err != nil {
			return Money{}, err
		}
		acc = next
	}
	return acc, nil
}

func (m Money) String() string {
	return m.amount.StringFixed(Scale) + " " + m.currency
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.StringFixed(Scale), Currency: m.currency})
}

// UnmarshalJSON validates the decoded amount; an empty currency decodes to the
// unusable zero value.
func (m *Money) UnmarshalJSON(raw []byte) error {
	var in moneyJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return err
	}
	if in.Currency == "" {
		*m = Money{}
		return nil
	}
	out, err := FromString(in.Amount, in.Currency)
	if err != nil {
		return err
	}
	*m = out
	return nil
}

func (m Money) sameCurrency(op string, o Money) error {
	if !m.IsValid() || !o.IsValid() {
		return aggregates.NewError(aggregates.CodeValidation, op, "money has no currency", ErrInvalidCurrency)
	}
	if m.currency != o.currency {
		return aggregates.Errorf(aggregates.CodeValidation, op, ErrCurrencyMismatch, "cannot combine %s with %s", m.currency, o.currency)
	}
	return nil
}

func normalizeCurrency(currency string) (string, error) {
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if len(cur) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	for _, r := range cur {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
		}
	}
	return cur, nil
}
