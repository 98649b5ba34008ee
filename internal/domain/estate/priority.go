package estate

import (
	"fmt"
	"strings"
)

// PriorityTier is a debt's rank in the statutory waterfall; 1 is paid first.
type PriorityTier int

const (
	TierFuneral        PriorityTier = 1
	TierAdministration PriorityTier = 2
	TierSecured        PriorityTier = 3
	TierPreferential   PriorityTier = 4
	TierUnsecured      PriorityTier = 5
)

func (t PriorityTier) Valid() bool { return t >= TierFuneral && t <= TierUnsecured }

func (t PriorityTier) String() string {
	switch t {
	case TierFuneral:
		return "funeral"
	case TierAdministration:
		return "administration"
	case TierSecured:
		return "secured"
	case TierPreferential:
		return "taxes_rates_wages"
	case TierUnsecured:
		return "unsecured"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// DebtType classifies a creditor claim.
type DebtType string

const (
	DebtTypeFuneralExpenses        DebtType = "FUNERAL_EXPENSES"
	DebtTypeTestamentaryExpenses   DebtType = "TESTAMENTARY_EXPENSES"
	DebtTypeAdministrationExpenses DebtType = "ADMINISTRATION_EXPENSES"
	DebtTypeMortgage               DebtType = "MORTGAGE"
	DebtTypeAssetFinance           DebtType = "ASSET_FINANCE"
	DebtTypeSecuredLoan            DebtType = "SECURED_LOAN"
	DebtTypeTax                    DebtType = "TAX"
	DebtTypeEstateDuty             DebtType = "ESTATE_DUTY"
	DebtTypeRates                  DebtType = "RATES"
	DebtTypeWages                  DebtType = "WAGES"
	DebtTypePersonalLoan           DebtType = "PERSONAL_LOAN"
	DebtTypeCreditCard             DebtType = "CREDIT_CARD"
	DebtTypeMedicalBills           DebtType = "MEDICAL_BILLS"
	DebtTypeBusinessDebt           DebtType = "BUSINESS_DEBT"
	DebtTypeOther                  DebtType = "OTHER"
)

var tierByDebtType = map[DebtType]PriorityTier{
	DebtTypeFuneralExpenses:        TierFuneral,
	DebtTypeTestamentaryExpenses:   TierAdministration,
	DebtTypeAdministrationExpenses: TierAdministration,
	DebtTypeMortgage:               TierSecured,
	DebtTypeAssetFinance:           TierSecured,
	DebtTypeSecuredLoan:            TierSecured,
	DebtTypeTax:                    TierPreferential,
	DebtTypeEstateDuty:             TierPreferential,
	DebtTypeRates:                  TierPreferential,
	DebtTypeWages:                  TierPreferential,
}

// ParseDebtType normalizes a debt type; unknown spellings are rejected.
func ParseDebtType(raw string) (DebtType, error) {
	t := DebtType(strings.ToUpper(strings.TrimSpace(raw)))
	switch t {
	case DebtTypeFuneralExpenses, DebtTypeTestamentaryExpenses, DebtTypeAdministrationExpenses,
		DebtTypeMortgage, DebtTypeAssetFinance, DebtTypeSecuredLoan,
		DebtTypeTax, DebtTypeEstateDuty, DebtTypeRates, DebtTypeWages,
		DebtTypePersonalLoan, DebtTypeCreditCard, DebtTypeMedicalBills, DebtTypeBusinessDebt, DebtTypeOther:
		return t, nil
	default:
		return "", validationErr("ParseDebtType", nil, "unknown debt type %q", raw)
	}
}

// DebtPriority pairs a debt type with its statutory tier.
type DebtPriority struct {
	Tier     PriorityTier `json:"tier"`
	DebtType DebtType     `json:"debt_type"`
}

// PriorityFor classifies debtType. A secured claim whose type would otherwise rank as
// unsecured is promoted to the secured tier.
func PriorityFor(debtType DebtType, isSecured bool) DebtPriority {
	tier, ok := tierByDebtType[debtType]
	if !ok {
		tier = TierUnsecured
	}
	if isSecured && tier == TierUnsecured {
		tier = TierSecured
	}
	return DebtPriority{Tier: tier, DebtType: debtType}
}

// NewDebtPriority builds an explicit priority, validating the tier range.
func NewDebtPriority(tier int, debtType DebtType) (DebtPriority, error) {
	t := PriorityTier(tier)
	if !t.Valid() {
		return DebtPriority{}, validationErr("NewDebtPriority", nil, "tier %d must be within 1..5", tier)
	}
	return DebtPriority{Tier: t, DebtType: debtType}, nil
}

// Rank is the numeric tier; lower ranks are paid first.
func (p DebtPriority) Rank() int { return int(p.Tier) }

// Outranks reports whether p must be paid before o.
func (p DebtPriority) Outranks(o DebtPriority) bool { return p.Tier < o.Tier }

func (p DebtPriority) String() string {
	return fmt.Sprintf("tier %d (%s)", int(p.Tier), p.Tier)
}
