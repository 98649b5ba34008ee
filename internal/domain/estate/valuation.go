package estate

import (
	"fmt"
	"strings"

	"github.com/yungbote/estate-backend/internal/domain/money"
)

// CalculateNetWorth is cash on hand plus the distributable value of every asset.
func (e *Estate) CalculateNetWorth() (money.Money, error) {
	total := e.cashOnHand
	var err error
	e.assets.each(func(a *Asset) {
		if err != nil {
			return
		}
		var v money.Money
		if v, err = a.GetDistributableValue(); err != nil {
			return
		}
		total, err = total.Add(v)
	})
	if err != nil {
		return money.Money{}, err
	}
	return total, nil
}

// CalculateGrossValue is the value against which gifts are judged substantial.
func (e *Estate) CalculateGrossValue() (money.Money, error) {
	return e.CalculateNetWorth()
}

// CalculateLiabilities sums outstanding balances of debts that are neither disputed,
// statute-barred nor closed.
func (e *Estate) CalculateLiabilities() (money.Money, error) {
	return e.sumDebts(func(d *Debt) bool { return d.IsWaterfallEligible() })
}

// MandatoryLiabilities sums eligible balances at or above the mandatory tier limit.
func (e *Estate) MandatoryLiabilities() (money.Money, error) {
	limit := e.policy.MandatoryPriorityTierLimit
	return e.sumDebts(func(d *Debt) bool { return d.IsWaterfallEligible() && d.Priority.Tier <= limit })
}

func (e *Estate) sumDebts(keep func(*Debt) bool) (money.Money, error) {
	total := money.Zero(e.currency)
	var err error
	e.debts.each(func(d *Debt) {
		if err != nil || !keep(d) {
			return
		}
		total, err = total.Add(d.OutstandingBalance)
	})
	if err != nil {
		return money.Money{}, err
	}
	return total, nil
}

// CalculateHotchpot sums the add-back value of confirmed gifts.
func (e *Estate) CalculateHotchpot() (money.Money, error) {
	total := money.Zero(e.currency)
	var err error
	e.gifts.each(func(g *GiftInterVivos) {
		if err != nil {
			return
		}
		total, err = total.Add(g.GetHotchpotValue())
	})
	if err != nil {
		return money.Money{}, err
	}
	return total, nil
}

// Solvency compares net worth with liabilities.
type Solvency struct {
	NetWorth    money.Money
	Liabilities money.Money
	Surplus     money.Money
	Deficit     money.Money
	IsSolvent   bool
}

// Solvency reports the estate's solvency position. An error computing it is
// reported as insolvent with zero figures.
func (e *Estate) Solvency() Solvency {
	zero := money.Zero(e.currency)
	out := Solvency{NetWorth: zero, Liabilities: zero, Surplus: zero, Deficit: zero}
	worth, err := e.CalculateNetWorth()
	if err != nil {
		return out
	}
	debts, err := e.CalculateLiabilities()
	if err != nil {
		return out
	}
	out.NetWorth, out.Liabilities = worth, debts
	if short, _ := worth.IsLessThan(debts); short {
		out.Deficit, _ = debts.Subtract(worth)
		return out
	}
	out.Surplus, _ = worth.Subtract(debts)
	out.IsSolvent = true
	return out
}

func (e *Estate) isSolvent() bool { return e.Solvency().IsSolvent }

// CalculateDistributablePool is net worth less liabilities plus the hotchpot add-back.
// The add-back is notional and used only for share computation. An insolvent estate
// has nothing to distribute.
func (e *Estate) CalculateDistributablePool() (money.Money, error) {
	s := e.Solvency()
	if !s.IsSolvent {
		return money.Zero(e.currency), nil
	}
	hotchpot, err := e.CalculateHotchpot()
	if err != nil {
		return money.Money{}, err
	}
	return s.Surplus.Add(hotchpot)
}

// ReadinessCode identifies one blocking reason for distribution.
type ReadinessCode string

const (
	ReadinessEstateFrozen            ReadinessCode = "ESTATE_FROZEN"
	ReadinessEstateInsolvent         ReadinessCode = "ESTATE_INSOLVENT"
	ReadinessPriorityDebtOutstanding ReadinessCode = "PRIORITY_DEBT_OUTSTANDING"
	ReadinessAssetDisputed           ReadinessCode = "ASSET_DISPUTED"
	ReadinessGiftContested           ReadinessCode = "GIFT_CONTESTED"
	ReadinessLiquidationInProgress   ReadinessCode = "LIQUIDATION_IN_PROGRESS"
	ReadinessTaxNotCleared           ReadinessCode = "TAX_NOT_CLEARED"
)

// ReadinessIssue is one reason the estate cannot distribute yet.
type ReadinessIssue struct {
	Code    ReadinessCode `json:"code"`
	Message string        `json:"message"`
}

// DistributionReadiness is the outcome of ValidateDistributionReadiness.
type DistributionReadiness struct {
	Ready  bool             `json:"ready"`
	Issues []ReadinessIssue `json:"issues"`
}

// Summary joins the issue messages in check order.
func (r DistributionReadiness) Summary() string {
	parts := make([]string, len(r.Issues))
	for i, is := range r.Issues {
		parts[i] = string(is.Code) + ": " + is.Message
	}
	return strings.Join(parts, "; ")
}

// Has reports whether code is among the issues.
func (r DistributionReadiness) Has(code ReadinessCode) bool {
	for _, is := range r.Issues {
		if is.Code == code {
			return true
		}
	}
	return false
}

// ValidateDistributionReadiness checks, in order: not frozen, solvent, no mandatory
// tier debt outstanding, no disputed asset or contested gift, no liquidation still
// running, tax cleared. Every failing check is reported.
func (e *Estate) ValidateDistributionReadiness() DistributionReadiness {
	var issues []ReadinessIssue
	add := func(code ReadinessCode, format string, args ...any) {
		issues = append(issues, ReadinessIssue{Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if e.isFrozen {
		add(ReadinessEstateFrozen, "estate is frozen: %s", e.freezeReason)
	}
	if s := e.Solvency(); !s.IsSolvent {
		add(ReadinessEstateInsolvent, "liabilities %s exceed net worth %s", s.Liabilities, s.NetWorth)
	}
	limit := e.policy.MandatoryPriorityTierLimit
	e.debts.each(func(d *Debt) {
		if d.IsWaterfallEligible() && d.HasOutstandingBalance() && d.Priority.Tier <= limit {
			add(ReadinessPriorityDebtOutstanding, "%s debt %s to %s has outstanding balance %s", d.Priority, d.ID, d.CreditorName, d.OutstandingBalance)
		}
	})
	e.assets.each(func(a *Asset) {
		if a.Status == AssetDisputed {
			add(ReadinessAssetDisputed, "asset %s (%s) is disputed", a.ID, a.Name)
		}
	})
	e.gifts.each(func(g *GiftInterVivos) {
		if g.Status == GiftContested {
			add(ReadinessGiftContested, "gift %s is contested", g.ID)
		}
	})
	e.assets.each(func(a *Asset) {
		if a.Liquidation != nil && !a.Liquidation.Status.IsTerminal() {
			add(ReadinessLiquidationInProgress, "liquidation %s of asset %s is %s", a.Liquidation.ID, a.ID, a.Liquidation.Status)
		}
	})
	if !e.taxCompliance.IsCleared() {
		add(ReadinessTaxNotCleared, "tax compliance is %s", e.taxCompliance)
	}
	return DistributionReadiness{Ready: len(issues) == 0, Issues: issues}
}
