package tax

import (
	"github.com/shopspring/decimal"

	"github.com/raketrapport/raket/internal/accounts"
	"github.com/raketrapport/raket/internal/model"
	"github.com/raketrapport/raket/internal/rules"
)

// Pension compares the special payroll tax booked on pension premiums with
// what the premiums call for.
type Pension struct {
	Premiums   decimal.Decimal `json:"pension_premier"`
	Booked     decimal.Decimal `json:"sarskild_loneskatt_pension"`
	Calculated decimal.Decimal `json:"sarskild_loneskatt_pension_calculated"`
	Rate       decimal.Decimal `json:"sarskild_loneskatt_rate"`
}

// PensionCheck reads premiums from account 7410 and the booked tax from
// 7531, both as absolute amounts.
func PensionCheck(balances model.Balances, rate decimal.Decimal) Pension {
	premiums := balances.Get(accounts.PensionPremiums).Abs()
	return Pension{
		Premiums:   premiums,
		Booked:     balances.Get(accounts.PensionPayrollTax).Abs(),
		Calculated: premiums.Mul(rate),
		Rate:       rate,
	}
}

// PensionRate returns the special payroll tax rate in force for a fiscal
// year, zero when the catalog has none.
func PensionRate(rates rules.Rates, fiscalYear int) decimal.Decimal {
	r, _ := rates.Lookup(rules.RatePensionPayrollTax, fiscalYear)
	return r
}

// Discrepancy is the tax missing from the books, never negative.
func (p Pension) Discrepancy() decimal.Decimal {
	diff := p.Calculated.Sub(p.Booked)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}

// NeedsAdjustment reports whether less tax was booked than calculated.
func (p Pension) NeedsAdjustment() bool {
	return p.Discrepancy().IsPositive()
}
