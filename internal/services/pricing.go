package services

import (
	"github.com/shopspring/decimal"

	"storefront/internal/money"
)

// Pricing binds the configured tax rate and shipping tiers. Cart views and
// checkout both go through it so totals are derived in one place.
type Pricing struct {
	TaxRate  decimal.Decimal
	Shipping money.Tiered
}

func (p Pricing) Totals(lines []money.Line, method money.Method) money.Totals {
	return money.ComputeTotals(lines, p.TaxRate, p.Shipping.For(method))
}
