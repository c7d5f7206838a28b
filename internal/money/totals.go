// Package money computes cart and order totals. Everything here is pure.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

const places = 2

var ErrInvalidTaxRate = errors.New("tax rate must be between 0 and 1")

// Line is the minimal input for totals: a unit price and a quantity.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// ComputeTotals sums the lines and applies tax and shipping.
// The subtotal is rounded once, not per line. Shipping sees the rounded subtotal.
// Lines with a non-positive quantity contribute nothing.
// An empty cart yields all zeros regardless of the shipping policy.
func ComputeTotals(lines []Line, taxRate decimal.Decimal, policy ShippingPolicy) Totals {
	raw := decimal.Zero
	count := 0
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		raw = raw.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		count += l.Quantity
	}
	if count == 0 {
		return Totals{Subtotal: decimal.Zero, Tax: decimal.Zero, Shipping: decimal.Zero, Total: decimal.Zero}
	}

	subtotal := raw.Round(places)
	tax := subtotal.Mul(taxRate).Round(places)
	shipping := decimal.Zero
	if policy != nil {
		shipping = policy.Cost(subtotal).Round(places)
	}
	return Totals{
		Subtotal:  subtotal,
		Tax:       tax,
		Shipping:  shipping,
		Total:     subtotal.Add(tax).Add(shipping).Round(places),
		ItemCount: count,
	}
}

// ValidateTaxRate checks rate ∈ [0,1].
func ValidateTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return ErrInvalidTaxRate
	}
	return nil
}
