package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ShippingPolicy prices shipping from the rounded subtotal.
type ShippingPolicy interface {
	Cost(subtotal decimal.Decimal) decimal.Decimal
}

// FixedFee charges the same fee on every non-empty order.
type FixedFee struct {
	Fee decimal.Decimal
}

func (p FixedFee) Cost(decimal.Decimal) decimal.Decimal { return p.Fee }

// ThresholdWaived charges Fee unless the subtotal reaches FreeOver.
type ThresholdWaived struct {
	Fee      decimal.Decimal
	FreeOver decimal.Decimal
}

func (p ThresholdWaived) Cost(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeOver) {
		return decimal.Zero
	}
	return p.Fee
}

type Method string

const (
	MethodStandard Method = "standard"
	MethodExpress  Method = "express"
)

func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MethodStandard, nil
	case MethodStandard, MethodExpress:
		return m, nil
	}
	return "", fmt.Errorf("unknown shipping method %q", s)
}

// Tiered prices shipping by the chosen method. Standard may itself be
// threshold-waived; express never is.
type Tiered struct {
	Standard ShippingPolicy
	Express  decimal.Decimal
}

// For binds a method and returns the policy to hand to ComputeTotals.
func (t Tiered) For(m Method) ShippingPolicy {
	if m == MethodExpress {
		return FixedFee{Fee: t.Express}
	}
	if t.Standard == nil {
		return FixedFee{Fee: decimal.Zero}
	}
	return t.Standard
}
