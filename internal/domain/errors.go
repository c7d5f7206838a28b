package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrOutOfStock          = errors.New("out of stock")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrOrderCreationFailed = errors.New("order could not be created")
	ErrNotFound            = errors.New("not found")
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrInvalidIdentity     = errors.New("invalid identity")
	ErrCartChanged         = errors.New("cart changed during checkout")
	ErrCheckoutInProgress  = errors.New("checkout already in progress")
)

// StockViolation describes one line whose requested quantity cannot be met.
type StockViolation struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// InsufficientStockError lists every offending line, in cart order.
type InsufficientStockError struct {
	Violations []StockViolation
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", v.ProductID, v.Requested, v.Available))
	}
	return ErrInsufficientStock.Error() + ": " + strings.Join(parts, ", ")
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// StockViolations extracts violation details from err, if any.
func StockViolations(err error) []StockViolation {
	var se *InsufficientStockError
	if errors.As(err, &se) {
		return se.Violations
	}
	return nil
}
