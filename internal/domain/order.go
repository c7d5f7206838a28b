package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// statusFlow is the linear fulfilment path; Cancelled sits outside it.
var statusFlow = []OrderStatus{StatusPending, StatusProcessing, StatusShipped, StatusDelivered}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Order is the immutable order header. Only Status changes after commit.
type Order struct {
	ID            string          `json:"-"`
	OrderID       string          `json:"order_id"`
	Owner         Identity        `json:"-"`
	UserID        string          `json:"user_id,omitempty"`
	Contact       Contact         `json:"contact"`
	Shipping      Address         `json:"shipping_address"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
	Status        OrderStatus     `json:"status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	Total         decimal.Decimal `json:"total"`
	ItemCount     int             `json:"item_count"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderLine freezes the product name and price at commit time.
type OrderLine struct {
	OrderID      string          `db:"order_id" json:"-"`
	ProductID    string          `db:"product_id" json:"product_id"`
	ProductName  string          `db:"product_name" json:"product_name"`
	Quantity     int             `db:"quantity" json:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineSubtotal decimal.Decimal `db:"line_subtotal" json:"line_subtotal"`
}

type StepState string

const (
	StepCompleted StepState = "completed"
	StepCurrent   StepState = "current"
	StepUpcoming  StepState = "upcoming"
)

type TimelineStep struct {
	Status OrderStatus `json:"status"`
	State  StepState   `json:"state"`
}

type Timeline struct {
	Steps     []TimelineStep `json:"steps,omitempty"`
	Cancelled bool           `json:"cancelled"`
}

// TimelineFor maps a stored status onto the Pending→Delivered checklist.
// Cancelled orders get no linear steps.
func TimelineFor(status OrderStatus) Timeline {
	if status == StatusCancelled {
		return Timeline{Cancelled: true}
	}
	current := -1
	for i, s := range statusFlow {
		if s == status {
			current = i
			break
		}
	}
	steps := make([]TimelineStep, len(statusFlow))
	for i, s := range statusFlow {
		state := StepUpcoming
		switch {
		case i < current:
			state = StepCompleted
		case i == current:
			state = StepCurrent
		}
		steps[i] = TimelineStep{Status: s, State: state}
	}
	return Timeline{Steps: steps}
}

// CheckoutState tracks one placeOrder attempt.
type CheckoutState string

const (
	CheckoutInitiated CheckoutState = "initiated"
	CheckoutValidated CheckoutState = "validated"
	CheckoutCommitted CheckoutState = "committed"
	CheckoutAborted   CheckoutState = "aborted"
	CheckoutRejected  CheckoutState = "rejected"
)
