package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the read-only catalog snapshot the cart and checkout work from.
type Product struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description,omitempty"`
	Price       decimal.Decimal `db:"price" json:"unit_price"`
	Quantity    int             `db:"quantity" json:"available_quantity"`
	Active      bool            `db:"active" json:"is_active"`
}

// Available reports the stock a cart or order may draw on.
// Inactive products have none.
func (p Product) Available() int {
	if !p.Active || p.Quantity < 0 {
		return 0
	}
	return p.Quantity
}

// CartLine is one (product, quantity) entry in an identity's cart.
type CartLine struct {
	Owner     Identity  `json:"-"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// CartItem is a CartLine enriched with the live product name and price.
type CartItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Available int             `json:"available"`
	AddedAt   time.Time       `json:"added_at"`
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty"`
}
