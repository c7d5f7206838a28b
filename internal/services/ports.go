package services

import (
	"context"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

// Catalog is the read side of the product catalog.
type Catalog interface {
	Get(ctx context.Context, id string) (domain.Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

// StockWriter decrements stock inside the caller's transaction and fails
// with *domain.InsufficientStockError when the row guard rejects it.
type StockWriter interface {
	DecrementStock(ctx context.Context, ext sqlx.ExtContext, id string, by int) error
}

// CartStore is the storage contract both cart backends satisfy.
// Save sets an exact quantity; Delete and Clear are idempotent.
type CartStore interface {
	Lines(ctx context.Context, owner domain.Identity) ([]domain.CartLine, error)
	Get(ctx context.Context, owner domain.Identity, productID string) (domain.CartLine, bool, error)
	Save(ctx context.Context, owner domain.Identity, productID string, qty int) error
	Delete(ctx context.Context, owner domain.Identity, productID string) error
	Clear(ctx context.Context, owner domain.Identity) error
}

// TxCartConsumer is implemented by cart backends that live in the order database.
// ConsumeTx removes exactly the loaded lines inside the order transaction and
// fails with domain.ErrCartChanged if the cart no longer matches them.
type TxCartConsumer interface {
	ConsumeTx(ctx context.Context, ext sqlx.ExtContext, owner domain.Identity, lines []domain.CartLine) error
}

// CheckoutLocker is implemented by cart backends outside the order database.
// Only one checkout per owner may hold the lock.
type CheckoutLocker interface {
	LockCheckout(ctx context.Context, owner domain.Identity) (release func(), err error)
}

type OrderWriter interface {
	InsertOrder(ctx context.Context, ext sqlx.ExtContext, o *domain.Order) error
	InsertLines(ctx context.Context, ext sqlx.ExtContext, orderID string, lines []domain.OrderLine) error
}

type OrderReader interface {
	GetByPublicID(ctx context.Context, publicID string) (domain.Order, []domain.OrderLine, error)
	ListByOwner(ctx context.Context, owner domain.Identity) ([]domain.Order, error)
	ListLatest(ctx context.Context, limit int) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, publicID string, status domain.OrderStatus) error
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}
