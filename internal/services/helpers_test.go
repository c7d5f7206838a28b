package services_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"storefront/internal/cartstore"
	"storefront/internal/domain"
	"storefront/internal/money"
	"storefront/internal/repos"
	"storefront/internal/services"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := repos.OpenDB(ctx, repos.Options{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repos.Migrate(ctx, db))
	return db
}

func testPricing() services.Pricing {
	return services.Pricing{
		TaxRate: decimal.RequireFromString("0.08"),
		Shipping: money.Tiered{
			Standard: money.FixedFee{Fee: decimal.RequireFromString("5.00")},
			Express:  decimal.RequireFromString("15.00"),
		},
	}
}

type fixture struct {
	db       *sqlx.DB
	products *repos.ProductRepo
	carts    *repos.CartRepo
	orders   *repos.OrderRepo
	cartSvc  *services.CartService
	orderSvc *services.OrderService
	logs     *lockedBuffer
}

// lockedBuffer collects log output from concurrent checkouts.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newFixture wires the services against an in-memory database and the SQL cart backend.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memdb(t)
	f := &fixture{
		db:       db,
		products: repos.NewProductRepo(db),
		carts:    repos.NewCartRepo(db),
		orders:   repos.NewOrderRepo(db),
		logs:     &lockedBuffer{},
	}
	f.useCartStore(f.carts)
	return f
}

// useCartStore rebuilds both services on top of store.
func (f *fixture) useCartStore(store services.CartStore) {
	logger := zerolog.New(f.logs)
	f.cartSvc = services.NewCartService(store, f.products, testPricing(), nil)
	f.orderSvc = services.NewOrderService(store, f.products, f.orders, repos.NewTxRunner(f.db), testPricing(), nil, logger)
}

func redisStore(t *testing.T) *cartstore.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cartstore.NewRedisStore(client, time.Hour)
}

func (f *fixture) addProduct(t *testing.T, id, name, price string, qty int) {
	t.Helper()
	require.NoError(t, f.products.Upsert(context.Background(), domain.Product{
		ID: id, Name: name, Price: decimal.RequireFromString(price), Quantity: qty, Active: true,
	}))
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.products.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.Get(&n, `SELECT COUNT(*) FROM `+table))
	return n
}

func checkoutRequest(owner domain.Identity) services.PlaceOrderRequest {
	return services.PlaceOrderRequest{
		Owner:         owner,
		Contact:       domain.Contact{Name: "Tester", Email: "t@storefront.test"},
		Shipping:      domain.Address{Line1: "1 Main St", City: "College Park", PostalCode: "20742", Country: "US"},
		PaymentMethod: "card",
	}
}
