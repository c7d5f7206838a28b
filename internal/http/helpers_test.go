package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	apphttp "storefront/internal/http"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/metrics"
	"storefront/internal/money"
	"storefront/internal/repos"
	"storefront/internal/services"
)

const demoPassword = "Passw0rd!"

type testApp struct {
	app      *fiber.App
	db       *sqlx.DB
	products *repos.ProductRepo
	orders   *repos.OrderRepo
	reg      *prometheus.Registry
	logs     *logBuffer
	notified *recordingNotifier
}

// logBuffer captures applog output across concurrent handlers.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

type logEntry map[string]any

// entries returns every parsed log line whose action matches.
func (b *logBuffer) entries(action string) []logEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []logEntry
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		var e logEntry
		if json.Unmarshal([]byte(line), &e) != nil {
			continue
		}
		if e["action"] == action {
			out = append(out, e)
		}
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	orders []domain.Order
	err    error
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, o domain.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, o)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.orders)
}

func noLimits() apphttp.Options {
	return apphttp.Options{}
}

// newTestApp wires the full route table against in-memory SQLite with demo users.
func newTestApp(t *testing.T, opts apphttp.Options) *testApp {
	t.Helper()
	ctx := context.Background()
	db, err := repos.OpenDB(ctx, repos.Options{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repos.Migrate(ctx, db))
	require.NoError(t, repos.SeedDemo(ctx, db))

	logs := &logBuffer{}
	logger := applog.Setup(applog.Options{Service: "test", Level: zerolog.DebugLevel, Output: logs})

	pricing := services.Pricing{
		TaxRate: decimal.RequireFromString("0.08"),
		Shipping: money.Tiered{
			Standard: money.FixedFee{Fee: decimal.RequireFromString("5.00")},
			Express:  decimal.RequireFromString("15.00"),
		},
	}
	reg := prometheus.NewRegistry()
	m := metrics.NewCheckoutMetrics(reg)

	products := repos.NewProductRepo(db)
	orders := repos.NewOrderRepo(db)
	carts := repos.NewCartRepo(db)
	cartSvc := services.NewCartService(carts, products, pricing, m)
	orderSvc := services.NewOrderService(carts, products, orders, repos.NewTxRunner(db), pricing, m, logger)
	authSvc := services.NewAuthService(repos.NewUserRepo(db), cartSvc, logger)
	notified := &recordingNotifier{}

	deps := handlers.NewDeps(handlers.Services{
		Auth:      authSvc,
		Cart:      cartSvc,
		Orders:    orderSvc,
		Inventory: services.NewInventoryService(products),
		Notifier:  notified,
	}, handlers.SessionOptions{MaxAge: time.Hour})

	if opts.Metrics == nil {
		opts.Metrics = reg
	}
	app := apphttp.NewApp()
	apphttp.Register(app, deps, authSvc, opts)

	ta := &testApp{app: app, db: db, products: products, orders: orders, reg: reg, logs: logs, notified: notified}
	ta.addProduct(t, "p-1", "Widget", "10.00", 5)
	ta.addProduct(t, "p-2", "Gadget", "2.50", 10)
	return ta
}

func (ta *testApp) addProduct(t *testing.T, id, name, price string, qty int) {
	t.Helper()
	require.NoError(t, ta.products.Upsert(context.Background(), domain.Product{
		ID: id, Name: name, Price: decimal.RequireFromString(price), Quantity: qty, Active: true,
	}))
}

func (ta *testApp) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := ta.products.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}

// client is a cookie-carrying browser stand-in. It echoes the csrf cookie
// back in the X-Csrf-Token header.
type client struct {
	t       *testing.T
	ta      *testApp
	cookies map[string]string
}

func (ta *testApp) client(t *testing.T) *client {
	return &client{t: t, ta: ta, cookies: map[string]string{}}
}

func (c *client) do(method, path string, body any) (int, []byte) {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	}
	for k, v := range c.cookies {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}
	if tok := c.cookies["csrf_"]; tok != "" {
		req.Header.Set("X-Csrf-Token", tok)
	}
	resp, err := c.ta.app.Test(req, -1)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	for _, ck := range resp.Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}
	out, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, out
}

// doJSON issues a request and decodes the response body into out when non-nil.
func (c *client) doJSON(method, path string, body, out any) int {
	c.t.Helper()
	status, raw := c.do(method, path, body)
	if out != nil && len(raw) > 0 {
		require.NoError(c.t, json.Unmarshal(raw, out), string(raw))
	}
	return status
}

func (c *client) login(email string) {
	c.t.Helper()
	status, raw := c.do("POST", "/login", map[string]string{"email": email, "password": demoPassword})
	require.Equal(c.t, fiber.StatusOK, status, string(raw))
}

func (c *client) addToCart(productID string, qty int) {
	c.t.Helper()
	status, raw := c.do("POST", "/api/v1/cart/items", map[string]any{"product_id": productID, "quantity": qty})
	require.Equal(c.t, fiber.StatusCreated, status, string(raw))
}

func checkoutBody() map[string]any {
	return map[string]any{
		"contact": map[string]any{"name": "Alice", "email": "alice@storefront.test"},
		"shipping_address": map[string]any{
			"line1": "1 Main St", "city": "College Park", "postal_code": "20742", "country": "US",
		},
		"shipping_method": "standard",
		"payment_method":  "card",
	}
}

type orderResponse struct {
	OrderID   string          `json:"order_id"`
	Status    string          `json:"status"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Shipping  decimal.Decimal `json:"shipping_cost"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

type errorResponse struct {
	Error      string                  `json:"error"`
	Fields     []map[string]string     `json:"fields"`
	Violations []domain.StockViolation `json:"violations"`
}
