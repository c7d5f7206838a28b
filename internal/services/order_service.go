package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/money"
	"storefront/internal/repos"
)

const defaultOrderIDAttempts = 3

var errDuplicateOrderID = errors.New("duplicate public order id")

// NewPublicOrderID returns ORD-<YYYYMMDD>-<8 random hex chars>.
func NewPublicOrderID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

type OrderService struct {
	Carts      CartStore
	Catalog    Catalog
	Stock      StockWriter
	Orders     OrderWriter
	Query      OrderReader
	Tx         TxRunner
	Pricing    Pricing
	Metrics    *metrics.CheckoutMetrics
	Log        zerolog.Logger
	NewID      func(time.Time) string
	Now        func() time.Time
	IDAttempts int
}

// NewOrderService wires the checkout core against the SQL repositories.
// carts may be any CartStore; when it is the SQL backend the cart is
// cleared inside the order transaction.
func NewOrderService(carts CartStore, products *repos.ProductRepo, orders *repos.OrderRepo, tx *repos.TxRunner,
	pricing Pricing, m *metrics.CheckoutMetrics, log zerolog.Logger) *OrderService {
	return &OrderService{
		Carts:   carts,
		Catalog: products,
		Stock:   products,
		Orders:  orders,
		Query:   orders,
		Tx:      tx,
		Pricing: pricing,
		Metrics: m,
		Log:     log,
	}
}

type PlaceOrderRequest struct {
	Owner          domain.Identity
	Contact        domain.Contact
	Shipping       domain.Address
	ShippingMethod money.Method
	PaymentMethod  string
	Notes          string
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *OrderService) newID(t time.Time) string {
	if s.NewID != nil {
		return s.NewID(t)
	}
	return NewPublicOrderID(t)
}

// PlaceOrder turns the owner's cart into an order in one transaction:
// header, lines, stock decrements, cart clear. Either all of it lands or none.
//
// EmptyCart and InsufficientStock are returned before any write. A stock
// guard tripping inside the transaction also surfaces as InsufficientStock,
// listing every short line. A concurrent checkout of the same cart gets
// ErrCartChanged or ErrCheckoutInProgress. Every other failure is logged
// and returned as ErrOrderCreationFailed.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (order domain.Order, err error) {
	start := time.Now()
	state := domain.CheckoutInitiated
	s.Metrics.State(string(state))
	defer func() {
		s.Metrics.State(string(state))
		s.Metrics.ObserveCheckout(string(state), time.Since(start))
	}()

	if !req.Owner.Valid() {
		state = domain.CheckoutRejected
		return domain.Order{}, domain.ErrInvalidIdentity
	}

	if locker, ok := s.Carts.(CheckoutLocker); ok {
		release, err := locker.LockCheckout(ctx, req.Owner)
		if errors.Is(err, domain.ErrCheckoutInProgress) {
			state = domain.CheckoutRejected
			return domain.Order{}, err
		}
		if err != nil {
			state = domain.CheckoutRejected
			return domain.Order{}, s.fail(req, "", 0, "lock cart", err)
		}
		defer release()
	}

	lines, err := s.Carts.Lines(ctx, req.Owner)
	if err != nil {
		state = domain.CheckoutRejected
		return domain.Order{}, s.fail(req, "", 0, "load cart", err)
	}
	if len(lines) == 0 {
		state = domain.CheckoutRejected
		return domain.Order{}, domain.ErrEmptyCart
	}

	check := make([]StockLine, 0, len(lines))
	for _, l := range lines {
		check = append(check, StockLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	res, err := StockValidator{Catalog: s.Catalog}.Validate(ctx, check)
	if err != nil {
		state = domain.CheckoutRejected
		return domain.Order{}, s.fail(req, "", len(lines), "load products", err)
	}
	if !res.Valid {
		state = domain.CheckoutRejected
		return domain.Order{}, res.Err()
	}
	products := res.Products
	state = domain.CheckoutValidated
	s.Metrics.State(string(state))

	orderLines := make([]domain.OrderLine, 0, len(lines))
	priced := make([]money.Line, 0, len(lines))
	for _, l := range lines {
		p := products[l.ProductID]
		orderLines = append(orderLines, domain.OrderLine{
			ProductID:    p.ID,
			ProductName:  p.Name,
			Quantity:     l.Quantity,
			UnitPrice:    p.Price,
			LineSubtotal: p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2),
		})
		priced = append(priced, money.Line{UnitPrice: p.Price, Quantity: l.Quantity})
	}
	totals := s.Pricing.Totals(priced, req.ShippingMethod)

	consumer, consumesInTx := s.Carts.(TxCartConsumer)

	attempts := s.IDAttempts
	if attempts <= 0 {
		attempts = defaultOrderIDAttempts
	}
	for attempt := 1; ; attempt++ {
		created := s.now()
		o := domain.Order{
			ID:            uuid.NewString(),
			OrderID:       s.newID(created),
			Owner:         req.Owner,
			Contact:       req.Contact,
			Shipping:      req.Shipping,
			PaymentMethod: req.PaymentMethod,
			Notes:         req.Notes,
			Status:        domain.StatusPending,
			Subtotal:      totals.Subtotal,
			Tax:           totals.Tax,
			ShippingCost:  totals.Shipping,
			Total:         totals.Total,
			ItemCount:     totals.ItemCount,
			CreatedAt:     created,
		}
		if uid, ok := req.Owner.UserID(); ok {
			o.UserID = uid
		}
		for i := range orderLines {
			orderLines[i].OrderID = o.ID
		}

		err = s.Tx.WithTx(ctx, func(tx *sqlx.Tx) error {
			if err := s.Orders.InsertOrder(ctx, tx, &o); err != nil {
				if repos.IsUniqueViolation(err) {
					return fmt.Errorf("%w: %v", errDuplicateOrderID, err)
				}
				return err
			}
			if err := s.Orders.InsertLines(ctx, tx, o.ID, orderLines); err != nil {
				return err
			}
			var short []domain.StockViolation
			for _, l := range orderLines {
				err := s.Stock.DecrementStock(ctx, tx, l.ProductID, l.Quantity)
				var se *domain.InsufficientStockError
				switch {
				case errors.As(err, &se):
					for _, v := range se.Violations {
						if v.Name == "" {
							v.Name = l.ProductName
						}
						short = append(short, v)
					}
				case err != nil:
					return err
				}
			}
			if len(short) > 0 {
				return &domain.InsufficientStockError{Violations: short}
			}
			if consumesInTx {
				return consumer.ConsumeTx(ctx, tx, req.Owner, lines)
			}
			return nil
		})
		if err == nil {
			order = o
			break
		}

		state = domain.CheckoutAborted
		if errors.Is(err, errDuplicateOrderID) && attempt < attempts {
			s.Log.Warn().Str("identity", req.Owner.String()).Str("order_id", o.OrderID).Int("attempt", attempt).
				Msg("order id collision, retrying")
			continue
		}
		if errors.Is(err, domain.ErrInsufficientStock) {
			s.Log.Warn().Err(err).Str("identity", req.Owner.String()).Str("order_id", o.OrderID).
				Msg("stock guard rejected order")
			return domain.Order{}, err
		}
		if errors.Is(err, domain.ErrCartChanged) {
			s.Log.Warn().Str("identity", req.Owner.String()).Str("order_id", o.OrderID).
				Msg("cart changed during checkout")
			return domain.Order{}, err
		}
		return domain.Order{}, s.fail(req, o.OrderID, len(orderLines), "commit order", err)
	}

	state = domain.CheckoutCommitted
	if !consumesInTx {
		if err := s.Carts.Clear(ctx, req.Owner); err != nil {
			s.Log.Error().Err(err).Str("identity", req.Owner.String()).Str("order_id", order.OrderID).
				Msg("cart clear after commit failed")
		}
	}
	s.Log.Info().Str("identity", req.Owner.String()).Str("order_id", order.OrderID).
		Str("total", order.Total.StringFixed(2)).Int("items", order.ItemCount).Msg("order placed")
	return order, nil
}

// fail logs the underlying cause and returns the generic creation failure.
func (s *OrderService) fail(req PlaceOrderRequest, orderID string, lines int, step string, cause error) error {
	s.Log.Error().Err(cause).
		Str("identity", req.Owner.String()).
		Str("order_id", orderID).
		Int("lines", lines).
		Str("step", step).
		Msg("place order failed")
	return domain.ErrOrderCreationFailed
}

// OrderDetail is an order with its lines and derived status timeline.
type OrderDetail struct {
	Order    domain.Order       `json:"order"`
	Lines    []domain.OrderLine `json:"lines"`
	Timeline domain.Timeline    `json:"timeline"`
}

func (s *OrderService) FindByPublicID(ctx context.Context, publicID string) (OrderDetail, error) {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return OrderDetail{}, domain.ErrNotFound
	}
	o, lines, err := s.Query.GetByPublicID(ctx, publicID)
	if err != nil {
		return OrderDetail{}, err
	}
	return OrderDetail{Order: o, Lines: lines, Timeline: domain.TimelineFor(o.Status)}, nil
}

// History lists the identity's orders, newest first.
func (s *OrderService) History(ctx context.Context, owner domain.Identity) ([]domain.Order, error) {
	if !owner.Valid() {
		return nil, domain.ErrInvalidIdentity
	}
	return s.Query.ListByOwner(ctx, owner)
}

func (s *OrderService) Latest(ctx context.Context, limit int) ([]domain.Order, error) {
	return s.Query.ListLatest(ctx, limit)
}

// UpdateStatus is the only mutation an order accepts after commit.
func (s *OrderService) UpdateStatus(ctx context.Context, publicID, status string) (domain.OrderStatus, error) {
	st, err := domain.ParseOrderStatus(status)
	if err != nil {
		return "", err
	}
	if err := s.Query.UpdateStatus(ctx, publicID, st); err != nil {
		return "", err
	}
	return st, nil
}
