package services

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/money"
)

// CartService owns cart mutations for one identity at a time. Prices and
// stock are always re-read from the catalog, never cached in the cart.
type CartService struct {
	Store   CartStore
	Catalog Catalog
	Pricing Pricing
	Metrics *metrics.CheckoutMetrics
}

func NewCartService(store CartStore, catalog Catalog, pricing Pricing, m *metrics.CheckoutMetrics) *CartService {
	return &CartService{Store: store, Catalog: catalog, Pricing: pricing, Metrics: m}
}

// activeProduct maps missing and inactive products to ErrProductNotFound.
func (s *CartService) activeProduct(ctx context.Context, productID string) (domain.Product, error) {
	p, err := s.Catalog.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if !p.Active {
		return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	return p, nil
}

// Add increments the line (creating it if needed). The resulting quantity is
// soft-checked against current stock.
func (s *CartService) Add(ctx context.Context, owner domain.Identity, productID string, qty int) (line domain.CartLine, err error) {
	defer func() { s.Metrics.CartOp("add", err) }()
	if !owner.Valid() {
		return domain.CartLine{}, domain.ErrInvalidIdentity
	}
	if qty < 1 {
		return domain.CartLine{}, domain.ErrInvalidQuantity
	}
	p, err := s.activeProduct(ctx, productID)
	if err != nil {
		return domain.CartLine{}, err
	}
	cur, _, err := s.Store.Get(ctx, owner, productID)
	if err != nil {
		return domain.CartLine{}, err
	}
	next := cur.Quantity + qty
	if next > p.Available() {
		return domain.CartLine{}, fmt.Errorf("%w: %s (requested %d, available %d)", domain.ErrOutOfStock, productID, next, p.Available())
	}
	if err := s.Store.Save(ctx, owner, productID, next); err != nil {
		return domain.CartLine{}, err
	}
	line, _, err = s.Store.Get(ctx, owner, productID)
	return line, err
}

// Update sets an exact quantity. Zero removes the line; anything above stock
// is rejected and the line is left as it was.
func (s *CartService) Update(ctx context.Context, owner domain.Identity, productID string, qty int) (err error) {
	defer func() { s.Metrics.CartOp("update", err) }()
	if !owner.Valid() {
		return domain.ErrInvalidIdentity
	}
	if qty < 0 {
		return domain.ErrInvalidQuantity
	}
	if qty == 0 {
		return s.Store.Delete(ctx, owner, productID)
	}
	_, ok, err := s.Store.Get(ctx, owner, productID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cart line %s: %w", productID, domain.ErrNotFound)
	}
	p, err := s.activeProduct(ctx, productID)
	if err != nil {
		return err
	}
	if res := CheckStock([]StockLine{{ProductID: productID, Name: p.Name, Quantity: qty}},
		map[string]domain.Product{productID: p}); !res.Valid {
		return res.Err()
	}
	return s.Store.Save(ctx, owner, productID, qty)
}

func (s *CartService) Remove(ctx context.Context, owner domain.Identity, productID string) (err error) {
	defer func() { s.Metrics.CartOp("remove", err) }()
	if !owner.Valid() {
		return domain.ErrInvalidIdentity
	}
	return s.Store.Delete(ctx, owner, productID)
}

func (s *CartService) Clear(ctx context.Context, owner domain.Identity) (err error) {
	defer func() { s.Metrics.CartOp("clear", err) }()
	if !owner.Valid() {
		return domain.ErrInvalidIdentity
	}
	return s.Store.Clear(ctx, owner)
}

// List enriches lines with live name and price. Lines whose product is gone
// or inactive are hidden but stay in storage.
func (s *CartService) List(ctx context.Context, owner domain.Identity) ([]domain.CartItem, error) {
	if !owner.Valid() {
		return nil, domain.ErrInvalidIdentity
	}
	lines, err := s.Store.Lines(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return []domain.CartItem{}, nil
	}
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.Catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := make([]domain.CartItem, 0, len(lines))
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok || !p.Active {
			continue
		}
		items = append(items, domain.CartItem{
			ProductID: l.ProductID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  l.Quantity,
			Available: p.Available(),
			AddedAt:   l.AddedAt,
		})
	}
	return items, nil
}

// Count is the sum of quantities over List.
func (s *CartService) Count(ctx context.Context, owner domain.Identity) (int, error) {
	items, err := s.List(ctx, owner)
	if err != nil {
		return 0, err
	}
	return countItems(items), nil
}

func countItems(items []domain.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

type CartView struct {
	Items  []domain.CartItem `json:"items"`
	Count  int               `json:"count"`
	Totals money.Totals      `json:"totals"`
}

// View is the cart page payload: visible lines, count and totals for the chosen method.
func (s *CartService) View(ctx context.Context, owner domain.Identity, method money.Method) (CartView, error) {
	items, err := s.List(ctx, owner)
	if err != nil {
		return CartView{}, err
	}
	lines := make([]money.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, money.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return CartView{
		Items:  items,
		Count:  countItems(items),
		Totals: s.Pricing.Totals(lines, method),
	}, nil
}

// Merge moves every line of from into to, summing quantities, then clears from.
// Stock is not checked here; checkout re-validates.
func (s *CartService) Merge(ctx context.Context, from, to domain.Identity) (err error) {
	defer func() { s.Metrics.CartOp("merge", err) }()
	if !from.Valid() || !to.Valid() {
		return domain.ErrInvalidIdentity
	}
	if from == to {
		return nil
	}
	lines, err := s.Store.Lines(ctx, from)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	var errs error
	for _, l := range lines {
		cur, _, err := s.Store.Get(ctx, to, l.ProductID)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		errs = multierr.Append(errs, s.Store.Save(ctx, to, l.ProductID, cur.Quantity+l.Quantity))
	}
	if errs != nil {
		return fmt.Errorf("merge cart: %w", errs)
	}
	return s.Store.Clear(ctx, from)
}
