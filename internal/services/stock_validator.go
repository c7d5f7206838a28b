package services

import (
	"context"

	"storefront/internal/domain"
)

// StockLine is one requested quantity to check.
type StockLine struct {
	ProductID string
	Name      string
	Quantity  int
}

type StockResult struct {
	Valid      bool
	Violations []domain.StockViolation
	// Products is the catalog snapshot the check ran against.
	Products map[string]domain.Product
}

// Err returns nil for a valid result, else an *domain.InsufficientStockError.
func (r StockResult) Err() error {
	if r.Valid {
		return nil
	}
	return &domain.InsufficientStockError{Violations: r.Violations}
}

// StockValidator is a point-in-time check against live catalog counts.
// It reserves nothing; checkout re-checks under the stock row guard.
type StockValidator struct {
	Catalog Catalog
}

func (v StockValidator) Validate(ctx context.Context, lines []StockLine) (StockResult, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := v.Catalog.GetMany(ctx, ids)
	if err != nil {
		return StockResult{}, err
	}
	res := CheckStock(lines, products)
	res.Products = products
	return res, nil
}

// CheckStock reports every violating line in input order. Missing or inactive
// products count as zero available.
func CheckStock(lines []StockLine, products map[string]domain.Product) StockResult {
	var violations []domain.StockViolation
	for _, l := range lines {
		p, ok := products[l.ProductID]
		avail := 0
		if ok {
			avail = p.Available()
		}
		if l.Quantity > avail {
			name := l.Name
			if name == "" {
				name = p.Name
			}
			violations = append(violations, domain.StockViolation{
				ProductID: l.ProductID,
				Name:      name,
				Requested: l.Quantity,
				Available: avail,
			})
		}
	}
	return StockResult{Valid: len(violations) == 0, Violations: violations}
}
