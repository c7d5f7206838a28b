package services

import (
	"context"
	"errors"

	"storefront/internal/domain"
	"storefront/internal/repos"
)

const lowStockThreshold = 5

type InventoryService struct {
	Products *repos.ProductRepo
}

func NewInventoryService(products *repos.ProductRepo) *InventoryService {
	return &InventoryService{Products: products}
}

// CheckAvailability converts qty to IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
// Missing and inactive products are OUT_OF_STOCK.
func (s *InventoryService) CheckAvailability(ctx context.Context, productID string) (domain.Availability, error) {
	p, err := s.Products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return domain.Availability{Status: "OUT_OF_STOCK", Qty: 0}, nil
		}
		return domain.Availability{}, err
	}
	return availabilityFor(p.Available()), nil
}

func availabilityFor(qty int) domain.Availability {
	status := "OUT_OF_STOCK"
	switch {
	case qty >= lowStockThreshold:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{Status: status, Qty: qty}
}

func (s *InventoryService) List(ctx context.Context) ([]domain.Product, error) {
	return s.Products.List(ctx)
}

// SetStock is the admin override of a product's quantity.
func (s *InventoryService) SetStock(ctx context.Context, productID string, qty int) error {
	return s.Products.SetStock(ctx, productID, qty)
}

// SetActive lists or delists a product. Delisted products read as out of stock
// and cannot be added to carts.
func (s *InventoryService) SetActive(ctx context.Context, productID string, active bool) error {
	return s.Products.SetActive(ctx, productID, active)
}
