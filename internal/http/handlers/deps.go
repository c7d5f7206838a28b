package handlers

import (
	"storefront/internal/notify"
	"storefront/internal/services"
)

// Services is everything the handlers need, built once in main.
type Services struct {
	Auth      *services.AuthService
	Cart      *services.CartService
	Orders    *services.OrderService
	Inventory *services.InventoryService
	Notifier  notify.Notifier
}

type Deps struct {
	AuthHandler      *AuthHandler
	CartHandler      *CartHandler
	OrderHandler     *OrderHandler
	InventoryHandler *InventoryHandler
	AdminHandler     *AdminHandler
	Session          SessionOptions
}

func NewDeps(svc Services, session SessionOptions) *Deps {
	return &Deps{
		AuthHandler:      &AuthHandler{Auth: svc.Auth, Session: session},
		CartHandler:      &CartHandler{Cart: svc.Cart},
		OrderHandler:     &OrderHandler{Order: svc.Orders, Notify: svc.Notifier},
		InventoryHandler: &InventoryHandler{Inv: svc.Inventory},
		AdminHandler:     &AdminHandler{Orders: svc.Orders, Inv: svc.Inventory},
		Session:          session,
	}
}
