package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/money"
	"storefront/internal/notify"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type OrderHandler struct {
	Order  *services.OrderService
	Notify notify.Notifier
}

type contactRequest struct {
	Name  string `json:"name" form:"name" validate:"required,person"`
	Email string `json:"email" form:"email" validate:"required,mailbox"`
	Phone string `json:"phone" form:"phone" validate:"omitempty,max=32"`
}

type addressRequest struct {
	Line1      string `json:"line1" form:"line1" validate:"required,max=120"`
	Line2      string `json:"line2" form:"line2" validate:"omitempty,max=120"`
	City       string `json:"city" form:"city" validate:"required,max=80"`
	State      string `json:"state" form:"state" validate:"omitempty,max=80"`
	PostalCode string `json:"postal_code" form:"postal_code" validate:"required,max=16"`
	Country    string `json:"country" form:"country" validate:"required,len=2,alpha"`
}

type placeOrderRequest struct {
	Contact        contactRequest `json:"contact" form:"contact"`
	Shipping       addressRequest `json:"shipping_address" form:"shipping_address"`
	ShippingMethod string         `json:"shipping_method" form:"shipping_method" validate:"omitempty,oneof=standard express"`
	PaymentMethod  string         `json:"payment_method" form:"payment_method" validate:"required,oneof=card cod paypal"`
	Notes          string         `json:"notes" form:"notes" validate:"max=500"`
}

func (r placeOrderRequest) toService(owner domain.Identity) (services.PlaceOrderRequest, error) {
	method, err := money.ParseMethod(r.ShippingMethod)
	if err != nil {
		return services.PlaceOrderRequest{}, validate.Errors{{Field: "shipping_method", Rule: "oneof"}}
	}
	name, _ := validate.Name(r.Contact.Name)
	email, _ := validate.Email(r.Contact.Email)
	return services.PlaceOrderRequest{
		Owner: owner,
		Contact: domain.Contact{
			Name:  name,
			Email: email,
			Phone: r.Contact.Phone,
		},
		Shipping: domain.Address{
			Line1:      r.Shipping.Line1,
			Line2:      r.Shipping.Line2,
			City:       r.Shipping.City,
			State:      r.Shipping.State,
			PostalCode: r.Shipping.PostalCode,
			Country:    r.Shipping.Country,
		},
		ShippingMethod: method,
		PaymentMethod:  r.PaymentMethod,
		Notes:          r.Notes,
	}, nil
}

// POST /api/v1/orders
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	var body placeOrderRequest
	if err := bind(c, &body); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"route": "order.place"})
		return respondErr(c, "order.place", err)
	}
	req, err := body.toService(ownerOf(c))
	if err != nil {
		return respondErr(c, "order.place", err)
	}

	o, err := h.Order.PlaceOrder(c.UserContext(), req)
	if err != nil {
		return respondErr(c, "order.place", err)
	}
	applog.Audit(c, "order.place", map[string]any{
		"order_id": o.OrderID,
		"total":    o.Total.StringFixed(2),
		"items":    o.ItemCount,
	})

	if h.Notify != nil {
		if err := h.Notify.OrderPlaced(c.UserContext(), o); err != nil {
			applog.Error(c, "order.notify.fail", err, map[string]any{"order_id": o.OrderID})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(o)
}

// GET /api/v1/orders/:orderId
//
// Only the placing identity and admins may see an order; everyone else gets 404.
func (h *OrderHandler) View(c *fiber.Ctx) error {
	oid := c.Params("orderId")
	detail, err := h.Order.FindByPublicID(c.UserContext(), oid)
	if err != nil {
		return respondErr(c, "order.view", err)
	}
	if detail.Order.Owner != ownerOf(c) && !userOf(c).IsAdmin() {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": oid})
		return respondErr(c, "order.view", domain.ErrNotFound)
	}
	return c.JSON(detail)
}

// GET /api/v1/orders
func (h *OrderHandler) History(c *fiber.Ctx) error {
	orders, err := h.Order.History(c.UserContext(), ownerOf(c))
	if err != nil {
		return respondErr(c, "orders.history", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return c.JSON(fiber.Map{"orders": orders})
}
