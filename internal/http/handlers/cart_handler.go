package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/money"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

type addItemRequest struct {
	ProductID string `json:"product_id" form:"product_id" validate:"required,resid"`
	Quantity  int    `json:"quantity" form:"quantity" validate:"gte=1,lte=99"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" form:"quantity" validate:"required,gte=0,lte=99"`
}

// GET /api/v1/cart?method=standard|express
func (h *CartHandler) View(c *fiber.Ctx) error {
	method, err := money.ParseMethod(c.Query("method"))
	if err != nil {
		return respondErr(c, "cart.view", validate.Errors{{Field: "method", Rule: "oneof"}})
	}
	cv, err := h.Cart.View(c.UserContext(), ownerOf(c), method)
	if err != nil {
		return respondErr(c, "cart.view", err)
	}
	return c.JSON(cv)
}

// POST /api/v1/cart/items
func (h *CartHandler) Add(c *fiber.Ctx) error {
	var req addItemRequest
	if err := bind(c, &req); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"route": "cart.add"})
		return respondErr(c, "cart.add", err)
	}
	line, err := h.Cart.Add(c.UserContext(), ownerOf(c), req.ProductID, req.Quantity)
	if err != nil {
		return respondErr(c, "cart.add", err)
	}
	applog.Audit(c, "cart.add", map[string]any{"product": req.ProductID, "qty": req.Quantity})
	return c.Status(fiber.StatusCreated).JSON(line)
}

// PATCH /api/v1/cart/items/:productId
func (h *CartHandler) Update(c *fiber.Ctx) error {
	pid, ok := validate.ID(c.Params("productId"))
	if !ok {
		return respondErr(c, "cart.update", validate.Errors{{Field: "productId", Rule: "resid"}})
	}
	var req updateItemRequest
	if err := bind(c, &req); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"route": "cart.update"})
		return respondErr(c, "cart.update", err)
	}
	if err := h.Cart.Update(c.UserContext(), ownerOf(c), pid, *req.Quantity); err != nil {
		return respondErr(c, "cart.update", err)
	}
	applog.Audit(c, "cart.update", map[string]any{"product": pid, "qty": *req.Quantity})
	return c.SendStatus(fiber.StatusNoContent)
}

// DELETE /api/v1/cart/items/:productId
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	pid, ok := validate.ID(c.Params("productId"))
	if !ok {
		return respondErr(c, "cart.remove", validate.Errors{{Field: "productId", Rule: "resid"}})
	}
	if err := h.Cart.Remove(c.UserContext(), ownerOf(c), pid); err != nil {
		return respondErr(c, "cart.remove", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DELETE /api/v1/cart
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	if err := h.Cart.Clear(c.UserContext(), ownerOf(c)); err != nil {
		return respondErr(c, "cart.clear", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
