package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type AdminHandler struct {
	Orders *services.OrderService
	Inv    *services.InventoryService
}

type statusRequest struct {
	Status string `json:"status" form:"status" validate:"required"`
}

type stockRequest struct {
	ProductID string `json:"product_id" form:"product_id" validate:"required,resid"`
	Quantity  *int   `json:"quantity" form:"quantity" validate:"omitempty,gte=0"`
	Active    *bool  `json:"active" form:"active"`
}

// GET /admin/orders?limit=
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	ords, err := h.Orders.Latest(c.UserContext(), c.QueryInt("limit", 100))
	if err != nil {
		return respondErr(c, "admin.orders.list", err)
	}
	return c.JSON(fiber.Map{"orders": ords})
}

// POST /admin/orders/:orderId/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id := c.Params("orderId")
	var req statusRequest
	if err := bind(c, &req); err != nil {
		return respondErr(c, "admin.orders.update", err)
	}
	st, err := h.Orders.UpdateStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return respondErr(c, "admin.orders.update", err)
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": st})
	return c.JSON(fiber.Map{"order_id": id, "status": st})
}

// GET /admin/inventory
func (h *AdminHandler) Inventory(c *fiber.Ctx) error {
	rows, err := h.Inv.List(c.UserContext())
	if err != nil {
		return respondErr(c, "admin.inventory.list", err)
	}
	return c.JSON(fiber.Map{"products": rows})
}

// POST /admin/inventory
// Sets quantity, active, or both. At least one must be present.
func (h *AdminHandler) UpdateInventory(c *fiber.Ctx) error {
	var req stockRequest
	err := bind(c, &req)
	if err == nil && req.Quantity == nil && req.Active == nil {
		err = validate.Errors{{Field: "quantity", Rule: "required_without"}}
	}
	if err != nil {
		applog.Security(c, "validation.fail", map[string]any{"route": "admin.inventory"})
		return respondErr(c, "admin.inventory.save", err)
	}

	ctx := c.UserContext()
	out := fiber.Map{"product_id": req.ProductID}
	audit := map[string]any{"product": req.ProductID}
	if req.Active != nil {
		if err := h.Inv.SetActive(ctx, req.ProductID, *req.Active); err != nil {
			return respondErr(c, "admin.inventory.save", err)
		}
		out["active"], audit["active"] = *req.Active, *req.Active
	}
	if req.Quantity != nil {
		if err := h.Inv.SetStock(ctx, req.ProductID, *req.Quantity); err != nil {
			return respondErr(c, "admin.inventory.save", err)
		}
		out["quantity"], audit["qty"] = *req.Quantity, *req.Quantity
	}
	applog.Audit(c, "admin.inventory.save", audit)
	return c.JSON(out)
}
