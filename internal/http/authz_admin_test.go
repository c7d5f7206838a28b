package http_test

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

func TestAdminRoutesRequireAdmin(t *testing.T) {
	ta := newTestApp(t, noLimits())
	anon := ta.client(t)
	alice := ta.client(t)
	alice.login("alice@storefront.test")

	routes := []struct{ method, path string }{
		{"GET", "/admin/orders"},
		{"POST", "/admin/orders/ORD-20250101-AAAAAAAA/status"},
		{"GET", "/admin/inventory"},
		{"POST", "/admin/inventory"},
	}
	for _, r := range routes {
		status, _ := anon.do(r.method, r.path, map[string]any{})
		assert.Equal(t, fiber.StatusUnauthorized, status, "%s %s anonymous", r.method, r.path)
		status, _ = alice.do(r.method, r.path, map[string]any{})
		assert.Equal(t, fiber.StatusForbidden, status, "%s %s as user", r.method, r.path)
	}

	denied := ta.logs.entries("access.denied.admin")
	require.Len(t, denied, 2*len(routes))
	assert.Equal(t, "security", denied[0]["kind"])
}

func TestAdminUpdatesOrderStatus(t *testing.T) {
	ta := newTestApp(t, noLimits())
	shopper := ta.client(t)
	shopper.addToCart("p-1", 1)
	o := placeOrder(t, shopper)

	admin := ta.client(t)
	admin.login("admin@storefront.test")

	var list struct {
		Orders []orderResponse `json:"orders"`
	}
	require.Equal(t, fiber.StatusOK, admin.doJSON("GET", "/admin/orders", nil, &list))
	require.Len(t, list.Orders, 1)
	assert.Equal(t, o.OrderID, list.Orders[0].OrderID)

	var res struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	}
	require.Equal(t, fiber.StatusOK, admin.doJSON("POST", "/admin/orders/"+o.OrderID+"/status",
		map[string]string{"status": "shipped"}, &res))
	assert.Equal(t, "SHIPPED", res.Status)

	var detail orderDetailResponse
	require.Equal(t, fiber.StatusOK, shopper.doJSON("GET", "/api/v1/orders/"+o.OrderID, nil, &detail))
	assert.Equal(t, "SHIPPED", detail.Order.Status)
	assert.Equal(t, domain.StepCompleted, detail.Timeline.Steps[1].State)
	assert.Equal(t, domain.StepCurrent, detail.Timeline.Steps[2].State)

	require.Equal(t, fiber.StatusOK, admin.doJSON("POST", "/admin/orders/"+o.OrderID+"/status",
		map[string]string{"status": "cancelled"}, nil))
	require.Equal(t, fiber.StatusOK, shopper.doJSON("GET", "/api/v1/orders/"+o.OrderID, nil, &detail))
	assert.True(t, detail.Timeline.Cancelled)
	assert.Empty(t, detail.Timeline.Steps)

	status, _ := admin.do("POST", "/admin/orders/"+o.OrderID+"/status", map[string]string{"status": "lost"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = admin.do("POST", "/admin/orders/ORD-20000101-DEADBEEF/status", map[string]string{"status": "shipped"})
	assert.Equal(t, fiber.StatusNotFound, status)

	audits := ta.logs.entries("admin.orders.update")
	require.Len(t, audits, 2)
	assert.Equal(t, o.OrderID, audits[0]["order_id"])
}

func TestAdminSetsStock(t *testing.T) {
	ta := newTestApp(t, noLimits())
	admin := ta.client(t)
	admin.login("admin@storefront.test")

	status, _ := admin.do("POST", "/admin/inventory", map[string]any{"product_id": "p-1", "quantity": 42})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 42, ta.stock(t, "p-1"))

	var inv struct {
		Products []domain.Product `json:"products"`
	}
	require.Equal(t, fiber.StatusOK, admin.doJSON("GET", "/admin/inventory", nil, &inv))
	found := false
	for _, p := range inv.Products {
		if p.ID == "p-1" {
			found = true
			assert.Equal(t, 42, p.Quantity)
		}
	}
	assert.True(t, found)

	var er errorResponse
	assert.Equal(t, fiber.StatusBadRequest, admin.doJSON("POST", "/admin/inventory",
		map[string]any{"product_id": "p-1", "quantity": -1}, &er))
	assert.Equal(t, "invalid request", er.Error)
	assert.Equal(t, fiber.StatusNotFound, admin.doJSON("POST", "/admin/inventory",
		map[string]any{"product_id": "ghost", "quantity": 1}, nil))
	assert.Equal(t, 42, ta.stock(t, "p-1"))

	saves := ta.logs.entries("admin.inventory.save")
	require.Len(t, saves, 1)
	assert.Equal(t, "p-1", saves[0]["product"])
	assert.EqualValues(t, 42, saves[0]["qty"])
	assert.Equal(t, "audit", saves[0]["kind"])
}

func TestAdminDelistsAndRelistsProduct(t *testing.T) {
	ta := newTestApp(t, noLimits())
	shopper := ta.client(t)
	admin := ta.client(t)
	admin.login("admin@storefront.test")

	var res map[string]any
	require.Equal(t, fiber.StatusOK, admin.doJSON("POST", "/admin/inventory",
		map[string]any{"product_id": "p-1", "active": false}, &res))
	assert.Equal(t, false, res["active"])
	assert.NotContains(t, res, "quantity")
	assert.Equal(t, 5, ta.stock(t, "p-1"))

	var av domain.Availability
	require.Equal(t, fiber.StatusOK, shopper.doJSON("GET", "/api/v1/availability?productId=p-1", nil, &av))
	assert.Equal(t, "OUT_OF_STOCK", av.Status)
	status, _ := shopper.do("POST", "/api/v1/cart/items", map[string]any{"product_id": "p-1", "quantity": 1})
	assert.Equal(t, fiber.StatusNotFound, status)

	require.Equal(t, fiber.StatusOK, admin.doJSON("POST", "/admin/inventory",
		map[string]any{"product_id": "p-1", "active": true, "quantity": 7}, &res))
	assert.Equal(t, true, res["active"])
	assert.EqualValues(t, 7, res["quantity"])
	require.Equal(t, fiber.StatusOK, shopper.doJSON("GET", "/api/v1/availability?productId=p-1", nil, &av))
	assert.Equal(t, "IN_STOCK", av.Status)
	shopper.addToCart("p-1", 1)

	var er errorResponse
	require.Equal(t, fiber.StatusBadRequest, admin.doJSON("POST", "/admin/inventory",
		map[string]any{"product_id": "p-1"}, &er))
	assert.Contains(t, fieldNames(er), "quantity")
	assert.Equal(t, fiber.StatusNotFound, admin.doJSON("POST", "/admin/inventory",
		map[string]any{"product_id": "ghost", "active": false}, nil))

	saves := ta.logs.entries("admin.inventory.save")
	require.Len(t, saves, 2)
	assert.Equal(t, false, saves[0]["active"])
	assert.NotContains(t, saves[0], "qty")
}
