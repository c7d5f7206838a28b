package http_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "storefront/internal/http"
)

func TestErrorHandlerHidesInternals(t *testing.T) {
	ta := newTestApp(t, noLimits())

	app := apphttp.NewApp()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("pq: password authentication failed for user storefront")
	})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "Something went wrong")
	assert.NotContains(t, string(body), "password")

	logged := ta.logs.entries("server.error")
	require.Len(t, logged, 1)
	assert.Contains(t, logged[0]["error"], "password authentication failed")

	resp, err = app.Test(httptest.NewRequest("GET", "/teapot", nil))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.JSONEq(t, `{"error":"short and stout"}`, string(body))
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	ta := newTestApp(t, noLimits())
	c := ta.client(t)

	var er errorResponse
	assert.Equal(t, fiber.StatusNotFound, c.doJSON("GET", "/wp-admin.php", nil, &er))
	assert.Equal(t, "not found", er.Error)
}

func TestStorageFailureIsGeneric(t *testing.T) {
	ta := newTestApp(t, noLimits())
	c := ta.client(t)
	c.addToCart("p-1", 1)

	_, err := ta.db.Exec(`DROP TABLE cart_lines`)
	require.NoError(t, err)

	var er errorResponse
	assert.Equal(t, fiber.StatusInternalServerError, c.doJSON("GET", "/api/v1/cart", nil, &er))
	assert.Equal(t, "Something went wrong. Please try again.", er.Error)
	assert.NotContains(t, er.Error, "cart_lines")

	fails := ta.logs.entries("cart.view.fail")
	require.Len(t, fails, 1)
	assert.Contains(t, fails[0]["error"], "cart_lines")

	assert.Equal(t, fiber.StatusInternalServerError, c.doJSON("POST", "/api/v1/orders", checkoutBody(), &er))
	assert.Contains(t, er.Error, "Nothing was charged")
}
