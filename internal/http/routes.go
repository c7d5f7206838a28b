package http

import (
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/services"
)

const maxBodySize = 1 << 20 // 1 MiB

// Limit is a fixed-window request budget. Max <= 0 disables it.
type Limit struct {
	Max    int
	Window time.Duration
}

type Options struct {
	CSRF         bool
	CookieSecure bool
	Global       Limit
	Login        Limit
	Availability Limit
	Metrics      prometheus.Gatherer
	AccessLog    io.Writer
}

func DefaultOptions() Options {
	return Options{
		CSRF:         true,
		Global:       Limit{Max: 60, Window: time.Minute},
		Login:        Limit{Max: 5, Window: 10 * time.Minute},
		Availability: Limit{Max: 15, Window: 30 * time.Second},
	}
}

// ErrorHandler is the fiber fallback. Only fiber's own errors keep their
// status and message; anything else is logged and reported generically.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	applog.Error(c, "server.error", err, nil)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Something went wrong. Please try again."})
}

// NewApp builds a fiber app with the JSON error handler and body size guard.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               "storefront",
		ErrorHandler:          ErrorHandler,
		BodyLimit:             maxBodySize,
		DisableStartupMessage: true,
	})
}

func limit(l Limit, name string) fiber.Handler {
	if l.Max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        l.Max,
		Expiration: l.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|" + name
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate."+name+".hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})
}

// Register mounts middleware and every route on app.
func Register(app *fiber.App, deps *handlers.Deps, auth *services.AuthService, opts Options) {
	app.Use(requestid.New())
	if opts.AccessLog != nil {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
			Output: opts.AccessLog,
		}))
	}
	app.Use(helmet.New())

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Metrics, promhttp.HandlerOpts{})))
	}

	app.Use(limit(opts.Global, "global"))
	if opts.CSRF {
		app.Use(csrf.New(csrf.Config{
			KeyLookup:      "header:X-Csrf-Token",
			CookieName:     "csrf_",
			CookieSameSite: "Lax",
			CookieSecure:   opts.CookieSecure,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				applog.Security(c, "csrf.fail", map[string]any{"reason": err.Error()})
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "security check failed, refresh and retry"})
			},
		}))
	}
	app.Use(handlers.Identify(auth, deps.Session))

	api := app.Group("/api/v1")
	api.Get("/availability", limit(opts.Availability, "availability"), deps.InventoryHandler.Check)

	api.Get("/cart", deps.CartHandler.View)
	api.Post("/cart/items", deps.CartHandler.Add)
	api.Patch("/cart/items/:productId", deps.CartHandler.Update)
	api.Delete("/cart/items/:productId", deps.CartHandler.Remove)
	api.Delete("/cart", deps.CartHandler.Clear)

	api.Post("/orders", deps.OrderHandler.Place)
	api.Get("/orders", deps.OrderHandler.History)
	api.Get("/orders/:orderId", deps.OrderHandler.View)

	app.Post("/login", limit(opts.Login, "login"), deps.AuthHandler.Login)
	app.Post("/logout", deps.AuthHandler.Logout)

	admin := app.Group("/admin", handlers.RequireAdmin())
	admin.Get("/orders", deps.AdminHandler.ListOrders)
	admin.Post("/orders/:orderId/status", deps.AdminHandler.UpdateOrderStatus)
	admin.Get("/inventory", deps.AdminHandler.Inventory)
	admin.Post("/inventory", deps.AdminHandler.UpdateInventory)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})
}
