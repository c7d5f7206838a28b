package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

const sidCookie = "sid"

// SessionOptions controls the sid cookie.
type SessionOptions struct {
	Secure bool
	MaxAge time.Duration
}

func setSID(c *fiber.Ctx, sid string, opts SessionOptions) {
	c.Cookie(&fiber.Cookie{
		Name:     sidCookie,
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   opts.Secure,
		MaxAge:   int(opts.MaxAge.Seconds()),
	})
}

// ensureSID returns the request's session id, issuing a fresh one when the
// cookie is missing or malformed.
func ensureSID(c *fiber.Ctx, opts SessionOptions) string {
	if sid, ok := validate.ID(c.Cookies(sidCookie)); ok {
		return sid
	}
	sid := uuid.NewString()
	setSID(c, sid, opts)
	return sid
}

// Identify resolves the cart owner for every request: user:<id> when the
// session is logged in, else session:<sid>.
func Identify(auth *services.AuthService, opts SessionOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := ensureSID(c, opts)
		owner, u, err := auth.IdentityFor(c.UserContext(), sid)
		if err != nil {
			applog.Error(c, "session.resolve.fail", err, nil)
			return err
		}
		c.Locals("sid", sid)
		c.Locals("owner", owner)
		c.Locals("identity", owner.String())
		if u != nil {
			c.Locals("user", u)
		}
		return c.Next()
	}
}

func ownerOf(c *fiber.Ctx) domain.Identity {
	owner, _ := c.Locals("owner").(domain.Identity)
	return owner
}

func userOf(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

func sidOf(c *fiber.Ctx) string {
	sid, _ := c.Locals("sid").(string)
	return sid
}
