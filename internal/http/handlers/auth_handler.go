package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type AuthHandler struct {
	Auth    *services.AuthService
	Session SessionOptions
}

type loginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,mailbox"`
	Password string `json:"password" form:"password" validate:"required,min=8,max=64"`
}

// POST /login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sid := sidOf(c)
	if sid == "" {
		sid = ensureSID(c, h.Session)
	}
	var req loginRequest
	if err := bind(c, &req); err != nil {
		applog.Security(c, "auth.login.fail", map[string]any{"reason": "bad_format"})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid email or password"})
	}
	if !validate.Password(req.Password) {
		applog.Security(c, "auth.login.fail", map[string]any{"email": req.Email, "reason": "bad_password_format"})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid email or password"})
	}

	email, _ := validate.Email(req.Email)
	u, err := h.Auth.Login(c.UserContext(), sid, email, req.Password)
	if err != nil {
		applog.Security(c, "auth.login.fail", map[string]any{"email": req.Email})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid email or password"})
	}

	applog.Audit(c, "auth.login.success", map[string]any{"email": req.Email, "user_id": u.ID})
	return c.JSON(u)
}

// POST /logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := sidOf(c)
	if sid != "" {
		if err := h.Auth.Logout(c.UserContext(), sid); err != nil {
			applog.Error(c, "auth.logout.fail", err, nil)
		}
	}
	c.Cookie(&fiber.Cookie{
		Name:     sidCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.Session.Secure,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	applog.Audit(c, "auth.logout", map[string]any{"sid": sid})
	return c.SendStatus(fiber.StatusNoContent)
}
