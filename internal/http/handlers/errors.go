package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/validate"
)

const genericFailure = "Something went wrong. Please try again."

// statusFor maps domain errors onto HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	var fe validate.Errors
	switch {
	case errors.As(err, &fe),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidIdentity):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrOutOfStock), errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrCartChanged), errors.Is(err, domain.ErrCheckoutInProgress):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrEmptyCart):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// respondErr writes a JSON error. 5xx bodies never carry the cause; it is logged instead.
func respondErr(c *fiber.Ctx, action string, err error) error {
	status := statusFor(err)
	c.Status(status)
	if status >= fiber.StatusInternalServerError {
		applog.Error(c, action+".fail", err, nil)
		msg := genericFailure
		if errors.Is(err, domain.ErrOrderCreationFailed) {
			msg = "Your order could not be placed. Nothing was charged; please try again."
		}
		return c.JSON(fiber.Map{"error": msg})
	}

	body := fiber.Map{"error": err.Error()}
	var fe validate.Errors
	if errors.As(err, &fe) {
		body["error"] = "invalid request"
		body["fields"] = fe
	}
	if v := domain.StockViolations(err); len(v) > 0 {
		body["error"] = domain.ErrInsufficientStock.Error()
		body["violations"] = v
	}
	applog.Info(c, action+".rejected", map[string]any{"reason": err.Error()})
	return c.JSON(body)
}

// bind parses a JSON or form body into req and runs its validate tags.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return validate.Errors{{Field: "body", Rule: "parse"}}
	}
	return validate.Struct(req)
}
