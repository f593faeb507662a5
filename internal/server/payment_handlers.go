package server

import (
	"errors"
	"fmt"
	"log/slog"

	"solcast/internal/featureflags"
	"solcast/internal/models"
	"solcast/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePayPalOrder handles POST /api/payments/paypal/orders. The request is
// validated against the package table: the client-supplied price and solcito
// totals must match the catalog exactly.
func (s *Server) CreatePayPalOrder(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if !s.featureFlags.Enabled(featureflags.PayPalCheckout, userID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Checkout is currently disabled"))
	}

	var req struct {
		PackageID string  `json:"package_id"`
		Amount    float64 `json:"amount"`
		Solcitos  int64   `json:"solcitos"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	pkg, ok := models.PackageByID(req.PackageID)
	if !ok {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unknown package"))
	}
	if req.Amount != 0 && req.Amount != pkg.PriceUSD {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Amount does not match the package price"))
	}
	if req.Solcitos != 0 && req.Solcitos != pkg.Solcitos+pkg.Bonus {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Solcito count does not match the package"))
	}

	result, err := s.solcitoService.CreateOrder(c.Context(), userID, pkg.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// PayPalSuccess handles GET /api/payments/paypal/success — the redirect
// target the buyer lands on after approving the order. It captures the
// payment, credits the purchased solcitos exactly once, and bounces the
// browser back to the storefront with the outcome in the query string.
func (s *Server) PayPalSuccess(c *fiber.Ctx) error {
	orderID := c.Query("token")
	if orderID == "" {
		return s.redirectStorefrontError(c, "missing_token")
	}

	tx, err := s.solcitoService.Capture(c.Context(), orderID)
	if err != nil {
		slog.WarnContext(c.UserContext(), "paypal capture failed",
			"order_id", orderID, "error", err)

		var appErr *models.AppError
		switch {
		case errors.Is(err, service.ErrPaymentNotCompleted):
			return s.redirectStorefrontError(c, "payment_not_completed")
		case errors.As(err, &appErr) && appErr.Code == "NOT_FOUND":
			return s.redirectStorefrontError(c, "user_not_found")
		default:
			return s.redirectStorefrontError(c, "server_error")
		}
	}

	return c.Redirect(fmt.Sprintf("%s/showcase?success=true&solcitos=%d",
		s.config.AppURL, tx.Amount), fiber.StatusFound)
}

func (s *Server) redirectStorefrontError(c *fiber.Ctx, reason string) error {
	return c.Redirect(s.config.AppURL+"/showcase?error="+reason, fiber.StatusFound)
}
