package server

import (
	"solcast/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetSolcitoPackages handles GET /api/solcitos/packages
func (s *Server) GetSolcitoPackages(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"packages": s.solcitoService.Packages()})
}

// GetSolcitoBalance handles GET /api/solcitos/balance
func (s *Server) GetSolcitoBalance(c *fiber.Ctx) error {
	balance, err := s.solcitoService.Balance(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"balance": balance})
}

// GetSolcitoTransactions handles GET /api/solcitos/transactions
func (s *Server) GetSolcitoTransactions(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	transactions, err := s.solcitoService.Transactions(c.Context(), currentUserID(c), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"transactions": transactions})
}

// GiftSolcitos handles POST /api/solcitos/gift
func (s *Server) GiftSolcitos(c *fiber.Ctx) error {
	var req struct {
		ReceiverID uint  `json:"receiver_id"`
		Amount     int64 `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.ReceiverID == 0 || req.Amount <= 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Receiver and a positive amount are required"))
	}

	tx, err := s.solcitoService.Gift(c.Context(), currentUserID(c), req.ReceiverID, req.Amount)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}
