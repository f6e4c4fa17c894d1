package handlers

import (
	"errors"
	"time"

	"ledgerlens/internal/models"
	"ledgerlens/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AccountHandler struct {
	accountService *service.AccountService
	logger         *zap.Logger
}

func NewAccountHandler(accountService *service.AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

type createAccountRequest struct {
	Name     string `json:"name" validate:"required"`
	Currency string `json:"currency"`
}

// CreateAccount godoc
// @Summary Create an account
// @Description Create an account to import transactions into
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body createAccountRequest true "Account definition"
// @Security Bearer
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/accounts [post]
func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req createAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	account, err := h.accountService.Create(c.Context(), userID, req.Name, req.Currency)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAccountName) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Account name is required",
			})
		}
		h.logger.Error("Failed to create account", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create account",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(toAccountResponse(account))
}

// ListAccounts godoc
// @Summary List accounts
// @Tags accounts
// @Produce json
// @Security Bearer
// @Success 200 {array} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/accounts [get]
func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	accounts, err := h.accountService.List(c.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list accounts", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list accounts",
		})
	}

	out := make([]fiber.Map, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return c.JSON(out)
}

func toAccountResponse(a *models.Account) fiber.Map {
	return fiber.Map{
		"id":         a.ID.String(),
		"name":       a.Name,
		"currency":   a.Currency,
		"created_at": a.CreatedAt.Format(time.RFC3339),
	}
}
