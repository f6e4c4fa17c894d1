package handlers

import (
	"errors"
	"time"

	"ledgerlens/internal/dto"
	"ledgerlens/internal/models"
	"ledgerlens/internal/repository"
	"ledgerlens/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	txService *service.TransactionService
	logger    *zap.Logger
}

func NewTransactionHandler(txService *service.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		txService: txService,
		logger:    logger,
	}
}

// ListTransactions godoc
// @Summary List transactions
// @Description List transactions with optional filters; installment amounts and dates are display-corrected
// @Tags transactions
// @Produce json
// @Param account_id query string false "Filter by account"
// @Param category_id query string false "Filter by category"
// @Param document_id query string false "Filter by source document"
// @Param source query string false "Filter by source (MANUAL, UPLOAD, VOICE)"
// @Param date_from query string false "Inclusive lower date bound (YYYY-MM-DD)"
// @Param date_to query string false "Inclusive upper date bound (YYYY-MM-DD)"
// @Param limit query int false "Page size (default 50)"
// @Param offset query int false "Offset"
// @Security Bearer
// @Success 200 {array} dto.TransactionResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) ListTransactions(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	txs, err := h.txService.List(c.Context(), userID, filter)
	if err != nil {
		h.logger.Error("Failed to list transactions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list transactions",
		})
	}

	out := make([]dto.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, dto.NewTransactionResponse(tx))
	}
	return c.JSON(out)
}

func parseTransactionFilter(c *fiber.Ctx) (repository.TransactionFilter, error) {
	var filter repository.TransactionFilter

	for param, dst := range map[string]**uuid.UUID{
		"account_id":  &filter.AccountID,
		"category_id": &filter.CategoryID,
		"document_id": &filter.DocumentID,
	} {
		if v := c.Query(param); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return filter, errors.New("invalid " + param)
			}
			*dst = &id
		}
	}

	if v := c.Query("source"); v != "" {
		source := models.TransactionSource(v)
		filter.Source = &source
	}
	for param, dst := range map[string]**time.Time{
		"date_from": &filter.DateFrom,
		"date_to":   &filter.DateTo,
	} {
		if v := c.Query(param); v != "" {
			d, err := time.Parse("2006-01-02", v)
			if err != nil {
				return filter, errors.New("invalid " + param)
			}
			*dst = &d
		}
	}

	filter.Limit = c.QueryInt("limit", 50)
	filter.Offset = c.QueryInt("offset", 0)
	return filter, nil
}

// UpdateCategory godoc
// @Summary Re-categorize a transaction
// @Description Assign a category to a transaction; the choice also trains the categorization rules
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body dto.UpdateTransactionCategoryRequest true "New category"
// @Security Bearer
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/transactions/{id}/category [put]
func (h *TransactionHandler) UpdateCategory(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	txID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid transaction ID",
		})
	}

	var req dto.UpdateTransactionCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Valid category_id is required",
		})
	}

	tx, err := h.txService.UpdateCategory(c.Context(), userID, txID, categoryID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTransactionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Transaction not found",
			})
		case errors.Is(err, repository.ErrCategoryNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Category not found",
			})
		default:
			h.logger.Error("Failed to update transaction category", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update category",
			})
		}
	}

	return c.JSON(dto.NewTransactionResponse(tx))
}

// ListCategories godoc
// @Summary List categories
// @Description List the user's categories, both auto-created and learned
// @Tags transactions
// @Produce json
// @Security Bearer
// @Success 200 {array} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/categories [get]
func (h *TransactionHandler) ListCategories(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	categories, err := h.txService.ListCategories(c.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list categories",
		})
	}

	out := make([]fiber.Map, 0, len(categories))
	for _, cat := range categories {
		out = append(out, fiber.Map{
			"id":        cat.ID.String(),
			"slug":      cat.Slug,
			"name":      cat.Name,
			"is_income": cat.IsIncome,
		})
	}
	return c.JSON(out)
}
