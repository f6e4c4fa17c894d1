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

type RuleHandler struct {
	ruleService *service.RuleService
	logger      *zap.Logger
}

func NewRuleHandler(ruleService *service.RuleService, logger *zap.Logger) *RuleHandler {
	return &RuleHandler{
		ruleService: ruleService,
		logger:      logger,
	}
}

// ListRules godoc
// @Summary List categorization rules
// @Description List the user's rules, learned and user-authored
// @Tags rules
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.RuleResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/rules [get]
func (h *RuleHandler) ListRules(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	rules, err := h.ruleService.List(c.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list rules", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list rules",
		})
	}

	out := make([]dto.RuleResponse, 0, len(rules))
	for i := range rules {
		out = append(out, toRuleResponse(&rules[i]))
	}
	return c.JSON(out)
}

// CreateRule godoc
// @Summary Create a categorization rule
// @Description Create a rule mapping a description pattern to a category
// @Tags rules
// @Accept json
// @Produce json
// @Param request body dto.CreateRuleRequest true "Rule definition"
// @Security Bearer
// @Success 201 {object} dto.RuleResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/rules [post]
func (h *RuleHandler) CreateRule(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req dto.CreateRuleRequest
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

	rule, err := h.ruleService.Create(c.Context(), userID, categoryID, req.Pattern, req.PatternType, req.Priority)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRuleExists):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Rule with this pattern already exists",
			})
		case errors.Is(err, service.ErrInvalidPattern), errors.Is(err, service.ErrInvalidRuleType):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, repository.ErrCategoryNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Category not found",
			})
		default:
			h.logger.Error("Failed to create rule", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create rule",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(toRuleResponse(rule))
}

func toRuleResponse(rule *models.CategoryRule) dto.RuleResponse {
	return dto.RuleResponse{
		ID:          rule.ID.String(),
		CategoryID:  rule.CategoryID.String(),
		Pattern:     rule.Pattern,
		PatternType: string(rule.PatternType),
		Priority:    rule.Priority,
		Active:      rule.Active,
		CreatedAt:   rule.CreatedAt.Format(time.RFC3339),
	}
}
