package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"ledgerlens/internal/models"
	"ledgerlens/internal/repository"
	"ledgerlens/internal/rules"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrRuleExists      = errors.New("a rule with this pattern already exists")
	ErrInvalidPattern  = errors.New("invalid rule pattern")
	ErrInvalidRuleType = errors.New("invalid pattern type")
)

// RuleService is the explicit management surface over categorization rules;
// the engine itself also creates rules implicitly while learning.
type RuleService struct {
	repo       *repository.RuleRepository
	categories CategoryStore
	logger     *zap.Logger
}

func NewRuleService(repo *repository.RuleRepository, categories CategoryStore, logger *zap.Logger) *RuleService {
	return &RuleService{repo: repo, categories: categories, logger: logger}
}

func (s *RuleService) List(ctx context.Context, userID uuid.UUID) ([]models.CategoryRule, error) {
	return s.repo.ListByUserID(ctx, userID)
}

// Create adds a user-authored rule. Pattern uniqueness is case-insensitive;
// regex patterns must compile up front so a broken rule never reaches the
// matcher.
func (s *RuleService) Create(ctx context.Context, userID, categoryID uuid.UUID, pattern, patternType string, priority int) (*models.CategoryRule, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || len(pattern) > rules.PatternMaxLen {
		return nil, ErrInvalidPattern
	}

	pt := models.PatternType(patternType)
	switch pt {
	case models.PatternContains, models.PatternStartsWith:
	case models.PatternRegex:
		if _, err := regexp.Compile("(?i)" + pattern); err != nil {
			return nil, ErrInvalidPattern
		}
	default:
		return nil, ErrInvalidRuleType
	}

	if _, err := s.categories.GetByID(ctx, userID, categoryID); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByPattern(ctx, userID, pattern)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrRuleExists
	}

	if priority <= 0 {
		priority = rules.BasePriority
	}

	rule := &models.CategoryRule{
		ID:          uuid.New(),
		UserID:      userID,
		CategoryID:  categoryID,
		Pattern:     pattern,
		PatternType: pt,
		Priority:    priority,
		Active:      true,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, err
	}

	s.logger.Info("Rule created",
		zap.String("user_id", userID.String()),
		zap.String("pattern", pattern),
		zap.String("pattern_type", patternType),
	)
	return rule, nil
}
