package rules

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"ledgerlens/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// BasePriority is assigned to freshly learned rules.
	BasePriority = 10
	// ReinforceStep is added on every reinforcement or correction; priorities
	// grow monotonically and rules are never demoted.
	ReinforceStep = 5
)

// Store persists category rules, scoped to a tenant on every call.
type Store interface {
	ListActive(ctx context.Context, userID uuid.UUID) ([]models.CategoryRule, error)
	// FindByPattern resolves a rule by case-insensitive pattern equality.
	FindByPattern(ctx context.Context, userID uuid.UUID, pattern string) (*models.CategoryRule, error)
	Create(ctx context.Context, rule *models.CategoryRule) error
	Update(ctx context.Context, rule *models.CategoryRule) error
}

type Engine struct {
	store  Store
	logger *zap.Logger
}

func NewEngine(store Store, logger *zap.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// Match resolves a description to a category id. Rules are tried in
// descending priority order; the first match wins. A failing regex is treated
// as no match, never as an error. When no rule matches directly, a second
// pass tests bidirectional containment between the extracted pattern and each
// contains-type rule, because the extractor's vocabulary may differ slightly
// from what a user originally typed.
func (e *Engine) Match(ctx context.Context, userID uuid.UUID, description string) (uuid.UUID, bool, error) {
	rls, err := e.store.ListActive(ctx, userID)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to list rules: %w", err)
	}

	sort.SliceStable(rls, func(i, j int) bool {
		return rls[i].Priority > rls[j].Priority
	})

	upper := strings.ToUpper(description)
	for _, r := range rls {
		if matchesRule(upper, r) {
			return r.CategoryID, true, nil
		}
	}

	extracted := strings.ToUpper(ExtractPattern(description))
	if extracted == "" {
		return uuid.Nil, false, nil
	}
	for _, r := range rls {
		if r.PatternType != models.PatternContains {
			continue
		}
		rp := strings.ToUpper(r.Pattern)
		if rp == "" {
			continue
		}
		if strings.Contains(extracted, rp) || strings.Contains(rp, extracted) {
			return r.CategoryID, true, nil
		}
	}

	return uuid.Nil, false, nil
}

func matchesRule(upperDesc string, r models.CategoryRule) bool {
	switch r.PatternType {
	case models.PatternContains:
		return strings.Contains(upperDesc, strings.ToUpper(r.Pattern))
	case models.PatternStartsWith:
		return strings.HasPrefix(upperDesc, strings.ToUpper(r.Pattern))
	case models.PatternRegex:
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(upperDesc)
	default:
		return false
	}
}

// Learn records that a transaction with the given description was assigned a
// category. Agreement with an existing rule reinforces it; disagreement is a
// correction that rewrites the rule's category, on the assumption that an
// explicit user correction outweighs whatever produced the rule. Unknown
// patterns create a new contains rule at the baseline priority.
func (e *Engine) Learn(ctx context.Context, userID, categoryID uuid.UUID, description string) error {
	if strings.TrimSpace(description) == "" {
		return nil
	}

	pattern := ExtractPattern(description)
	rule, err := e.store.FindByPattern(ctx, userID, pattern)
	if err != nil {
		return fmt.Errorf("failed to look up rule: %w", err)
	}

	if rule == nil {
		now := time.Now()
		rule = &models.CategoryRule{
			ID:          uuid.New(),
			UserID:      userID,
			CategoryID:  categoryID,
			Pattern:     pattern,
			PatternType: models.PatternContains,
			Priority:    BasePriority,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := e.store.Create(ctx, rule); err != nil {
			return fmt.Errorf("failed to create rule: %w", err)
		}
		e.logger.Debug("Learned new category rule",
			zap.String("pattern", pattern),
			zap.String("category_id", categoryID.String()),
		)
		return nil
	}

	if rule.CategoryID != categoryID {
		rule.CategoryID = categoryID
	}
	rule.Priority += ReinforceStep
	rule.UpdatedAt = time.Now()
	if err := e.store.Update(ctx, rule); err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return nil
}
