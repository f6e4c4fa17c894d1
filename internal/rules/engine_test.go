package rules

import (
	"context"
	"strings"
	"testing"

	"ledgerlens/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	rules []models.CategoryRule
}

func (s *fakeStore) ListActive(_ context.Context, userID uuid.UUID) ([]models.CategoryRule, error) {
	var out []models.CategoryRule
	for _, r := range s.rules {
		if r.UserID == userID && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) FindByPattern(_ context.Context, userID uuid.UUID, pattern string) (*models.CategoryRule, error) {
	for i := range s.rules {
		r := &s.rules[i]
		if r.UserID == userID && strings.EqualFold(r.Pattern, pattern) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Create(_ context.Context, rule *models.CategoryRule) error {
	s.rules = append(s.rules, *rule)
	return nil
}

func (s *fakeStore) Update(_ context.Context, rule *models.CategoryRule) error {
	for i := range s.rules {
		if s.rules[i].ID == rule.ID {
			s.rules[i] = *rule
			return nil
		}
	}
	return nil
}

func newRule(userID, categoryID uuid.UUID, pattern string, pt models.PatternType, priority int) models.CategoryRule {
	return models.CategoryRule{
		ID:          uuid.New(),
		UserID:      userID,
		CategoryID:  categoryID,
		Pattern:     pattern,
		PatternType: pt,
		Priority:    priority,
		Active:      true,
	}
}

func TestMatchFirstPass(t *testing.T) {
	userID := uuid.New()
	groceries := uuid.New()
	transport := uuid.New()

	store := &fakeStore{rules: []models.CategoryRule{
		newRule(userID, groceries, "supermart", models.PatternContains, 10),
		newRule(userID, transport, "CITY TAXI", models.PatternStartsWith, 10),
		newRule(userID, transport, `metro\s+card`, models.PatternRegex, 10),
	}}
	engine := NewEngine(store, zap.NewNop())

	tests := []struct {
		desc string
		want uuid.UUID
	}{
		{"SuperMart Store 42", groceries},
		{"City Taxi downtown ride", transport},
		{"Monthly METRO  CARD top-up", transport},
	}
	for _, tt := range tests {
		got, ok, err := engine.Match(context.Background(), userID, tt.desc)
		require.NoError(t, err)
		require.True(t, ok, tt.desc)
		assert.Equal(t, tt.want, got, tt.desc)
	}
}

func TestMatchHigherPriorityShadowsLower(t *testing.T) {
	userID := uuid.New()
	winner := uuid.New()
	loser := uuid.New()

	store := &fakeStore{rules: []models.CategoryRule{
		newRule(userID, loser, "market", models.PatternContains, 10),
		newRule(userID, winner, "market", models.PatternContains, 25),
	}}
	engine := NewEngine(store, zap.NewNop())

	got, ok, err := engine.Match(context.Background(), userID, "Fresh Market")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, winner, got)
}

func TestMatchSecondPassBidirectionalContainment(t *testing.T) {
	userID := uuid.New()
	groceries := uuid.New()

	// The stored pattern is longer than the extracted one; neither a direct
	// substring test against the full description nor prefix matching fires,
	// but the extracted pattern is contained in the rule's pattern.
	store := &fakeStore{rules: []models.CategoryRule{
		newRule(userID, groceries, "SuperMart Store Downtown", models.PatternContains, 10),
	}}
	engine := NewEngine(store, zap.NewNop())

	got, ok, err := engine.Match(context.Background(), userID, "SuperMart Store #555")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, groceries, got)
}

func TestMatchInvalidRegexIsNoMatch(t *testing.T) {
	userID := uuid.New()
	store := &fakeStore{rules: []models.CategoryRule{
		newRule(userID, uuid.New(), `unbalanced(`, models.PatternRegex, 10),
	}}
	engine := NewEngine(store, zap.NewNop())

	_, ok, err := engine.Match(context.Background(), userID, "unbalanced( anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchNoRulesReturnsUncategorized(t *testing.T) {
	engine := NewEngine(&fakeStore{}, zap.NewNop())
	_, ok, err := engine.Match(context.Background(), uuid.New(), "Anything At All")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLearnCreatesReinforcesAndCorrects(t *testing.T) {
	userID := uuid.New()
	groceries := uuid.New()
	restaurants := uuid.New()
	store := &fakeStore{}
	engine := NewEngine(store, zap.NewNop())
	ctx := context.Background()

	desc := "SuperMart Store #123, Branch 4"

	// First correction creates a baseline rule.
	require.NoError(t, engine.Learn(ctx, userID, groceries, desc))
	require.Len(t, store.rules, 1)
	assert.Equal(t, "SuperMart Store", store.rules[0].Pattern)
	assert.Equal(t, models.PatternContains, store.rules[0].PatternType)
	assert.Equal(t, BasePriority, store.rules[0].Priority)
	assert.Equal(t, groceries, store.rules[0].CategoryID)

	// Agreement reinforces the same rule instead of creating another.
	require.NoError(t, engine.Learn(ctx, userID, groceries, desc))
	require.Len(t, store.rules, 1)
	assert.Equal(t, BasePriority+ReinforceStep, store.rules[0].Priority)

	// Disagreement rewrites the category and still bumps priority.
	require.NoError(t, engine.Learn(ctx, userID, restaurants, desc))
	require.Len(t, store.rules, 1)
	assert.Equal(t, restaurants, store.rules[0].CategoryID)
	assert.Equal(t, BasePriority+2*ReinforceStep, store.rules[0].Priority)
}

func TestLearnPriorityMonotonic(t *testing.T) {
	userID := uuid.New()
	store := &fakeStore{}
	engine := NewEngine(store, zap.NewNop())
	ctx := context.Background()

	prev := 0
	categories := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for i := 0; i < 9; i++ {
		cat := categories[i%len(categories)]
		require.NoError(t, engine.Learn(ctx, userID, cat, "Corner Coffee 17"))
		require.Len(t, store.rules, 1)
		assert.GreaterOrEqual(t, store.rules[0].Priority, prev)
		assert.Equal(t, cat, store.rules[0].CategoryID)
		prev = store.rules[0].Priority
	}
}

func TestLearnEmptyDescriptionIsNoop(t *testing.T) {
	store := &fakeStore{}
	engine := NewEngine(store, zap.NewNop())
	require.NoError(t, engine.Learn(context.Background(), uuid.New(), uuid.New(), "   "))
	assert.Empty(t, store.rules)
}
