package service

import (
	"context"
	"testing"
	"time"

	"ledgerlens/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMaterializer(categories *fakeCategoryStore, matcher *fakeMatcher) *Materializer {
	return NewMaterializer(categories, matcher, "USD", zap.NewNop())
}

func TestBuildExplicitSlugCreatesCategoryAndLearns(t *testing.T) {
	categories := newFakeCategoryStore()
	matcher := &fakeMatcher{matches: map[string]uuid.UUID{}}
	m := newMaterializer(categories, matcher)

	userID, accountID, docID := uuid.New(), uuid.New(), uuid.New()
	txs, err := m.Build(context.Background(), userID, accountID, docID, []models.ExtractionCandidate{
		{Date: "2024-03-01", Description: "SuperMart", Amount: -87.20, CategorySlug: "groceries"},
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)

	cat, err := categories.GetBySlug(context.Background(), userID, "groceries")
	require.NoError(t, err)
	assert.Equal(t, "Groceries", cat.Name)
	require.NotNil(t, txs[0].CategoryID)
	assert.Equal(t, cat.ID, *txs[0].CategoryID)
	assert.Equal(t, []string{"SuperMart"}, matcher.learned)
	assert.Equal(t, models.SourceUpload, txs[0].Source)
	require.NotNil(t, txs[0].DocumentID)
	assert.Equal(t, docID, *txs[0].DocumentID)
}

func TestBuildReusesExistingCategory(t *testing.T) {
	categories := newFakeCategoryStore()
	matcher := &fakeMatcher{matches: map[string]uuid.UUID{}}
	m := newMaterializer(categories, matcher)

	userID := uuid.New()
	first, err := m.Build(context.Background(), userID, uuid.New(), uuid.New(), []models.ExtractionCandidate{
		{Date: "2024-03-01", Description: "SuperMart", Amount: -10, CategorySlug: "groceries"},
	})
	require.NoError(t, err)
	second, err := m.Build(context.Background(), userID, uuid.New(), uuid.New(), []models.ExtractionCandidate{
		{Date: "2024-03-02", Description: "MiniMart", Amount: -5, CategorySlug: "Groceries"},
	})
	require.NoError(t, err)

	assert.Equal(t, *first[0].CategoryID, *second[0].CategoryID)
	assert.Len(t, categories.categories, 1)
}

func TestBuildRuleEngineFallback(t *testing.T) {
	categories := newFakeCategoryStore()
	cat, _ := categories.EnsureBySlug(context.Background(), &models.Category{
		ID: uuid.New(), Slug: "transport", Name: "Transport",
	})
	matcher := &fakeMatcher{matches: map[string]uuid.UUID{"City Metro": cat.ID}}
	m := newMaterializer(categories, matcher)

	txs, err := m.Build(context.Background(), uuid.New(), uuid.New(), uuid.New(), []models.ExtractionCandidate{
		{Date: "2024-03-01", Description: "City Metro", Amount: -2.75},
		{Date: "2024-03-01", Description: "Unknown Shop", Amount: -9.99},
	})
	require.NoError(t, err)
	require.Len(t, txs, 2)

	require.NotNil(t, txs[0].CategoryID)
	assert.Equal(t, cat.ID, *txs[0].CategoryID)
	assert.Nil(t, txs[1].CategoryID)
	// implicit matches never reinforce: only explicit slugs teach
	assert.Empty(t, matcher.learned)
}

func TestBuildSalaryIncomeIsRecurring(t *testing.T) {
	categories := newFakeCategoryStore()
	matcher := &fakeMatcher{matches: map[string]uuid.UUID{}}
	m := newMaterializer(categories, matcher)

	txs, err := m.Build(context.Background(), uuid.New(), uuid.New(), uuid.New(), []models.ExtractionCandidate{
		{Date: "2024-03-01", Description: "ACME PAYROLL", Amount: 5200, CategorySlug: "salary"},
		{Date: "2024-03-02", Description: "SALARY CORRECTION", Amount: -150, CategorySlug: "salary"},
		{Date: "2024-03-03", Description: "SuperMart", Amount: -87.20, CategorySlug: "groceries"},
	})
	require.NoError(t, err)
	require.Len(t, txs, 3)

	assert.True(t, txs[0].Recurring)
	assert.False(t, txs[1].Recurring, "negative salary adjustments are not recurring")
	assert.False(t, txs[2].Recurring)
}

func TestBuildInstallmentMetadata(t *testing.T) {
	m := newMaterializer(newFakeCategoryStore(), &fakeMatcher{matches: map[string]uuid.UUID{}})

	total := 1950.0
	n := 3
	txs, err := m.Build(context.Background(), uuid.New(), uuid.New(), uuid.New(), []models.ExtractionCandidate{
		{Date: "2024-03-01", Description: "TV Store 1/3", Amount: -650, TotalAmount: &total, InstallmentTotal: &n},
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)

	require.NotNil(t, txs[0].InstallmentCurrent)
	assert.Equal(t, 1, *txs[0].InstallmentCurrent, "missing current defaults to the first installment")
	assert.Equal(t, 3, *txs[0].InstallmentTotal)
	require.NotNil(t, txs[0].TotalAmount)
	assert.Equal(t, 1950.0, *txs[0].TotalAmount)
}

func TestBuildSkipsEmptyDescriptions(t *testing.T) {
	m := newMaterializer(newFakeCategoryStore(), &fakeMatcher{matches: map[string]uuid.UUID{}})

	txs, err := m.Build(context.Background(), uuid.New(), uuid.New(), uuid.New(), []models.ExtractionCandidate{
		{Date: "2024-03-01", Description: "", Amount: -10},
		{Date: "2024-03-01", Description: "Kept", Amount: -20},
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Kept", txs[0].Description)
}

func TestBuildUnparseableDateDefaultsToNow(t *testing.T) {
	m := newMaterializer(newFakeCategoryStore(), &fakeMatcher{matches: map[string]uuid.UUID{}})

	before := time.Now().Add(-time.Minute)
	txs, err := m.Build(context.Background(), uuid.New(), uuid.New(), uuid.New(), []models.ExtractionCandidate{
		{Date: "not a date", Description: "Shop", Amount: -10},
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Date.After(before))
}
