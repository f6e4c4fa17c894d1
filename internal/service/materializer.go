package service

import (
	"context"
	"time"

	"ledgerlens/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Materializer converts confirmed extraction candidates into persisted
// transactions, resolving categories and feeding the rule engine along the
// way.
type Materializer struct {
	categories CategoryStore
	matcher    CategoryMatcher
	currency   string
	logger     *zap.Logger
}

func NewMaterializer(categories CategoryStore, matcher CategoryMatcher, currency string, logger *zap.Logger) *Materializer {
	return &Materializer{
		categories: categories,
		matcher:    matcher,
		currency:   currency,
		logger:     logger,
	}
}

// Build turns candidates into transactions for one user and account. Nothing
// is persisted here; the caller writes the batch.
func (m *Materializer) Build(ctx context.Context, userID, accountID, documentID uuid.UUID, candidates []models.ExtractionCandidate) ([]*models.Transaction, error) {
	now := time.Now()

	txs := make([]*models.Transaction, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]

		description := sanitizeUTF8(c.Description)
		if description == "" {
			continue
		}

		date, ok := c.ParsedDate()
		if !ok {
			// A candidate without a usable date still becomes a
			// transaction; losing the row is worse than dating it today.
			date = now
		}

		currency := c.Currency
		if currency == "" {
			currency = m.currency
		}

		categoryID, isSalary, err := m.resolveCategory(ctx, userID, c.CategorySlug, description)
		if err != nil {
			return nil, err
		}

		docID := documentID
		tx := &models.Transaction{
			ID:          uuid.New(),
			UserID:      userID,
			AccountID:   accountID,
			CategoryID:  categoryID,
			Date:        date,
			Description: description,
			Amount:      c.Amount,
			Currency:    currency,
			Source:      models.SourceUpload,
			DocumentID:  &docID,
			TotalAmount: c.TotalAmount,
			Recurring:   isSalary && c.Amount > 0,
		}
		if c.InstallmentTotal != nil && *c.InstallmentTotal > 1 {
			tx.InstallmentTotal = c.InstallmentTotal
			cur := 1
			if c.InstallmentCurrent != nil && *c.InstallmentCurrent >= 1 {
				cur = *c.InstallmentCurrent
			}
			tx.InstallmentCurrent = &cur
		}

		txs = append(txs, tx)
	}

	return txs, nil
}

// resolveCategory implements the resolution chain: an explicit slug from the
// extractor wins and teaches the rule engine; otherwise the rule engine is
// asked; otherwise the transaction stays uncategorized.
func (m *Materializer) resolveCategory(ctx context.Context, userID uuid.UUID, slug, description string) (*uuid.UUID, bool, error) {
	if slug != "" {
		known := models.LookupKnownCategory(slug)
		category, err := m.categories.EnsureBySlug(ctx, &models.Category{
			ID:       uuid.New(),
			UserID:   userID,
			Slug:     slug,
			Name:     known.Name,
			IsIncome: known.IsIncome,
		})
		if err != nil {
			return nil, false, err
		}

		if err := m.matcher.Learn(ctx, userID, category.ID, description); err != nil {
			// Learning is an optimization; a failed rule write must not
			// block the import.
			m.logger.Warn("Failed to learn category rule",
				zap.String("description", description),
				zap.Error(err),
			)
		}

		id := category.ID
		return &id, category.Slug == models.SalarySlug, nil
	}

	categoryID, matched, err := m.matcher.Match(ctx, userID, description)
	if err != nil {
		m.logger.Warn("Rule engine match failed", zap.Error(err))
		return nil, false, nil
	}
	if !matched {
		return nil, false, nil
	}

	category, err := m.categories.GetByID(ctx, userID, categoryID)
	if err != nil {
		m.logger.Warn("Matched rule points at missing category", zap.String("category_id", categoryID.String()))
		return nil, false, nil
	}

	id := category.ID
	return &id, category.Slug == models.SalarySlug, nil
}
