package service

import (
	"context"

	"ledgerlens/internal/models"
	"ledgerlens/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransactionService covers the read and correction surface over imported
// transactions. Category corrections feed the rule engine so the next import
// categorizes the merchant without review.
type TransactionService struct {
	transactions TransactionStore
	categories   CategoryStore
	matcher      CategoryMatcher
	logger       *zap.Logger
}

func NewTransactionService(transactions TransactionStore, categories CategoryStore, matcher CategoryMatcher, logger *zap.Logger) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		categories:   categories,
		matcher:      matcher,
		logger:       logger,
	}
}

func (s *TransactionService) List(ctx context.Context, userID uuid.UUID, filter repository.TransactionFilter) ([]*models.Transaction, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.transactions.List(ctx, userID, filter)
}

func (s *TransactionService) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Transaction, error) {
	return s.transactions.GetByID(ctx, userID, id)
}

// UpdateCategory re-categorizes one transaction and teaches the rule engine
// from the user's choice.
func (s *TransactionService) UpdateCategory(ctx context.Context, userID, id, categoryID uuid.UUID) (*models.Transaction, error) {
	category, err := s.categories.GetByID(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}

	tx, err := s.transactions.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := s.transactions.UpdateCategory(ctx, userID, id, category.ID); err != nil {
		return nil, err
	}

	if err := s.matcher.Learn(ctx, userID, category.ID, tx.Description); err != nil {
		s.logger.Warn("Failed to learn from category correction",
			zap.String("transaction_id", id.String()),
			zap.Error(err),
		)
	}

	tx.CategoryID = &category.ID
	return tx, nil
}

func (s *TransactionService) ListCategories(ctx context.Context, userID uuid.UUID) ([]*models.Category, error) {
	return s.categories.ListByUserID(ctx, userID)
}
