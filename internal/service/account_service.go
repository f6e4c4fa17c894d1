package service

import (
	"context"
	"errors"
	"strings"

	"ledgerlens/internal/models"
	"ledgerlens/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidAccountName = errors.New("account name is required")

type AccountService struct {
	accounts        *repository.AccountRepository
	defaultCurrency string
	logger          *zap.Logger
}

func NewAccountService(accounts *repository.AccountRepository, defaultCurrency string, logger *zap.Logger) *AccountService {
	return &AccountService{accounts: accounts, defaultCurrency: defaultCurrency, logger: logger}
}

func (s *AccountService) Create(ctx context.Context, userID uuid.UUID, name, currency string) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidAccountName
	}
	if currency == "" {
		currency = s.defaultCurrency
	}

	account := &models.Account{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     name,
		Currency: strings.ToUpper(currency),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("Account created",
		zap.String("user_id", userID.String()),
		zap.String("account_id", account.ID.String()),
	)
	return account, nil
}

func (s *AccountService) List(ctx context.Context, userID uuid.UUID) ([]*models.Account, error) {
	return s.accounts.ListByUserID(ctx, userID)
}

func (s *AccountService) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Account, error) {
	return s.accounts.GetByID(ctx, userID, id)
}
