package main

import (
	"context"
	"log"
	"time"

	"ledgerlens/internal/models"
	"ledgerlens/internal/repository"
	"ledgerlens/pkg/config"
	"ledgerlens/pkg/logger"
	"ledgerlens/pkg/postgres"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// schema is applied idempotently on every run.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		currency TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		slug TEXT NOT NULL,
		name TEXT NOT NULL,
		is_income BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, slug)
	)`,
	`CREATE TABLE IF NOT EXISTS category_rules (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		category_id UUID NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
		pattern TEXT NOT NULL,
		pattern_type TEXT NOT NULL,
		priority INTEGER NOT NULL,
		active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS category_rules_user_pattern_idx
		ON category_rules (user_id, LOWER(pattern))`,
	`CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		file_name TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		storage_path TEXT NOT NULL,
		file_size BIGINT NOT NULL,
		status TEXT NOT NULL,
		ocr_text TEXT NOT NULL DEFAULT '',
		extracted_json TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		processed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		category_id UUID REFERENCES categories(id) ON DELETE SET NULL,
		date TIMESTAMPTZ NOT NULL,
		description TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		currency TEXT NOT NULL,
		source TEXT NOT NULL,
		document_id UUID REFERENCES documents(id) ON DELETE SET NULL,
		total_amount DOUBLE PRECISION,
		installment_current INTEGER,
		installment_total INTEGER,
		recurring BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_exact_match_idx
		ON transactions (user_id, account_id, date, amount)`,
	`CREATE INDEX IF NOT EXISTS transactions_document_idx
		ON transactions (document_id)`,
	`CREATE INDEX IF NOT EXISTS documents_user_idx
		ON documents (user_id, uploaded_at DESC)`,
}

var demoCategories = []struct {
	slug     string
	name     string
	isIncome bool
}{
	{"groceries", "Groceries", false},
	{"restaurants", "Restaurants & Cafes", false},
	{"transport", "Transport", false},
	{"utilities", "Utilities", false},
	{"salary", "Salary", true},
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	// Connect to database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	appLogger.Info("Applying schema...")
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			appLogger.Fatal("Schema statement failed", zap.Error(err))
		}
	}
	appLogger.Info("Schema is up to date")

	userRepo := repository.NewUserRepository(db, appLogger)
	accountRepo := repository.NewAccountRepository(db, appLogger)
	categoryRepo := repository.NewCategoryRepository(db, appLogger)

	// Demo user for local development
	demoEmail := "demo@ledgerlens.local"
	user, err := userRepo.GetByEmail(ctx, demoEmail)
	if err != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte("demo-password"), bcrypt.DefaultCost)
		if err != nil {
			appLogger.Fatal("Failed to hash demo password", zap.Error(err))
		}
		user = &models.User{
			ID:       uuid.New(),
			Username: "demo",
			Email:    demoEmail,
			Password: string(hash),
		}
		if err := userRepo.Create(ctx, user); err != nil {
			appLogger.Fatal("Failed to create demo user", zap.Error(err))
		}
		appLogger.Info("Created demo user", zap.String("email", demoEmail))
	}

	accounts, err := accountRepo.ListByUserID(ctx, user.ID)
	if err != nil {
		appLogger.Fatal("Failed to list demo accounts", zap.Error(err))
	}
	if len(accounts) == 0 {
		account := &models.Account{
			ID:        uuid.New(),
			UserID:    user.ID,
			Name:      "Main",
			Currency:  cfg.Pipeline.DefaultCurrency,
			CreatedAt: time.Now(),
		}
		if err := accountRepo.Create(ctx, account); err != nil {
			appLogger.Fatal("Failed to create demo account", zap.Error(err))
		}
		appLogger.Info("Created demo account", zap.String("account_id", account.ID.String()))
	}

	for _, dc := range demoCategories {
		if _, err := categoryRepo.EnsureBySlug(ctx, &models.Category{
			ID:       uuid.New(),
			UserID:   user.ID,
			Slug:     dc.slug,
			Name:     dc.name,
			IsIncome: dc.isIncome,
		}); err != nil {
			appLogger.Fatal("Failed to seed category", zap.String("slug", dc.slug), zap.Error(err))
		}
	}
	appLogger.Info("Seeding completed")
}
