package repository

import (
	"context"
	"errors"
	"time"

	"ledgerlens/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var ruleColumns = []string{
	"id", "user_id", "category_id", "pattern", "pattern_type",
	"priority", "active", "created_at", "updated_at",
}

// RuleRepository persists category rules. It implements rules.Store.
type RuleRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewRuleRepository(db *pgxpool.Pool, logger *zap.Logger) *RuleRepository {
	return &RuleRepository{
		db:     db,
		logger: logger,
	}
}

func (r *RuleRepository) Create(ctx context.Context, rule *models.CategoryRule) error {
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = rule.CreatedAt
	}

	query := squirrel.Insert("category_rules").
		Columns(ruleColumns...).
		Values(rule.ID, rule.UserID, rule.CategoryID, rule.Pattern, rule.PatternType,
			rule.Priority, rule.Active, rule.CreatedAt, rule.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *RuleRepository) Update(ctx context.Context, rule *models.CategoryRule) error {
	query := squirrel.Update("category_rules").
		Set("category_id", rule.CategoryID).
		Set("priority", rule.Priority).
		Set("active", rule.Active).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": rule.ID, "user_id": rule.UserID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// FindByPattern resolves a rule by case-insensitive pattern equality; the
// (user_id, lower(pattern)) pair is unique.
func (r *RuleRepository) FindByPattern(ctx context.Context, userID uuid.UUID, pattern string) (*models.CategoryRule, error) {
	query := squirrel.Select(ruleColumns...).
		From("category_rules").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Expr("LOWER(pattern) = LOWER(?)", pattern)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var rule models.CategoryRule
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&rule.ID, &rule.UserID, &rule.CategoryID, &rule.Pattern, &rule.PatternType,
		&rule.Priority, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &rule, nil
}

func (r *RuleRepository) ListActive(ctx context.Context, userID uuid.UUID) ([]models.CategoryRule, error) {
	return r.list(ctx, userID, true)
}

func (r *RuleRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.CategoryRule, error) {
	return r.list(ctx, userID, false)
}

func (r *RuleRepository) list(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]models.CategoryRule, error) {
	query := squirrel.Select(ruleColumns...).
		From("category_rules").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("priority DESC", "created_at ASC").
		PlaceholderFormat(squirrel.Dollar)
	if activeOnly {
		query = query.Where(squirrel.Eq{"active": true})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rls []models.CategoryRule
	for rows.Next() {
		var rule models.CategoryRule
		if err := rows.Scan(
			&rule.ID, &rule.UserID, &rule.CategoryID, &rule.Pattern, &rule.PatternType,
			&rule.Priority, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		rls = append(rls, rule)
	}

	return rls, nil
}
