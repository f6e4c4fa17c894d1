package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"ledgerlens/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var ErrCategoryNotFound = errors.New("category not found")

type CategoryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCategoryRepository(db *pgxpool.Pool, logger *zap.Logger) *CategoryRepository {
	return &CategoryRepository{
		db:     db,
		logger: logger,
	}
}

func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	query := squirrel.Insert("categories").
		Columns("id", "user_id", "slug", "name", "is_income", "created_at", "updated_at").
		Values(category.ID, category.UserID, category.Slug, category.Name, category.IsIncome, category.CreatedAt, category.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// EnsureBySlug resolves the category with the given slug for the user,
// creating it atomically when absent. Two concurrent imports wanting the same
// new category both succeed: the insert is ON CONFLICT DO NOTHING and the
// winner's row is read back.
func (r *CategoryRepository) EnsureBySlug(ctx context.Context, category *models.Category) (*models.Category, error) {
	category.Slug = strings.ToLower(strings.TrimSpace(category.Slug))
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now()
	}
	if category.UpdatedAt.IsZero() {
		category.UpdatedAt = category.CreatedAt
	}

	query := squirrel.Insert("categories").
		Columns("id", "user_id", "slug", "name", "is_income", "created_at", "updated_at").
		Values(category.ID, category.UserID, category.Slug, category.Name, category.IsIncome, category.CreatedAt, category.UpdatedAt).
		Suffix("ON CONFLICT (user_id, slug) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	if _, err = r.db.Exec(ctx, sql, args...); err != nil {
		return nil, err
	}

	return r.GetBySlug(ctx, category.UserID, category.Slug)
}

func (r *CategoryRepository) GetBySlug(ctx context.Context, userID uuid.UUID, slug string) (*models.Category, error) {
	query := squirrel.Select("id", "user_id", "slug", "name", "is_income", "created_at", "updated_at").
		From("categories").
		Where(squirrel.Eq{"user_id": userID, "slug": strings.ToLower(slug)}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var category models.Category
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&category.ID, &category.UserID, &category.Slug, &category.Name, &category.IsIncome, &category.CreatedAt, &category.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}

	return &category, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Category, error) {
	query := squirrel.Select("id", "user_id", "slug", "name", "is_income", "created_at", "updated_at").
		From("categories").
		Where(squirrel.Eq{"user_id": userID, "id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var category models.Category
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&category.ID, &category.UserID, &category.Slug, &category.Name, &category.IsIncome, &category.CreatedAt, &category.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}

	return &category, nil
}

func (r *CategoryRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Category, error) {
	query := squirrel.Select("id", "user_id", "slug", "name", "is_income", "created_at", "updated_at").
		From("categories").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("name ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(
			&category.ID, &category.UserID, &category.Slug, &category.Name, &category.IsIncome, &category.CreatedAt, &category.UpdatedAt,
		); err != nil {
			return nil, err
		}
		categories = append(categories, &category)
	}

	return categories, nil
}
