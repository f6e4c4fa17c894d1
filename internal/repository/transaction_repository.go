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

var ErrTransactionNotFound = errors.New("transaction not found")

var transactionColumns = []string{
	"id", "user_id", "account_id", "category_id", "date", "description",
	"amount", "currency", "source", "document_id", "total_amount",
	"installment_current", "installment_total", "recurring",
	"created_at", "updated_at",
}

// TransactionFilter is a fully-typed query filter: one field per supported
// predicate. Nil fields are simply not applied.
type TransactionFilter struct {
	AccountID  *uuid.UUID
	CategoryID *uuid.UUID
	DocumentID *uuid.UUID
	Source     *models.TransactionSource
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}

func (f TransactionFilter) apply(q squirrel.SelectBuilder) squirrel.SelectBuilder {
	if f.AccountID != nil {
		q = q.Where(squirrel.Eq{"account_id": *f.AccountID})
	}
	if f.CategoryID != nil {
		q = q.Where(squirrel.Eq{"category_id": *f.CategoryID})
	}
	if f.DocumentID != nil {
		q = q.Where(squirrel.Eq{"document_id": *f.DocumentID})
	}
	if f.Source != nil {
		q = q.Where(squirrel.Eq{"source": *f.Source})
	}
	if f.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *f.DateFrom})
	}
	if f.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *f.DateTo})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	return q
}

type TransactionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTransactionRepository(db *pgxpool.Pool, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *TransactionRepository) CreateBatch(ctx context.Context, transactions []*models.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	builder := squirrel.Insert("transactions").
		Columns(transactionColumns...).
		PlaceholderFormat(squirrel.Dollar)

	for _, tx := range transactions {
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = time.Now()
		}
		if tx.UpdatedAt.IsZero() {
			tx.UpdatedAt = tx.CreatedAt
		}
		builder = builder.Values(tx.ID, tx.UserID, tx.AccountID, tx.CategoryID, tx.Date, tx.Description,
			tx.Amount, tx.Currency, tx.Source, tx.DocumentID, tx.TotalAmount,
			tx.InstallmentCurrent, tx.InstallmentTotal, tx.Recurring,
			tx.CreatedAt, tx.UpdatedAt)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// FindExact looks up a transaction by the exact duplicate tuple: same user,
// account, date, amount and description string.
func (r *TransactionRepository) FindExact(ctx context.Context, userID, accountID uuid.UUID, date time.Time, amount float64, description string) (*models.Transaction, error) {
	query := squirrel.Select(transactionColumns...).
		From("transactions").
		Where(squirrel.Eq{
			"user_id":     userID,
			"account_id":  accountID,
			"date":        date,
			"amount":      amount,
			"description": description,
		}).
		Limit(1).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	tx, err := r.scanOne(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return tx, err
}

func (r *TransactionRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Transaction, error) {
	query := squirrel.Select(transactionColumns...).
		From("transactions").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	tx, err := r.scanOne(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	return tx, err
}

func (r *TransactionRepository) List(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]*models.Transaction, error) {
	query := filter.apply(
		squirrel.Select(transactionColumns...).
			From("transactions").
			Where(squirrel.Eq{"user_id": userID}).
			OrderBy("date DESC", "created_at DESC").
			PlaceholderFormat(squirrel.Dollar),
	)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		tx, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, nil
}

// UpdateCategory rewrites a transaction's category; the caller feeds the
// change into the rule engine.
func (r *TransactionRepository) UpdateCategory(ctx context.Context, userID, id, categoryID uuid.UUID) error {
	query := squirrel.Update("transactions").
		Set("category_id", categoryID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// RecentDescriptions samples the latest transaction descriptions for the
// user, used as contextual hints for the extraction adapter.
func (r *TransactionRepository) RecentDescriptions(ctx context.Context, userID uuid.UUID, limit int) ([]string, error) {
	query := squirrel.Select("DISTINCT ON (description) description").
		From("transactions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("description", "date DESC").
		Limit(uint64(limit)).
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

	var descriptions []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		descriptions = append(descriptions, d)
	}

	return descriptions, nil
}

// CountByDocumentID reports how many transactions a document produced.
func (r *TransactionRepository) CountByDocumentID(ctx context.Context, userID, documentID uuid.UUID) (int, error) {
	query := squirrel.Select("COUNT(*)").
		From("transactions").
		Where(squirrel.Eq{"user_id": userID, "document_id": documentID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *TransactionRepository) scanOne(row pgx.Row) (*models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(
		&tx.ID, &tx.UserID, &tx.AccountID, &tx.CategoryID, &tx.Date, &tx.Description,
		&tx.Amount, &tx.Currency, &tx.Source, &tx.DocumentID, &tx.TotalAmount,
		&tx.InstallmentCurrent, &tx.InstallmentTotal, &tx.Recurring,
		&tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
