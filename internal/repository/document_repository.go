package repository

import (
	"context"
	"errors"

	"ledgerlens/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var ErrDocumentNotFound = errors.New("document not found")

var documentColumns = []string{
	"id", "user_id", "account_id", "file_name", "mime_type", "storage_path",
	"file_size", "status", "ocr_text", "extracted_json", "error_message",
	"uploaded_at", "processed_at",
}

type DocumentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewDocumentRepository(db *pgxpool.Pool, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := squirrel.Insert("documents").
		Columns(documentColumns...).
		Values(doc.ID, doc.UserID, doc.AccountID, doc.FileName, doc.MimeType, doc.StoragePath,
			doc.FileSize, doc.Status, doc.OCRText, doc.ExtractedJSON, doc.ErrorMessage,
			doc.UploadedAt, doc.ProcessedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Document, error) {
	query := squirrel.Select(documentColumns...).
		From("documents").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var doc models.Document
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&doc.ID, &doc.UserID, &doc.AccountID, &doc.FileName, &doc.MimeType, &doc.StoragePath,
		&doc.FileSize, &doc.Status, &doc.OCRText, &doc.ExtractedJSON, &doc.ErrorMessage,
		&doc.UploadedAt, &doc.ProcessedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

// Update persists the pipeline-mutable fields: status, extracted text and
// snapshot, error message and processing timestamp.
func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := squirrel.Update("documents").
		Set("status", doc.Status).
		Set("ocr_text", doc.OCRText).
		Set("extracted_json", doc.ExtractedJSON).
		Set("error_message", doc.ErrorMessage).
		Set("processed_at", doc.ProcessedAt).
		Where(squirrel.Eq{"id": doc.ID, "user_id": doc.UserID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *DocumentRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Document, error) {
	query := squirrel.Select(documentColumns...).
		From("documents").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("uploaded_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
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

	var documents []*models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(
			&doc.ID, &doc.UserID, &doc.AccountID, &doc.FileName, &doc.MimeType, &doc.StoragePath,
			&doc.FileSize, &doc.Status, &doc.OCRText, &doc.ExtractedJSON, &doc.ErrorMessage,
			&doc.UploadedAt, &doc.ProcessedAt,
		); err != nil {
			return nil, err
		}
		documents = append(documents, &doc)
	}

	return documents, nil
}
