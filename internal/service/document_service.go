package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"ledgerlens/internal/jobs"
	"ledgerlens/internal/models"
	"ledgerlens/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrAccountNotFound     = errors.New("account not found")
)

// DocumentService owns the upload surface: file intake, document row
// creation and job submission. Processing itself happens in PipelineService.
type DocumentService struct {
	documents    DocumentStore
	transactions TransactionStore
	accounts     *repository.AccountRepository
	publisher    jobs.Publisher
	uploadDir    string
	logger       *zap.Logger
}

func NewDocumentService(
	documents DocumentStore,
	transactions TransactionStore,
	accounts *repository.AccountRepository,
	publisher jobs.Publisher,
	uploadDir string,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		documents:    documents,
		transactions: transactions,
		accounts:     accounts,
		publisher:    publisher,
		uploadDir:    uploadDir,
		logger:       logger,
	}
}

// Upload validates the file, persists it, creates the document in PENDING
// and submits a processing job. A rejected job is surfaced to the caller
// with the reason recorded on the document, never silently dropped.
func (s *DocumentService) Upload(ctx context.Context, userID, accountID uuid.UUID, fileHeader *multipart.FileHeader) (*models.Document, error) {
	mimeType := fileHeader.Header.Get("Content-Type")
	if !MimeAllowed(mimeType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, mimeType)
	}

	if _, err := s.accounts.GetByID(ctx, userID, accountID); err != nil {
		return nil, ErrAccountNotFound
	}

	docID := uuid.New()
	storagePath, err := s.saveFile(fileHeader, userID, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}

	doc := &models.Document{
		ID:          docID,
		UserID:      userID,
		AccountID:   accountID,
		FileName:    fileHeader.Filename,
		MimeType:    mimeType,
		StoragePath: storagePath,
		FileSize:    fileHeader.Size,
		Status:      models.DocumentStatusPending,
		UploadedAt:  time.Now(),
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		os.Remove(storagePath)
		return nil, err
	}

	job := &jobs.ProcessDocumentJob{
		JobID:      uuid.New(),
		UserID:     userID,
		DocumentID: docID,
		Status:     jobs.JobStatusPending,
		CreatedAt:  time.Now(),
	}
	if err := s.publisher.PublishProcessDocument(ctx, job); err != nil {
		doc.ErrorMessage = "Processing could not be scheduled, please retry the upload"
		if updErr := s.documents.Update(ctx, doc); updErr != nil {
			s.logger.Error("Failed to record job submission failure",
				zap.String("document_id", docID.String()),
				zap.Error(updErr),
			)
		}
		return nil, fmt.Errorf("failed to schedule processing: %w", err)
	}

	s.logger.Info("Document uploaded",
		zap.String("document_id", docID.String()),
		zap.String("file_name", doc.FileName),
		zap.String("mime_type", mimeType),
		zap.Int64("size", doc.FileSize),
	)
	return doc, nil
}

func (s *DocumentService) saveFile(fileHeader *multipart.FileHeader, userID, docID uuid.UUID) (string, error) {
	dir := filepath.Join(s.uploadDir, userID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	ext := filepath.Ext(fileHeader.Filename)
	path := filepath.Join(dir, docID.String()+ext)

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func (s *DocumentService) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Document, error) {
	return s.documents.GetByID(ctx, userID, id)
}

func (s *DocumentService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Document, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.documents.ListByUserID(ctx, userID, limit, offset)
}

// TransactionCount reports how many transactions a document produced.
func (s *DocumentService) TransactionCount(ctx context.Context, userID, documentID uuid.UUID) (int, error) {
	return s.transactions.CountByDocumentID(ctx, userID, documentID)
}
