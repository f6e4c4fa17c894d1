package service

import (
	"context"
	"time"

	"ledgerlens/internal/models"
	"ledgerlens/internal/repository"

	"github.com/google/uuid"
)

// Ports consumed by the pipeline and materializer. The repository package
// provides the postgres implementations; tests substitute fakes.

type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Document, error)
}

type TransactionStore interface {
	CreateBatch(ctx context.Context, transactions []*models.Transaction) error
	FindExact(ctx context.Context, userID, accountID uuid.UUID, date time.Time, amount float64, description string) (*models.Transaction, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, userID uuid.UUID, filter repository.TransactionFilter) ([]*models.Transaction, error)
	UpdateCategory(ctx context.Context, userID, id, categoryID uuid.UUID) error
	RecentDescriptions(ctx context.Context, userID uuid.UUID, limit int) ([]string, error)
	CountByDocumentID(ctx context.Context, userID, documentID uuid.UUID) (int, error)
}

type CategoryStore interface {
	EnsureBySlug(ctx context.Context, category *models.Category) (*models.Category, error)
	GetBySlug(ctx context.Context, userID uuid.UUID, slug string) (*models.Category, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Category, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Category, error)
}

type RuleLister interface {
	ListActive(ctx context.Context, userID uuid.UUID) ([]models.CategoryRule, error)
}

// CategoryMatcher is the rule engine surface the pipeline needs: suggest a
// category for a description, and learn from an assignment.
type CategoryMatcher interface {
	Match(ctx context.Context, userID uuid.UUID, description string) (uuid.UUID, bool, error)
	Learn(ctx context.Context, userID, categoryID uuid.UUID, description string) error
}

// Extractor is the opaque extraction provider: annotated text or an image
// path in, ordered candidates out. Implementations must tolerate missing
// credentials by reporting Available() == false.
type Extractor interface {
	Available() bool
	ExtractFromText(ctx context.Context, text, tenantContext string) ([]models.ExtractionCandidate, error)
	ExtractFromImage(ctx context.Context, imagePath, tenantContext string) ([]models.ExtractionCandidate, error)
}

// OCREngine turns an image file into text. Implementations hold a lazily
// created worker that is torn down on failure and recreated on next use.
type OCREngine interface {
	ImageText(ctx context.Context, path string) (string, error)
	Close() error
}

// PDFConverter rasterizes PDF pages to images and extracts embedded text.
// Rasterization may be unavailable on the host; Text is the fallback.
type PDFConverter interface {
	RasterizePages(ctx context.Context, pdfPath, outDir string) ([]string, error)
	Text(pdfPath string) (string, error)
}

// StructuredExtractor pulls plain text out of CSV/Excel/Word uploads.
type StructuredExtractor interface {
	Text(path, mimeType string) (string, error)
}
