package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"ledgerlens/internal/dto"
	"ledgerlens/internal/models"
	"ledgerlens/internal/signhint"
	"ledgerlens/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrIllegalTransition = errors.New("document is not in a state that allows this operation")

// pdfDeadEndMessage is shown to the user when every PDF strategy failed.
const pdfDeadEndMessage = "Could not extract text from PDF. Try converting to image first."

// PipelineService orchestrates document processing end to end: format
// routing, extraction with fallbacks, duplicate reconciliation and the final
// state transition. Every path funnels into exactly one terminal update of
// the document row.
type PipelineService struct {
	documents    DocumentStore
	transactions TransactionStore
	rules        RuleLister
	primary      Extractor
	fallback     Extractor
	ocr          OCREngine
	pdf          PDFConverter
	structured   StructuredExtractor
	reconciler   *Reconciler
	materializer *Materializer
	keywords     signhint.Keywords
	cfg          config.PipelineConfig
	logger       *zap.Logger
}

type PipelineDeps struct {
	Documents    DocumentStore
	Transactions TransactionStore
	Rules        RuleLister
	Primary      Extractor
	Fallback     Extractor
	OCR          OCREngine
	PDF          PDFConverter
	Structured   StructuredExtractor
	Reconciler   *Reconciler
	Materializer *Materializer
	Keywords     signhint.Keywords
	Config       config.PipelineConfig
	Logger       *zap.Logger
}

func NewPipelineService(deps PipelineDeps) *PipelineService {
	return &PipelineService{
		documents:    deps.Documents,
		transactions: deps.Transactions,
		rules:        deps.Rules,
		primary:      deps.Primary,
		fallback:     deps.Fallback,
		ocr:          deps.OCR,
		pdf:          deps.PDF,
		structured:   deps.Structured,
		reconciler:   deps.Reconciler,
		materializer: deps.Materializer,
		keywords:     deps.Keywords,
		cfg:          deps.Config,
		logger:       deps.Logger,
	}
}

// ProcessDocument runs the full pipeline for one uploaded document. It is
// invoked by the job consumer; the returned error marks the job failed but
// the document row always ends in a defined state.
func (s *PipelineService) ProcessDocument(ctx context.Context, userID, documentID uuid.UUID) error {
	doc, err := s.documents.GetByID(ctx, userID, documentID)
	if err != nil {
		return err
	}

	if !doc.Status.CanTransitionTo(models.DocumentStatusProcessing) {
		s.logger.Warn("Skipping document in non-processable state",
			zap.String("document_id", documentID.String()),
			zap.String("status", string(doc.Status)),
		)
		return ErrIllegalTransition
	}

	doc.Status = models.DocumentStatusProcessing
	doc.ErrorMessage = ""
	if err := s.documents.Update(ctx, doc); err != nil {
		return err
	}

	tenantContext := s.buildTenantContext(ctx, userID)

	candidates, ocrText, err := s.extract(ctx, doc, tenantContext)
	if err != nil {
		return s.fail(ctx, doc, err)
	}

	doc.OCRText = truncateText(sanitizeUTF8(ocrText), s.cfg.MaxStoredText)

	return s.settle(ctx, doc, candidates)
}

// extract routes by format class and returns candidates plus whatever text
// was recovered along the way.
func (s *PipelineService) extract(ctx context.Context, doc *models.Document, tenantContext string) ([]models.ExtractionCandidate, string, error) {
	switch classifyMime(doc.MimeType) {
	case classImage:
		return s.extractImage(ctx, doc, tenantContext)
	case classStructured:
		return s.extractStructured(ctx, doc, tenantContext)
	case classPDF:
		return s.extractPDF(ctx, doc, tenantContext)
	default:
		return nil, "", fmt.Errorf("unsupported file type: %s", doc.MimeType)
	}
}

// extractImage tries vision first, then OCR plus text extraction. An empty
// vision result is treated like a failure: a statement photo always holds at
// least one transaction, so zero candidates means vision could not read it.
func (s *PipelineService) extractImage(ctx context.Context, doc *models.Document, tenantContext string) ([]models.ExtractionCandidate, string, error) {
	if s.primary.Available() {
		candidates, err := s.primary.ExtractFromImage(ctx, doc.StoragePath, tenantContext)
		if err == nil && len(candidates) > 0 {
			return candidates, visionPlaceholder(1), nil
		}
		if err != nil {
			s.logger.Warn("Vision extraction failed, falling back to OCR",
				zap.String("document_id", doc.ID.String()),
				zap.Error(err),
			)
		} else {
			s.logger.Info("Vision extraction found no candidates, falling back to OCR",
				zap.String("document_id", doc.ID.String()),
			)
		}
	}

	text, err := s.ocr.ImageText(ctx, doc.StoragePath)
	if err != nil {
		return nil, "", fmt.Errorf("image could not be read: %w", err)
	}

	candidates, err := s.extractFromText(ctx, text, tenantContext)
	if err != nil {
		return nil, text, err
	}
	return candidates, text, nil
}

// extractStructured pulls text out of CSV/Excel/Word and runs text
// extraction over it. Files yielding almost no text complete with zero
// candidates rather than burning an extraction call.
func (s *PipelineService) extractStructured(ctx context.Context, doc *models.Document, tenantContext string) ([]models.ExtractionCandidate, string, error) {
	text, err := s.structured.Text(doc.StoragePath, doc.MimeType)
	if err != nil {
		return nil, "", err
	}

	if len(strings.TrimSpace(text)) < minUsableTextLen {
		s.logger.Info("Structured file contains no usable text",
			zap.String("document_id", doc.ID.String()),
		)
		return []models.ExtractionCandidate{}, text, nil
	}

	candidates, err := s.extractFromText(ctx, text, tenantContext)
	if err != nil {
		return nil, text, err
	}
	return candidates, text, nil
}

// extractPDF rasterizes pages for vision, and falls back to the embedded
// text layer. A PDF where both strategies come up empty is a hard failure
// with an actionable message.
func (s *PipelineService) extractPDF(ctx context.Context, doc *models.Document, tenantContext string) ([]models.ExtractionCandidate, string, error) {
	if s.primary.Available() {
		if candidates, text, ok := s.pdfVision(ctx, doc, tenantContext); ok {
			return candidates, text, nil
		}
	}

	text, err := s.pdf.Text(doc.StoragePath)
	if err != nil {
		s.logger.Warn("PDF text layer extraction failed",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err),
		)
		return nil, "", errors.New(pdfDeadEndMessage)
	}
	if len(strings.TrimSpace(text)) < minUsableTextLen {
		return nil, "", errors.New(pdfDeadEndMessage)
	}

	candidates, err := s.extractFromText(ctx, text, tenantContext)
	if err != nil {
		return nil, text, err
	}
	return candidates, text, nil
}

// pdfVision rasterizes every page and runs the vision extractor over each.
// Any failure reports not-ok so the caller can try text extraction instead.
// On success the returned text is a placeholder noting how many pages were
// read visually, since no raw text exists on this path.
func (s *PipelineService) pdfVision(ctx context.Context, doc *models.Document, tenantContext string) ([]models.ExtractionCandidate, string, bool) {
	rasterCtx, cancel := context.WithTimeout(ctx, s.cfg.RasterTimeout)
	defer cancel()

	outDir, err := os.MkdirTemp("", "pdfpages")
	if err != nil {
		s.logger.Warn("Failed to create temp dir for rasterization", zap.Error(err))
		return nil, "", false
	}
	defer os.RemoveAll(outDir)

	pages, err := s.pdf.RasterizePages(rasterCtx, doc.StoragePath, outDir)
	if err != nil {
		s.logger.Warn("PDF rasterization failed, falling back to text layer",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err),
		)
		return nil, "", false
	}

	var all []models.ExtractionCandidate
	for i, page := range pages {
		candidates, err := s.primary.ExtractFromImage(ctx, page, tenantContext)
		if err != nil {
			s.logger.Warn("Vision extraction failed on PDF page",
				zap.String("document_id", doc.ID.String()),
				zap.Int("page", i+1),
				zap.Error(err),
			)
			return nil, "", false
		}
		all = append(all, candidates...)
	}
	return all, visionPlaceholder(len(pages)), true
}

// visionPlaceholder stands in for raw text on documents read visually, so
// the stored text column is never empty after a successful extraction.
func visionPlaceholder(pages int) string {
	return fmt.Sprintf("[vision extraction: %d page(s)]", pages)
}

// extractFromText annotates the text with sign hints and runs the primary
// extractor, degrading to the offline path when it is unavailable or errors.
func (s *PipelineService) extractFromText(ctx context.Context, text, tenantContext string) ([]models.ExtractionCandidate, error) {
	hints := signhint.Analyze(text, s.keywords)
	annotated := signhint.Annotate(text, hints)

	if s.primary.Available() {
		candidates, err := s.primary.ExtractFromText(ctx, annotated, tenantContext)
		if err == nil {
			return candidates, nil
		}
		s.logger.Warn("Primary text extraction failed, using offline fallback", zap.Error(err))
	}

	return s.fallback.ExtractFromText(ctx, text, tenantContext)
}

// settle reconciles duplicates and lands the document in COMPLETED or
// PENDING_REVIEW. The candidate snapshot is written exactly once here and
// never rewritten afterwards.
func (s *PipelineService) settle(ctx context.Context, doc *models.Document, candidates []models.ExtractionCandidate) error {
	if len(candidates) == 0 {
		doc.ExtractedJSON = "[]"
		doc.ErrorMessage = "No transactions were found in this document"
		return s.finish(ctx, doc, models.DocumentStatusCompleted)
	}

	duplicates, err := s.reconciler.MarkDuplicates(ctx, doc.UserID, doc.AccountID, candidates)
	if err != nil {
		return s.fail(ctx, doc, err)
	}

	snapshot, err := json.Marshal(candidates)
	if err != nil {
		return s.fail(ctx, doc, err)
	}
	doc.ExtractedJSON = string(snapshot)

	if duplicates > 0 {
		// The whole batch is held, not just the matching rows: the user
		// decides once, over the full picture.
		s.logger.Info("Batch held for review",
			zap.String("document_id", doc.ID.String()),
			zap.Int("duplicates", duplicates),
			zap.Int("candidates", len(candidates)),
		)
		return s.finish(ctx, doc, models.DocumentStatusPendingReview)
	}

	txs, err := s.materializer.Build(ctx, doc.UserID, doc.AccountID, doc.ID, candidates)
	if err != nil {
		return s.fail(ctx, doc, err)
	}
	if len(txs) > 0 {
		if err := s.transactions.CreateBatch(ctx, txs); err != nil {
			return s.fail(ctx, doc, err)
		}
	}

	s.logger.Info("Document imported",
		zap.String("document_id", doc.ID.String()),
		zap.Int("transactions", len(txs)),
	)
	return s.finish(ctx, doc, models.DocumentStatusCompleted)
}

// ConfirmImport resolves a held document. Only PENDING_REVIEW documents can
// be confirmed; the stored snapshot is read, never modified.
func (s *PipelineService) ConfirmImport(ctx context.Context, userID, documentID uuid.UUID, req dto.ConfirmImportRequest) (int, error) {
	doc, err := s.documents.GetByID(ctx, userID, documentID)
	if err != nil {
		return 0, err
	}

	if doc.Status != models.DocumentStatusPendingReview {
		return 0, ErrIllegalTransition
	}

	var candidates []models.ExtractionCandidate
	if err := json.Unmarshal([]byte(doc.ExtractedJSON), &candidates); err != nil {
		s.logger.Warn("Stored candidate snapshot is unreadable, completing with nothing",
			zap.String("document_id", documentID.String()),
			zap.Error(err),
		)
		candidates = nil
	}
	// An empty or unreadable snapshot leaves nothing to import. COMPLETED is
	// the only legal exit from PENDING_REVIEW, so close the document out
	// rather than stranding it.
	if len(candidates) == 0 {
		if err := s.finish(ctx, doc, models.DocumentStatusCompleted); err != nil {
			return 0, err
		}
		return 0, nil
	}

	selected, err := selectCandidates(candidates, req)
	if err != nil {
		return 0, err
	}

	created := 0
	if len(selected) > 0 {
		txs, err := s.materializer.Build(ctx, userID, doc.AccountID, doc.ID, selected)
		if err != nil {
			return 0, err
		}
		if len(txs) > 0 {
			if err := s.transactions.CreateBatch(ctx, txs); err != nil {
				return 0, err
			}
		}
		created = len(txs)
	}

	if err := s.finish(ctx, doc, models.DocumentStatusCompleted); err != nil {
		return 0, err
	}

	s.logger.Info("Review resolved",
		zap.String("document_id", documentID.String()),
		zap.String("action", req.Action),
		zap.Int("created", created),
	)
	return created, nil
}

// selectCandidates applies the confirmation choice to the snapshot. Explicit
// indices win over the named action.
func selectCandidates(candidates []models.ExtractionCandidate, req dto.ConfirmImportRequest) ([]models.ExtractionCandidate, error) {
	if len(req.SelectedIndices) > 0 {
		out := make([]models.ExtractionCandidate, 0, len(req.SelectedIndices))
		for _, idx := range req.SelectedIndices {
			if idx < 0 || idx >= len(candidates) {
				return nil, fmt.Errorf("selected index %d is out of range", idx)
			}
			out = append(out, candidates[idx])
		}
		return out, nil
	}

	switch req.Action {
	case dto.ConfirmActionAddAll, "":
		return candidates, nil
	case dto.ConfirmActionSkipDuplicates:
		out := make([]models.ExtractionCandidate, 0, len(candidates))
		for _, c := range candidates {
			if !c.IsDuplicate {
				out = append(out, c)
			}
		}
		return out, nil
	case dto.ConfirmActionAddNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown confirmation action: %s", req.Action)
	}
}

// buildTenantContext samples the user's rules and recent descriptions so the
// extractor can prefer categorizations the user has already settled on.
// Failures here degrade to an empty context, never to a failed document.
func (s *PipelineService) buildTenantContext(ctx context.Context, userID uuid.UUID) string {
	var sb strings.Builder

	rules, err := s.rules.ListActive(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load rules for extraction context", zap.Error(err))
	} else if len(rules) > 0 {
		sb.WriteString("Known merchant patterns:\n")
		for _, r := range rules {
			sb.WriteString("- ")
			sb.WriteString(r.Pattern)
			sb.WriteByte('\n')
		}
	}

	descriptions, err := s.transactions.RecentDescriptions(ctx, userID, s.cfg.ContextSample)
	if err != nil {
		s.logger.Warn("Failed to load recent descriptions for extraction context", zap.Error(err))
	} else if len(descriptions) > 0 {
		sb.WriteString("Recent transaction descriptions:\n")
		for _, d := range descriptions {
			sb.WriteString("- ")
			sb.WriteString(d)
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

// fail lands the document in FAILED with a user-facing message and returns
// the original error for the job log.
func (s *PipelineService) fail(ctx context.Context, doc *models.Document, cause error) error {
	doc.ErrorMessage = cause.Error()
	if err := s.finish(ctx, doc, models.DocumentStatusFailed); err != nil {
		s.logger.Error("Failed to mark document as failed",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err),
		)
	}
	return cause
}

func (s *PipelineService) finish(ctx context.Context, doc *models.Document, status models.DocumentStatus) error {
	if !doc.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, doc.Status, status)
	}
	doc.Status = status
	now := nowUTC()
	doc.ProcessedAt = &now
	return s.documents.Update(ctx, doc)
}
