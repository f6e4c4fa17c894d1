package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ledgerlens/internal/dto"
	"ledgerlens/internal/models"
	"ledgerlens/internal/signhint"
	"ledgerlens/pkg/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pipelineFixture struct {
	svc        *PipelineService
	docs       *fakeDocStore
	txs        *fakeTxStore
	categories *fakeCategoryStore
	primary    *fakeExtractor
	fallback   *fakeExtractor
	ocr        *fakeOCR
	pdf        *fakePDF
	structured *fakeStructured
}

func newPipelineFixture(docs ...*models.Document) *pipelineFixture {
	logger := zap.NewNop()
	f := &pipelineFixture{
		docs:       newFakeDocStore(docs...),
		txs:        &fakeTxStore{},
		categories: newFakeCategoryStore(),
		primary:    &fakeExtractor{available: true},
		fallback:   &fakeExtractor{available: true},
		ocr:        &fakeOCR{},
		pdf:        &fakePDF{},
		structured: &fakeStructured{},
	}
	matcher := &fakeMatcher{matches: map[string]uuid.UUID{}}
	f.svc = NewPipelineService(PipelineDeps{
		Documents:    f.docs,
		Transactions: f.txs,
		Rules:        &fakeRuleLister{},
		Primary:      f.primary,
		Fallback:     f.fallback,
		OCR:          f.ocr,
		PDF:          f.pdf,
		Structured:   f.structured,
		Reconciler:   NewReconciler(f.txs, logger),
		Materializer: NewMaterializer(f.categories, matcher, "USD", logger),
		Keywords:     signhint.DefaultKeywords(),
		Config: config.PipelineConfig{
			MaxStoredText: 50000,
			RasterTimeout: 5 * time.Second,
			ContextSample: 10,
		},
		Logger: logger,
	})
	return f
}

func newUploadedDoc(userID uuid.UUID, mimeType string) *models.Document {
	return &models.Document{
		ID:         uuid.New(),
		UserID:     userID,
		AccountID:  uuid.New(),
		FileName:   "statement",
		MimeType:   mimeType,
		Status:     models.DocumentStatusPending,
		UploadedAt: time.Now(),
	}
}

func candidate(date, desc string, amount float64) models.ExtractionCandidate {
	return models.ExtractionCandidate{Date: date, Description: desc, Amount: amount}
}

func TestProcessDocumentCleanImportCompletes(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "text/csv")
	f := newPipelineFixture(doc)
	f.structured.text = "2024-03-01\tSuperMart\t-87.20\n2024-03-02\tPayroll\t5200.00\n"
	f.primary.candidates = []models.ExtractionCandidate{
		candidate("2024-03-01", "SuperMart", -87.20),
		candidate("2024-03-02", "Payroll", 5200),
	}

	err := f.svc.ProcessDocument(context.Background(), userID, doc.ID)
	require.NoError(t, err)

	stored := f.docs.docs[doc.ID]
	assert.Equal(t, models.DocumentStatusCompleted, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Len(t, f.txs.created, 2)
	// PENDING -> PROCESSING -> COMPLETED, nothing else
	assert.Equal(t, []models.DocumentStatus{
		models.DocumentStatusProcessing,
		models.DocumentStatusCompleted,
	}, f.docs.updates)
}

func TestProcessDocumentDuplicateHoldsWholeBatch(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "text/csv")
	f := newPipelineFixture(doc)

	date, _ := time.Parse("2006-01-02", "2024-03-01")
	f.txs.existing = []*models.Transaction{{
		ID:          uuid.New(),
		UserID:      userID,
		AccountID:   doc.AccountID,
		Date:        date,
		Amount:      -87.20,
		Description: "SuperMart",
	}}

	f.structured.text = "enough text to run extraction\n"
	f.primary.candidates = []models.ExtractionCandidate{
		candidate("2024-03-01", "SuperMart", -87.20), // duplicate
		candidate("2024-03-05", "New Merchant", -12.00),
	}

	require.NoError(t, f.svc.ProcessDocument(context.Background(), userID, doc.ID))

	stored := f.docs.docs[doc.ID]
	assert.Equal(t, models.DocumentStatusPendingReview, stored.Status)
	// Nothing is written while the batch is held, even rows that matched nothing.
	assert.Empty(t, f.txs.created)

	var snapshot []models.ExtractionCandidate
	require.NoError(t, json.Unmarshal([]byte(stored.ExtractedJSON), &snapshot))
	require.Len(t, snapshot, 2)
	assert.True(t, snapshot[0].IsDuplicate)
	require.NotNil(t, snapshot[0].DuplicateOfID)
	assert.False(t, snapshot[1].IsDuplicate)
}

func TestProcessDocumentZeroCandidatesCompletes(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "text/csv")
	f := newPipelineFixture(doc)
	f.structured.text = "header line with no transactions at all\n"
	f.primary.candidates = []models.ExtractionCandidate{}

	require.NoError(t, f.svc.ProcessDocument(context.Background(), userID, doc.ID))

	stored := f.docs.docs[doc.ID]
	assert.Equal(t, models.DocumentStatusCompleted, stored.Status)
	assert.NotEmpty(t, stored.ErrorMessage)
	assert.Empty(t, f.txs.created)
}

func TestProcessDocumentShortStructuredTextSkipsExtraction(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "text/csv")
	f := newPipelineFixture(doc)
	f.structured.text = "ab\n"

	require.NoError(t, f.svc.ProcessDocument(context.Background(), userID, doc.ID))

	assert.Equal(t, models.DocumentStatusCompleted, f.docs.docs[doc.ID].Status)
	assert.Zero(t, f.primary.textCalls)
	assert.Zero(t, f.fallback.textCalls)
}

func TestProcessDocumentImageFallsBackToOCR(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "image/png")
	f := newPipelineFixture(doc)
	f.primary.err = errBoom // vision fails, then text extraction fails too
	f.ocr.text = "01/03/2024 VISA SUPERMART 87.20\n"
	f.fallback.candidates = []models.ExtractionCandidate{
		candidate("2024-03-01", "VISA SUPERMART", -87.20),
	}

	require.NoError(t, f.svc.ProcessDocument(context.Background(), userID, doc.ID))

	stored := f.docs.docs[doc.ID]
	assert.Equal(t, models.DocumentStatusCompleted, stored.Status)
	assert.Equal(t, 1, f.primary.imageCalls)
	assert.Equal(t, 1, f.fallback.textCalls)
	assert.Contains(t, stored.OCRText, "SUPERMART")
	assert.Len(t, f.txs.created, 1)
}

func TestProcessDocumentImageEmptyVisionResultFallsBackToOCR(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "image/png")
	f := newPipelineFixture(doc)
	// vision succeeds but finds nothing; the OCR chain must still run
	f.primary.candidates = nil
	f.ocr.text = "01/03/2024 VISA SUPERMART 87.20\n"

	require.NoError(t, f.svc.ProcessDocument(context.Background(), userID, doc.ID))

	stored := f.docs.docs[doc.ID]
	assert.Equal(t, models.DocumentStatusCompleted, stored.Status)
	assert.Equal(t, 1, f.primary.imageCalls)
	assert.Equal(t, 1, f.ocr.calls)
	assert.Contains(t, stored.OCRText, "SUPERMART")
}

func TestProcessDocumentImageVisionSuccessStoresPlaceholderText(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "image/png")
	f := newPipelineFixture(doc)
	f.primary.candidates = []models.ExtractionCandidate{
		candidate("2024-03-01", "SuperMart", -87.20),
	}

	require.NoError(t, f.svc.ProcessDocument(context.Background(), userID, doc.ID))

	stored := f.docs.docs[doc.ID]
	assert.Equal(t, models.DocumentStatusCompleted, stored.Status)
	assert.Zero(t, f.ocr.calls)
	assert.Contains(t, stored.OCRText, "vision extraction")
	assert.Len(t, f.txs.created, 1)
}

func TestProcessDocumentPDFDeadEndFails(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "application/pdf")
	f := newPipelineFixture(doc)
	f.primary.available = false
	f.pdf.textErr = errBoom

	err := f.svc.ProcessDocument(context.Background(), userID, doc.ID)
	require.Error(t, err)

	stored := f.docs.docs[doc.ID]
	assert.Equal(t, models.DocumentStatusFailed, stored.Status)
	assert.Equal(t, pdfDeadEndMessage, stored.ErrorMessage)
	assert.NotNil(t, stored.ProcessedAt)
}

func TestProcessDocumentPDFEmptyTextLayerFails(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "application/pdf")
	f := newPipelineFixture(doc)
	f.primary.available = false
	f.pdf.text = "  \n "

	err := f.svc.ProcessDocument(context.Background(), userID, doc.ID)
	require.Error(t, err)
	assert.Equal(t, models.DocumentStatusFailed, f.docs.docs[doc.ID].Status)
}

func TestProcessDocumentRejectsNonPendingStates(t *testing.T) {
	userID := uuid.New()
	for _, status := range []models.DocumentStatus{
		models.DocumentStatusProcessing,
		models.DocumentStatusCompleted,
		models.DocumentStatusFailed,
		models.DocumentStatusPendingReview,
	} {
		doc := newUploadedDoc(userID, "text/csv")
		doc.Status = status
		f := newPipelineFixture(doc)

		err := f.svc.ProcessDocument(context.Background(), userID, doc.ID)
		assert.ErrorIs(t, err, ErrIllegalTransition, "status %s", status)
		assert.Empty(t, f.docs.updates, "status %s must not be touched", status)
	}
}

func TestConfirmImportSkipDuplicates(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "text/csv")
	doc.Status = models.DocumentStatusPendingReview
	snapshot := []models.ExtractionCandidate{
		{Date: "2024-03-01", Description: "SuperMart", Amount: -87.20, IsDuplicate: true},
		{Date: "2024-03-05", Description: "New Merchant", Amount: -12.00},
	}
	raw, _ := json.Marshal(snapshot)
	doc.ExtractedJSON = string(raw)
	f := newPipelineFixture(doc)

	created, err := f.svc.ConfirmImport(context.Background(), userID, doc.ID, dto.ConfirmImportRequest{
		Action: dto.ConfirmActionSkipDuplicates,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	require.Len(t, f.txs.created, 1)
	assert.Equal(t, "New Merchant", f.txs.created[0].Description)
	assert.Equal(t, models.DocumentStatusCompleted, f.docs.docs[doc.ID].Status)
	// the snapshot survives confirmation untouched
	assert.Equal(t, string(raw), f.docs.docs[doc.ID].ExtractedJSON)
}

func TestConfirmImportAddAllImportsDuplicatesToo(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "text/csv")
	doc.Status = models.DocumentStatusPendingReview
	raw, _ := json.Marshal([]models.ExtractionCandidate{
		{Date: "2024-03-01", Description: "SuperMart", Amount: -87.20, IsDuplicate: true},
		{Date: "2024-03-05", Description: "New Merchant", Amount: -12.00},
	})
	doc.ExtractedJSON = string(raw)
	f := newPipelineFixture(doc)

	created, err := f.svc.ConfirmImport(context.Background(), userID, doc.ID, dto.ConfirmImportRequest{
		Action: dto.ConfirmActionAddAll,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)
}

func TestConfirmImportAddNoneCompletesWithNothing(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "text/csv")
	doc.Status = models.DocumentStatusPendingReview
	raw, _ := json.Marshal([]models.ExtractionCandidate{
		{Date: "2024-03-01", Description: "SuperMart", Amount: -87.20, IsDuplicate: true},
	})
	doc.ExtractedJSON = string(raw)
	f := newPipelineFixture(doc)

	created, err := f.svc.ConfirmImport(context.Background(), userID, doc.ID, dto.ConfirmImportRequest{
		Action: dto.ConfirmActionAddNone,
	})
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Empty(t, f.txs.created)
	assert.Equal(t, models.DocumentStatusCompleted, f.docs.docs[doc.ID].Status)
}

func TestConfirmImportEmptySnapshotCompletesWithNothing(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "text/csv")
	doc.Status = models.DocumentStatusPendingReview
	doc.ExtractedJSON = "[]"
	f := newPipelineFixture(doc)

	created, err := f.svc.ConfirmImport(context.Background(), userID, doc.ID, dto.ConfirmImportRequest{})
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Empty(t, f.txs.created)
	assert.Equal(t, models.DocumentStatusCompleted, f.docs.docs[doc.ID].Status)
}

func TestConfirmImportUnreadableSnapshotCompletesWithNothing(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "text/csv")
	doc.Status = models.DocumentStatusPendingReview
	doc.ExtractedJSON = "{{{not json"
	f := newPipelineFixture(doc)

	// PENDING_REVIEW has no exit other than COMPLETED, so a corrupt snapshot
	// must not strand the document.
	created, err := f.svc.ConfirmImport(context.Background(), userID, doc.ID, dto.ConfirmImportRequest{})
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Empty(t, f.txs.created)
	assert.Equal(t, models.DocumentStatusCompleted, f.docs.docs[doc.ID].Status)
}

func TestConfirmImportSelectedIndices(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "text/csv")
	doc.Status = models.DocumentStatusPendingReview
	raw, _ := json.Marshal([]models.ExtractionCandidate{
		{Date: "2024-03-01", Description: "A", Amount: -1},
		{Date: "2024-03-02", Description: "B", Amount: -2},
		{Date: "2024-03-03", Description: "C", Amount: -3},
	})
	doc.ExtractedJSON = string(raw)
	f := newPipelineFixture(doc)

	created, err := f.svc.ConfirmImport(context.Background(), userID, doc.ID, dto.ConfirmImportRequest{
		SelectedIndices: []int{0, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, "A", f.txs.created[0].Description)
	assert.Equal(t, "C", f.txs.created[1].Description)
}

func TestConfirmImportOutOfRangeIndexRejected(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "text/csv")
	doc.Status = models.DocumentStatusPendingReview
	raw, _ := json.Marshal([]models.ExtractionCandidate{
		{Date: "2024-03-01", Description: "A", Amount: -1},
	})
	doc.ExtractedJSON = string(raw)
	f := newPipelineFixture(doc)

	_, err := f.svc.ConfirmImport(context.Background(), userID, doc.ID, dto.ConfirmImportRequest{
		SelectedIndices: []int{5},
	})
	require.Error(t, err)
	assert.Empty(t, f.txs.created)
}

func TestConfirmImportOnlyFromPendingReview(t *testing.T) {
	userID := uuid.New()
	for _, status := range []models.DocumentStatus{
		models.DocumentStatusPending,
		models.DocumentStatusProcessing,
		models.DocumentStatusCompleted,
		models.DocumentStatusFailed,
	} {
		doc := newUploadedDoc(userID, "text/csv")
		doc.Status = status
		f := newPipelineFixture(doc)

		_, err := f.svc.ConfirmImport(context.Background(), userID, doc.ID, dto.ConfirmImportRequest{})
		assert.ErrorIs(t, err, ErrIllegalTransition, "status %s", status)
	}
}

func TestProcessDocumentUsesFallbackWhenPrimaryUnavailable(t *testing.T) {
	userID := uuid.New()
	doc := newUploadedDoc(userID, "text/csv")
	f := newPipelineFixture(doc)
	f.primary.available = false
	f.structured.text = "01/03/2024 VISA SUPERMART 87.20\n"
	f.fallback.candidates = []models.ExtractionCandidate{
		candidate("2024-03-01", "VISA SUPERMART", -87.20),
	}

	require.NoError(t, f.svc.ProcessDocument(context.Background(), userID, doc.ID))

	assert.Zero(t, f.primary.textCalls)
	assert.Equal(t, 1, f.fallback.textCalls)
	assert.Len(t, f.txs.created, 1)
}
