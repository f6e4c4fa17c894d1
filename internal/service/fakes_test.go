package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ledgerlens/internal/models"
	"ledgerlens/internal/repository"

	"github.com/google/uuid"
)

// In-memory test doubles for the pipeline ports.

type fakeDocStore struct {
	docs    map[uuid.UUID]*models.Document
	updates []models.DocumentStatus
}

func newFakeDocStore(docs ...*models.Document) *fakeDocStore {
	s := &fakeDocStore{docs: make(map[uuid.UUID]*models.Document)}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return s
}

func (s *fakeDocStore) Create(_ context.Context, doc *models.Document) error {
	s.docs[doc.ID] = doc
	return nil
}

func (s *fakeDocStore) GetByID(_ context.Context, userID, id uuid.UUID) (*models.Document, error) {
	doc, ok := s.docs[id]
	if !ok || doc.UserID != userID {
		return nil, repository.ErrDocumentNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *fakeDocStore) Update(_ context.Context, doc *models.Document) error {
	cp := *doc
	s.docs[doc.ID] = &cp
	s.updates = append(s.updates, doc.Status)
	return nil
}

func (s *fakeDocStore) ListByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]*models.Document, error) {
	var out []*models.Document
	for _, d := range s.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeTxStore struct {
	existing []*models.Transaction
	created  []*models.Transaction
}

func (s *fakeTxStore) CreateBatch(_ context.Context, txs []*models.Transaction) error {
	s.created = append(s.created, txs...)
	return nil
}

func (s *fakeTxStore) FindExact(_ context.Context, userID, accountID uuid.UUID, date time.Time, amount float64, description string) (*models.Transaction, error) {
	for _, tx := range s.existing {
		if tx.UserID == userID && tx.AccountID == accountID &&
			tx.Date.Equal(date) && tx.Amount == amount && tx.Description == description {
			return tx, nil
		}
	}
	return nil, nil
}

func (s *fakeTxStore) GetByID(_ context.Context, userID, id uuid.UUID) (*models.Transaction, error) {
	for _, tx := range append(s.existing, s.created...) {
		if tx.ID == id && tx.UserID == userID {
			return tx, nil
		}
	}
	return nil, repository.ErrTransactionNotFound
}

func (s *fakeTxStore) List(_ context.Context, userID uuid.UUID, _ repository.TransactionFilter) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for _, tx := range append(s.existing, s.created...) {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *fakeTxStore) UpdateCategory(_ context.Context, userID, id, categoryID uuid.UUID) error {
	tx, err := s.GetByID(context.Background(), userID, id)
	if err != nil {
		return err
	}
	tx.CategoryID = &categoryID
	return nil
}

func (s *fakeTxStore) RecentDescriptions(_ context.Context, userID uuid.UUID, limit int) ([]string, error) {
	var out []string
	for _, tx := range s.existing {
		if tx.UserID == userID && len(out) < limit {
			out = append(out, tx.Description)
		}
	}
	return out, nil
}

func (s *fakeTxStore) CountByDocumentID(_ context.Context, userID, documentID uuid.UUID) (int, error) {
	count := 0
	for _, tx := range s.created {
		if tx.UserID == userID && tx.DocumentID != nil && *tx.DocumentID == documentID {
			count++
		}
	}
	return count, nil
}

type fakeCategoryStore struct {
	categories map[string]*models.Category // keyed by slug
}

func newFakeCategoryStore() *fakeCategoryStore {
	return &fakeCategoryStore{categories: make(map[string]*models.Category)}
}

func (s *fakeCategoryStore) EnsureBySlug(_ context.Context, category *models.Category) (*models.Category, error) {
	slug := strings.ToLower(category.Slug)
	if existing, ok := s.categories[slug]; ok {
		return existing, nil
	}
	cp := *category
	cp.Slug = slug
	s.categories[slug] = &cp
	return &cp, nil
}

func (s *fakeCategoryStore) GetBySlug(_ context.Context, _ uuid.UUID, slug string) (*models.Category, error) {
	if c, ok := s.categories[strings.ToLower(slug)]; ok {
		return c, nil
	}
	return nil, repository.ErrCategoryNotFound
}

func (s *fakeCategoryStore) GetByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*models.Category, error) {
	for _, c := range s.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (s *fakeCategoryStore) ListByUserID(_ context.Context, _ uuid.UUID) ([]*models.Category, error) {
	var out []*models.Category
	for _, c := range s.categories {
		out = append(out, c)
	}
	return out, nil
}

type fakeMatcher struct {
	matches map[string]uuid.UUID // description -> category
	learned []string
}

func (m *fakeMatcher) Match(_ context.Context, _ uuid.UUID, description string) (uuid.UUID, bool, error) {
	if id, ok := m.matches[description]; ok {
		return id, true, nil
	}
	return uuid.Nil, false, nil
}

func (m *fakeMatcher) Learn(_ context.Context, _, _ uuid.UUID, description string) error {
	m.learned = append(m.learned, description)
	return nil
}

type fakeExtractor struct {
	available  bool
	candidates []models.ExtractionCandidate
	err        error
	textCalls  int
	imageCalls int
}

func (e *fakeExtractor) Available() bool { return e.available }

func (e *fakeExtractor) ExtractFromText(_ context.Context, _, _ string) ([]models.ExtractionCandidate, error) {
	e.textCalls++
	return e.candidates, e.err
}

func (e *fakeExtractor) ExtractFromImage(_ context.Context, _, _ string) ([]models.ExtractionCandidate, error) {
	e.imageCalls++
	return e.candidates, e.err
}

type fakeOCR struct {
	text  string
	err   error
	calls int
}

func (o *fakeOCR) ImageText(_ context.Context, _ string) (string, error) {
	o.calls++
	return o.text, o.err
}
func (o *fakeOCR) Close() error                                          { return nil }

type fakePDF struct {
	pages     []string
	rasterErr error
	text      string
	textErr   error
}

func (p *fakePDF) RasterizePages(_ context.Context, _, _ string) ([]string, error) {
	return p.pages, p.rasterErr
}

func (p *fakePDF) Text(_ string) (string, error) { return p.text, p.textErr }

type fakeStructured struct {
	text string
	err  error
}

func (s *fakeStructured) Text(_, _ string) (string, error) { return s.text, s.err }

type fakeRuleLister struct {
	rules []models.CategoryRule
}

func (r *fakeRuleLister) ListActive(_ context.Context, _ uuid.UUID) ([]models.CategoryRule, error) {
	return r.rules, nil
}

var errBoom = fmt.Errorf("boom")
