package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

// TesseractOCR wraps a lazily created gosseract client. The client holds a
// native tesseract handle, so it is created on first use, torn down after a
// failure and rebuilt on the next call.
type TesseractOCR struct {
	languages string
	logger    *zap.Logger

	mu     sync.Mutex
	client *gosseract.Client
}

func NewTesseractOCR(languages string, logger *zap.Logger) *TesseractOCR {
	return &TesseractOCR{languages: languages, logger: logger}
}

func (t *TesseractOCR) ensureClient() (*gosseract.Client, error) {
	if t.client != nil {
		return t.client, nil
	}
	client := gosseract.NewClient()
	if t.languages != "" {
		if err := client.SetLanguage(splitLanguages(t.languages)...); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set OCR languages: %w", err)
		}
	}
	t.client = client
	return client, nil
}

// splitLanguages accepts both tesseract's "eng+rus" form and "eng,rus".
func splitLanguages(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '+' || r == ','
	})
}

// ImageText runs OCR over one image file.
func (t *TesseractOCR) ImageText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	client, err := t.ensureClient()
	if err != nil {
		return "", err
	}

	if err := client.SetImage(path); err != nil {
		t.teardown()
		return "", fmt.Errorf("failed to load image for OCR: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		t.teardown()
		return "", fmt.Errorf("OCR failed: %w", err)
	}

	return text, nil
}

// teardown drops a client whose native state may be poisoned. Callers hold mu.
func (t *TesseractOCR) teardown() {
	if t.client == nil {
		return
	}
	if err := t.client.Close(); err != nil {
		t.logger.Warn("Failed to close OCR client", zap.Error(err))
	}
	t.client = nil
}

func (t *TesseractOCR) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
