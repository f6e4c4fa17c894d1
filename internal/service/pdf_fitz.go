package service

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// FitzConverter rasterizes PDF pages with MuPDF and falls back to the
// embedded text layer when rasterization or downstream vision fails.
type FitzConverter struct {
	logger *zap.Logger
}

func NewFitzConverter(logger *zap.Logger) *FitzConverter {
	return &FitzConverter{logger: logger}
}

// RasterizePages renders every page of the PDF to a PNG under outDir and
// returns the paths in page order. The context deadline is checked between
// pages so a huge scan cannot hold the worker forever.
func (f *FitzConverter) RasterizePages(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	paths := make([]string, 0, numPages)
	for i := 0; i < numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("rasterization cancelled on page %d: %w", i+1, err)
		}

		img, err := doc.Image(i)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
		}

		pagePath := filepath.Join(outDir, fmt.Sprintf("page_%03d.png", i+1))
		file, err := os.Create(pagePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create page image: %w", err)
		}
		if err := png.Encode(file, img); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to encode page %d: %w", i+1, err)
		}
		if err := file.Close(); err != nil {
			return nil, fmt.Errorf("failed to write page image: %w", err)
		}
		paths = append(paths, pagePath)
	}

	f.logger.Debug("Rasterized PDF", zap.String("path", pdfPath), zap.Int("pages", numPages))
	return paths, nil
}

// Text extracts the embedded text layer. Scanned PDFs typically return
// nothing here, which the pipeline treats as a dead end.
func (f *FitzConverter) Text(pdfPath string) (string, error) {
	file, reader, err := pdf.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF for text extraction: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text layer: %w", err)
	}
	if _, err := buf.ReadFrom(textReader); err != nil {
		return "", fmt.Errorf("failed to read PDF text layer: %w", err)
	}

	return buf.String(), nil
}
