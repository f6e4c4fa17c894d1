package service

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// FileTextExtractor pulls plain text out of structured uploads so the
// extraction adapters can treat every format as statement lines.
type FileTextExtractor struct {
	logger *zap.Logger
}

func NewFileTextExtractor(logger *zap.Logger) *FileTextExtractor {
	return &FileTextExtractor{logger: logger}
}

func (e *FileTextExtractor) Text(path, mimeType string) (string, error) {
	switch classifyMime(mimeType) {
	case classStructured:
	default:
		return "", fmt.Errorf("unsupported mime type for text extraction: %s", mimeType)
	}

	mt := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mt, "csv"):
		return e.csvText(path)
	case strings.Contains(mt, "spreadsheet"), strings.Contains(mt, "ms-excel"):
		return e.excelText(path)
	case strings.Contains(mt, "word"), strings.Contains(mt, "msword"):
		// Word uploads carry no tabular text layer we can read reliably;
		// returning empty routes them to the OCR-free short-text path.
		e.logger.Warn("Word document text extraction is not supported, returning empty text", zap.String("path", path))
		return "", nil
	default:
		return "", fmt.Errorf("unsupported mime type for text extraction: %s", mimeType)
	}
}

// csvText joins every record into tab-separated lines. Ragged rows are
// common in bank exports, so field count checking is disabled.
func (e *FileTextExtractor) csvText(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse CSV: %w", err)
	}

	var sb strings.Builder
	for _, record := range records {
		sb.WriteString(strings.Join(record, "\t"))
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// excelText reads every sheet row by row.
func (e *FileTextExtractor) excelText(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.Warn("Failed to close spreadsheet", zap.Error(err))
		}
	}()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}
