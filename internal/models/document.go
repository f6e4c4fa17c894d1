package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStatusPending       DocumentStatus = "PENDING"
	DocumentStatusProcessing    DocumentStatus = "PROCESSING"
	DocumentStatusCompleted     DocumentStatus = "COMPLETED"
	DocumentStatusFailed        DocumentStatus = "FAILED"
	DocumentStatusPendingReview DocumentStatus = "PENDING_REVIEW"
)

// Terminal reports whether no further transition is allowed out of s.
func (s DocumentStatus) Terminal() bool {
	return s == DocumentStatusCompleted || s == DocumentStatusFailed
}

// CanTransitionTo reports whether the state machine permits moving from s to
// next. Only the pipeline moves PENDING -> PROCESSING -> {COMPLETED, FAILED,
// PENDING_REVIEW}; the confirm-import operation moves PENDING_REVIEW ->
// COMPLETED.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	switch s {
	case DocumentStatusPending:
		return next == DocumentStatusProcessing
	case DocumentStatusProcessing:
		return next == DocumentStatusCompleted ||
			next == DocumentStatusFailed ||
			next == DocumentStatusPendingReview
	case DocumentStatusPendingReview:
		return next == DocumentStatusCompleted
	default:
		return false
	}
}

type Document struct {
	ID            uuid.UUID      `db:"id"`
	UserID        uuid.UUID      `db:"user_id"`
	AccountID     uuid.UUID      `db:"account_id"`
	FileName      string         `db:"file_name"`
	MimeType      string         `db:"mime_type"`
	StoragePath   string         `db:"storage_path"`
	FileSize      int64          `db:"file_size"`
	Status        DocumentStatus `db:"status"`
	OCRText       string         `db:"ocr_text"`
	ExtractedJSON string         `db:"extracted_json"`
	ErrorMessage  string         `db:"error_message"`
	UploadedAt    time.Time      `db:"uploaded_at"`
	ProcessedAt   *time.Time     `db:"processed_at"`
}

// Candidates decodes the stored extraction snapshot. A missing or corrupt
// snapshot reads as empty.
func (d *Document) Candidates() []ExtractionCandidate {
	if d.ExtractedJSON == "" {
		return nil
	}
	var out []ExtractionCandidate
	if err := json.Unmarshal([]byte(d.ExtractedJSON), &out); err != nil {
		return nil
	}
	return out
}
