package dto

import "ledgerlens/internal/models"

type DocumentResponse struct {
	ID               string                       `json:"id"`
	AccountID        string                       `json:"account_id"`
	FileName         string                       `json:"file_name"`
	MimeType         string                       `json:"mime_type"`
	FileSize         int64                        `json:"file_size"`
	Status           string                       `json:"status"`
	Candidates       []models.ExtractionCandidate `json:"candidates,omitempty"`
	ErrorMessage     string                       `json:"error_message,omitempty"`
	TransactionCount int                          `json:"transaction_count"`
	UploadedAt       string                       `json:"uploaded_at"`
	ProcessedAt      string                       `json:"processed_at,omitempty"`
}

// ConfirmImportRequest resolves a PENDING_REVIEW document. Action is one of
// add_all, skip_duplicates, add_none; SelectedIndices instead imports a
// hand-picked subset of the candidate snapshot.
type ConfirmImportRequest struct {
	AccountID       string `json:"account_id"`
	Action          string `json:"action" validate:"omitempty,oneof=add_all skip_duplicates add_none"`
	SelectedIndices []int  `json:"selected_indices,omitempty"`
}

const (
	ConfirmActionAddAll         = "add_all"
	ConfirmActionSkipDuplicates = "skip_duplicates"
	ConfirmActionAddNone        = "add_none"
)
