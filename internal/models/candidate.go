package models

import (
	"time"

	"github.com/google/uuid"
)

// ExtractionCandidate is one row proposed by the extraction step. It is never
// persisted on its own: it lives in memory during processing and inside a
// document's extracted_json snapshot.
type ExtractionCandidate struct {
	Date               string     `json:"date"`
	Description        string     `json:"description"`
	Amount             float64    `json:"amount"`
	Currency           string     `json:"currency,omitempty"`
	CategorySlug       string     `json:"category_slug,omitempty"`
	TotalAmount        *float64   `json:"total_amount,omitempty"`
	InstallmentCurrent *int       `json:"installment_current,omitempty"`
	InstallmentTotal   *int       `json:"installment_total,omitempty"`
	IsDuplicate        bool       `json:"is_duplicate,omitempty"`
	DuplicateOfID      *uuid.UUID `json:"duplicate_of_id,omitempty"`
}

// ParsedDate parses the candidate's ISO-8601 date. Candidates whose date does
// not parse are never checked for duplication.
func (c *ExtractionCandidate) ParsedDate() (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if d, err := time.Parse(layout, c.Date); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
