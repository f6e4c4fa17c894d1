package dto

import (
	"time"

	"ledgerlens/internal/models"
)

type TransactionResponse struct {
	ID                 string   `json:"id"`
	AccountID          string   `json:"account_id"`
	CategoryID         string   `json:"category_id,omitempty"`
	Date               string   `json:"date"`
	Description        string   `json:"description"`
	Amount             float64  `json:"amount"`
	Currency           string   `json:"currency"`
	Source             string   `json:"source"`
	DocumentID         string   `json:"document_id,omitempty"`
	TotalAmount        *float64 `json:"total_amount,omitempty"`
	InstallmentCurrent *int     `json:"installment_current,omitempty"`
	InstallmentTotal   *int     `json:"installment_total,omitempty"`
	FirstPaymentDate   string   `json:"first_payment_date,omitempty"`
	Recurring          bool     `json:"recurring"`
	CreatedAt          string   `json:"created_at"`
}

type UpdateTransactionCategoryRequest struct {
	CategoryID string `json:"category_id" validate:"required,uuid"`
}

// NewTransactionResponse converts a stored transaction for display, applying
// the installment amount and date corrections.
func NewTransactionResponse(tx *models.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:                 tx.ID.String(),
		AccountID:          tx.AccountID.String(),
		Date:               tx.DisplayDate().Format("2006-01-02"),
		Description:        tx.Description,
		Amount:             tx.DisplayAmount(),
		Currency:           tx.Currency,
		Source:             string(tx.Source),
		TotalAmount:        tx.TotalAmount,
		InstallmentCurrent: tx.InstallmentCurrent,
		InstallmentTotal:   tx.InstallmentTotal,
		Recurring:          tx.Recurring,
		CreatedAt:          tx.CreatedAt.Format(time.RFC3339),
	}
	if tx.CategoryID != nil {
		resp.CategoryID = tx.CategoryID.String()
	}
	if tx.DocumentID != nil {
		resp.DocumentID = tx.DocumentID.String()
	}
	if tx.IsInstallment() {
		resp.FirstPaymentDate = tx.FirstPaymentDate().Format("2006-01-02")
	}
	return resp
}
