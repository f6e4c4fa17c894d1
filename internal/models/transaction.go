package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type TransactionSource string

const (
	SourceManual TransactionSource = "MANUAL"
	SourceUpload TransactionSource = "UPLOAD"
	SourceVoice  TransactionSource = "VOICE"
)

// Transaction is one financial movement. The sign of Amount is the single
// source of truth for income/expense classification: positive is income,
// negative is expense.
type Transaction struct {
	ID                 uuid.UUID         `db:"id"`
	UserID             uuid.UUID         `db:"user_id"`
	AccountID          uuid.UUID         `db:"account_id"`
	CategoryID         *uuid.UUID        `db:"category_id"`
	Date               time.Time         `db:"date"`
	Description        string            `db:"description"`
	Amount             float64           `db:"amount"`
	Currency           string            `db:"currency"`
	Source             TransactionSource `db:"source"`
	DocumentID         *uuid.UUID        `db:"document_id"`
	TotalAmount        *float64          `db:"total_amount"`
	InstallmentCurrent *int              `db:"installment_current"`
	InstallmentTotal   *int              `db:"installment_total"`
	Recurring          bool              `db:"recurring"`
	CreatedAt          time.Time         `db:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at"`
}

// IsInstallment reports whether the transaction carries installment metadata.
func (t *Transaction) IsInstallment() bool {
	return t.InstallmentTotal != nil && *t.InstallmentTotal > 1
}

// DisplayAmount applies the read-time installment amount correction. If the
// stored amount is at least 99% of the installment total (the explicit total,
// or the stored amount itself when none was given), the amount was mis-stored
// as the full price and the per-installment charge is shown instead. The
// stored value is never rewritten.
func (t *Transaction) DisplayAmount() float64 {
	if !t.IsInstallment() {
		return t.Amount
	}

	total := math.Abs(t.Amount)
	if t.TotalAmount != nil && *t.TotalAmount != 0 {
		total = math.Abs(*t.TotalAmount)
	}

	if math.Abs(t.Amount) < total*0.99 {
		return t.Amount
	}

	per := math.Round(total/float64(*t.InstallmentTotal)*100) / 100
	if t.Amount < 0 {
		return -per
	}
	return per
}

// DisplayDate is the first-payment date advanced by installmentCurrent-1
// calendar months. FirstPaymentDate exposes the original date alongside it.
func (t *Transaction) DisplayDate() time.Time {
	if !t.IsInstallment() || t.InstallmentCurrent == nil || *t.InstallmentCurrent <= 1 {
		return t.Date
	}
	return t.Date.AddDate(0, *t.InstallmentCurrent-1, 0)
}

// FirstPaymentDate returns the stored date of the first installment payment.
func (t *Transaction) FirstPaymentDate() time.Time {
	return t.Date
}
