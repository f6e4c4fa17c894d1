package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

func TestDisplayAmountCorrectsMisStoredTotal(t *testing.T) {
	// Stored as the full price instead of the per-installment charge.
	tx := Transaction{
		Amount:           -1950,
		TotalAmount:      ptrF(1950),
		InstallmentTotal: ptrI(3),
	}
	assert.InDelta(t, -650.00, tx.DisplayAmount(), 0.001)
}

func TestDisplayAmountIdempotent(t *testing.T) {
	// An already-corrected per-installment amount is below the 99% guard and
	// must not be divided again.
	tx := Transaction{
		Amount:           -650,
		TotalAmount:      ptrF(1950),
		InstallmentTotal: ptrI(3),
	}
	assert.InDelta(t, -650.00, tx.DisplayAmount(), 0.001)
}

func TestDisplayAmountWithoutTotalUsesStoredAmount(t *testing.T) {
	tx := Transaction{
		Amount:           -900,
		InstallmentTotal: ptrI(3),
	}
	assert.InDelta(t, -300.00, tx.DisplayAmount(), 0.001)
}

func TestDisplayAmountNonInstallmentUnchanged(t *testing.T) {
	tx := Transaction{Amount: -42.50}
	assert.InDelta(t, -42.50, tx.DisplayAmount(), 0.001)
}

func TestDisplayAmountPreservesSign(t *testing.T) {
	tx := Transaction{
		Amount:           1950,
		TotalAmount:      ptrF(1950),
		InstallmentTotal: ptrI(3),
	}
	assert.InDelta(t, 650.00, tx.DisplayAmount(), 0.001)
}

func TestDisplayDateAdvancesByInstallmentMonths(t *testing.T) {
	first := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	tx := Transaction{
		Date:               first,
		Amount:             -650,
		TotalAmount:        ptrF(1950),
		InstallmentCurrent: ptrI(2),
		InstallmentTotal:   ptrI(3),
	}
	assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), tx.DisplayDate())
	assert.Equal(t, first, tx.FirstPaymentDate())
}

func TestDisplayDateFirstInstallmentUnchanged(t *testing.T) {
	first := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	tx := Transaction{
		Date:               first,
		InstallmentCurrent: ptrI(1),
		InstallmentTotal:   ptrI(3),
	}
	assert.Equal(t, first, tx.DisplayDate())
}
