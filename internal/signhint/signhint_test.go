package signhint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeSingleAmountLines(t *testing.T) {
	kw := DefaultKeywords()

	tests := []struct {
		name       string
		line       string
		wantSign   Sign
		wantAmount float64
	}{
		{
			name:       "card company keyword hints expense",
			line:       "12/03/2024 VISA SUPERMARKET CITY 651.00",
			wantSign:   SignExpense,
			wantAmount: 651.00,
		},
		{
			name:       "payroll keyword hints income",
			line:       "01.02.24 ACME CORP PAYROLL 5,200.00",
			wantSign:   SignIncome,
			wantAmount: 5200.00,
		},
		{
			name:       "no keyword stays unknown",
			line:       "15/01/2024 CORNER BAKERY 12.50",
			wantSign:   SignUnknown,
			wantAmount: 12.50,
		},
		{
			name:       "both lists matching stays unknown",
			line:       "SALARY ADVANCE VISA 300.00",
			wantSign:   SignUnknown,
			wantAmount: 300.00,
		},
		{
			name:       "reference number outside range is ignored",
			line:       "REF 900123456 CARD PURCHASE STORE 45.50",
			wantSign:   SignExpense,
			wantAmount: 45.50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hints := Analyze(tt.line, kw)
			require.Contains(t, hints, 0)
			assert.Equal(t, tt.wantSign, hints[0].Sign)
			assert.InDelta(t, tt.wantAmount, hints[0].Amount, 0.001)
		})
	}
}

func TestAnalyzeTwoColumnLineDefers(t *testing.T) {
	// Two genuinely non-zero amounts: income/expense column order cannot be
	// trusted, so the line must defer with both raw values attached.
	hints := Analyze("04/05/2024 TRANSFER SETTLEMENT 1,200.00 340.50", DefaultKeywords())

	require.Contains(t, hints, 0)
	h := hints[0]
	assert.Equal(t, SignUnknown, h.Sign)
	assert.InDelta(t, 1200.00, h.IncomeAmount, 0.001)
	assert.InDelta(t, 340.50, h.ExpenseAmount, 0.001)
}

func TestAnalyzeSkipsLinesWithoutAmounts(t *testing.T) {
	text := "STATEMENT OF ACCOUNT\nOpening balance carried forward\n12/03/2024 VISA MARKET 20.00"
	hints := Analyze(text, DefaultKeywords())

	assert.NotContains(t, hints, 0)
	assert.NotContains(t, hints, 1)
	assert.Contains(t, hints, 2)
}

func TestAnalyzeStripsDates(t *testing.T) {
	// The date digits must not be mistaken for amounts.
	hints := Analyze("15.01.24 MEMBERSHIP FEE 99.90", DefaultKeywords())

	require.Contains(t, hints, 0)
	assert.InDelta(t, 99.90, hints[0].Amount, 0.001)
}

func TestAnalyzeIsPure(t *testing.T) {
	text := "12/03/2024 VISA MARKET 651.00\n04/05/2024 SHOP 1,200.00 340.50\nno amounts here"
	kw := DefaultKeywords()

	first := Analyze(text, kw)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Analyze(text, kw))
	}
}

func TestAnnotate(t *testing.T) {
	text := "12/03/2024 VISA MARKET 651.00\nno amounts here"
	hints := Analyze(text, DefaultKeywords())

	annotated := Annotate(text, hints)
	assert.Contains(t, annotated, "[sign=expense]")
	assert.Contains(t, annotated, "no amounts here")
	assert.NotContains(t, annotated, "no amounts here [")
}

func TestLoadKeywordsMissingPathReturnsDefaults(t *testing.T) {
	kw, err := LoadKeywords("")
	require.NoError(t, err)
	assert.Equal(t, DefaultKeywords(), kw)
}
