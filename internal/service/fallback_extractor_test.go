package service

import (
	"context"
	"testing"

	"ledgerlens/internal/signhint"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFallbackExtractsSignedCandidates(t *testing.T) {
	f := NewFallbackExtractor(signhint.DefaultKeywords(), "USD", zap.NewNop())

	text := "01/03/2024 VISA SUPERMART 87.20\n" +
		"02/03/2024 ACME PAYROLL 5,200.00\n" +
		"Account statement header\n"

	candidates, err := f.ExtractFromText(context.Background(), text, "")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, -87.20, candidates[0].Amount)
	assert.Equal(t, "2024-03-01", candidates[0].Date)
	assert.Contains(t, candidates[0].Description, "SUPERMART")
	assert.Equal(t, "USD", candidates[0].Currency)

	assert.Equal(t, 5200.0, candidates[1].Amount)
	assert.Equal(t, "2024-03-02", candidates[1].Date)
}

func TestFallbackDefaultsUnknownSignToExpense(t *testing.T) {
	f := NewFallbackExtractor(signhint.DefaultKeywords(), "USD", zap.NewNop())

	candidates, err := f.ExtractFromText(context.Background(), "CORNER BAKERY 12.50\n", "")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, -12.50, candidates[0].Amount)
}

func TestFallbackSkipsTwoColumnLines(t *testing.T) {
	f := NewFallbackExtractor(signhint.DefaultKeywords(), "USD", zap.NewNop())

	candidates, err := f.ExtractFromText(context.Background(), "TRANSFER 450.00 1,200.00\n", "")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFallbackRejectsImages(t *testing.T) {
	f := NewFallbackExtractor(signhint.DefaultKeywords(), "USD", zap.NewNop())

	_, err := f.ExtractFromImage(context.Background(), "/tmp/x.png", "")
	assert.Error(t, err)
}
