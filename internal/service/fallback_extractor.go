package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ledgerlens/internal/models"
	"ledgerlens/internal/signhint"

	"go.uber.org/zap"
)

// FallbackExtractor is the deterministic, offline extraction path used when
// the language-model adapter is unavailable or fails. It builds candidates
// straight from the sign hints: single-amount lines only, since the hints
// never guess at two-column layouts.
type FallbackExtractor struct {
	keywords signhint.Keywords
	currency string
	logger   *zap.Logger
}

func NewFallbackExtractor(keywords signhint.Keywords, currency string, logger *zap.Logger) *FallbackExtractor {
	return &FallbackExtractor{keywords: keywords, currency: currency, logger: logger}
}

func (f *FallbackExtractor) Available() bool { return true }

// dateLayouts tried in order when normalizing a matched date token.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"01/02/2006",
	"02/01/06",
	"02.01.06",
}

func normalizeDate(tok string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, tok); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// ExtractFromText converts hinted statement lines into candidates. Unknown
// sign on a single-amount line defaults to an expense, which is the common
// case on card statements; two-amount lines are skipped rather than guessed.
func (f *FallbackExtractor) ExtractFromText(ctx context.Context, text, tenantContext string) ([]models.ExtractionCandidate, error) {
	_ = tenantContext // the offline path has no use for semantic context

	lines := strings.Split(text, "\n")
	hints := signhint.Analyze(text, f.keywords)

	candidates := make([]models.ExtractionCandidate, 0, len(hints))
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h, ok := hints[i]
		if !ok {
			continue
		}
		if h.IncomeAmount != 0 && h.ExpenseAmount != 0 {
			f.logger.Debug("Skipping two-column line in offline extraction", zap.Int("line", i))
			continue
		}
		if h.Amount == 0 {
			continue
		}

		desc := signhint.BareDescription(line)
		if desc == "" {
			continue
		}

		amount := h.Amount
		if h.Sign != signhint.SignIncome {
			amount = -amount
		}

		var date string
		if tok, ok := signhint.FirstDate(line); ok {
			date = normalizeDate(tok)
		}

		candidates = append(candidates, models.ExtractionCandidate{
			Date:        date,
			Description: desc,
			Amount:      amount,
			Currency:    f.currency,
		})
	}

	f.logger.Info("Offline extraction produced candidates",
		zap.Int("lines", len(lines)),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

// ExtractFromImage is unsupported: images must go through OCR before the
// offline path can read them.
func (f *FallbackExtractor) ExtractFromImage(ctx context.Context, imagePath, tenantContext string) ([]models.ExtractionCandidate, error) {
	return nil, fmt.Errorf("offline extraction does not support images")
}
