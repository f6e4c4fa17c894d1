// Package signhint determines, per statement line, whether an amount is
// income or an expense before any probabilistic extraction runs. It is a pure
// function over raw text: no I/O, no hidden state.
package signhint

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

type Sign string

const (
	SignIncome  Sign = "income"
	SignExpense Sign = "expense"
	SignUnknown Sign = "unknown"
)

// Hint is the deterministic classification of one line. For two-column lines
// with two genuinely non-zero amounts, the sign is unknown and both raw
// values are carried so the downstream classifier has maximal context; the
// preprocessor never guesses which column is which.
type Hint struct {
	Sign          Sign
	Amount        float64 // the single amount candidate, 0 when none
	IncomeAmount  float64 // two-amount lines only: first raw value
	ExpenseAmount float64 // two-amount lines only: second raw value
}

const (
	minAmount = 0.01
	maxAmount = 100000
)

var (
	dateRe   = regexp.MustCompile(`\b\d{1,2}[./-]\d{1,2}[./-]\d{2,4}\b|\b\d{4}-\d{2}-\d{2}\b`)
	amountRe = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	// currency symbols and codes stripped when deriving the bare description
	currencyRe = regexp.MustCompile(`[$€£₪₽¥]|\b(?:USD|EUR|GBP|ILS|RUB)\b`)
)

// Analyze classifies every line of text and returns a map from line index to
// hint. Lines with no amount in range are omitted.
func Analyze(text string, kw Keywords) map[int]Hint {
	hints := make(map[int]Hint)
	for i, line := range strings.Split(text, "\n") {
		if h, ok := analyzeLine(line, kw); ok {
			hints[i] = h
		}
	}
	return hints
}

func analyzeLine(line string, kw Keywords) (Hint, bool) {
	stripped := dateRe.ReplaceAllString(line, " ")

	amounts := extractAmounts(stripped)
	if len(amounts) == 0 {
		return Hint{}, false
	}

	// Prefer price-like tokens (over 100, or non-integer) when any exist;
	// this reduces false hits on reference and branch numbers.
	candidates := priceLike(amounts)
	if len(candidates) == 0 {
		candidates = amounts
	}

	if len(candidates) >= 2 {
		nonZero := nonZeroOf(candidates)
		switch len(nonZero) {
		case 0:
			return Hint{Sign: SignUnknown}, true
		case 1:
			return singleAmountHint(stripped, nonZero[0], kw), true
		default:
			// Two-column layout: OCR column order is untrusted, so defer
			// to the downstream classifier with both raw values attached.
			return Hint{
				Sign:          SignUnknown,
				IncomeAmount:  nonZero[0],
				ExpenseAmount: nonZero[1],
			}, true
		}
	}

	return singleAmountHint(stripped, candidates[0], kw), true
}

func singleAmountHint(stripped string, amount float64, kw Keywords) Hint {
	desc := bareDescription(stripped)
	sign := classify(desc, kw)
	return Hint{Sign: sign, Amount: amount}
}

// extractAmounts returns every numeric token within [0.01, 100000].
func extractAmounts(s string) []float64 {
	var out []float64
	for _, tok := range amountRe.FindAllString(s, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(tok, ",", ""), 64)
		if err != nil {
			continue
		}
		if v < minAmount || v > maxAmount {
			continue
		}
		out = append(out, v)
	}
	return out
}

func priceLike(amounts []float64) []float64 {
	var out []float64
	for _, v := range amounts {
		if v > 100 || v != math.Trunc(v) {
			out = append(out, v)
		}
	}
	return out
}

func nonZeroOf(amounts []float64) []float64 {
	var out []float64
	for _, v := range amounts {
		if v != 0 {
			out = append(out, v)
		}
	}
	return out
}

// BareDescription strips dates, amount tokens and currency noise from a raw
// statement line, leaving the merchant/description text.
func BareDescription(line string) string {
	return bareDescription(dateRe.ReplaceAllString(line, " "))
}

// FirstDate returns the first date token found in a line, if any.
func FirstDate(line string) (string, bool) {
	m := dateRe.FindString(line)
	if m == "" {
		return "", false
	}
	return m, true
}

// bareDescription strips amount tokens and currency noise, leaving the
// merchant/description text.
func bareDescription(s string) string {
	s = amountRe.ReplaceAllString(s, " ")
	s = currencyRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// classify tests the bare description against both keyword lists. Exactly one
// list matching settles the sign; neither or both matching stays unknown.
func classify(desc string, kw Keywords) Sign {
	upper := strings.ToUpper(desc)

	income := matchesAny(upper, kw.Income)
	expense := matchesAny(upper, kw.Expense)

	switch {
	case income && !expense:
		return SignIncome
	case expense && !income:
		return SignExpense
	default:
		return SignUnknown
	}
}

func matchesAny(upper string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(upper, strings.ToUpper(k)) {
			return true
		}
	}
	return false
}

// Annotate rewrites text with a per-line hint suffix so the extraction
// adapter never has to infer sign purely from layout.
func Annotate(text string, hints map[int]Hint) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		h, ok := hints[i]
		if !ok || strings.TrimSpace(line) == "" {
			continue
		}
		switch {
		case h.IncomeAmount != 0 && h.ExpenseAmount != 0:
			lines[i] = fmt.Sprintf("%s [sign=%s amounts=%.2f|%.2f]", line, h.Sign, h.IncomeAmount, h.ExpenseAmount)
		default:
			lines[i] = fmt.Sprintf("%s [sign=%s]", line, h.Sign)
		}
	}
	return strings.Join(lines, "\n")
}
