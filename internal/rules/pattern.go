// Package rules implements the category rule engine: extracting short
// merchant patterns from transaction descriptions, matching descriptions
// against stored rules, and learning new rules from corrections.
package rules

import (
	"regexp"
	"strings"
)

const (
	// PatternMaxLen bounds every extracted pattern.
	PatternMaxLen = 50
	patternMinLen = 2
	maxTokens     = 4
)

var (
	dateRe    = regexp.MustCompile(`\b\d{1,2}[./-]\d{1,2}[./-]\d{2,4}\b|\b\d{4}-\d{2}-\d{2}\b`)
	numberRe  = regexp.MustCompile(`\d+`)
	punctRe   = regexp.MustCompile(`[^\p{L}\s]`)
	spacesRe  = regexp.MustCompile(`\s+`)
	noiseWord = buildNoiseWords()
)

// buildNoiseWords lists legal-entity suffixes and branch/location markers
// that carry no merchant identity.
func buildNoiseWords() map[string]struct{} {
	words := []string{
		"LTD", "INC", "CO", "LLC", "CORP", "PLC", "GMBH", "SA", "BV",
		"BRANCH", "FILIAL",
		// locale-specific legal forms seen on statements
		"ООО", "ЗАО", "ОАО", "ИП", "АО",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// ExtractPattern reduces a transaction description to a short matcher anchored
// to merchant identity: dates, numbers, legal suffixes and branch markers are
// stripped, and the first up to four remaining tokens of length >= 2 are kept,
// truncated to 50 characters. A too-short result falls back to the first 50
// characters of the original description, so a non-empty input never yields an
// empty pattern.
func ExtractPattern(description string) string {
	s := dateRe.ReplaceAllString(description, " ")
	s = punctRe.ReplaceAllString(s, " ")
	s = numberRe.ReplaceAllString(s, " ")
	s = spacesRe.ReplaceAllString(s, " ")

	var kept []string
	for _, tok := range strings.Fields(s) {
		if len([]rune(tok)) < patternMinLen {
			continue
		}
		if _, noisy := noiseWord[strings.ToUpper(tok)]; noisy {
			continue
		}
		kept = append(kept, tok)
		if len(kept) == maxTokens {
			break
		}
	}

	pattern := truncate(strings.Join(kept, " "), PatternMaxLen)
	if len([]rune(pattern)) < patternMinLen {
		pattern = truncate(strings.TrimSpace(description), PatternMaxLen)
	}
	return pattern
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
