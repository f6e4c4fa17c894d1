package signhint

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Keywords holds the two deliberately conservative keyword lists used to
// resolve the sign of single-amount lines. Both lists are matched
// case-insensitively against the bare description.
type Keywords struct {
	Income  []string `json:"income"`
	Expense []string `json:"expense"`
}

// DefaultKeywords returns the built-in lists. They are intentionally short:
// a keyword earns its place only when its presence alone settles the sign.
func DefaultKeywords() Keywords {
	return Keywords{
		Income: []string{
			"SALARY",
			"PAYROLL",
			"WAGES",
			"INTEREST PAID",
			"DIVIDEND",
			"REFUND",
			"CASHBACK",
		},
		Expense: []string{
			"VISA",
			"MASTERCARD",
			"AMEX",
			"DIRECT DEBIT",
			"CARD PURCHASE",
			"ATM WITHDRAWAL",
			"STANDING ORDER",
			"SERVICE FEE",
		},
	}
}

// LoadKeywords reads keyword lists from a JSON file so deployments can extend
// or localize them without a rebuild. Missing path returns the defaults.
func LoadKeywords(path string) (Keywords, error) {
	if path == "" {
		return DefaultKeywords(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultKeywords(), fmt.Errorf("failed to read keywords file: %w", err)
	}

	var kw Keywords
	if err := json.Unmarshal(data, &kw); err != nil {
		return DefaultKeywords(), fmt.Errorf("failed to parse keywords file: %w", err)
	}

	for i, k := range kw.Income {
		kw.Income[i] = strings.ToUpper(strings.TrimSpace(k))
	}
	for i, k := range kw.Expense {
		kw.Expense[i] = strings.ToUpper(strings.TrimSpace(k))
	}
	return kw, nil
}
