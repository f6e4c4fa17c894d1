package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SalarySlug marks the one category whose positive transactions are flagged
// recurring by convention.
const SalarySlug = "salary"

type Category struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Slug      string    `db:"slug"`
	Name      string    `db:"name"`
	IsIncome  bool      `db:"is_income"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// KnownCategory describes a well-known category slug the extractor may emit,
// so auto-created categories get a proper display name and income flag.
type KnownCategory struct {
	Name     string
	IsIncome bool
}

var knownCategories = map[string]KnownCategory{
	"groceries":     {Name: "Groceries"},
	"restaurants":   {Name: "Restaurants & Cafes"},
	"transport":     {Name: "Transport"},
	"fuel":          {Name: "Fuel"},
	"utilities":     {Name: "Utilities"},
	"rent":          {Name: "Rent"},
	"shopping":      {Name: "Shopping"},
	"entertainment": {Name: "Entertainment"},
	"healthcare":    {Name: "Healthcare"},
	"education":     {Name: "Education"},
	"insurance":     {Name: "Insurance"},
	"subscriptions": {Name: "Subscriptions"},
	"fees":          {Name: "Bank Fees"},
	"transfer":      {Name: "Transfers"},
	"salary":        {Name: "Salary", IsIncome: true},
	"interest":      {Name: "Interest", IsIncome: true},
	"refund":        {Name: "Refunds", IsIncome: true},
	"other":         {Name: "Other"},
}

// LookupKnownCategory resolves a slug against the known-slug table. Unknown
// slugs fall back to a humanized version of the slug itself.
func LookupKnownCategory(slug string) KnownCategory {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if kc, ok := knownCategories[slug]; ok {
		return kc
	}
	return KnownCategory{Name: humanizeSlug(slug)}
}

func humanizeSlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
