package models

import (
	"time"

	"github.com/google/uuid"
)

type PatternType string

const (
	PatternContains   PatternType = "contains"
	PatternStartsWith PatternType = "startsWith"
	PatternRegex      PatternType = "regex"
)

// CategoryRule is a learned or user-declared description matcher. Pattern is
// unique per user under case-insensitive comparison; priority only grows
// through reinforcement.
type CategoryRule struct {
	ID          uuid.UUID   `db:"id"`
	UserID      uuid.UUID   `db:"user_id"`
	CategoryID  uuid.UUID   `db:"category_id"`
	Pattern     string      `db:"pattern"`
	PatternType PatternType `db:"pattern_type"`
	Priority    int         `db:"priority"`
	Active      bool        `db:"active"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}
