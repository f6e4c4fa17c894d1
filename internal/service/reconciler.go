package service

import (
	"context"

	"ledgerlens/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reconciler flags extraction candidates that exactly match an existing
// transaction. Matching is deliberately strict: same user, account, date,
// amount and description. Near-duplicates are a human decision, not a
// heuristic one.
type Reconciler struct {
	transactions TransactionStore
	logger       *zap.Logger
}

func NewReconciler(transactions TransactionStore, logger *zap.Logger) *Reconciler {
	return &Reconciler{transactions: transactions, logger: logger}
}

// MarkDuplicates annotates candidates in place and reports how many matched.
// Candidates with an unparseable date are never checked; they cannot collide
// with a stored transaction on an exact-date key.
func (r *Reconciler) MarkDuplicates(ctx context.Context, userID, accountID uuid.UUID, candidates []models.ExtractionCandidate) (int, error) {
	duplicates := 0
	for i := range candidates {
		c := &candidates[i]

		date, ok := c.ParsedDate()
		if !ok {
			continue
		}

		existing, err := r.transactions.FindExact(ctx, userID, accountID, date, c.Amount, c.Description)
		if err != nil {
			return 0, err
		}
		if existing == nil {
			continue
		}

		c.IsDuplicate = true
		id := existing.ID
		c.DuplicateOfID = &id
		duplicates++
	}

	if duplicates > 0 {
		r.logger.Info("Found duplicate candidates",
			zap.String("user_id", userID.String()),
			zap.Int("duplicates", duplicates),
			zap.Int("total", len(candidates)),
		)
	}
	return duplicates, nil
}
