package anomaly

import (
	"context"
	"fmt"

	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/logger"
	"github.com/dvloznov/spend-anomaly/internal/store"
)

// Checker scores a single transaction against the user's earlier expenses
// in the same category.
type Checker struct {
	store store.TransactionStore
}

// NewChecker creates a checker backed by txStore.
func NewChecker(txStore store.TransactionStore) *Checker {
	return &Checker{store: txStore}
}

// Check returns nil when fewer than MinTransactions prior expenses exist.
// The candidate never counts towards its own baseline, even if it was
// already stored.
func (c *Checker) Check(ctx context.Context, userID string, tx domain.Transaction) (*domain.Verdict, error) {
	history, err := c.store.ListCategoryTransactions(ctx, userID, tx.Category)
	if err != nil {
		return nil, fmt.Errorf("loading transactions for category %s: %w", tx.Category, err)
	}

	prior := make([]domain.Transaction, 0, len(history))
	for _, h := range history {
		if tx.ID != "" && h.ID == tx.ID {
			continue
		}
		prior = append(prior, h)
	}
	if len(prior) < MinTransactions {
		return nil, nil
	}

	baseline := values(prior)
	m := mean(baseline)
	sd := stdDev(baseline, m)
	threshold := m + SigmaThreshold*sd

	amount := tx.Value()
	if amount <= threshold {
		return &domain.Verdict{AnomalyResult: domain.AnomalyResult{Transaction: tx}}, nil
	}

	if tx.CategoryName == "" {
		tx.CategoryName = categoryName(prior, tx.Category)
	}
	score := zScore(amount, m, sd)

	log := logger.FromContext(ctx)
	log.Info().
		Str("user_id", userID).
		Str("transaction_id", tx.ID).
		Str("category_id", tx.Category).
		Float64("score", score).
		Msg("Transaction flagged")

	return &domain.Verdict{
		AnomalyResult: domain.AnomalyResult{
			Transaction:  tx,
			AnomalyScore: domain.NewScore(score),
			Reason:       windowReason(amount, m, score, tx.CategoryName),
			Method:       domain.MethodSlidingWindow,
		},
		IsAnomaly: true,
	}, nil
}
