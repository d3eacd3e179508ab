package anomaly

import (
	"fmt"
	"sort"

	"github.com/dvloznov/spend-anomaly/internal/domain"
)

// SlidingWindow flags transactions that exceed mean + 2.5σ of the up to ten
// transactions before them. It works on a date-sorted copy, so the input
// order does not affect the result. Transactions before index
// MinTransactions are never flagged.
func SlidingWindow(txs []domain.Transaction) []domain.AnomalyResult {
	sorted := sortedByDate(txs)
	anomalies := []domain.AnomalyResult{}

	for i := MinTransactions; i < len(sorted); i++ {
		start := i - WindowSize
		if start < 0 {
			start = 0
		}
		baseline := values(sorted[start:i])
		m := mean(baseline)
		sd := stdDev(baseline, m)
		threshold := m + SigmaThreshold*sd

		current := sorted[i]
		amount := current.Value()
		if amount <= threshold {
			continue
		}

		score := zScore(amount, m, sd)
		anomalies = append(anomalies, domain.AnomalyResult{
			Transaction:  current,
			AnomalyScore: domain.NewScore(score),
			Reason:       windowReason(amount, m, score, current.CategoryName),
			Method:       domain.MethodSlidingWindow,
		})
	}

	return anomalies
}

// windowReason words a z-score in three tiers.
func windowReason(amount, m, score float64, categoryName string) string {
	switch {
	case score > 5:
		return squash(fmt.Sprintf("This expense of $%.2f is extremely high compared to your typical %s spending of around $%.2f.", amount, categoryName, m))
	case score > 3:
		return squash(fmt.Sprintf("This expense is significantly higher than your average %s spending from this time period.", categoryName))
	default:
		return squash(fmt.Sprintf("This %s expense is higher than your typical spending pattern at the time.", categoryName))
	}
}

// sortedByDate returns a copy ordered by date, then id. Unparseable dates go last.
func sortedByDate(txs []domain.Transaction) []domain.Transaction {
	out := append([]domain.Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		ti, okI := out[i].Time()
		tj, okJ := out[j].Time()
		if okI != okJ {
			return okI
		}
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
