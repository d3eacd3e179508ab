package anomaly

import (
	"math"
	"strings"

	"github.com/dvloznov/spend-anomaly/internal/domain"
)

// Detection constants shared by the tiers and the single-transaction check.
const (
	MinTransactions = 5
	WindowSize      = 10
	SigmaThreshold  = 2.5

	ForcedAmount = 100.0
	ForcedScore  = 9.0

	RelativeFactor     = 1.7
	RelativeHighFactor = 2.5
	RelativeScore      = 8.0

	ForestThreshold = -0.3
)

func values(txs []domain.Transaction) []float64 {
	out := make([]float64, len(txs))
	for i, tx := range txs {
		out[i] = tx.Value()
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the population standard deviation around m.
func stdDev(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// zScore returns (x-m)/sd; a zero deviation yields +Inf for values above m.
func zScore(x, m, sd float64) float64 {
	if sd == 0 {
		if x > m {
			return math.Inf(1)
		}
		return 0
	}
	return (x - m) / sd
}

// squash collapses the doubled spaces left by empty category names.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
