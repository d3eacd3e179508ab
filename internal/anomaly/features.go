package anomaly

import (
	"context"
	"math"
	"time"

	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/logger"
)

// FeatureWidth is the length of every feature vector.
const FeatureWidth = 4

const recencyHorizon = 30 * 24 * time.Hour

// ExtractFeatures maps each transaction to [amount, dayOfMonth, dayOfWeek, recency].
// The output is index-aligned with txs and always has one vector per
// transaction: an invalid amount becomes 0, an invalid date becomes
// dayOfMonth=1, dayOfWeek=0 and recency=0.5. Recency is clamped to [0, 1],
// so dates after now count as 0.
func ExtractFeatures(ctx context.Context, txs []domain.Transaction, now time.Time) [][]float64 {
	log := logger.FromContext(ctx)
	features := make([][]float64, len(txs))

	for i, tx := range txs {
		if !tx.Amount.Valid {
			log.Warn().Str("transaction_id", tx.ID).Msg("Invalid amount, using 0")
		}

		vec := []float64{tx.Value(), 1, 0, 0.5}
		if ts, ok := tx.Time(); ok {
			vec[1] = float64(ts.Day())
			vec[2] = float64(ts.Weekday())
			vec[3] = math.Max(0, math.Min(1, float64(now.Sub(ts))/float64(recencyHorizon)))
		} else {
			log.Warn().Str("transaction_id", tx.ID).Str("date", tx.Date).Msg("Invalid date, using defaults")
		}
		features[i] = vec
	}

	return features
}
