package anomaly

import (
	"context"
	"time"

	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/logger"
	"github.com/dvloznov/spend-anomaly/internal/metrics"
	"github.com/dvloznov/spend-anomaly/internal/store"
)

// CategoryDetector runs the tier chain for one (user, category) pair.
type CategoryDetector struct {
	tiers []Tier
	now   func() time.Time
}

// NewCategoryDetector builds the chain fetch, absolute, relative,
// insufficient, remote, model, window. A nil delegate leaves out the remote
// tier and a nil model uses the default isolation forest.
func NewCategoryDetector(txStore store.TransactionStore, delegate Delegate, model OutlierModel, remoteTimeout time.Duration, now func() time.Time) *CategoryDetector {
	if model == nil {
		model = &IsolationForestModel{Config: DefaultForestConfig()}
	}
	if now == nil {
		now = time.Now
	}

	tiers := []Tier{
		fetchTier{store: txStore},
		absoluteTier{},
		relativeTier{},
		insufficientTier{},
	}
	if delegate != nil {
		tiers = append(tiers, remoteTier{delegate: delegate, timeout: remoteTimeout})
	}
	tiers = append(tiers, modelTier{model: model}, windowTier{})

	return &CategoryDetector{tiers: tiers, now: now}
}

// Detect returns the outcome of the first tier that resolves.
func (d *CategoryDetector) Detect(ctx context.Context, userID, categoryID string) (*domain.DetectionOutcome, error) {
	log := logger.FromContext(ctx)
	state := &TierState{UserID: userID, CategoryID: categoryID, Now: d.now()}

	for _, tier := range d.tiers {
		outcome, err := tier.Attempt(ctx, state)
		if err != nil {
			return nil, err
		}
		if outcome == nil {
			continue
		}
		if outcome.Anomalies == nil {
			outcome.Anomalies = []domain.AnomalyResult{}
		}

		metrics.TierResolutions.WithLabelValues(tier.Name()).Inc()
		log.Debug().
			Str("user_id", userID).
			Str("category_id", categoryID).
			Str("tier", tier.Name()).
			Str("method", outcome.Method).
			Int("anomaly_count", len(outcome.Anomalies)).
			Msg("Category detection resolved")
		return outcome, nil
	}

	// Unreachable while the window tier is last in the chain.
	return &domain.DetectionOutcome{Anomalies: []domain.AnomalyResult{}, CategoryID: categoryID}, nil
}
