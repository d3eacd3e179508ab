package anomaly

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/logger"
	"github.com/dvloznov/spend-anomaly/internal/store"
)

// ThresholdAlertScore is the score given to transactions above a user alert.
const ThresholdAlertScore = 0.7

// UserAggregator runs detection across every category of a user.
type UserAggregator struct {
	store       store.TransactionStore
	alerts      store.AlertStore
	detector    *CategoryDetector
	delegate    Delegate
	timeout     time.Duration
	concurrency int
}

// NewUserAggregator creates an aggregator. alerts and delegate may be nil.
func NewUserAggregator(txStore store.TransactionStore, alerts store.AlertStore, detector *CategoryDetector, delegate Delegate, timeout time.Duration, concurrency int) *UserAggregator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &UserAggregator{
		store:       txStore,
		alerts:      alerts,
		detector:    detector,
		delegate:    delegate,
		timeout:     timeout,
		concurrency: concurrency,
	}
}

// Detect returns every anomaly for the user, sorted with SortAnomalies.
// The remote service is tried first with all categories in one call; when it
// fails, each category with enough history goes through the local chain.
func (a *UserAggregator) Detect(ctx context.Context, userID string) ([]domain.AnomalyResult, error) {
	log := logger.FromContext(ctx).With().Str("user_id", userID).Logger()

	categories, err := a.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	txs, err := a.store.ListExpenseTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading expense transactions: %w", err)
	}

	byCategory := make(map[string][]domain.Transaction)
	for _, tx := range txs {
		byCategory[tx.Category] = append(byCategory[tx.Category], tx)
	}
	thresholds := a.activeThresholds(ctx, userID)

	if a.delegate != nil {
		anomalies, ok, err := a.detectRemote(ctx, byCategory, thresholds)
		if err != nil {
			return nil, err
		}
		if ok {
			return anomalies, nil
		}
	}

	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })

	results := make([][]domain.AnomalyResult, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, cat := range categories {
		if len(byCategory[cat.ID]) < MinTransactions {
			continue
		}
		i, cat := i, cat
		g.Go(func() error {
			outcome, err := a.detector.Detect(gctx, userID, cat.ID)
			if err != nil {
				log.Warn().Err(err).Str("category_id", cat.ID).Msg("Category detection failed, skipping")
				return nil
			}
			found := outcome.Anomalies
			for j := range found {
				if found[j].CategoryName == "" {
					found[j].CategoryName = cat.Name
				}
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := []domain.AnomalyResult{}
	for i, cat := range categories {
		found := results[i]
		if threshold, ok := thresholds[cat.ID]; ok {
			found = append(found, thresholdAlerts(byCategory[cat.ID], found, threshold, cat.Name)...)
		}
		merged = append(merged, found...)
	}

	SortAnomalies(merged)
	log.Info().Int("anomaly_count", len(merged)).Int("categories", len(categories)).Msg("User detection complete")
	return merged, nil
}

// detectRemote reports ok=false when the remote call failed and local
// detection should run. It only errors when ctx itself is done.
func (a *UserAggregator) detectRemote(ctx context.Context, byCategory map[string][]domain.Transaction, thresholds map[string]float64) ([]domain.AnomalyResult, bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.delegate.DetectUser(callCtx, byCategory, thresholds)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Remote user detection failed, using local detection")
		return nil, false, nil
	}
	return resp.Anomalies, true, nil
}

// activeThresholds maps category id to the active alert threshold. Alerts
// are optional, so a read failure only loses them.
func (a *UserAggregator) activeThresholds(ctx context.Context, userID string) map[string]float64 {
	thresholds := map[string]float64{}
	if a.alerts == nil {
		return thresholds
	}
	alerts, err := a.alerts.ListAlerts(ctx, userID)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load category alerts")
		return thresholds
	}
	for _, alert := range alerts {
		if alert.Active && alert.Threshold > 0 {
			thresholds[alert.Category] = alert.Threshold
		}
	}
	return thresholds
}

// thresholdAlerts flags transactions above a user alert that detection did
// not already return.
func thresholdAlerts(txs []domain.Transaction, flagged []domain.AnomalyResult, threshold float64, categoryName string) []domain.AnomalyResult {
	seen := make(map[string]bool, len(flagged))
	for _, a := range flagged {
		seen[a.ID] = true
	}

	var out []domain.AnomalyResult
	for _, tx := range txs {
		amount := tx.AbsValue()
		if seen[tx.ID] || amount <= threshold {
			continue
		}
		severity := domain.SeverityLow
		switch {
		case amount >= 200:
			severity = domain.SeverityHigh
		case amount >= 100:
			severity = domain.SeverityMedium
		}
		if tx.CategoryName == "" {
			tx.CategoryName = categoryName
		}
		out = append(out, domain.AnomalyResult{
			Transaction:     tx,
			AnomalyScore:    domain.NewScore(ThresholdAlertScore),
			Reason:          fmt.Sprintf("This expense exceeds your $%s alert threshold for this category.", formatThreshold(threshold)),
			Severity:        severity,
			DetectionMethod: domain.MethodThresholdAlert,
		})
	}
	return out
}

// SortAnomalies orders merged results in place. Two results tagged exactly
// "isolation_forest" sort ascending by score; every other pair, including two
// local js_isolation_forest results, sorts descending. Invalid scores count
// as 0.
func SortAnomalies(anomalies []domain.AnomalyResult) {
	sort.SliceStable(anomalies, func(i, j int) bool {
		a, b := anomalies[i], anomalies[j]
		if isForest(a) && isForest(b) {
			return a.AnomalyScore.SortValue() < b.AnomalyScore.SortValue()
		}
		return a.AnomalyScore.SortValue() > b.AnomalyScore.SortValue()
	})
}

func isForest(a domain.AnomalyResult) bool {
	return a.Tag() == remoteForestTag
}

// remoteForestTag is the method the remote service reports for its forest.
const remoteForestTag = "isolation_forest"

func formatThreshold(threshold float64) string {
	return strconv.FormatFloat(threshold, 'f', -1, 64)
}
