package anomaly

import (
	"context"
	"time"

	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/metrics"
	"github.com/dvloznov/spend-anomaly/internal/store"
)

// Default remote call timeouts.
const (
	DefaultCategoryTimeout = 10 * time.Second
	DefaultUserTimeout     = 15 * time.Second
)

// Options configures an Engine. The zero value runs fully local detection
// with the default isolation forest.
type Options struct {
	Delegate        Delegate
	Model           OutlierModel
	Alerts          store.AlertStore
	CategoryTimeout time.Duration
	UserTimeout     time.Duration
	Concurrency     int
	Now             func() time.Time
}

// Engine is the public surface of the anomaly detector. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	category *CategoryDetector
	user     *UserAggregator
	checker  *Checker
}

// NewEngine wires the detectors over txStore.
func NewEngine(txStore store.TransactionStore, opts Options) *Engine {
	if opts.CategoryTimeout <= 0 {
		opts.CategoryTimeout = DefaultCategoryTimeout
	}
	if opts.UserTimeout <= 0 {
		opts.UserTimeout = DefaultUserTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	category := NewCategoryDetector(txStore, opts.Delegate, opts.Model, opts.CategoryTimeout, opts.Now)
	return &Engine{
		category: category,
		user:     NewUserAggregator(txStore, opts.Alerts, category, opts.Delegate, opts.UserTimeout, opts.Concurrency),
		checker:  NewChecker(txStore),
	}
}

// DetectCategory runs the tier chain for one category.
func (e *Engine) DetectCategory(ctx context.Context, userID, categoryID string) (*domain.DetectionOutcome, error) {
	defer observe("category", time.Now())

	outcome, err := e.category.Detect(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	countFlagged(outcome.Anomalies)
	return outcome, nil
}

// DetectUser aggregates anomalies across all of the user's categories.
func (e *Engine) DetectUser(ctx context.Context, userID string) ([]domain.AnomalyResult, error) {
	defer observe("user", time.Now())

	anomalies, err := e.user.Detect(ctx, userID)
	if err != nil {
		return nil, err
	}
	countFlagged(anomalies)
	return anomalies, nil
}

// Check scores one transaction. A nil verdict means there is not enough
// history to judge it.
func (e *Engine) Check(ctx context.Context, userID string, tx domain.Transaction) (*domain.Verdict, error) {
	defer observe("check", time.Now())
	return e.checker.Check(ctx, userID, tx)
}

func observe(entry string, start time.Time) {
	metrics.Detections.WithLabelValues(entry).Inc()
	metrics.DetectionDuration.WithLabelValues(entry).Observe(time.Since(start).Seconds())
}

func countFlagged(anomalies []domain.AnomalyResult) {
	for _, a := range anomalies {
		tag := a.Tag()
		if tag == "" {
			tag = "unknown"
		}
		metrics.Flagged.WithLabelValues(tag).Inc()
	}
}
