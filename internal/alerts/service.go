package alerts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/logger"
	"github.com/dvloznov/spend-anomaly/internal/store"
)

// ErrInvalidAlert is returned when an alert is missing a category or has a
// non-positive threshold.
var ErrInvalidAlert = errors.New("invalid alert")

// Service manages category alerts and applies user feedback to them.
type Service struct {
	store store.AlertStore
	now   func() time.Time
}

// NewService creates an alert service.
func NewService(alertStore store.AlertStore) *Service {
	return &Service{store: alertStore, now: time.Now}
}

// List returns the user's alerts.
func (s *Service) List(ctx context.Context, userID string) ([]domain.CategoryAlert, error) {
	alerts, err := s.store.ListAlerts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	if alerts == nil {
		alerts = []domain.CategoryAlert{}
	}
	return alerts, nil
}

// Set creates or replaces the alert for alert.Category.
func (s *Service) Set(ctx context.Context, alert domain.CategoryAlert) (*domain.CategoryAlert, error) {
	alert.Category = strings.TrimSpace(alert.Category)
	if alert.UserID == "" || alert.Category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidAlert)
	}
	if alert.Threshold <= 0 || math.IsNaN(alert.Threshold) || math.IsInf(alert.Threshold, 0) {
		return nil, fmt.Errorf("%w: threshold must be positive", ErrInvalidAlert)
	}
	alert.UpdatedAt = s.now().UTC()

	if err := s.store.UpsertAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("saving alert: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("user_id", alert.UserID).
		Str("category", alert.Category).
		Float64("threshold", alert.Threshold).
		Bool("active", alert.Active).
		Msg("Category alert saved")
	return &alert, nil
}

// ApplyFeedback records the user's verdict on a flagged transaction.
// Marking a transaction normal raises an existing alert below its amount to
// the next multiple of 5. Requesting an alert upserts an active one.
func (s *Service) ApplyFeedback(ctx context.Context, fb domain.Feedback) (*domain.FeedbackResult, error) {
	if fb.UserID == "" || strings.TrimSpace(fb.Category) == "" {
		return nil, fmt.Errorf("%w: feedback requires user and category", ErrInvalidAlert)
	}
	log := logger.FromContext(ctx).With().
		Str("user_id", fb.UserID).
		Str("category", fb.Category).
		Str("transaction_id", fb.TransactionID).
		Logger()

	result := &domain.FeedbackResult{}

	if fb.IsNormal {
		existing, err := s.find(ctx, fb.UserID, fb.Category)
		if err != nil {
			return nil, err
		}
		amount := math.Abs(fb.Amount)
		if existing != nil && amount > existing.Threshold {
			raised := *existing
			raised.Threshold = RoundUpToFive(amount)
			raised.UpdatedAt = s.now().UTC()
			if err := s.store.UpsertAlert(ctx, raised); err != nil {
				return nil, fmt.Errorf("raising alert threshold: %w", err)
			}
			result.ThresholdRaised = true
			result.NewThreshold = raised.Threshold
			log.Info().
				Float64("old_threshold", existing.Threshold).
				Float64("new_threshold", raised.Threshold).
				Msg("Raised alert threshold from feedback")
		}
	}

	if fb.SetAlert && fb.AlertThreshold > 0 {
		if _, err := s.Set(ctx, domain.CategoryAlert{
			UserID:    fb.UserID,
			Category:  fb.Category,
			Threshold: fb.AlertThreshold,
			Active:    true,
		}); err != nil {
			return nil, err
		}
		result.AlertSet = true
	}

	return result, nil
}

func (s *Service) find(ctx context.Context, userID, category string) (*domain.CategoryAlert, error) {
	alerts, err := s.store.ListAlerts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	for _, a := range alerts {
		if a.Category == category {
			return &a, nil
		}
	}
	return nil, nil
}

// RoundUpToFive rounds amount up to the nearest multiple of 5.
func RoundUpToFive(amount float64) float64 {
	return math.Ceil(amount/5) * 5
}
