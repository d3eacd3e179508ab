package anomaly

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/logger"
	"github.com/dvloznov/spend-anomaly/internal/mlservice"
	"github.com/dvloznov/spend-anomaly/internal/store"
)

// Outcome messages.
const (
	MsgNoTransactions   = "No transactions found for this category"
	MsgForced           = "Forced anomaly detection complete"
	MsgDirect           = "Direct anomaly detection complete"
	MsgInsufficientData = "Not enough transaction data for anomaly detection"
)

// Delegate is the remote detection service. *mlservice.Client satisfies it.
type Delegate interface {
	DetectCategory(ctx context.Context, categoryID string, txs []domain.Transaction) (*mlservice.Response, error)
	DetectUser(ctx context.Context, byCategory map[string][]domain.Transaction, thresholds map[string]float64) (*mlservice.Response, error)
}

// TierState is shared by the tiers of one category detection.
type TierState struct {
	UserID       string
	CategoryID   string
	Transactions []domain.Transaction
	Now          time.Time
}

// Tier is one step of the fallback chain. A tier either resolves with an
// outcome, falls through by returning (nil, nil), or aborts the chain with
// an error. Only store failures and context cancellation abort.
type Tier interface {
	Name() string
	Attempt(ctx context.Context, state *TierState) (*domain.DetectionOutcome, error)
}

// fetchTier loads the category's transactions.
type fetchTier struct {
	store store.TransactionStore
}

func (t fetchTier) Name() string { return "fetch" }

func (t fetchTier) Attempt(ctx context.Context, state *TierState) (*domain.DetectionOutcome, error) {
	txs, err := t.store.ListCategoryTransactions(ctx, state.UserID, state.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("loading transactions for category %s: %w", state.CategoryID, err)
	}
	state.Transactions = txs
	if len(txs) == 0 {
		return &domain.DetectionOutcome{Anomalies: []domain.AnomalyResult{}, CategoryID: state.CategoryID, Message: MsgNoTransactions}, nil
	}
	return nil, nil
}

// absoluteTier flags every expense at or above ForcedAmount.
type absoluteTier struct{}

func (absoluteTier) Name() string { return "absolute" }

func (absoluteTier) Attempt(ctx context.Context, state *TierState) (*domain.DetectionOutcome, error) {
	var anomalies []domain.AnomalyResult
	for _, tx := range state.Transactions {
		if tx.AbsValue() < ForcedAmount {
			continue
		}
		anomalies = append(anomalies, domain.AnomalyResult{
			Transaction:  tx,
			AnomalyScore: domain.NewScore(ForcedScore),
			Severity:     domain.SeverityHigh,
			Reason:       fmt.Sprintf("This expense of $%s is significantly higher than normal.", tx.Amount.Decimal.Abs().StringFixed(2)),
			Method:       domain.MethodForced,
		})
	}
	if len(anomalies) == 0 {
		return nil, nil
	}
	return &domain.DetectionOutcome{Anomalies: anomalies, CategoryID: state.CategoryID, Message: MsgForced, Method: domain.MethodForced}, nil
}

// relativeTier flags expenses above RelativeFactor times the mean absolute amount.
type relativeTier struct{}

func (relativeTier) Name() string { return "relative" }

func (relativeTier) Attempt(ctx context.Context, state *TierState) (*domain.DetectionOutcome, error) {
	if len(state.Transactions) < MinTransactions {
		return nil, nil
	}

	var sum float64
	for _, tx := range state.Transactions {
		sum += tx.AbsValue()
	}
	avg := sum / float64(len(state.Transactions))
	if avg == 0 {
		return nil, nil
	}

	var anomalies []domain.AnomalyResult
	for _, tx := range state.Transactions {
		amount := tx.AbsValue()
		if amount <= avg*RelativeFactor {
			continue
		}
		severity := domain.SeverityMedium
		if amount > avg*RelativeHighFactor {
			severity = domain.SeverityHigh
		}
		name := tx.CategoryName
		if name == "" {
			name = domain.DisplayCategory(state.CategoryID)
		}
		anomalies = append(anomalies, domain.AnomalyResult{
			Transaction:  tx,
			AnomalyScore: domain.NewScore(RelativeScore),
			Severity:     severity,
			Reason:       squash(fmt.Sprintf("This expense of $%.2f is %.1fx your average %s spending.", amount, amount/avg, name)),
			Method:       domain.MethodDirect,
		})
	}
	if len(anomalies) == 0 {
		return nil, nil
	}
	return &domain.DetectionOutcome{Anomalies: anomalies, CategoryID: state.CategoryID, Message: MsgDirect, Method: domain.MethodDirect}, nil
}

// insufficientTier stops the chain when there is too little history.
type insufficientTier struct{}

func (insufficientTier) Name() string { return "insufficient" }

func (insufficientTier) Attempt(ctx context.Context, state *TierState) (*domain.DetectionOutcome, error) {
	if len(state.Transactions) >= MinTransactions {
		return nil, nil
	}
	return &domain.DetectionOutcome{Anomalies: []domain.AnomalyResult{}, CategoryID: state.CategoryID, Message: MsgInsufficientData}, nil
}

// remoteTier delegates to the external service under a timeout. Any failure
// other than cancellation of the caller's context falls through.
type remoteTier struct {
	delegate Delegate
	timeout  time.Duration
}

func (t remoteTier) Name() string { return "remote" }

func (t remoteTier) Attempt(ctx context.Context, state *TierState) (*domain.DetectionOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.delegate.DetectCategory(callCtx, state.CategoryID, state.Transactions)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("category_id", state.CategoryID).Msg("Remote detection failed, using local tiers")
		return nil, nil
	}

	return &domain.DetectionOutcome{Anomalies: resp.Anomalies, CategoryID: state.CategoryID, Method: resp.Method}, nil
}

// modelTier scores feature vectors with an outlier model and keeps scores
// below ForestThreshold.
type modelTier struct {
	model OutlierModel
}

func (t modelTier) Name() string { return "model" }

func (t modelTier) Attempt(ctx context.Context, state *TierState) (*domain.DetectionOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)

	features := ExtractFeatures(ctx, state.Transactions, state.Now)
	scores, err := t.model.FitScore(ctx, features)
	if err == nil && len(scores) != len(features) {
		err = fmt.Errorf("%w: got %d scores for %d rows", ErrModelScores, len(scores), len(features))
	}
	if err == nil {
		for _, s := range scores {
			if math.IsNaN(s) {
				err = ErrModelScores
				break
			}
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("category_id", state.CategoryID).Msg("Outlier model failed, falling back to sliding window")
		return nil, nil
	}

	name := categoryName(state.Transactions, state.CategoryID)
	anomalies := []domain.AnomalyResult{}
	for i, tx := range state.Transactions {
		if scores[i] >= ForestThreshold {
			continue
		}
		if tx.CategoryName == "" {
			tx.CategoryName = name
		}
		anomalies = append(anomalies, domain.AnomalyResult{
			Transaction:  tx,
			AnomalyScore: domain.NewScore(scores[i]),
			Reason:       Explain(tx, state.Transactions),
			Method:       domain.MethodIsolationForest,
		})
	}
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].AnomalyScore.Value < anomalies[j].AnomalyScore.Value
	})

	return &domain.DetectionOutcome{Anomalies: anomalies, CategoryID: state.CategoryID, Method: domain.MethodIsolationForest}, nil
}

// windowTier is the final fallback and always resolves.
type windowTier struct{}

func (windowTier) Name() string { return "window" }

func (windowTier) Attempt(ctx context.Context, state *TierState) (*domain.DetectionOutcome, error) {
	anomalies := SlidingWindow(state.Transactions)
	name := categoryName(state.Transactions, state.CategoryID)
	for i := range anomalies {
		if anomalies[i].CategoryName == "" {
			anomalies[i].CategoryName = name
		}
	}
	return &domain.DetectionOutcome{Anomalies: anomalies, CategoryID: state.CategoryID, Method: domain.MethodSlidingWindow}, nil
}

// categoryName takes the first name carried by a sibling transaction, else
// the capitalized category id.
func categoryName(txs []domain.Transaction, categoryID string) string {
	for _, tx := range txs {
		if tx.CategoryName != "" && tx.Category == categoryID {
			return tx.CategoryName
		}
	}
	return domain.DisplayCategory(categoryID)
}
