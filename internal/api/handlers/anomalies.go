package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/spend-anomaly/internal/api/middleware"
	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/insights"
)

// Detector is the anomaly engine surface served over HTTP.
type Detector interface {
	DetectCategory(ctx context.Context, userID, categoryID string) (*domain.DetectionOutcome, error)
	DetectUser(ctx context.Context, userID string) ([]domain.AnomalyResult, error)
	Check(ctx context.Context, userID string, tx domain.Transaction) (*domain.Verdict, error)
}

// Summarizer writes a narrative over a user's anomalies.
type Summarizer interface {
	Enabled() bool
	Summarize(ctx context.Context, userID string, anomalies []domain.AnomalyResult) (*insights.Summary, error)
}

// AnomaliesHandler handles anomaly detection endpoints.
type AnomaliesHandler struct {
	engine   Detector
	narrator Summarizer
	log      zerolog.Logger
}

// NewAnomaliesHandler creates a new anomalies handler. narrator may be nil.
func NewAnomaliesHandler(engine Detector, narrator Summarizer, log zerolog.Logger) *AnomaliesHandler {
	return &AnomaliesHandler{
		engine:   engine,
		narrator: narrator,
		log:      log,
	}
}

// DetectUser handles GET /api/anomalies
func (h *AnomaliesHandler) DetectUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	anomalies, err := h.engine.DetectUser(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to detect anomalies")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to detect anomalies")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"anomalies": anomalies,
		"count":     len(anomalies),
	})
}

// DetectCategory handles GET /api/anomalies/category/{categoryId}
func (h *AnomaliesHandler) DetectCategory(w http.ResponseWriter, r *http.Request, categoryID string) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	outcome, err := h.engine.DetectCategory(ctx, userID, categoryID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Str("category_id", categoryID).Msg("Failed to detect category anomalies")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to detect anomalies")
		return
	}

	resp := map[string]interface{}{
		"anomalies":  outcome.Anomalies,
		"count":      len(outcome.Anomalies),
		"categoryId": categoryID,
	}
	if outcome.Message != "" {
		resp["message"] = outcome.Message
	}
	if outcome.Method != "" {
		resp["method"] = outcome.Method
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// Check handles POST /api/anomalies/check
func (h *AnomaliesHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	var tx domain.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	tx.Category = strings.TrimSpace(tx.Category)
	if tx.Category == "" {
		middleware.WriteError(w, http.StatusBadRequest, "category is required")
		return
	}
	if !tx.Amount.Valid {
		middleware.WriteError(w, http.StatusBadRequest, "amount must be a number")
		return
	}
	tx.UserID = userID
	if tx.Type == "" {
		tx.Type = domain.TypeExpense
	}

	verdict, err := h.engine.Check(ctx, userID, tx)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to check transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to check transaction")
		return
	}

	if verdict == nil {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"verdict": nil})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, verdict)
}

// Summary handles GET /api/anomalies/summary
func (h *AnomaliesHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if h.narrator == nil || !h.narrator.Enabled() {
		middleware.WriteError(w, http.StatusNotImplemented, "Summaries are not configured")
		return
	}

	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	anomalies, err := h.engine.DetectUser(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to detect anomalies")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to detect anomalies")
		return
	}

	summary, err := h.narrator.Summarize(ctx, userID, anomalies)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, insights.ErrDisabled) {
			status = http.StatusNotImplemented
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to summarize anomalies")
		middleware.WriteError(w, status, "Failed to summarize anomalies")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, summary)
}
