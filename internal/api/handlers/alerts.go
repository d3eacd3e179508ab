package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/spend-anomaly/internal/alerts"
	"github.com/dvloznov/spend-anomaly/internal/api/middleware"
	"github.com/dvloznov/spend-anomaly/internal/domain"
)

// AlertsHandler handles category alert and feedback endpoints.
type AlertsHandler struct {
	service *alerts.Service
	log     zerolog.Logger
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(service *alerts.Service, log zerolog.Logger) *AlertsHandler {
	return &AlertsHandler{
		service: service,
		log:     log,
	}
}

// ListAlerts handles GET /api/alerts
func (h *AlertsHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.service.List(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list alerts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list alerts")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": list,
	})
}

// SetAlert handles PUT /api/alerts
func (h *AlertsHandler) SetAlert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category  string  `json:"category"`
		Threshold float64 `json:"threshold"`
		Active    *bool   `json:"active"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	active := req.Active == nil || *req.Active

	alert, err := h.service.Set(ctx, domain.CategoryAlert{
		UserID:    middleware.UserIDFromContext(ctx),
		Category:  req.Category,
		Threshold: req.Threshold,
		Active:    active,
	})
	if err != nil {
		h.writeServiceError(w, err, "Failed to save alert")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, alert)
}

// Feedback handles POST /api/feedback
func (h *AlertsHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var fb domain.Feedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	fb.UserID = middleware.UserIDFromContext(ctx)

	result, err := h.service.ApplyFeedback(ctx, fb)
	if err != nil {
		h.writeServiceError(w, err, "Failed to apply feedback")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

func (h *AlertsHandler) writeServiceError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, alerts.ErrInvalidAlert) {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Error().Err(err).Msg(message)
	middleware.WriteError(w, http.StatusInternalServerError, message)
}
