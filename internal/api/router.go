package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/spend-anomaly/internal/api/handlers"
	"github.com/dvloznov/spend-anomaly/internal/api/middleware"
)

// Handlers groups the endpoint handlers served by NewRouter.
type Handlers struct {
	Anomalies *handlers.AnomaliesHandler
	Alerts    *handlers.AlertsHandler
	Jobs      *handlers.JobsHandler
}

// NewRouter registers every route and wraps the mux in the middleware chain.
// allowedOrigins feeds the CORS middleware.
func NewRouter(h Handlers, allowedOrigins []string, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Anomaly endpoints
	mux.HandleFunc("/api/anomalies", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Anomalies.DetectUser(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/anomalies/category/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract category ID from path
			categoryID := strings.TrimPrefix(r.URL.Path, "/api/anomalies/category/")
			if categoryID == "" || strings.Contains(categoryID, "/") {
				middleware.WriteError(w, http.StatusBadRequest, "Category ID is required")
				return
			}
			h.Anomalies.DetectCategory(w, r, categoryID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/anomalies/check", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Anomalies.Check(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/anomalies/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Anomalies.Summary(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Alert endpoints
	mux.HandleFunc("/api/alerts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Alerts.ListAlerts(w, r)
		case http.MethodPut:
			h.Alerts.SetAlert(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/feedback", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Alerts.Feedback(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Scan and job endpoints
	mux.HandleFunc("/api/scans", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Jobs.EnqueueScan(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Jobs.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			h.Jobs.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	mux.Handle("/metrics", promhttp.Handler())

	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(allowedOrigins)(
					middleware.Auth(mux),
				),
			),
		),
	)
}
