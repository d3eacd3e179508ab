package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/spend-anomaly/internal/alerts"
	"github.com/dvloznov/spend-anomaly/internal/anomaly"
	"github.com/dvloznov/spend-anomaly/internal/api/handlers"
	"github.com/dvloznov/spend-anomaly/internal/api/middleware"
	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/insights"
	"github.com/dvloznov/spend-anomaly/internal/jobs"
	"github.com/dvloznov/spend-anomaly/internal/jobs/inmemory"
	"github.com/dvloznov/spend-anomaly/internal/store/memory"
)

type staticSummarizer struct {
	text string
}

func (s staticSummarizer) Enabled() bool { return true }

func (s staticSummarizer) Summarize(ctx context.Context, userID string, anomalies []domain.AnomalyResult) (*insights.Summary, error) {
	return &insights.Summary{UserID: userID, Count: len(anomalies), Text: s.text}, nil
}

type testServer struct {
	handler  http.Handler
	jobStore *inmemory.Store
	queue    *inmemory.Queue
}

func newTestServer(t *testing.T, narrator handlers.Summarizer) *testServer {
	t.Helper()

	s := memory.NewStore()
	for i, amount := range []string{"40", "42", "38", "45", "150"} {
		s.AddTransactions(domain.Transaction{
			ID:       fmt.Sprintf("grocery-%d", i),
			UserID:   "u1",
			Amount:   domain.ParseAmount(amount),
			Category: "grocery",
			Date:     fmt.Sprintf("2024-06-%02d", i+1),
			Type:     domain.TypeExpense,
		})
	}
	s.AddCategories(domain.Category{ID: "grocery", UserID: "u1", Name: "Groceries"})

	engine := anomaly.NewEngine(s, anomaly.Options{Alerts: s})
	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(10, 1, jobStore)
	t.Cleanup(func() { _ = queue.Close() })

	log := zerolog.Nop()
	h := NewRouter(Handlers{
		Anomalies: handlers.NewAnomaliesHandler(engine, narrator, log),
		Alerts:    handlers.NewAlertsHandler(alerts.NewService(s), log),
		Jobs:      handlers.NewJobsHandler(jobStore, queue, log),
	}, nil, log)

	return &testServer{handler: h, jobStore: jobStore, queue: queue}
}

func (ts *testServer) do(t *testing.T, method, path, user, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set(middleware.UserIDHeader, user)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestRouter_Anomalies(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, body := ts.do(t, http.MethodGet, "/api/anomalies", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, body = ts.do(t, http.MethodGet, "/api/anomalies/category/grocery", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "grocery", body["categoryId"])
	assert.Equal(t, anomaly.MsgForced, body["message"])
	assert.Equal(t, domain.MethodForced, body["method"])

	rec, body = ts.do(t, http.MethodGet, "/api/anomalies/category/fuel", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, anomaly.MsgNoTransactions, body["message"])

	rec, _ = ts.do(t, http.MethodGet, "/api/anomalies", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = ts.do(t, http.MethodDelete, "/api/anomalies", "u1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_Check(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, body := ts.do(t, http.MethodPost, "/api/anomalies/check", "u1",
		`{"id":"new","category":"grocery","amount":"900","date":"2024-06-20"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["isAnomaly"])
	assert.Equal(t, domain.MethodSlidingWindow, body["method"])

	rec, body = ts.do(t, http.MethodPost, "/api/anomalies/check", "u1",
		`{"id":"new","category":"fuel","amount":900}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "verdict")
	assert.Nil(t, body["verdict"])

	rec, _ = ts.do(t, http.MethodPost, "/api/anomalies/check", "u1", `{"amount":"10"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/api/anomalies/check", "u1", `{"category":"grocery"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/api/anomalies/check", "u1", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_AlertsAndFeedback(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, body := ts.do(t, http.MethodPut, "/api/alerts", "u1", `{"category":"grocery","threshold":60}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["active"])

	rec, _ = ts.do(t, http.MethodPut, "/api/alerts", "u1", `{"category":"grocery","threshold":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = ts.do(t, http.MethodPost, "/api/feedback", "u1",
		`{"transactionId":"grocery-4","category":"grocery","amount":-150,"isNormal":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["thresholdRaised"])
	assert.Equal(t, float64(150), body["newThreshold"])

	rec, body = ts.do(t, http.MethodGet, "/api/alerts", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list, ok := body["alerts"].([]interface{})
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, float64(150), list[0].(map[string]interface{})["threshold"])

	rec, body = ts.do(t, http.MethodGet, "/api/alerts", "u2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["alerts"])
}

func TestRouter_Scans(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, ts.queue.Start(ctx, func(ctx context.Context, job *jobs.DetectUserJob) error {
		job.AnomalyCount = 1
		return nil
	}))

	rec, body := ts.do(t, http.MethodPost, "/api/scans", "u1", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID, _ := body["job_id"].(string)
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		job, err := ts.jobStore.GetJob(context.Background(), jobID)
		return err == nil && job.Status == jobs.JobStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	rec, body = ts.do(t, http.MethodGet, "/api/jobs/"+jobID, "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["anomaly_count"])

	rec, _ = ts.do(t, http.MethodGet, "/api/jobs/"+jobID, "u2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = ts.do(t, http.MethodGet, "/api/jobs", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, body = ts.do(t, http.MethodGet, "/api/jobs", "u2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["count"])
}

func TestRouter_Summary(t *testing.T) {
	rec, _ := newTestServer(t, nil).do(t, http.MethodGet, "/api/anomalies/summary", "u1", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec, body := newTestServer(t, staticSummarizer{text: "One large grocery bill."}).
		do(t, http.MethodGet, "/api/anomalies/summary", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "One large grocery bill.", body["summary"])
	assert.Equal(t, float64(1), body["count"])
}

func TestRouter_PublicEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, body := ts.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, _ = ts.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
