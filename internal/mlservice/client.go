package mlservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/metrics"
)

// ErrUnavailable is returned for any non-success response.
var ErrUnavailable = errors.New("detection service unavailable")

const (
	endpointCategory = "category"
	endpointUser     = "user"
)

// Response is the body returned by both detection endpoints.
type Response struct {
	Anomalies  []domain.AnomalyResult `json:"anomalies"`
	Count      int                    `json:"count,omitempty"`
	CategoryID string                 `json:"categoryId,omitempty"`
	Method     string                 `json:"method,omitempty"`
	Message    string                 `json:"message,omitempty"`
}

type categoryRequest struct {
	Transactions    []domain.Transaction `json:"transactions"`
	AlertThresholds map[string]float64   `json:"alert_thresholds,omitempty"`
}

type userRequest struct {
	TransactionsByCategory map[string][]domain.Transaction `json:"transactions_by_category"`
	AlertThresholds        map[string]float64              `json:"alert_thresholds,omitempty"`
}

// Client talks to the external anomaly detection service.
// Callers bound each call with a context deadline.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL. A non-empty token
// is sent as a bearer Authorization header.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// DetectCategory calls POST /detect-category-anomalies/{categoryId}.
func (c *Client) DetectCategory(ctx context.Context, categoryID string, txs []domain.Transaction) (*Response, error) {
	path := "/detect-category-anomalies/" + url.PathEscape(categoryID)
	return c.post(ctx, endpointCategory, path, categoryRequest{Transactions: txs})
}

// DetectUser calls POST /detect-user-anomalies with every category at once.
func (c *Client) DetectUser(ctx context.Context, byCategory map[string][]domain.Transaction, thresholds map[string]float64) (*Response, error) {
	return c.post(ctx, endpointUser, "/detect-user-anomalies", userRequest{
		TransactionsByCategory: byCategory,
		AlertThresholds:        thresholds,
	})
}

func (c *Client) post(ctx context.Context, endpoint, path string, body interface{}) (*Response, error) {
	resp, err := c.do(ctx, path, body)
	status := "error"
	if err == nil {
		status = "ok"
	}
	metrics.RemoteRequests.WithLabelValues(endpoint, status).Inc()
	return resp, err
}

func (c *Client) do(ctx context.Context, path string, body interface{}) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUnavailable, path, res.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", path, err)
	}
	if out.Anomalies == nil {
		out.Anomalies = []domain.AnomalyResult{}
	}
	return &out, nil
}
