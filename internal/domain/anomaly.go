package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Method tags attached to detection results. Callers rely on them to
// interpret AnomalyScore, whose scale differs between tiers.
const (
	MethodForced          = "forced_threshold"
	MethodDirect          = "direct_detection"
	MethodIsolationForest = "js_isolation_forest"
	MethodSlidingWindow   = "js_sliding_window"
	MethodThresholdAlert  = "threshold_alert"
)

// Severity labels.
const (
	SeverityHigh   = "High"
	SeverityMedium = "Medium"
	SeverityLow    = "Low"
)

// Score is an anomaly score that may be missing or non-numeric when it comes
// from the remote detection service.
type Score struct {
	Value float64
	Valid bool
}

// NewScore wraps a computed score.
func NewScore(v float64) Score {
	return Score{Value: v, Valid: !math.IsNaN(v)}
}

// SortValue is the value used when ordering results; invalid scores count as 0.
func (s Score) SortValue() float64 {
	if !s.Valid || math.IsNaN(s.Value) {
		return 0
	}
	return s.Value
}

// MarshalJSON writes null for invalid and non-finite scores.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid || math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// UnmarshalJSON accepts numbers and numeric strings. Any other value leaves
// the score invalid without failing the decode.
func (s *Score) UnmarshalJSON(data []byte) error {
	*s = Score{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*s = NewScore(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			*s = NewScore(f)
		}
	}
	return nil
}

// AnomalyResult is a copy of a flagged transaction with the derived fields.
type AnomalyResult struct {
	Transaction
	AnomalyScore    Score  `json:"anomalyScore"`
	Reason          string `json:"reason,omitempty"`
	Severity        string `json:"severity,omitempty"`
	Method          string `json:"method,omitempty"`
	DetectionMethod string `json:"detection_method,omitempty"`
}

// Tag returns the method tag used for ordering, preferring Method.
func (a AnomalyResult) Tag() string {
	if a.Method != "" {
		return a.Method
	}
	return a.DetectionMethod
}

// DetectionOutcome is the result of detection for one category.
type DetectionOutcome struct {
	Anomalies  []AnomalyResult `json:"anomalies"`
	CategoryID string          `json:"categoryId,omitempty"`
	Message    string          `json:"message,omitempty"`
	Method     string          `json:"method,omitempty"`
}

// Verdict is the single-transaction check result.
type Verdict struct {
	AnomalyResult
	IsAnomaly bool `json:"isAnomaly"`
}

// MarshalJSON writes a clean verdict as the transaction plus isAnomaly, with
// no score, reason or method keys.
func (v Verdict) MarshalJSON() ([]byte, error) {
	if !v.IsAnomaly {
		return json.Marshal(struct {
			Transaction
			IsAnomaly bool `json:"isAnomaly"`
		}{Transaction: v.Transaction})
	}
	type flagged Verdict
	return json.Marshal(flagged(v))
}
