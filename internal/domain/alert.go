package domain

import "time"

// CategoryAlert is a user-defined spending limit for one category.
type CategoryAlert struct {
	UserID    string    `json:"userId" yaml:"user_id"`
	Category  string    `json:"category" yaml:"category"`
	Threshold float64   `json:"threshold" yaml:"threshold"`
	Active    bool      `json:"active" yaml:"active"`
	UpdatedAt time.Time `json:"updatedAt,omitempty" yaml:"updated_at"`
}

// Feedback is a user's reaction to a flagged transaction.
type Feedback struct {
	UserID         string  `json:"userId"`
	TransactionID  string  `json:"transactionId"`
	Category       string  `json:"category"`
	Amount         float64 `json:"amount"`
	IsNormal       bool    `json:"isNormal"`
	SetAlert       bool    `json:"setAlert"`
	AlertThreshold float64 `json:"alertThreshold,omitempty"`
}

// FeedbackResult reports what changed after applying feedback.
type FeedbackResult struct {
	ThresholdRaised bool    `json:"thresholdRaised"`
	NewThreshold    float64 `json:"newThreshold,omitempty"`
	AlertSet        bool    `json:"alertSet"`
}

// Report is an archived snapshot of a user scan.
type Report struct {
	ReportID    string          `json:"reportId"`
	UserID      string          `json:"userId"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Anomalies   []AnomalyResult `json:"anomalies"`
	Count       int             `json:"count"`
}
