package store

import (
	"context"
	"errors"

	"github.com/dvloznov/spend-anomaly/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// TransactionStore provides read access to a user's transactions and categories.
// Implementations exist for BigQuery, Postgres and memory.
type TransactionStore interface {
	// ListCategoryTransactions returns the user's expense transactions in one
	// category, ordered by date ascending.
	ListCategoryTransactions(ctx context.Context, userID, categoryID string) ([]domain.Transaction, error)

	// ListExpenseTransactions returns all of the user's expense transactions.
	ListExpenseTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)

	// ListCategories returns the user's categories.
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
}

// AlertStore persists per-category spending alerts.
type AlertStore interface {
	// ListAlerts returns every alert the user has configured.
	ListAlerts(ctx context.Context, userID string) ([]domain.CategoryAlert, error)

	// UpsertAlert creates or replaces the alert for (UserID, Category).
	UpsertAlert(ctx context.Context, alert domain.CategoryAlert) error
}

// Store is the full persistence surface used by the binaries.
type Store interface {
	TransactionStore
	AlertStore
	Close() error
}
