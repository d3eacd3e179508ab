package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/spend-anomaly/internal/domain"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	CategoryID   string              `bigquery:"category_id"`   // REQUIRED
	CategoryName bigquery.NullString `bigquery:"category_name"` // NULLABLE

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount *big.Rat `bigquery:"amount"` // NULLABLE NUMERIC

	Type        string              `bigquery:"type"`        // REQUIRED: expense | revenue
	Description bigquery.NullString `bigquery:"description"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED (default CURRENT_TIMESTAMP)
}

// ToDomain converts the row. A NULL amount becomes an invalid amount and a
// zero date an empty one.
func (r *TransactionRow) ToDomain() domain.Transaction {
	tx := domain.Transaction{
		ID:           r.TransactionID,
		UserID:       r.UserID,
		Category:     r.CategoryID,
		CategoryName: r.CategoryName.StringVal,
		Type:         r.Type,
		Description:  r.Description.StringVal,
	}
	if r.Amount != nil {
		tx.Amount = domain.ParseAmount(r.Amount.FloatString(9))
	}
	if r.TransactionDate.IsValid() {
		tx.Date = r.TransactionDate.String()
	}
	return tx
}
