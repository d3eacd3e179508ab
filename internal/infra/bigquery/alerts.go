package bigquery

import (
	"time"

	"github.com/dvloznov/spend-anomaly/internal/domain"
)

type AlertRow struct {
	UserID    string    `bigquery:"user_id"`    // REQUIRED
	Category  string    `bigquery:"category"`   // REQUIRED
	Threshold float64   `bigquery:"threshold"`  // REQUIRED FLOAT64
	Active    bool      `bigquery:"active"`     // REQUIRED
	UpdatedTS time.Time `bigquery:"updated_ts"` // REQUIRED
}

func (r *AlertRow) ToDomain() domain.CategoryAlert {
	return domain.CategoryAlert{
		UserID:    r.UserID,
		Category:  r.Category,
		Threshold: r.Threshold,
		Active:    r.Active,
		UpdatedAt: r.UpdatedTS,
	}
}

// AlertRowFromDomain builds the row written by UpsertAlert. A zero
// UpdatedAt is stamped with now.
func AlertRowFromDomain(a domain.CategoryAlert, now time.Time) *AlertRow {
	updated := a.UpdatedAt
	if updated.IsZero() {
		updated = now
	}
	return &AlertRow{
		UserID:    a.UserID,
		Category:  a.Category,
		Threshold: a.Threshold,
		Active:    a.Active,
		UpdatedTS: updated.UTC(),
	}
}
