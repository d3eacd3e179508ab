package bigquery

import (
	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/spend-anomaly/internal/domain"
)

type CategoryRow struct {
	CategoryID string            `bigquery:"category_id"` // REQUIRED
	UserID     string            `bigquery:"user_id"`     // REQUIRED
	Name       string            `bigquery:"name"`        // REQUIRED
	IsActive   bigquery.NullBool `bigquery:"is_active"`   // NULLABLE

	CreatedTS bigquery.NullTimestamp `bigquery:"created_ts"` // NULLABLE (defaults to CURRENT_TIMESTAMP())
}

func (r *CategoryRow) ToDomain() domain.Category {
	return domain.Category{ID: r.CategoryID, UserID: r.UserID, Name: r.Name}
}
