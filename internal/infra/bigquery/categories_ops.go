package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// ListCategoriesWithClient returns the user's active categories ordered by name.
// Rows with a NULL is_active count as active.
func ListCategoriesWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string) ([]CategoryRow, error) {
	q := client.Query(`
		SELECT
		  category_id,
		  user_id,
		  name,
		  is_active,
		  created_ts
		FROM ` + ds.table(categoriesTable) + `
		WHERE user_id = @user_id
		  AND IFNULL(is_active, TRUE)
		ORDER BY name, category_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCategoriesWithClient: query read: %w", err)
	}

	var rows []CategoryRow
	for {
		var r CategoryRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCategoriesWithClient: iter next: %w", err)
		}
		rows = append(rows, r)
	}

	return rows, nil
}
