package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// ListAlertsWithClient returns every alert of the user ordered by category.
func ListAlertsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string) ([]*AlertRow, error) {
	q := client.Query(`
		SELECT user_id, category, threshold, active, updated_ts
		FROM ` + ds.table(alertsTable) + `
		WHERE user_id = @user_id
		ORDER BY category
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAlertsWithClient: query read: %w", err)
	}

	var rows []*AlertRow
	for {
		var r AlertRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAlertsWithClient: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// UpsertAlertWithClient writes the alert for (user_id, category) with a MERGE.
func UpsertAlertWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *AlertRow) error {
	q := client.Query(`
		MERGE ` + ds.table(alertsTable) + ` T
		USING (SELECT @user_id AS user_id, @category AS category) S
		ON T.user_id = S.user_id AND T.category = S.category
		WHEN MATCHED THEN
		  UPDATE SET threshold = @threshold, active = @active, updated_ts = @updated_ts
		WHEN NOT MATCHED THEN
		  INSERT (user_id, category, threshold, active, updated_ts)
		  VALUES (@user_id, @category, @threshold, @active, @updated_ts)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: row.UserID},
		{Name: "category", Value: row.Category},
		{Name: "threshold", Value: row.Threshold},
		{Name: "active", Value: row.Active},
		{Name: "updated_ts", Value: row.UpdatedTS},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("UpsertAlertWithClient: running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("UpsertAlertWithClient: waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("UpsertAlertWithClient: job failed: %w", err)
	}

	return nil
}
