package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const transactionColumns = `
			transaction_id,
			user_id,
			category_id,
			category_name,
			transaction_date,
			amount,
			type,
			description,
			created_ts`

// ListCategoryTransactionsWithClient returns the user's expenses in one
// category ordered by transaction_date.
func ListCategoryTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID, categoryID string) ([]*TransactionRow, error) {
	q := client.Query(`
		SELECT` + transactionColumns + `
		FROM ` + ds.table(transactionsTable) + `
		WHERE user_id = @user_id
		  AND category_id = @category_id
		  AND type = 'expense'
		ORDER BY transaction_date, transaction_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "category_id", Value: categoryID},
	}

	rows, err := readTransactions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ListCategoryTransactionsWithClient: %w", err)
	}
	return rows, nil
}

// ListExpenseTransactionsWithClient returns every expense of the user.
func ListExpenseTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string) ([]*TransactionRow, error) {
	q := client.Query(`
		SELECT` + transactionColumns + `
		FROM ` + ds.table(transactionsTable) + `
		WHERE user_id = @user_id
		  AND type = 'expense'
		ORDER BY category_id, transaction_date, transaction_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	rows, err := readTransactions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ListExpenseTransactionsWithClient: %w", err)
	}
	return rows, nil
}

func readTransactions(ctx context.Context, q *bigquery.Query) ([]*TransactionRow, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
