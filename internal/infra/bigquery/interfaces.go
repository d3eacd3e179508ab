package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/store"
)

var _ store.Store = (*BigQueryRepository)(nil)

// BigQueryRepository is the BigQuery implementation of store.Store. It holds
// a shared client to avoid creating a new connection for each operation.
type BigQueryRepository struct {
	client  *bigquery.Client
	dataset Dataset
}

// NewBigQueryRepository creates a repository over project.dataset.
func NewBigQueryRepository(ctx context.Context, projectID, datasetID string) (*BigQueryRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRepository: creating client: %w", err)
	}
	return &BigQueryRepository{
		client:  client,
		dataset: Dataset{Project: projectID, Name: datasetID},
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ListCategoryTransactions implements store.TransactionStore.
func (r *BigQueryRepository) ListCategoryTransactions(ctx context.Context, userID, categoryID string) ([]domain.Transaction, error) {
	rows, err := ListCategoryTransactionsWithClient(ctx, r.client, r.dataset, userID, categoryID)
	if err != nil {
		return nil, err
	}
	return transactionsToDomain(rows), nil
}

// ListExpenseTransactions implements store.TransactionStore.
func (r *BigQueryRepository) ListExpenseTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := ListExpenseTransactionsWithClient(ctx, r.client, r.dataset, userID)
	if err != nil {
		return nil, err
	}
	return transactionsToDomain(rows), nil
}

// ListCategories implements store.TransactionStore.
func (r *BigQueryRepository) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	rows, err := ListCategoriesWithClient(ctx, r.client, r.dataset, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// ListAlerts implements store.AlertStore.
func (r *BigQueryRepository) ListAlerts(ctx context.Context, userID string) ([]domain.CategoryAlert, error) {
	rows, err := ListAlertsWithClient(ctx, r.client, r.dataset, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CategoryAlert, len(rows))
	for i, row := range rows {
		out[i] = row.ToDomain()
	}
	return out, nil
}

// UpsertAlert implements store.AlertStore.
func (r *BigQueryRepository) UpsertAlert(ctx context.Context, alert domain.CategoryAlert) error {
	return UpsertAlertWithClient(ctx, r.client, r.dataset, AlertRowFromDomain(alert, time.Now()))
}

func transactionsToDomain(rows []*TransactionRow) []domain.Transaction {
	out := make([]domain.Transaction, len(rows))
	for i, row := range rows {
		out[i] = row.ToDomain()
	}
	return out
}
