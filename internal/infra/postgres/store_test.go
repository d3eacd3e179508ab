package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/spend-anomaly/internal/domain"
)

// newTestStore connects to ANOMALY_TEST_POSTGRES_DSN, or skips.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("ANOMALY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ANOMALY_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	s, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.EnsureSchema(ctx))
	_, err = s.pool.Exec(ctx, `DELETE FROM transactions WHERE user_id = 'pg-test';
		DELETE FROM categories WHERE user_id = 'pg-test';
		DELETE FROM category_alerts WHERE user_id = 'pg-test'`)
	require.NoError(t, err)
	return s
}

func TestStore_Transactions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO categories (id, user_id, name) VALUES ('grocery', 'pg-test', 'Groceries');
		INSERT INTO transactions (id, user_id, category_id, amount, date, type) VALUES
		  ('t2', 'pg-test', 'grocery', 20.10, '2024-02-02', 'expense'),
		  ('t1', 'pg-test', 'grocery', 10.05, '2024-02-01', 'expense'),
		  ('t3', 'pg-test', 'grocery', NULL, '2024-02-03', 'expense'),
		  ('t4', 'pg-test', 'grocery', 99, '2024-02-04', 'revenue')`)
	require.NoError(t, err)

	txs, err := s.ListCategoryTransactions(ctx, "pg-test", "grocery")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "t1", txs[0].ID)
	assert.Equal(t, "2024-02-01", txs[0].Date)
	assert.Equal(t, "Groceries", txs[0].CategoryName)
	assert.Equal(t, "10.05", txs[0].Amount.Decimal.StringFixed(2))
	assert.False(t, txs[2].Amount.Valid)

	all, err := s.ListExpenseTransactions(ctx, "pg-test")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	cats, err := s.ListCategories(ctx, "pg-test")
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{{ID: "grocery", UserID: "pg-test", Name: "Groceries"}}, cats)
}

func TestStore_Alerts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertAlert(ctx, domain.CategoryAlert{UserID: "pg-test", Category: "fuel", Threshold: 40, Active: true}))
	require.NoError(t, s.UpsertAlert(ctx, domain.CategoryAlert{UserID: "pg-test", Category: "fuel", Threshold: 55, Active: true}))

	alerts, err := s.ListAlerts(ctx, "pg-test")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, 55.0, alerts[0].Threshold)
}
