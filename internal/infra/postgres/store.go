package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store on a pgx connection pool. Amounts and dates
// are read as text so NUMERIC precision is kept.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn and verifies the connection.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const transactionSelect = `
	SELECT t.id, t.user_id, t.category_id, COALESCE(c.name, ''),
	       t.amount::text, COALESCE(to_char(t.date, 'YYYY-MM-DD'), ''),
	       t.type, COALESCE(t.description, '')
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id AND c.user_id = t.user_id`

// ListCategoryTransactions implements store.TransactionStore.
func (s *Store) ListCategoryTransactions(ctx context.Context, userID, categoryID string) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, transactionSelect+`
	WHERE t.user_id = $1 AND t.category_id = $2 AND t.type = 'expense'
	ORDER BY t.date, t.id`, userID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("ListCategoryTransactions: query: %w", err)
	}
	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("ListCategoryTransactions: %w", err)
	}
	return txs, nil
}

// ListExpenseTransactions implements store.TransactionStore.
func (s *Store) ListExpenseTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, transactionSelect+`
	WHERE t.user_id = $1 AND t.type = 'expense'
	ORDER BY t.category_id, t.date, t.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListExpenseTransactions: query: %w", err)
	}
	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("ListExpenseTransactions: %w", err)
	}
	return txs, nil
}

func scanTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var amount *string
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Category, &tx.CategoryName, &amount, &tx.Date, &tx.Type, &tx.Description); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if amount != nil {
			tx.Amount = domain.ParseAmount(*amount)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return txs, nil
}

// ListCategories implements store.TransactionStore.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	rows, err := s.pool.Query(ctx, `
	SELECT id, user_id, name FROM categories
	WHERE user_id = $1 AND COALESCE(is_active, TRUE)
	ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: query: %w", err)
	}

	cats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Category, error) {
		var c domain.Category
		err := row.Scan(&c.ID, &c.UserID, &c.Name)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	return cats, nil
}

// ListAlerts implements store.AlertStore.
func (s *Store) ListAlerts(ctx context.Context, userID string) ([]domain.CategoryAlert, error) {
	rows, err := s.pool.Query(ctx, `
	SELECT user_id, category, threshold, active, updated_at FROM category_alerts
	WHERE user_id = $1
	ORDER BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListAlerts: query: %w", err)
	}

	alerts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CategoryAlert, error) {
		var a domain.CategoryAlert
		err := row.Scan(&a.UserID, &a.Category, &a.Threshold, &a.Active, &a.UpdatedAt)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("ListAlerts: %w", err)
	}
	return alerts, nil
}

// UpsertAlert implements store.AlertStore.
func (s *Store) UpsertAlert(ctx context.Context, alert domain.CategoryAlert) error {
	updated := alert.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
	INSERT INTO category_alerts (user_id, category, threshold, active, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (user_id, category)
	DO UPDATE SET threshold = EXCLUDED.threshold, active = EXCLUDED.active, updated_at = EXCLUDED.updated_at`,
		alert.UserID, alert.Category, alert.Threshold, alert.Active, updated.UTC())
	if err != nil {
		return fmt.Errorf("UpsertAlert: exec: %w", err)
	}
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
