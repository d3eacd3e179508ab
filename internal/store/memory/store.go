package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/store"
	"gopkg.in/yaml.v3"
)

// Store is an in-memory implementation of store.Store.
// It is safe for concurrent use and is meant for local runs and tests.
type Store struct {
	mu           sync.RWMutex
	transactions map[string][]domain.Transaction
	categories   map[string][]domain.Category
	alerts       map[string]map[string]domain.CategoryAlert
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		transactions: make(map[string][]domain.Transaction),
		categories:   make(map[string][]domain.Category),
		alerts:       make(map[string]map[string]domain.CategoryAlert),
	}
}

// AddTransactions appends transactions to the owning user's ledger.
func (s *Store) AddTransactions(txs ...domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range txs {
		s.transactions[tx.UserID] = append(s.transactions[tx.UserID], tx)
	}
}

// AddCategories registers categories for their users.
func (s *Store) AddCategories(cats ...domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range cats {
		s.categories[c.UserID] = append(s.categories[c.UserID], c)
	}
}

// ListCategoryTransactions implements store.TransactionStore.
func (s *Store) ListCategoryTransactions(ctx context.Context, userID, categoryID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for _, tx := range s.transactions[userID] {
		if tx.IsExpense() && tx.Category == categoryID {
			out = append(out, tx)
		}
	}
	sortByDate(out)
	return out, nil
}

// ListExpenseTransactions implements store.TransactionStore.
func (s *Store) ListExpenseTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for _, tx := range s.transactions[userID] {
		if tx.IsExpense() {
			out = append(out, tx)
		}
	}
	return out, nil
}

// ListCategories implements store.TransactionStore.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, len(s.categories[userID]))
	copy(out, s.categories[userID])
	return out, nil
}

// ListAlerts implements store.AlertStore.
func (s *Store) ListAlerts(ctx context.Context, userID string) ([]domain.CategoryAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CategoryAlert, 0, len(s.alerts[userID]))
	for _, a := range s.alerts[userID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// UpsertAlert implements store.AlertStore.
func (s *Store) UpsertAlert(ctx context.Context, alert domain.CategoryAlert) error {
	if alert.UserID == "" || alert.Category == "" {
		return fmt.Errorf("alert requires user and category")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.alerts[alert.UserID] == nil {
		s.alerts[alert.UserID] = make(map[string]domain.CategoryAlert)
	}
	if alert.UpdatedAt.IsZero() {
		alert.UpdatedAt = time.Now()
	}
	s.alerts[alert.UserID][alert.Category] = alert
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return nil
}

// sortByDate orders transactions oldest first; unparseable dates sort last.
func sortByDate(txs []domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		ti, okI := txs[i].Time()
		tj, okJ := txs[j].Time()
		if okI != okJ {
			return okI
		}
		return ti.Before(tj)
	})
}

// fixtureFile is the YAML layout accepted by LoadFile.
type fixtureFile struct {
	Categories   []domain.Category      `yaml:"categories"`
	Alerts       []domain.CategoryAlert `yaml:"alerts"`
	Transactions []fixtureTransaction   `yaml:"transactions"`
}

type fixtureTransaction struct {
	domain.Transaction `yaml:",inline"`
	Amount             string `yaml:"amount"`
}

// LoadFile reads YAML fixtures into a new store.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures: %w", err)
	}
	return Load(data)
}

// Load parses YAML fixtures into a new store. Transactions without a type
// are treated as expenses.
func Load(data []byte) (*Store, error) {
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixtures: %w", err)
	}

	s := NewStore()
	s.AddCategories(f.Categories...)
	for _, ft := range f.Transactions {
		tx := ft.Transaction
		tx.Amount = domain.ParseAmount(ft.Amount)
		if tx.Type == "" {
			tx.Type = domain.TypeExpense
		}
		s.AddTransactions(tx)
	}
	for _, a := range f.Alerts {
		if err := s.UpsertAlert(context.Background(), a); err != nil {
			return nil, fmt.Errorf("loading alert %s/%s: %w", a.UserID, a.Category, err)
		}
	}
	return s, nil
}

// ParseTransaction decodes a single YAML transaction, as used by `cli check`.
func ParseTransaction(data []byte) (domain.Transaction, error) {
	var ft fixtureTransaction
	if err := yaml.Unmarshal(data, &ft); err != nil {
		return domain.Transaction{}, fmt.Errorf("parsing transaction: %w", err)
	}
	tx := ft.Transaction
	tx.Amount = domain.ParseAmount(ft.Amount)
	if tx.Type == "" {
		tx.Type = domain.TypeExpense
	}
	return tx, nil
}

var _ store.Store = (*Store)(nil)
