package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types stored alongside each record.
const (
	TypeExpense = "expense"
	TypeRevenue = "revenue"
)

// Amounts go over the wire as JSON numbers, matching the detection service.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// dateLayouts are tried in order when parsing Transaction.Date.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// Transaction is a read-only record owned by the transaction store.
// Amount stays invalid when the stored value could not be parsed, and Date
// keeps the raw stored string so that unparseable dates survive to the
// feature extractor.
type Transaction struct {
	ID           string              `json:"id" yaml:"id"`
	UserID       string              `json:"userId,omitempty" yaml:"user_id"`
	Amount       decimal.NullDecimal `json:"amount" yaml:"-"`
	Category     string              `json:"category" yaml:"category"`
	CategoryName string              `json:"categoryName,omitempty" yaml:"category_name"`
	Date         string              `json:"date" yaml:"date"`
	Type         string              `json:"type" yaml:"type"`
	Description  string              `json:"description,omitempty" yaml:"description"`
}

// ParseAmount builds a NullDecimal from a raw stored value. Anything that is
// not a decimal number yields an invalid amount.
func ParseAmount(raw string) decimal.NullDecimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// Value returns the amount as a float, or 0 when the amount is invalid.
func (t Transaction) Value() float64 {
	if !t.Amount.Valid {
		return 0
	}
	return t.Amount.Decimal.InexactFloat64()
}

// AbsValue returns |amount|, or 0 when the amount is invalid.
func (t Transaction) AbsValue() float64 {
	if !t.Amount.Valid {
		return 0
	}
	return t.Amount.Decimal.Abs().InexactFloat64()
}

// Time parses Date. The second result is false when no known layout matches.
func (t Transaction) Time() (time.Time, bool) {
	raw := strings.TrimSpace(t.Date)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// IsExpense reports whether the record is an expense.
func (t Transaction) IsExpense() bool {
	return t.Type == TypeExpense
}

// Category is a user's spending category.
type Category struct {
	ID     string `json:"id" yaml:"id"`
	UserID string `json:"userId,omitempty" yaml:"user_id"`
	Name   string `json:"name" yaml:"name"`
}

// DisplayCategory returns the category id with its first letter upper-cased.
func DisplayCategory(categoryID string) string {
	if categoryID == "" {
		return ""
	}
	return strings.ToUpper(categoryID[:1]) + categoryID[1:]
}
