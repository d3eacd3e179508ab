package notionsync

import (
	"fmt"
	"math"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/spend-anomaly/internal/domain"
)

// Property names of the anomalies database.
const (
	PropName          = "Name"
	PropTransactionID = "Transaction ID"
	PropUser          = "User"
	PropAmount        = "Amount"
	PropCategory      = "Category"
	PropDate          = "Date"
	PropScore         = "Score"
	PropSeverity      = "Severity"
	PropMethod        = "Method"
	PropReason        = "Reason"
)

// AnomalyToNotionProperties converts a flagged transaction to Notion properties.
// Optional fields are left out when empty.
func AnomalyToNotionProperties(userID string, a domain.AnomalyResult) notionapi.Properties {
	category := a.CategoryName
	if category == "" {
		category = domain.DisplayCategory(a.Category)
	}

	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Title: richText(pageTitle(category, a)),
		},
		PropTransactionID: notionapi.RichTextProperty{
			RichText: richText(a.ID),
		},
		PropUser: notionapi.RichTextProperty{
			RichText: richText(userID),
		},
		PropAmount: notionapi.NumberProperty{
			Number: a.Value(),
		},
	}

	if category != "" {
		props[PropCategory] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: category},
		}
	}

	if ts, ok := a.Time(); ok {
		d := notionapi.Date(ts)
		props[PropDate] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &d},
		}
	}

	if s := a.AnomalyScore; s.Valid && !math.IsInf(s.Value, 0) {
		props[PropScore] = notionapi.NumberProperty{Number: s.Value}
	}

	if a.Severity != "" {
		props[PropSeverity] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: a.Severity},
		}
	}

	if tag := a.Tag(); tag != "" {
		props[PropMethod] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: tag},
		}
	}

	if a.Reason != "" {
		props[PropReason] = notionapi.RichTextProperty{
			RichText: richText(a.Reason),
		}
	}

	return props
}

func pageTitle(category string, a domain.AnomalyResult) string {
	amount := "?"
	if a.Amount.Valid {
		amount = a.Amount.Decimal.Abs().StringFixed(2)
	}
	if category == "" {
		return fmt.Sprintf("$%s", amount)
	}
	return fmt.Sprintf("%s $%s", category, amount)
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: content,
			},
		},
	}
}
