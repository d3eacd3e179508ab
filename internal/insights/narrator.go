package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/logger"
)

// ErrDisabled is returned when no generator is configured.
var ErrDisabled = errors.New("narrative summaries are disabled")

// MaxPromptAnomalies caps how many anomalies are described to the model.
const MaxPromptAnomalies = 20

// NoAnomaliesText is returned without calling the model when nothing was flagged.
const NoAnomaliesText = "No unusual spending was found in your recent transactions."

// Summary is a plain-language overview of a user's anomalies.
type Summary struct {
	UserID      string    `json:"userId"`
	Count       int       `json:"count"`
	Text        string    `json:"summary"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Narrator writes summaries with a Generator.
type Narrator struct {
	gen Generator
	now func() time.Time
}

// NewNarrator creates a narrator. A nil generator disables summaries.
func NewNarrator(gen Generator) *Narrator {
	return &Narrator{gen: gen, now: time.Now}
}

// Enabled reports whether Summarize can reach a model.
func (n *Narrator) Enabled() bool {
	return n != nil && n.gen != nil
}

// Summarize describes the anomalies, which are expected in engine order.
func (n *Narrator) Summarize(ctx context.Context, userID string, anomalies []domain.AnomalyResult) (*Summary, error) {
	if !n.Enabled() {
		return nil, ErrDisabled
	}

	summary := &Summary{UserID: userID, Count: len(anomalies), GeneratedAt: n.now().UTC()}
	if len(anomalies) == 0 {
		summary.Text = NoAnomaliesText
		return summary, nil
	}

	text, err := n.gen.Generate(ctx, BuildPrompt(anomalies))
	if err != nil {
		return nil, fmt.Errorf("summarizing anomalies: %w", err)
	}
	summary.Text = strings.TrimSpace(text)

	log := logger.FromContext(ctx)
	log.Info().
		Str("user_id", userID).
		Int("anomaly_count", len(anomalies)).
		Msg("Generated anomaly summary")

	return summary, nil
}

// BuildPrompt lists up to MaxPromptAnomalies anomalies, one per line.
func BuildPrompt(anomalies []domain.AnomalyResult) string {
	var b strings.Builder
	b.WriteString("You are a personal finance assistant.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Summarize the unusual expenses below for the account owner.\n")
	b.WriteString("- Write at most three short paragraphs in plain English.\n")
	b.WriteString("- Mention the categories involved and the largest amounts.\n")
	b.WriteString("- Do NOT invent transactions that are not listed.\n\n")

	fmt.Fprintf(&b, "Flagged expenses (%d total):\n", len(anomalies))
	for i, a := range anomalies {
		if i == MaxPromptAnomalies {
			fmt.Fprintf(&b, "- ... and %d more\n", len(anomalies)-MaxPromptAnomalies)
			break
		}
		b.WriteString("- ")
		b.WriteString(describe(a))
		b.WriteString("\n")
	}
	return b.String()
}

func describe(a domain.AnomalyResult) string {
	category := a.CategoryName
	if category == "" {
		category = domain.DisplayCategory(a.Category)
	}
	if category == "" {
		category = "Uncategorized"
	}

	amount := "unknown amount"
	if a.Amount.Valid {
		amount = "$" + a.Amount.Decimal.Abs().StringFixed(2)
	}

	parts := []string{a.Date, category, amount}
	if a.Severity != "" {
		parts = append(parts, "severity "+a.Severity)
	}
	if a.Description != "" {
		parts = append(parts, fmt.Sprintf("%q", a.Description))
	}
	line := strings.Join(parts, ", ")
	if a.Reason != "" {
		line += ": " + a.Reason
	}
	return line
}
