package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/logger"
)

// PublishResult counts what a publish run did.
type PublishResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Publisher creates one Notion page per anomaly. Transactions that already
// have a page are skipped, so repeated runs are idempotent.
type Publisher struct {
	db AnomalyDatabase
}

// NewPublisher creates a publisher writing to db.
func NewPublisher(db AnomalyDatabase) *Publisher {
	return &Publisher{db: db}
}

// Publish creates pages for anomalies not yet in the database. A failed page
// is logged and counted; only a failed database query aborts the run.
func (p *Publisher) Publish(ctx context.Context, userID string, anomalies []domain.AnomalyResult, dryRun bool) (*PublishResult, error) {
	log := logger.FromContext(ctx)

	log.Info().
		Str("user_id", userID).
		Int("anomaly_count", len(anomalies)).
		Bool("dry_run", dryRun).
		Msg("Starting anomaly publish to Notion")

	existing, err := p.db.PublishedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query Notion pages: %w", err)
	}
	if existing == nil {
		existing = map[string]bool{}
	}

	result := &PublishResult{}
	for _, a := range anomalies {
		if a.ID == "" || existing[a.ID] {
			result.Skipped++
			continue
		}

		if dryRun {
			log.Info().Str("transaction_id", a.ID).Msg("[DRY RUN] Would create Notion page")
			result.Created++
			existing[a.ID] = true
			continue
		}

		pageID, err := p.db.AddPage(ctx, AnomalyToNotionProperties(userID, a))
		if err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", a.ID).
				Msg("Failed to create Notion page")
			result.Failed++
			continue
		}
		log.Debug().
			Str("transaction_id", a.ID).
			Str("page_id", string(pageID)).
			Msg("Created Notion page")
		result.Created++
		existing[a.ID] = true
	}

	log.Info().
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Anomaly publish complete")

	return result, nil
}
