package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
)

// AnomalyDatabase is the Notion database anomalies are published to.
type AnomalyDatabase interface {
	// PublishedIDs returns the transaction ids that already have a page for userID.
	PublishedIDs(ctx context.Context, userID string) (map[string]bool, error)

	// AddPage creates one row and returns its page id.
	AddPage(ctx context.Context, properties notionapi.Properties) (notionapi.ObjectID, error)
}
