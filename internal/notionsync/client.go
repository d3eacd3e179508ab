package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

const queryPageSize = 100

type queryFunc func(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)

type createFunc func(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)

// Database talks to a single Notion database through the Notion SDK.
type Database struct {
	id     notionapi.DatabaseID
	query  queryFunc
	create createFunc
}

// NewDatabase connects to databaseID with an integration token.
func NewDatabase(token, databaseID string) *Database {
	client := notionapi.NewClient(notionapi.Token(token))
	return &Database{
		id:     notionapi.DatabaseID(databaseID),
		query:  client.Database.Query,
		create: client.Page.Create,
	}
}

// PublishedIDs pages through the rows whose User property equals userID.
func (d *Database) PublishedIDs(ctx context.Context, userID string) (map[string]bool, error) {
	ids := make(map[string]bool)
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			Filter: notionapi.PropertyFilter{
				Property: PropUser,
				RichText: &notionapi.TextFilterCondition{Equals: userID},
			},
			PageSize:    queryPageSize,
			StartCursor: cursor,
		}

		resp, err := d.query(ctx, d.id, req)
		if err != nil {
			return nil, fmt.Errorf("PublishedIDs: %w", err)
		}

		for _, page := range resp.Results {
			if txID := extractTransactionID(page); txID != "" {
				ids[txID] = true
			}
		}

		if !resp.HasMore || resp.NextCursor == "" {
			return ids, nil
		}
		cursor = resp.NextCursor
	}
}

// AddPage creates a row in the database.
func (d *Database) AddPage(ctx context.Context, properties notionapi.Properties) (notionapi.ObjectID, error) {
	page, err := d.create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: d.id,
		},
		Properties: properties,
	})
	if err != nil {
		return "", fmt.Errorf("AddPage: %w", err)
	}
	return page.ID, nil
}

func extractTransactionID(page notionapi.Page) string {
	switch prop := page.Properties[PropTransactionID].(type) {
	case *notionapi.RichTextProperty:
		return firstPlainText(prop.RichText)
	case notionapi.RichTextProperty:
		return firstPlainText(prop.RichText)
	}
	return ""
}

func firstPlainText(rt []notionapi.RichText) string {
	if len(rt) == 0 {
		return ""
	}
	if rt[0].PlainText != "" {
		return rt[0].PlainText
	}
	if rt[0].Text != nil {
		return rt[0].Text.Content
	}
	return ""
}

var _ AnomalyDatabase = (*Database)(nil)
