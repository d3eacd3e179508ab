package notionsync

import (
	"context"
	"errors"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func existingPage(txID string) notionapi.Page {
	return notionapi.Page{Properties: notionapi.Properties{
		PropTransactionID: &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: txID}}},
	}}
}

func TestDatabase_PublishedIDs(t *testing.T) {
	var requests []*notionapi.DatabaseQueryRequest
	db := &Database{
		id: "db-1",
		query: func(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			assert.Equal(t, notionapi.DatabaseID("db-1"), id)
			requests = append(requests, req)
			if req.StartCursor == "" {
				return &notionapi.DatabaseQueryResponse{
					Results:    []notionapi.Page{existingPage("t1"), {Properties: notionapi.Properties{}}},
					HasMore:    true,
					NextCursor: "c2",
				}, nil
			}
			return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{existingPage("t2")}}, nil
		},
	}

	ids, err := db.PublishedIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"t1": true, "t2": true}, ids)

	require.Len(t, requests, 2)
	assert.Equal(t, notionapi.Cursor("c2"), requests[1].StartCursor)
	assert.Equal(t, queryPageSize, requests[0].PageSize)

	filter, ok := requests[0].Filter.(notionapi.PropertyFilter)
	require.True(t, ok)
	assert.Equal(t, PropUser, filter.Property)
	assert.Equal(t, "u1", filter.RichText.Equals)
}

func TestDatabase_PublishedIDsError(t *testing.T) {
	db := &Database{query: func(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
		return nil, errors.New("unauthorized")
	}}

	_, err := db.PublishedIDs(context.Background(), "u1")
	assert.ErrorContains(t, err, "PublishedIDs")
}

func TestDatabase_AddPage(t *testing.T) {
	var got *notionapi.PageCreateRequest
	db := &Database{
		id: "db-1",
		create: func(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
			got = req
			return &notionapi.Page{ID: "page-9"}, nil
		},
	}

	props := AnomalyToNotionProperties("u1", anomaly("t9", "150"))
	id, err := db.AddPage(context.Background(), props)
	require.NoError(t, err)
	assert.Equal(t, notionapi.ObjectID("page-9"), id)
	assert.Equal(t, notionapi.ParentTypeDatabaseID, got.Parent.Type)
	assert.Equal(t, notionapi.DatabaseID("db-1"), got.Parent.DatabaseID)
	assert.Equal(t, props, got.Properties)
}

func TestExtractTransactionID(t *testing.T) {
	byValue := notionapi.Page{Properties: notionapi.Properties{
		PropTransactionID: notionapi.RichTextProperty{RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: "t5"}}}},
	}}
	assert.Equal(t, "t5", extractTransactionID(byValue))
	assert.Equal(t, "t6", extractTransactionID(existingPage("t6")))
	assert.Empty(t, extractTransactionID(notionapi.Page{}))
}
