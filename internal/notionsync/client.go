package notionsync

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jomei/notionapi"
)

// PageService is the part of the Notion API the mirror needs.
type PageService interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// Client talks to Notion with the SDK. Every call is bounded by the HTTP
// client timeout.
type Client struct {
	api *notionapi.Client
}

// NewClient creates a Client for an integration token.
func NewClient(token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		api: notionapi.NewClient(
			notionapi.Token(token),
			notionapi.WithHTTPClient(&http.Client{Timeout: timeout}),
		),
	}
}

// CreatePage adds a page to the database.
func (c *Client) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	})
	if err != nil {
		return nil, fmt.Errorf("notionsync.CreatePage: database %s: %w", databaseID, err)
	}
	return page, nil
}

func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(databaseID), req)
	if err != nil {
		return nil, fmt.Errorf("notionsync.QueryDatabase: database %s: %w", databaseID, err)
	}
	return resp, nil
}

var _ PageService = (*Client)(nil)
