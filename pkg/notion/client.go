package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	DefaultVersion = "2022-06-28"
)

// Client is a read-only Notion API client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	version    string
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets the transport the bearer token is layered on.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithVersion overrides the Notion-Version header.
func WithVersion(v string) ClientOption {
	return func(c *Client) { c.version = v }
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client authenticated with an integration token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		version: DefaultVersion,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	ctx := context.Background()
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	c.httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	return c
}

type listResponse struct {
	Object     string            `json:"object"`
	Results    []json.RawMessage `json:"results"`
	HasMore    bool              `json:"has_more"`
	NextCursor *string           `json:"next_cursor"`
}

// SearchDatabases returns the databases shared with the integration, in the
// order Notion returns them. Only the first result page is read.
func (c *Client) SearchDatabases(ctx context.Context) ([]Database, error) {
	c.logger.Debug("searching databases")

	body := map[string]any{
		"filter": map[string]string{"property": "object", "value": "database"},
	}
	var resp listResponse
	if err := c.do(ctx, http.MethodPost, "/search", body, &resp); err != nil {
		return nil, err
	}

	dbs := make([]Database, 0, len(resp.Results))
	for _, r := range resp.Results {
		if gjson.GetBytes(r, "object").String() != "database" {
			continue
		}
		var db Database
		if err := json.Unmarshal(r, &db); err != nil {
			return nil, fmt.Errorf("failed to decode database: %w", err)
		}
		dbs = append(dbs, db)
	}

	c.logger.Debug("found databases", "count", len(dbs))
	return dbs, nil
}

// QueryDatabase runs one query against a database and returns the first page
// of results. Callers that want more pages pass StartCursor themselves.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, q DatabaseQuery) ([]Page, error) {
	c.logger.Debug("querying database", "id", databaseID, "page_size", q.PageSize)

	var resp listResponse
	path := "/databases/" + url.PathEscape(databaseID) + "/query"
	if err := c.do(ctx, http.MethodPost, path, q, &resp); err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(resp.Results))
	for _, r := range resp.Results {
		var p Page
		if err := json.Unmarshal(r, &p); err != nil {
			return nil, fmt.Errorf("failed to decode page: %w", err)
		}
		pages = append(pages, p)
	}

	c.logger.Debug("queried database", "id", databaseID, "count", len(pages), "has_more", resp.HasMore)
	return pages, nil
}

// GetPage retrieves a single page by id.
func (c *Client) GetPage(ctx context.Context, pageID string) (*Page, error) {
	c.logger.Debug("fetching page", "id", pageID)

	var p Page
	if err := c.do(ctx, http.MethodGet, "/pages/"+url.PathEscape(pageID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}
