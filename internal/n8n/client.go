// Package n8n is a client for the REST API (v1) of a remote n8n server.
//
// Every failure is an *apperr.Error: an unreachable server yields a
// TransportError, a non-2xx answer an UpstreamError carrying the status code.
package n8n

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
)

const (
	// APIKeyHeader carries the server credential.
	APIKeyHeader = "X-N8N-API-KEY"
	apiPrefix    = "/api/v1"

	DefaultTimeout  = 15 * time.Second
	DefaultPageSize = 100

	maxDetail = 512
)

// serverAssigned are removed from documents before creation.
var serverAssigned = []string{"id", "tags", "active", "createdAt", "updatedAt", "versionId"}

// Page is one page of a workflow listing.
type Page struct {
	Data       []json.RawMessage `json:"data"`
	NextCursor string            `json:"nextCursor"`
}

// Client talks to one server. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping succeeds when a one-item listing succeeds.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.List(ctx, 1, "")
	return err
}

// List returns one page of workflows.
func (c *Client) List(ctx context.Context, limit int, cursor string) (*Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	body, err := c.do(ctx, http.MethodGet, "/workflows?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return parsePage(body), nil
}

// ListAll follows nextCursor until the listing is exhausted.
func (c *Client) ListAll(ctx context.Context, pageSize int) ([]json.RawMessage, error) {
	var (
		all    []json.RawMessage
		cursor string
		seen   = map[string]bool{}
	)
	for {
		page, err := c.List(ctx, pageSize, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Data...)
		if page.NextCursor == "" || seen[page.NextCursor] {
			break
		}
		seen[page.NextCursor] = true
		cursor = page.NextCursor
	}
	if all == nil {
		all = []json.RawMessage{}
	}
	return all, nil
}

// Get returns the remote document with the given id.
func (c *Client) Get(ctx context.Context, remoteID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/workflows/"+url.PathEscape(remoteID), nil)
}

// Create posts doc without its server-assigned fields and returns the
// created workflow, including the id the server assigned.
func (c *Client) Create(ctx context.Context, doc []byte) (json.RawMessage, error) {
	clean, err := StripServerFields(doc)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, "/workflows", clean)
}

// Update replaces the remote workflow with doc.
func (c *Client) Update(ctx context.Context, remoteID string, doc []byte) (json.RawMessage, error) {
	if !gjson.ValidBytes(doc) {
		return nil, apperr.InvalidInput("workflow document is not valid JSON")
	}
	return c.do(ctx, http.MethodPut, "/workflows/"+url.PathEscape(remoteID), doc)
}

func (c *Client) Delete(ctx context.Context, remoteID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/workflows/"+url.PathEscape(remoteID), nil)
	return err
}

func (c *Client) Activate(ctx context.Context, remoteID string) (json.RawMessage, error) {
	return c.setActive(ctx, remoteID, true)
}

func (c *Client) Deactivate(ctx context.Context, remoteID string) (json.RawMessage, error) {
	return c.setActive(ctx, remoteID, false)
}

func (c *Client) setActive(ctx context.Context, remoteID string, active bool) (json.RawMessage, error) {
	body := []byte(fmt.Sprintf(`{"active":%t}`, active))
	return c.do(ctx, http.MethodPatch, "/workflows/"+url.PathEscape(remoteID), body)
}

// parsePage reads a listing leniently: a missing or malformed "data" field
// is an empty page.
func parsePage(body []byte) *Page {
	root := gjson.ParseBytes(body)
	page := &Page{Data: []json.RawMessage{}, NextCursor: root.Get("nextCursor").String()}
	if data := root.Get("data"); data.IsArray() {
		for _, item := range data.Array() {
			page.Data = append(page.Data, json.RawMessage(item.Raw))
		}
	}
	return page
}

// StripServerFields removes the fields a server assigns on creation.
func StripServerFields(doc []byte) ([]byte, error) {
	if !gjson.ValidBytes(doc) {
		return nil, apperr.InvalidInput("workflow document is not valid JSON")
	}
	out := doc
	for _, key := range serverAssigned {
		var err error
		out, err = sjson.DeleteBytes(out, key)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidInput, err, "strip %q", key)
		}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, err, "failed to create request")
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Transport(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Transport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Upstream(resp.StatusCode, detail(resp, payload))
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return json.RawMessage(`{}`), nil
	}
	if !gjson.ValidBytes(payload) {
		return nil, apperr.Upstream(resp.StatusCode, "response is not valid JSON")
	}
	return json.RawMessage(payload), nil
}

func detail(resp *http.Response, payload []byte) string {
	msg := resp.Status
	text := strings.TrimSpace(string(payload))
	if len(text) > maxDetail {
		text = text[:maxDetail]
	}
	if text != "" {
		msg += ": " + text
	}
	return msg
}
