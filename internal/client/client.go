// Package client talks to a todosync server over HTTP and WebSocket.
//
// Client implements engine.API, so an Engine can run against a remote
// server exactly as it runs in process. Status 400 and 404 responses come
// back as todo.ValidationError and todo.NotFoundError; everything else that
// fails, including network errors and 5xx responses, is a
// todo.TransportError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/todosync/internal/engine"
	"github.com/roach88/todosync/internal/server"
	"github.com/roach88/todosync/internal/todo"
)

// DefaultTimeout bounds a single query or mutation request.
const DefaultTimeout = 10 * time.Second

// Client is a remote engine.API.
type Client struct {
	base   *url.URL
	http   *http.Client
	dialer *websocket.Dialer
}

var _ engine.API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for queries and mutations.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithDialer replaces the WebSocket dialer used by Subscribe.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// New creates a Client for the server at baseURL, e.g. http://localhost:4000.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse server url: unsupported scheme %q", u.Scheme)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: DefaultTimeout},
		dialer: websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List returns every item in insertion order.
func (c *Client) List(ctx context.Context) ([]todo.Item, error) {
	var items []todo.Item
	if err := c.do(ctx, "list", http.MethodGet, "api/items", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Search returns the items whose title contains text.
func (c *Client) Search(ctx context.Context, text string) ([]todo.Item, error) {
	var items []todo.Item
	q := url.Values{"search": {text}}
	if err := c.do(ctx, "search", http.MethodGet, "api/items", q, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Get returns one item.
func (c *Client) Get(ctx context.Context, id string) (todo.Item, error) {
	var item todo.Item
	if err := c.do(ctx, "get", http.MethodGet, "api/items/"+url.PathEscape(id), nil, nil, &item); err != nil {
		return todo.Item{}, err
	}
	return item, nil
}

// Create adds an item.
func (c *Client) Create(ctx context.Context, title string) (todo.Item, error) {
	var item todo.Item
	body := map[string]string{"title": title}
	if err := c.do(ctx, "create", http.MethodPost, "api/items", nil, body, &item); err != nil {
		return todo.Item{}, err
	}
	return item, nil
}

// Update patches id. A nil completed leaves the field as is.
func (c *Client) Update(ctx context.Context, id string, completed *bool) (todo.Item, error) {
	var item todo.Item
	body := todo.Patch{Completed: completed}
	if err := c.do(ctx, "update", http.MethodPatch, "api/items/"+url.PathEscape(id), nil, body, &item); err != nil {
		return todo.Item{}, err
	}
	return item, nil
}

// Delete removes id and returns it.
func (c *Client) Delete(ctx context.Context, id string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, "delete", http.MethodDelete, "api/items/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return todo.WrapTransport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return todo.WrapTransport(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// decodeError maps an error response back onto the domain taxonomy.
func decodeError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body server.ErrorBody
	decoded := json.Unmarshal(data, &body) == nil && body.Error.Code != ""

	switch {
	case decoded && resp.StatusCode == http.StatusBadRequest:
		return todo.NewValidationError(body.Error.Field, body.Error.Message)
	case decoded && resp.StatusCode == http.StatusNotFound:
		return todo.NewNotFoundError(body.Error.ID)
	case decoded:
		return &todo.TransportError{Op: op, Err: fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error.Message)}
	default:
		msg := strings.TrimSpace(string(data))
		return &todo.TransportError{Op: op, Err: fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)}
	}
}
