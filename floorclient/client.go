// Package floorclient is the HTTP client for the floor server API.
package floorclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yeremiapane/restaurant-waiter/models"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

func (c *Client) Token() string { return c.token }

func (c *Client) BaseURL() string { return c.baseURL }

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}

// Login exchanges credentials for a session. The returned session carries
// the token; use WithToken to authenticate later calls.
func (c *Client) Login(ctx context.Context, email, password string) (models.Session, error) {
	var session models.Session
	err := c.do(ctx, http.MethodPost, "/login", map[string]string{
		"email":    email,
		"password": password,
	}, &session)
	return session, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
}

func (c *Client) ListTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := c.do(ctx, http.MethodGet, "/api/tables", nil, &tables)
	return tables, err
}

func (c *Client) ListMyTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := c.do(ctx, http.MethodGet, "/api/tables/mine", nil, &tables)
	return tables, err
}

func (c *Client) ClaimTable(ctx context.Context, tableID uint) (models.Table, error) {
	var table models.Table
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/tables/%d/claim", tableID), nil, &table)
	return table, err
}

func (c *Client) ReleaseTable(ctx context.Context, tableID uint) (models.Table, error) {
	var table models.Table
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/tables/%d/release", tableID), nil, &table)
	return table, err
}

type OrderItemRequest struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

func (c *Client) CreateOrder(ctx context.Context, tableID uint, items []OrderItemRequest) (models.Order, error) {
	var order models.Order
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/tables/%d/orders", tableID),
		map[string]interface{}{"items": items}, &order)
	return order, err
}

// MarkItemReady is the kitchen call that triggers the order-ready push.
func (c *Client) MarkItemReady(ctx context.Context, itemID uint) (models.OrderItem, error) {
	var item models.OrderItem
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/kitchen/items/%d/ready", itemID), nil, &item)
	return item, err
}
