package commerce

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

	"github.com/ventabot/ventabot/internal/domain"
)

const defaultTimeout = 15 * time.Second

// HTTPClientOption configures the HTTP adapter.
type HTTPClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		c.httpClient = httpClient
	}
}

// HTTPClient is the HTTP adapter for the commerce backend API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ API = (*HTTPClient)(nil)

// NewHTTPClient creates a commerce API client.
func NewHTTPClient(baseURL, apiKey string, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) SearchProducts(ctx context.Context, term string) ([]Product, error) {
	var out []Product
	err := c.do(ctx, http.MethodGet, "/products/search?q="+url.QueryEscape(term), nil, &out)
	return out, err
}

func (c *HTTPClient) Product(ctx context.Context, id string) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateOrder(ctx context.Context, clientID string) (*Order, error) {
	var out Order
	body := map[string]string{"client_id": clientID}
	if err := c.do(ctx, http.MethodPost, "/orders", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) AddItem(ctx context.Context, orderID string, item OrderItem) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/items", item, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateItem(ctx context.Context, orderID, productID string, quantity int) (*Order, error) {
	var out Order
	body := map[string]int{"quantity": quantity}
	path := "/orders/" + url.PathEscape(orderID) + "/items/" + url.PathEscape(productID)
	if err := c.do(ctx, http.MethodPut, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) RemoveItem(ctx context.Context, orderID, productID string) (*Order, error) {
	var out Order
	path := "/orders/" + url.PathEscape(orderID) + "/items/" + url.PathEscape(productID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ConfirmOrder(ctx context.Context, orderID, paymentMethod string) (*Order, error) {
	var out Order
	body := map[string]string{"payment_method": paymentMethod}
	if err := c.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/confirm", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CancelOrder(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/cancel", nil, nil)
}

func (c *HTTPClient) Order(ctx context.Context, orderID string) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) OrdersByClient(ctx context.Context, clientID string) ([]Order, error) {
	var out []Order
	err := c.do(ctx, http.MethodGet, "/clients/"+url.PathEscape(clientID)+"/orders", nil, &out)
	return out, err
}

func (c *HTTPClient) ClientByPhone(ctx context.Context, phone string) (*Client, error) {
	var out Client
	if err := c.do(ctx, http.MethodGet, "/clients/by-phone/"+url.PathEscape(phone), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) VerifyPassword(ctx context.Context, clientID, password string) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	body := map[string]string{"password": password}
	err := c.do(ctx, http.MethodPost, "/clients/"+url.PathEscape(clientID)+"/verify-password", body, &out)
	if err != nil {
		return false, err
	}
	return out.Valid, nil
}

func (c *HTTPClient) Register(ctx context.Context, reg Registration) (*Client, error) {
	var out Client
	if err := c.do(ctx, http.MethodPost, "/clients", reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateClient(ctx context.Context, clientID, field, value string) (*Client, error) {
	var out Client
	body := map[string]string{"field": field, "value": value}
	if err := c.do(ctx, http.MethodPatch, "/clients/"+url.PathEscape(clientID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("commerce request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound(fmt.Sprintf("%s %s", method, path))
	case resp.StatusCode >= 400:
		return fmt.Errorf("commerce API status %d: %s", resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
