// Package transport defines the outbound message delivery port. The
// messaging channel (WhatsApp gateway, SMS bridge) sits behind a webhook;
// delivery failures are logged and never affect session state.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ventabot/ventabot/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Sender delivers one reply to a customer key.
type Sender interface {
	Send(ctx context.Context, key, text string) error
}

// WebhookSender POSTs replies to a messaging gateway webhook.
type WebhookSender struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

var _ Sender = (*WebhookSender)(nil)

// WebhookOption configures a WebhookSender.
type WebhookOption func(*WebhookSender)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(s *WebhookSender) { s.httpClient = c }
}

// NewWebhookSender creates a sender posting to the gateway webhook URL.
func NewWebhookSender(url, apiKey string, opts ...WebhookOption) *WebhookSender {
	s := &WebhookSender{
		url:        strings.TrimSuffix(url, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WebhookSender) Send(ctx context.Context, key, text string) error {
	raw, err := json.Marshal(map[string]string{"to": key, "text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal outbound message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.KindTransport, "message delivery failed", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return domain.NewError(domain.KindTransport,
			fmt.Sprintf("gateway returned status %d", resp.StatusCode))
	}
	return nil
}

// LogSender writes replies to the log. Used when no gateway is configured,
// for local development.
type LogSender struct {
	logger *slog.Logger
}

var _ Sender = (*LogSender)(nil)

// NewLogSender creates a log-only sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, key, text string) error {
	s.logger.Info("outbound message",
		slog.String("to", key),
		slog.String("text", text))
	return nil
}
