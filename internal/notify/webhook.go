package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"grider-status-alerts/internal/template"
)

// Notifier delivers rendered message bundles to an external channel.
type Notifier interface {
	Notify(ctx context.Context, msg template.Rendered) error
}

// WebhookOptions parameterise the chat webhook dispatcher.
type WebhookOptions struct {
	URL     string
	Channel string
	Token   string
	Timeout time.Duration
}

// Webhook posts rendered message bundles to the chat bridge endpoint.
type Webhook struct {
	opts   WebhookOptions
	client *http.Client
	logger zerolog.Logger
}

// NewWebhook constructs the webhook notifier.
func NewWebhook(opts WebhookOptions, logger zerolog.Logger) *Webhook {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		opts:   opts,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "webhook_notifier").Logger(),
	}
}

type webhookPayload struct {
	Channel string `json:"channel,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Footer  string `json:"footer"`
}

// Notify posts the rendered {title, content, footer} bundle. The bundle is
// handed over verbatim; line-break conversion is the transport's concern.
func (w *Webhook) Notify(ctx context.Context, msg template.Rendered) error {
	if w.opts.URL == "" {
		return fmt.Errorf("webhook url not configured")
	}

	payload := webhookPayload{
		Channel: w.opts.Channel,
		Title:   msg.Title,
		Content: msg.Content,
		Footer:  msg.Footer,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.opts.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(w.opts.Token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("webhook reported ok=false")
		}
	}

	w.logger.Info().Str("channel", w.opts.Channel).Str("title", msg.Title).Msg("메시지 전송 완료")
	return nil
}

var _ Notifier = (*Webhook)(nil)
