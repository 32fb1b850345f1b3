package revalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookConfig configures the webhook revalidator.
type WebhookConfig struct {
	// URL is the site's revalidation endpoint.
	URL string
	// Secret, when set, is sent in the X-Revalidate-Secret header.
	Secret string
}

// Webhook POSTs invalidated paths to the rendering site.
type Webhook struct {
	client *http.Client
	cfg    WebhookConfig
}

// NewWebhook creates a webhook revalidator.
func NewWebhook(cfg WebhookConfig) (*Webhook, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	return &Webhook{
		client: &http.Client{Timeout: 10 * time.Second},
		cfg:    cfg,
	}, nil
}

type webhookPayload struct {
	Paths []string `json:"paths"`
}

// Revalidate sends the paths in a single request.
func (w *Webhook) Revalidate(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	body, err := json.Marshal(webhookPayload{Paths: paths})
	if err != nil {
		return fmt.Errorf("marshal revalidate payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build revalidate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.cfg.Secret != "" {
		req.Header.Set("X-Revalidate-Secret", w.cfg.Secret)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post revalidate: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("revalidate endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
