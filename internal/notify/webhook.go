package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/hakagen/pkg/detection"
)

// Webhook POSTs the JSON payload to a URL.
type Webhook struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhook validates target and returns a Webhook notifier.
func NewWebhook(target string, timeout time.Duration, logger *zap.Logger) (*Webhook, error) {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, detection.NewValidationError("notify.target", fmt.Sprintf("webhook needs an http(s) URL, got %q", target))
	}
	return &Webhook{url: target, client: &http.Client{Timeout: timeout}, logger: logger}, nil
}

func (w *Webhook) Notify(ctx context.Context, c Completion) error {
	body, err := marshalPayload(c)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "hakagen-webhook/0.1")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}

	w.logger.Debug("webhook delivered",
		zap.String("run_id", c.RunID),
		zap.Int("status_code", resp.StatusCode),
	)
	return nil
}

func (w *Webhook) Close() error { return nil }
