package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// Event is the JSON payload delivered to the webhook.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Hostname  string    `json:"hostname,omitempty"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
}

// Config contains dispatcher settings.
type Config struct {
	// WebhookURL receives events as JSON POSTs. Empty selects the
	// log-backed fallback.
	WebhookURL string

	// Timeout bounds a single delivery attempt.
	Timeout time.Duration
}

// New returns the dispatcher matching the configuration: a webhook
// dispatcher when a URL is set, otherwise the log fallback.
func New(cfg Config, logger *slog.Logger) interface {
	Send(ctx context.Context, subject, body string) error
} {
	if cfg.WebhookURL == "" {
		return NewLogNotifier(logger)
	}
	return NewWebhook(cfg, logger)
}

// Webhook posts events to an HTTP endpoint.
type Webhook struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

// NewWebhook creates a webhook dispatcher.
func NewWebhook(cfg Config, logger *slog.Logger) *Webhook {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    cfg.WebhookURL,
		client: &http.Client{Timeout: timeout},
		log:    logger.With("component", "notify"),
	}
}

// Send delivers one event. Non-2xx responses are errors; the caller
// decides whether that matters.
func (w *Webhook) Send(ctx context.Context, subject, body string) error {
	hostname, _ := os.Hostname()
	payload, err := json.Marshal(Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Hostname:  hostname,
		Subject:   subject,
		Body:      body,
	})
	if err != nil {
		return fmt.Errorf("notify: failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	w.log.Debug("notification delivered", "subject", subject)
	return nil
}

// LogNotifier writes notifications to the log. Used when no webhook is
// configured, and as the canary target in tests.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates the log-backed fallback dispatcher.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{log: logger.With("component", "notify")}
}

// Send records the notification in the log and always succeeds.
func (l *LogNotifier) Send(_ context.Context, subject, body string) error {
	l.log.Info("notification (no webhook configured)", "subject", subject, "body", body)
	return nil
}
