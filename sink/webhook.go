package sink

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/roomsage/bookscan/models"
)

// Event is the payload posted to a webhook endpoint.
type Event struct {
	Type      string `json:"type"` // "site.classified", "batch.completed"
	BatchID   string `json:"batch_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// Notifier posts events to an HTTP endpoint, signing the body with
// HMAC-SHA256 when a secret is configured.
// Header: X-Bookscan-Signature: sha256=<hex>
type Notifier struct {
	url    string
	secret string
	client *http.Client
	log    *slog.Logger
}

// NewNotifier builds a Notifier for the endpoint. url must be non-empty.
func NewNotifier(url, secret string, log *slog.Logger) *Notifier {
	return &Notifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// Deliver posts one event synchronously.
func (n *Notifier) Deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Bookscan-Webhook/1.0")

	if n.secret != "" {
		mac := hmac.New(sha256.New, []byte(n.secret))
		mac.Write(body)
		sig := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-Bookscan-Signature", "sha256="+sig)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// NotifierSink adapts a Notifier to the Sink interface: every outcome
// becomes a "site.classified" event, delivered asynchronously so slow
// endpoints never stall the batch.
type NotifierSink struct {
	notifier *Notifier
	batchID  string
}

// NewNotifierSink wraps the notifier for a batch.
func NewNotifierSink(n *Notifier, batchID string) *NotifierSink {
	return &NotifierSink{notifier: n, batchID: batchID}
}

func (s *NotifierSink) Write(ctx context.Context, outcome *models.DetectionOutcome) error {
	s.notifier.DeliverAsync(&Event{
		Type:      "site.classified",
		BatchID:   s.batchID,
		Timestamp: time.Now().Unix(),
		Data:      outcome,
	})
	return nil
}

func (s *NotifierSink) Close() error { return nil }

// DeliverAsync posts an event in the background with up to 3 retries.
// Retry intervals: 1s, 5s, 30s.
func (n *Notifier) DeliverAsync(event *Event) {
	go func() {
		delays := []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}
		for attempt, delay := range delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := n.Deliver(ctx, event)
			cancel()
			if err == nil {
				n.log.Info("webhook delivered",
					"event", event.Type,
					"batch_id", event.BatchID,
					"attempt", attempt+1,
				)
				return
			}
			n.log.Warn("webhook delivery failed",
				"event", event.Type,
				"batch_id", event.BatchID,
				"attempt", attempt+1,
				"error", err,
			)
		}
		n.log.Error("webhook delivery exhausted all retries",
			"event", event.Type,
			"batch_id", event.BatchID,
		)
	}()
}
