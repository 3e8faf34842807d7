package webhook

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

	"github.com/use-agent/pagecheck/models"
)

// SignatureHeader carries the HMAC of the request body.
const SignatureHeader = "X-Pagecheck-Signature"

// RetryDelays are the pauses before the second, third and fourth attempts.
var RetryDelays = []time.Duration{time.Second, 5 * time.Second, 15 * time.Second}

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string         `json:"type"` // "verification.passed" or "verification.failed"
	RunID     string         `json:"run_id"`
	Timestamp int64          `json:"timestamp"`
	Data      *models.Report `json:"data"`
}

// NewEvent wraps a run report.
func NewEvent(r *models.Report) *Event {
	return &Event{
		Type:      r.EventType(),
		RunID:     r.RunID,
		Timestamp: time.Now().Unix(),
		Data:      r,
	}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends a webhook event once.
// The request body is signed with HMAC-SHA256 if secret is non-empty.
func Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Pagecheck-Webhook/1.0")

	if secret != "" {
		req.Header.Set(SignatureHeader, Sign(secret, body))
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// DeliverWithRetry sends the event, retrying after each of delays. It blocks
// until delivery succeeds, attempts run out, or ctx is done, since the
// process usually exits right after.
func DeliverWithRetry(ctx context.Context, url, secret string, event *Event, delays []time.Duration) error {
	var err error
	for attempt := 0; attempt <= len(delays); attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delays[attempt-1]):
			case <-ctx.Done():
				return fmt.Errorf("webhook: gave up after %d attempts: %w", attempt, ctx.Err())
			}
		}

		if err = Deliver(ctx, url, secret, event); err == nil {
			slog.Info("webhook delivered",
				"url", url,
				"event", event.Type,
				"runID", event.RunID,
				"attempt", attempt+1,
			)
			return nil
		}
		slog.Warn("webhook delivery failed",
			"url", url,
			"event", event.Type,
			"runID", event.RunID,
			"attempt", attempt+1,
			"error", err,
		)
	}
	return err
}
