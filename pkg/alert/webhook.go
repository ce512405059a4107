package alert

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// EventFeatured is the event name carried by webhook payloads.
const EventFeatured = "scorecard.featured"

// WebhookPayload is the JSON body posted by Webhook.
type WebhookPayload struct {
	Event    string          `json:"event"`
	SentAt   time.Time       `json:"sent_at"`
	RunID    string          `json:"run_id"`
	Title    string          `json:"title"`
	Featured []FeaturedEntry `json:"featured"`
}

// FeaturedEntry is one featured company in a webhook payload.
type FeaturedEntry struct {
	Rank         int     `json:"rank"`
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	OverallScore float64 `json:"overall_score"`
}

// Webhook posts the featured list to a generic HTTP endpoint. When a secret
// is set the body is signed with HMAC-SHA256 in X-Signature-256.
type Webhook struct {
	client *http.Client
	url    string
	secret string
	now    func() time.Time
}

// NewWebhook creates a new generic webhook notifier.
func NewWebhook(url, secret string) *Webhook {
	return &Webhook{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
		secret: secret,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, n *Notification) error {
	payload := WebhookPayload{
		Event:    EventFeatured,
		SentAt:   w.now(),
		RunID:    n.RunID,
		Title:    n.Title,
		Featured: make([]FeaturedEntry, len(n.Companies)),
	}
	for i, c := range n.Companies {
		payload.Featured[i] = FeaturedEntry{Rank: c.Rank, ID: c.ID, Name: c.Name, OverallScore: c.OverallScore}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "scorecard/1.0")
	req.Header.Set("X-Scorecard-Event", EventFeatured)

	if w.secret != "" {
		req.Header.Set("X-Signature-256", "sha256="+Sign(w.secret, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}

	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret, as sent in
// X-Signature-256 after the "sha256=" prefix.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
