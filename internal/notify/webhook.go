package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nhle/career-planner/internal/model"
)

// Webhook paths on the parent application, used when no explicit URL is set.
const (
	notificationsPath = "/api/webhooks/notifications.json"
	activityPath      = "/api/webhooks/career-planner-activity.json"
)

// Request headers set on every delivery.
const (
	HeaderAppKey    = "X-App-Key"
	HeaderSignature = "X-Webhook-Signature"
)

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 512

// WebhookSink posts notices as JSON to the parent application. It makes
// exactly one attempt per notice.
type WebhookSink struct {
	notificationURL string
	activityURL     string
	appKey          string
	secret          string
	httpClient      *http.Client
}

var _ Sink = (*WebhookSink)(nil)

// NewWebhookSink resolves endpoint URLs from cfg. secret signs request
// bodies; an empty secret sends unsigned requests.
func NewWebhookSink(cfg model.NotifyConfig, secret string) *WebhookSink {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &WebhookSink{
		notificationURL: resolveURL(cfg.NotificationWebhookURL, cfg.ParentAppURL, notificationsPath),
		activityURL:     resolveURL(cfg.ActivityWebhookURL, cfg.ParentAppURL, activityPath),
		appKey:          cfg.AppKey,
		secret:          secret,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

// resolveURL prefers the explicit override, then the parent app base.
// It returns "" when neither is configured.
func resolveURL(override, parent, path string) string {
	if u := strings.TrimSpace(override); u != "" {
		return u
	}
	if p := strings.TrimRight(strings.TrimSpace(parent), "/"); p != "" {
		return p + path
	}
	return ""
}

// NotificationURL returns the endpoint for event notices.
func (w *WebhookSink) NotificationURL() string { return w.notificationURL }

// ActivityURL returns the endpoint for summary notices.
func (w *WebhookSink) ActivityURL() string { return w.activityURL }

// SendSummary posts a summary-change notice to the activity endpoint.
func (w *WebhookSink) SendSummary(ctx context.Context, n model.SummaryNotice) error {
	return w.post(ctx, w.activityURL, n)
}

// SendEvent posts a user-facing notice to the notifications endpoint.
func (w *WebhookSink) SendEvent(ctx context.Context, n model.EventNotice) error {
	return w.post(ctx, w.notificationURL, n)
}

// Sign returns the signature header value for body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (w *WebhookSink) post(ctx context.Context, url string, payload interface{}) error {
	if url == "" {
		return ErrDisabled
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderAppKey, w.appKey)
	if w.secret != "" {
		req.Header.Set(HeaderSignature, Sign(w.secret, data))
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf(
			"unexpected status %d on POST %s: %s",
			resp.StatusCode, url, strings.TrimSpace(string(body)),
		)
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
