package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/obsidianstack/sentinel/pkg/types"
)

// HTTPWebhookSender posts JSON payloads over HTTP.
type HTTPWebhookSender struct {
	client *http.Client
}

// NewHTTPWebhookSender creates a sender whose requests time out after timeout.
func NewHTTPWebhookSender(timeout time.Duration) *HTTPWebhookSender {
	return &HTTPWebhookSender{client: &http.Client{Timeout: timeout}}
}

// Post marshals payload and POSTs it to url. Any status >= 400 is an error.
func (s *HTTPWebhookSender) Post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// webhookPayload shapes a for the target type.
func webhookPayload(targetType string, a types.Alert) any {
	switch targetType {
	case "slack":
		return map[string]string{
			"text": fmt.Sprintf("*%s* %s", severityLabel(a.Severity), a.Message),
		}
	case "teams":
		return map[string]interface{}{
			"@type":      "MessageCard",
			"@context":   "http://schema.org/extensions",
			"themeColor": severityColor(a.Severity),
			"summary":    a.RuleName,
			"title":      fmt.Sprintf("Sentinel Alert: %s", a.RuleName),
			"text":       a.Message,
		}
	default:
		return map[string]interface{}{"alert": a}
	}
}

func severityLabel(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return "[CRITICAL]"
	case types.SeverityHigh:
		return "[HIGH]"
	case types.SeverityMedium:
		return "[MEDIUM]"
	default:
		return "[LOW]"
	}
}

func severityColor(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return "FF4F6A"
	case types.SeverityHigh:
		return "FF7A45"
	case types.SeverityMedium:
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
