package notify

import (
	"context"

	"github.com/obsidianstack/sentinel/pkg/types"
)

// Priority is the urgency passed to push broadcasts.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// priorityFor maps alert severity onto push priority.
func priorityFor(s types.Severity) Priority {
	switch s {
	case types.SeverityCritical, types.SeverityHigh:
		return PriorityHigh
	case types.SeverityMedium:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

// EmailSender delivers one message to a set of addresses.
type EmailSender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// SMSSender delivers one text message to a single number.
type SMSSender interface {
	Send(ctx context.Context, to, message string) error
}

// PushSender broadcasts a notification to every device subscribed to category.
type PushSender interface {
	Broadcast(ctx context.Context, category, title, message string, priority Priority) error
}

// WebhookSender posts a JSON payload to url.
type WebhookSender interface {
	Post(ctx context.Context, url string, payload any) error
}

// Senders bundles the channel transports. A nil field disables that channel.
type Senders struct {
	Email   EmailSender
	SMS     SMSSender
	Push    PushSender
	Webhook WebhookSender
}

// configured reports whether a transport exists for ch.
func (s Senders) configured(ch types.Channel) bool {
	switch ch {
	case types.ChannelEmail:
		return s.Email != nil
	case types.ChannelSMS:
		return s.SMS != nil
	case types.ChannelPush:
		return s.Push != nil
	case types.ChannelWebhook:
		return s.Webhook != nil
	}
	return false
}
