package notify

import (
	"context"
	"log/slog"
)

// LogSender stands in for SMS and push gateways by writing each message to
// the log. It never fails.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// Send logs an SMS.
func (s LogSender) Send(_ context.Context, to, message string) error {
	s.logger().Info("notify: sms (log only)", "to", to, "message", message)
	return nil
}

// Broadcast logs a push notification.
func (s LogSender) Broadcast(_ context.Context, category, title, message string, priority Priority) error {
	s.logger().Info("notify: push (log only)",
		"category", category,
		"title", title,
		"message", message,
		"priority", priority,
	)
	return nil
}
