// Package notify fans triggered alerts out to delivery channels.
//
// The Dispatcher depends only on the sender contracts in senders.go. Each
// channel of an alert is delivered in its own goroutine, so a failing or
// hanging transport affects neither its sibling channels nor the caller.
// Failures are logged and counted; there is no retry.
//
// Concrete senders shipped here: HTTPWebhookSender (Slack, Teams, PagerDuty
// or generic JSON targets), SMTPEmailSender, and LogSender for deployments
// without an SMS or push gateway.
package notify
