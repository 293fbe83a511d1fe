package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/obsidianstack/sentinel/pkg/types"
	"github.com/obsidianstack/sentinel/server/internal/telemetry"
)

// DefaultSendTimeout bounds a single channel send when Options.SendTimeout is zero.
const DefaultSendTimeout = 10 * time.Second

var (
	// ErrNoSender means the channel has no transport configured.
	ErrNoSender = errors.New("no sender configured")

	// ErrNoRecipients means the alert's severity has no addressees on the channel.
	ErrNoRecipients = errors.New("no recipients configured")
)

// Options configures a Dispatcher. The zero value is usable.
type Options struct {
	SendTimeout time.Duration
	Logger      *slog.Logger
	Metrics     *telemetry.Metrics
}

// Result is the outcome of one channel delivery.
type Result struct {
	Channel types.Channel
	Err     error
}

// Skipped reports whether the channel was not attempted because it has no
// sender or no recipients.
func (r Result) Skipped() bool {
	return errors.Is(r.Err, ErrNoSender) || errors.Is(r.Err, ErrNoRecipients)
}

// Dispatcher delivers alerts to their channels.
//
// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	senders Senders
	timeout time.Duration
	log     *slog.Logger
	metrics *telemetry.Metrics

	mu         sync.RWMutex
	recipients RecipientTable

	inflight sync.WaitGroup
}

// NewDispatcher creates a Dispatcher over the given transports and recipients.
func NewDispatcher(s Senders, recipients RecipientTable, opts Options) *Dispatcher {
	d := &Dispatcher{
		senders:    s,
		timeout:    opts.SendTimeout,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		recipients: recipients,
	}
	if d.timeout <= 0 {
		d.timeout = DefaultSendTimeout
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	return d
}

// SetRecipients swaps the recipient table; deliveries already running keep
// the table they started with.
func (d *Dispatcher) SetRecipients(t RecipientTable) {
	d.mu.Lock()
	d.recipients = t
	d.mu.Unlock()
}

// Channels returns the channels an alert is delivered on: the channels the
// rule declared, plus, for critical alerts, every channel with a configured
// sender.
func (d *Dispatcher) Channels(a types.Alert) []types.Channel {
	want := make(map[types.Channel]bool, len(types.Channels))
	for _, ch := range a.Channels {
		want[ch] = true
	}
	if a.Severity == types.SeverityCritical {
		for _, ch := range types.Channels {
			if d.senders.configured(ch) {
				want[ch] = true
			}
		}
	}
	out := make([]types.Channel, 0, len(want))
	for _, ch := range types.Channels {
		if want[ch] {
			out = append(out, ch)
		}
	}
	return out
}

// Dispatch starts delivery of a on every channel and returns without
// waiting. Each channel runs in its own goroutine with its own timeout.
func (d *Dispatcher) Dispatch(a types.Alert) {
	rcpt := d.recipientsFor(a.Severity)
	for _, ch := range d.Channels(a) {
		d.inflight.Add(1)
		go func(ch types.Channel) {
			defer d.inflight.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			d.deliverOne(ctx, ch, a, rcpt)
		}(ch)
	}
}

// Deliver sends a on every channel sequentially and reports each outcome.
// A failure on one channel never prevents the remaining attempts.
func (d *Dispatcher) Deliver(ctx context.Context, a types.Alert) []Result {
	rcpt := d.recipientsFor(a.Severity)
	channels := d.Channels(a)
	out := make([]Result, 0, len(channels))
	for _, ch := range channels {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		out = append(out, d.deliverOne(sendCtx, ch, a, rcpt))
		cancel()
	}
	return out
}

// Wait blocks until every delivery started by Dispatch has finished.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

func (d *Dispatcher) recipientsFor(s types.Severity) Recipients {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.recipients.For(s)
}

func (d *Dispatcher) deliverOne(ctx context.Context, ch types.Channel, a types.Alert, rcpt Recipients) (res Result) {
	res.Channel = ch
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%s sender panicked: %v", ch, r)
		}
		d.report(res, a)
	}()
	res.Err = d.send(ctx, ch, a, rcpt)
	return res
}

func (d *Dispatcher) send(ctx context.Context, ch types.Channel, a types.Alert, rcpt Recipients) error {
	if !d.senders.configured(ch) {
		return ErrNoSender
	}
	title := fmt.Sprintf("[%s] %s", strings.ToUpper(string(a.Severity)), a.RuleName)

	switch ch {
	case types.ChannelEmail:
		if len(rcpt.Email) == 0 {
			return ErrNoRecipients
		}
		return d.senders.Email.Send(ctx, rcpt.Email, title, emailBody(a))

	case types.ChannelSMS:
		if len(rcpt.SMS) == 0 {
			return ErrNoRecipients
		}
		var errs []error
		for _, to := range rcpt.SMS {
			if err := d.senders.SMS.Send(ctx, to, title+": "+a.Message); err != nil {
				errs = append(errs, fmt.Errorf("sms %s: %w", to, err))
			}
		}
		return errors.Join(errs...)

	case types.ChannelPush:
		category := rcpt.PushCategory
		if category == "" {
			category = DefaultPushCategory
		}
		return d.senders.Push.Broadcast(ctx, category, title, a.Message, priorityFor(a.Severity))

	case types.ChannelWebhook:
		if len(rcpt.Webhooks) == 0 {
			return ErrNoRecipients
		}
		var errs []error
		for _, wh := range rcpt.Webhooks {
			if err := d.senders.Webhook.Post(ctx, wh.URL, webhookPayload(wh.Type, a)); err != nil {
				errs = append(errs, fmt.Errorf("webhook %s: %w", wh.Type, err))
			}
		}
		return errors.Join(errs...)
	}
	return fmt.Errorf("unknown channel %q", ch)
}

func (d *Dispatcher) report(res Result, a types.Alert) {
	switch {
	case res.Skipped():
		d.log.Warn("notify: channel skipped",
			"channel", res.Channel,
			"alert", a.ID,
			"rule", a.RuleID,
			"reason", res.Err,
		)
	case res.Err != nil:
		d.metrics.Notification(res.Channel, res.Err)
		d.log.Error("notify: delivery failed",
			"channel", res.Channel,
			"alert", a.ID,
			"rule", a.RuleID,
			"err", res.Err,
		)
	default:
		d.metrics.Notification(res.Channel, nil)
		d.log.Debug("notify: delivered",
			"channel", res.Channel,
			"alert", a.ID,
			"rule", a.RuleID,
		)
	}
}

func emailBody(a types.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", a.Message)
	fmt.Fprintf(&b, "Rule:      %s (%s)\n", a.RuleName, a.RuleID)
	fmt.Fprintf(&b, "Severity:  %s\n", a.Severity)
	fmt.Fprintf(&b, "Triggered: %s\n", a.TriggeredAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Alert ID:  %s\n\n", a.ID)

	m := a.Metadata
	fmt.Fprintf(&b, "Requests: %d  error rate: %.2f%%  avg: %.0fms  p95: %.0fms  p99: %.0fms\n",
		m.TotalRequests, m.ErrorRate*100, m.AverageResponseTime, m.P95ResponseTime, m.P99ResponseTime)
	fmt.Fprintf(&b, "Memory: %.1f%%  CPU: %.1f%%\n", m.MemoryUsage*100, m.CPUUsage*100)
	return b.String()
}
