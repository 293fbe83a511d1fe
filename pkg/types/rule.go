package types

import (
	"fmt"
	"strconv"
	"time"
)

// Severity is the ordinal classification of an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity from least to most severe.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Channel is a notification delivery mechanism.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelPush    Channel = "push"
	ChannelWebhook Channel = "webhook"
)

// Channels lists every known channel in fan-out order.
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelPush, ChannelWebhook}

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelWebhook:
		return true
	}
	return false
}

// Condition is either a built-in comparison of one snapshot field against a
// threshold, or a custom predicate. A non-nil Predicate takes precedence.
//
// Numeric fields compare against Threshold; text fields (backup_status)
// compare against Text.
type Condition struct {
	Field     string  `json:"field,omitempty"`
	Op        string  `json:"op,omitempty"`
	Threshold float64 `json:"threshold"`
	Text      string  `json:"text,omitempty"`

	Predicate func(Snapshot) (bool, error) `json:"-"`
}

// Custom reports whether the condition carries a predicate function.
func (c Condition) Custom() bool { return c.Predicate != nil }

// String renders a built-in condition as "field op value".
func (c Condition) String() string {
	if c.Custom() {
		return "custom predicate"
	}
	if c.Text != "" {
		return fmt.Sprintf("%s %s %s", c.Field, c.Op, c.Text)
	}
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, strconv.FormatFloat(c.Threshold, 'f', -1, 64))
}

// AlertRule is a named condition with the severity, channel set and cooldown
// applied when it fires.
type AlertRule struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Condition Condition     `json:"condition"`
	Severity  Severity      `json:"severity"`
	Channels  []Channel     `json:"channels"`
	Cooldown  time.Duration `json:"cooldown"`
	Enabled   bool          `json:"enabled"`

	// Message is an optional text/template rendered against the triggering
	// Snapshot. Built-in rules ignore it.
	Message string `json:"message,omitempty"`

	// Source records where the rule came from ("default", "config", "api").
	Source string `json:"source,omitempty"`
}

// RuleSourceDefault marks the built-in rule table on AlertRule.Source.
const RuleSourceDefault = "default"

// HasChannel reports whether the rule declares c.
func (r AlertRule) HasChannel(c Channel) bool {
	for _, ch := range r.Channels {
		if ch == c {
			return true
		}
	}
	return false
}

// Clone returns a copy of r that shares no slices with it.
func (r AlertRule) Clone() AlertRule {
	out := r
	out.Channels = append([]Channel(nil), r.Channels...)
	return out
}
