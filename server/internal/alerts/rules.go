package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/obsidianstack/sentinel/pkg/types"
	"github.com/obsidianstack/sentinel/server/internal/config"
)

// Rule sources recorded on AlertRule.Source.
const (
	SourceDefault = types.RuleSourceDefault
	SourceConfig  = "config"
	SourceAPI     = "api"
)

// DefaultRules returns the built-in rule table, all enabled.
func DefaultRules() []types.AlertRule {
	email, sms, push := types.ChannelEmail, types.ChannelSMS, types.ChannelPush
	rules := []types.AlertRule{
		{
			ID:        "high_error_rate",
			Name:      "High error rate",
			Condition: types.Condition{Field: "error_rate", Op: ">", Threshold: 0.05},
			Severity:  types.SeverityHigh,
			Channels:  []types.Channel{email, push},
			Cooldown:  15 * time.Minute,
		},
		{
			ID:        "high_response_time",
			Name:      "High response time",
			Condition: types.Condition{Field: "average_response_time", Op: ">", Threshold: 2000},
			Severity:  types.SeverityMedium,
			Channels:  []types.Channel{email},
			Cooldown:  30 * time.Minute,
		},
		{
			ID:        "low_memory",
			Name:      "Low memory",
			Condition: types.Condition{Field: "memory_usage", Op: ">", Threshold: 0.90},
			Severity:  types.SeverityCritical,
			Channels:  []types.Channel{email, sms, push},
			Cooldown:  5 * time.Minute,
		},
		{
			ID:        "high_cpu",
			Name:      "High CPU usage",
			Condition: types.Condition{Field: "cpu_usage", Op: ">", Threshold: 0.80},
			Severity:  types.SeverityHigh,
			Channels:  []types.Channel{email, push},
			Cooldown:  10 * time.Minute,
		},
		{
			ID:        "database_connection_failed",
			Name:      "Database connection failed",
			Condition: types.Condition{Field: "database_errors", Op: ">", Threshold: 0},
			Severity:  types.SeverityCritical,
			Channels:  []types.Channel{email, sms, push},
			Cooldown:  0,
		},
		{
			ID:        "backup_failed",
			Name:      "Backup failed",
			Condition: types.Condition{Field: "backup_status", Op: "==", Text: "failed"},
			Severity:  types.SeverityHigh,
			Channels:  []types.Channel{email, push},
			Cooldown:  60 * time.Minute,
		},
	}
	for i := range rules {
		rules[i].Enabled = true
		rules[i].Source = SourceDefault
	}
	return rules
}

// RuleFromConfig converts one configured rule into an AlertRule.
func RuleFromConfig(rc config.RuleConfig) (types.AlertRule, error) {
	cond, err := ParseCondition(rc.Condition)
	if err != nil {
		return types.AlertRule{}, fmt.Errorf("rule %q: %w", rc.ID, err)
	}
	r := types.AlertRule{
		ID:        rc.ID,
		Name:      rc.Name,
		Condition: cond,
		Severity:  types.Severity(rc.Severity),
		Cooldown:  rc.Cooldown,
		Enabled:   rc.Enabled == nil || *rc.Enabled,
		Message:   rc.Message,
		Source:    SourceConfig,
	}
	if r.Name == "" {
		r.Name = r.ID
	}
	for _, ch := range rc.Channels {
		r.Channels = append(r.Channels, types.Channel(ch))
	}
	if err := validateRule(r); err != nil {
		return types.AlertRule{}, err
	}
	return r, nil
}

// RulesFromConfig converts every configured rule, failing on the first
// invalid one.
func RulesFromConfig(rcs []config.RuleConfig) ([]types.AlertRule, error) {
	out := make([]types.AlertRule, 0, len(rcs))
	for _, rc := range rcs {
		r, err := RuleFromConfig(rc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// validateRule checks structural constraints on a rule.
func validateRule(r types.AlertRule) error {
	if r.ID == "" {
		return fmt.Errorf("rule: id is required")
	}
	// Names end up in mail subjects and chat titles.
	if strings.ContainsAny(r.ID, "\r\n") || strings.ContainsAny(r.Name, "\r\n") {
		return fmt.Errorf("rule %q: id and name must be single-line", r.ID)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("rule %q: severity %q unknown: want low|medium|high|critical", r.ID, r.Severity)
	}
	for _, ch := range r.Channels {
		if !ch.Valid() {
			return fmt.Errorf("rule %q: channel %q unknown: want email|sms|push|webhook", r.ID, ch)
		}
	}
	if r.Cooldown < 0 {
		return fmt.Errorf("rule %q: cooldown must not be negative", r.ID)
	}
	if err := validateCondition(r.Condition); err != nil {
		return fmt.Errorf("rule %q: %w", r.ID, err)
	}
	return nil
}
