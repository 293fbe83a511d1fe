package store

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"text/template"

	"github.com/obsidianstack/sentinel/pkg/types"
)

// RenderMessage builds the human-readable alert message for rule from the
// triggering snapshot. Rules from the built-in table have fixed wording;
// other rules, including ones that reuse a built-in ID, use their Message
// template when set, else a generic description.
func RenderMessage(rule types.AlertRule, snap types.Snapshot) string {
	if rule.Source == types.RuleSourceDefault {
		if msg, ok := builtinMessage(rule, snap); ok {
			return msg
		}
	}

	if rule.Message != "" {
		msg, err := renderTemplate(rule.Message, snap)
		if err == nil {
			return msg
		}
		slog.Warn("store: alert message template failed", "rule", rule.ID, "err", err)
	}

	name := rule.Name
	if name == "" {
		name = rule.ID
	}
	return fmt.Sprintf("%s triggered (%s)", name, rule.Condition)
}

func builtinMessage(rule types.AlertRule, snap types.Snapshot) (string, bool) {
	th := rule.Condition.Threshold
	switch rule.ID {
	case "high_error_rate":
		return fmt.Sprintf("Error rate is %.2f%% (threshold: %s%%)", snap.ErrorRate*100, num(th*100)), true
	case "high_response_time":
		return fmt.Sprintf("Average response time is %.0fms (threshold: %sms)", snap.AverageResponseTime, num(th)), true
	case "low_memory":
		return fmt.Sprintf("Memory usage is %.1f%% (threshold: %s%%)", snap.MemoryUsage*100, num(th*100)), true
	case "high_cpu":
		return fmt.Sprintf("CPU usage is %.1f%% (threshold: %s%%)", snap.CPUUsage*100, num(th*100)), true
	case "database_connection_failed":
		return fmt.Sprintf("Database connection failed (%s errors in window)", num(snap.DatabaseErrors)), true
	case "backup_failed":
		return fmt.Sprintf("Backup status is %q (expected success)", snap.BackupStatus), true
	}
	return "", false
}

func renderTemplate(text string, snap types.Snapshot) (string, error) {
	tmpl, err := template.New("message").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse: %w", err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, snap); err != nil {
		return "", fmt.Errorf("execute: %w", err)
	}
	return b.String(), nil
}

// num formats v without trailing zeros, rounding away float noise such as
// 0.05*100 = 5.000000000000001.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 32)
}
