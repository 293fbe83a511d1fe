package types

import "time"

// Alert is a materialized rule violation. Severity, Channels and Metadata are
// fixed when the alert is created; only Resolved and ResolvedAt change after.
type Alert struct {
	ID          string     `json:"id"`
	RuleID      string     `json:"rule_id"`
	RuleName    string     `json:"rule_name"`
	Message     string     `json:"message"`
	Severity    Severity   `json:"severity"`
	Channels    []Channel  `json:"channels"`
	TriggeredAt time.Time  `json:"triggered_at"`
	Resolved    bool       `json:"resolved"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	Metadata    Snapshot   `json:"metadata"`
}

// AlertStats aggregates the alert history.
type AlertStats struct {
	TotalAlerts      int              `json:"total_alerts"`
	ActiveAlerts     int              `json:"active_alerts"`
	AlertsBySeverity map[Severity]int `json:"alerts_by_severity"`

	// AverageResolutionTime is the mean of ResolvedAt-TriggeredAt over
	// resolved alerts, 0 when none are resolved.
	AverageResolutionTime time.Duration `json:"average_resolution_time"`
}
