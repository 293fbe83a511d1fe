package api

import (
	"time"

	"github.com/obsidianstack/sentinel/pkg/types"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status       string `json:"status"`
	Monitoring   bool   `json:"monitoring"`
	RuleCount    int    `json:"rule_count"`
	ActiveAlerts int    `json:"active_alerts"`
	TotalAlerts  int    `json:"total_alerts"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot.
type SnapshotResponse struct {
	Snapshot    types.Snapshot   `json:"snapshot"`
	Diagnostics []DiagnosticHint `json:"diagnostics"`
	GeneratedAt string           `json:"generated_at"` // RFC3339
}

// StatsResponse is the payload for GET /api/v1/alerts/stats.
type StatsResponse struct {
	TotalAlerts              int                    `json:"total_alerts"`
	ActiveAlerts             int                    `json:"active_alerts"`
	AlertsBySeverity         map[types.Severity]int `json:"alerts_by_severity"`
	AverageResolutionSeconds float64                `json:"average_resolution_seconds"`
}

// RuleRequest is the body of POST /api/v1/rules.
type RuleRequest struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Condition string   `json:"condition"` // "field op value"
	Severity  string   `json:"severity"`
	Channels  []string `json:"channels"`
	Cooldown  string   `json:"cooldown"` // Go duration, e.g. "15m"
	Enabled   *bool    `json:"enabled"`
	Message   string   `json:"message"`
}

// RuleResponse is one rule in GET /api/v1/rules.
type RuleResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Condition string          `json:"condition"`
	Severity  types.Severity  `json:"severity"`
	Channels  []types.Channel `json:"channels"`
	Cooldown  string          `json:"cooldown"`
	Enabled   bool            `json:"enabled"`
	Message   string          `json:"message,omitempty"`
	Source    string          `json:"source,omitempty"`
}

// SampleRequest is one metric sample in POST /api/v1/metrics.
type SampleRequest struct {
	Name  string            `json:"name"`
	Value float64           `json:"value"`
	Unit  string            `json:"unit"`
	Tags  map[string]string `json:"tags,omitempty"`
}

// IngestRequest is the body of POST /api/v1/metrics.
type IngestRequest struct {
	Samples []SampleRequest `json:"samples"`
}

// IngestResponse reports how many samples were recorded.
type IngestResponse struct {
	Accepted int `json:"accepted"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

func toRuleResponse(r types.AlertRule) RuleResponse {
	channels := r.Channels
	if channels == nil {
		channels = []types.Channel{}
	}
	return RuleResponse{
		ID:        r.ID,
		Name:      r.Name,
		Condition: r.Condition.String(),
		Severity:  r.Severity,
		Channels:  channels,
		Cooldown:  r.Cooldown.String(),
		Enabled:   r.Enabled,
		Message:   r.Message,
		Source:    r.Source,
	}
}

func toStatsResponse(s types.AlertStats) StatsResponse {
	return StatsResponse{
		TotalAlerts:              s.TotalAlerts,
		ActiveAlerts:             s.ActiveAlerts,
		AlertsBySeverity:         s.AlertsBySeverity,
		AverageResolutionSeconds: s.AverageResolutionTime.Seconds(),
	}
}

// BuildSnapshot assembles the snapshot payload shared by the REST API and the
// WebSocket hub.
func BuildSnapshot(snap types.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		Snapshot:    snap,
		Diagnostics: computeDiagnostics(snap),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}
