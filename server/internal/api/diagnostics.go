package api

import (
	"fmt"

	"github.com/obsidianstack/sentinel/pkg/types"
)

// DiagnosticHint is one human-readable insight about the current snapshot.
// The dashboard displays these as chips; clicking one shows Detail.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// computeDiagnostics derives diagnostic hints from a snapshot. Hints are
// emitted in a fixed order: traffic, errors, latency, resources, dependencies.
func computeDiagnostics(snap types.Snapshot) []DiagnosticHint {
	var hints []DiagnosticHint

	// ── No traffic yet ───────────────────────────────────────────────────────
	if snap.TotalRequests == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "no_traffic",
			Level: "info",
			Title: "No requests recorded",
			Detail: "No response_time samples are in the buffer, so error rate, latency " +
				"and throughput all read zero. Request-based rules cannot fire until " +
				"traffic is recorded.",
		})
	}

	// ── Error rate ───────────────────────────────────────────────────────────
	if snap.ErrorRate > 0 {
		pct := snap.ErrorRate * 100
		var level string
		switch {
		case pct >= 5:
			level = "critical"
		case pct >= 1:
			level = "warning"
		default:
			level = "info"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "error_rate",
			Level: level,
			Title: fmt.Sprintf("%.2f%% errors", pct),
			Detail: fmt.Sprintf(
				"%.2f%% of the %d requests in the buffer failed. "+
					"Look at the 5xx responses by route and at recent deploys.",
				pct, snap.TotalRequests,
			),
			Value: &pct,
		})
	}

	// ── Latency ──────────────────────────────────────────────────────────────
	if snap.P95ResponseTime >= 1000 {
		v := snap.P95ResponseTime
		level := "warning"
		if snap.AverageResponseTime > 2000 {
			level = "critical"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "latency",
			Level: level,
			Title: fmt.Sprintf("p95 %.0fms", v),
			Detail: fmt.Sprintf(
				"One request in twenty takes %.0fms or longer (average %.0fms, p99 %.0fms). "+
					"Slow dependencies and lock contention are the usual suspects.",
				v, snap.AverageResponseTime, snap.P99ResponseTime,
			),
			Value: &v,
		})
	}

	// ── Resources ────────────────────────────────────────────────────────────
	hints = append(hints, gaugeHint("memory_usage", "memory", snap.MemoryUsage, 0.75, 0.90)...)
	hints = append(hints, gaugeHint("cpu_usage", "CPU", snap.CPUUsage, 0.65, 0.80)...)

	// ── Dependencies ─────────────────────────────────────────────────────────
	if snap.DatabaseErrors > 0 {
		v := snap.DatabaseErrors
		hints = append(hints, DiagnosticHint{
			Key:   "database_errors",
			Level: "critical",
			Title: "Database errors",
			Detail: fmt.Sprintf(
				"%.0f database errors are in the buffer. Check connection pool limits "+
					"and whether the database is reachable.",
				v,
			),
			Value: &v,
		})
	}
	if snap.BackupStatus == "failed" {
		hints = append(hints, DiagnosticHint{
			Key:    "backup_failed",
			Level:  "warning",
			Title:  "Last backup failed",
			Detail: "The most recent backup reported status \"failed\". Inspect the backup job logs.",
		})
	}

	// ── All clear ────────────────────────────────────────────────────────────
	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "healthy",
			Level: "ok",
			Title: "All clear",
			Detail: fmt.Sprintf(
				"%d requests, no errors, p95 %.0fms. Resource gauges are below their warning levels.",
				snap.TotalRequests, snap.P95ResponseTime,
			),
		})
	}

	return hints
}

// gaugeHint returns a hint for a 0..1 resource gauge at or above warn.
func gaugeHint(key, label string, v, warn, crit float64) []DiagnosticHint {
	if v < warn {
		return nil
	}
	level := "warning"
	if v > crit {
		level = "critical"
	}
	pct := v * 100
	return []DiagnosticHint{{
		Key:   key,
		Level: level,
		Title: fmt.Sprintf("%.0f%% %s", pct, label),
		Detail: fmt.Sprintf(
			"%s usage is at %.1f%%. Sustained usage above %.0f%% triggers an alert.",
			label, pct, crit*100,
		),
		Value: &pct,
	}}
}
