package collector

import (
	"math"
	"sort"
	"time"

	"github.com/obsidianstack/sentinel/pkg/types"
)

// Compute derives a Snapshot from samples ordered oldest first. Every ratio
// is guarded: an empty window yields zeroed fields.
func Compute(samples []types.MetricSample, now time.Time) types.Snapshot {
	snap := types.Snapshot{Timestamp: now}

	var (
		durations []float64
		sum       float64
		errCount  float64
	)
	for _, s := range samples {
		switch s.Name {
		case types.MetricResponseTime:
			durations = append(durations, s.Value)
			sum += s.Value
		case types.MetricError:
			errCount += s.Value
		case types.MetricMemoryUsage:
			snap.MemoryUsage = s.Value
		case types.MetricCPUUsage:
			snap.CPUUsage = s.Value
		case types.MetricDatabaseError:
			snap.DatabaseErrors += s.Value
		case types.MetricBackupStatus:
			snap.BackupStatus = s.Tags[types.BackupStatusTag]
		}
	}

	n := len(durations)
	snap.TotalRequests = n
	if n == 0 {
		return snap
	}

	snap.AverageResponseTime = sum / float64(n)
	snap.ErrorRate = errCount / float64(n)

	sort.Float64s(durations)
	snap.P95ResponseTime = percentile(durations, 0.95)
	snap.P99ResponseTime = percentile(durations, 0.99)

	if elapsed := now.Sub(samples[0].Timestamp).Seconds(); elapsed > 0 {
		snap.Throughput = float64(n) / elapsed
	}
	return snap
}

// percentile returns sorted[floor(len*q)], clamped to the last element.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Floor(float64(len(sorted)) * q))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
