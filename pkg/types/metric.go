package types

import "time"

// Unit describes the measurement unit of a MetricSample. Units outside the
// known set are carried through unchanged.
type Unit string

const (
	UnitMilliseconds Unit = "ms"
	UnitBytes        Unit = "bytes"
	UnitCount        Unit = "count"
)

// Well-known metric names read by the snapshot computation.
const (
	MetricResponseTime  = "response_time"
	MetricError         = "error"
	MetricMemoryUsage   = "memory_usage"
	MetricCPUUsage      = "cpu_usage"
	MetricDatabaseError = "database_error"
	MetricBackupStatus  = "backup_status"
)

// BackupStatusTag is the tag key carrying the status of a backup_status sample.
const BackupStatusTag = "status"

// MetricSample is one recorded observation. It is never modified after it
// has been recorded.
type MetricSample struct {
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Unit      Unit              `json:"unit"`
	Timestamp time.Time         `json:"timestamp"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// Snapshot is an aggregate view over the collector's current sample window.
// It is derived on demand and never stored by the collector.
type Snapshot struct {
	TotalRequests       int       `json:"total_requests"`
	AverageResponseTime float64   `json:"average_response_time_ms"`
	P95ResponseTime     float64   `json:"p95_response_time_ms"`
	P99ResponseTime     float64   `json:"p99_response_time_ms"`
	ErrorRate           float64   `json:"error_rate"`
	Throughput          float64   `json:"throughput_per_sec"`
	MemoryUsage         float64   `json:"memory_usage"`
	CPUUsage            float64   `json:"cpu_usage"`
	DatabaseErrors      float64   `json:"database_errors"`
	BackupStatus        string    `json:"backup_status,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}
