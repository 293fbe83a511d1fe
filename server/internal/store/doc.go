// Package store owns the lifecycle of materialized alerts. Alerts are created
// open, may be resolved exactly once, and are retained in memory for the
// lifetime of the process.
package store
