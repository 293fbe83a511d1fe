// Package types defines the value types shared by the collector, rule engine,
// alert store and notification dispatcher: metric samples, statistics
// snapshots, alert rules with their conditions, and materialized alerts.
package types
