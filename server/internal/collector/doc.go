// Package collector ingests raw metric samples from producers and derives
// aggregate statistics snapshots from them.
//
// Samples live in a fixed-capacity ring buffer; once full, each Record
// overwrites the oldest sample. Record holds the buffer lock only for the
// slot write, and Snapshot copies the window under the lock before doing any
// sorting or arithmetic, so producers are never blocked behind aggregation.
//
// Well-known metric names (see pkg/types):
//
//	response_time   request duration in ms; one sample per request
//	error           request errors; values are summed
//	memory_usage    gauge, fraction 0..1; the most recent sample wins
//	cpu_usage       gauge, fraction 0..1; the most recent sample wins
//	database_error  database failures; values are summed
//	backup_status   latest backup outcome, read from the "status" tag
package collector
