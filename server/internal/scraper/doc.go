// Package scraper polls Prometheus text endpoints and records selected
// metric families into the collector as resource gauges.
//
// Each configured target lists gauges of the form
//
//	value = sum(metric) / sum(divide_by) * scale
//
// so that, for example, node_memory_Active_bytes / node_memory_MemTotal_bytes
// becomes a 0..1 memory_usage sample.
//
// A failed scrape is logged and counted; it never stops the loop.
package scraper
