// Package config loads the server configuration from config.yaml.
//
// Config sections:
//   - server      HTTP port, API key auth, WebSocket stream interval
//   - monitoring  enabled flag, evaluation interval, sample buffer size,
//     built-in rule toggle, additional rules
//   - notify      per-send timeout, recipients keyed by severity, SMTP
//   - scrape      Prometheus endpoints whose gauges feed the collector
//
// Secrets are never stored in the file; *_env fields name the environment
// variables that hold them.
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, fn) reloads the file on change.
package config
