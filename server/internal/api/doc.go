// Package api implements the HTTP REST API for sentinel-server.
//
// New(op, rec) returns an http.Handler that serves:
//
//	GET    /api/v1/health               engine status, rule and alert counts
//	GET    /api/v1/snapshot             current statistics plus diagnostic hints
//	GET    /api/v1/alerts               every alert, newest first
//	GET    /api/v1/alerts/active        unresolved alerts, newest first
//	GET    /api/v1/alerts/stats         aggregate alert statistics
//	POST   /api/v1/alerts/{id}/resolve  resolve one alert; 404 if unknown
//	GET    /api/v1/rules                registered rules in evaluation order
//	POST   /api/v1/rules                register a rule; 409 on duplicate id
//	DELETE /api/v1/rules/{id}           unregister a rule
//	POST   /api/v1/rules/{id}/enable    enable a rule
//	POST   /api/v1/rules/{id}/disable   disable a rule
//	POST   /api/v1/metrics              push metric samples into the collector
//
// All endpoints respond with Content-Type: application/json; errors use the
// body {"error": "..."}. JSON types are defined in types.go. No external HTTP
// framework is used.
package api
