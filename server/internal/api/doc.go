// Package api implements the HTTP REST API for trainingpulse-server.
//
// New(store, alerts, history) returns an http.Handler that serves:
//
//	GET /api/v1/health                       overall severity and per-severity counts
//	GET /api/v1/workspaces                   all live workspaces ([]WorkspaceResponse)
//	GET /api/v1/workspaces/{id}              single workspace; 404 if unknown or stale
//	GET /api/v1/workspaces/{id}/history      stored reports, newest first (?limit=N)
//	GET /api/v1/alerts                       firing and recently resolved alerts
//	GET /api/v1/snapshot                     all live workspaces + generated_at
//
// MetricsHandler serves the same state in the Prometheus text format.
//
// All JSON endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for non-GET methods
//   - Read live entries from the store (stale entries excluded from lists)
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
