// Package ws implements the WebSocket hub for trainingpulse-server.
//
// Hub streams two kinds of events to connected dashboards:
//
//	{"event": "snapshot", "data": { /* GET /api/v1/snapshot */ }}
//	{"event": "report",   "data": { /* GET /api/v1/workspaces/{id} */ }}
//
// A snapshot is sent on connect and then every broadcast interval. A report
// event is pushed by Publish as soon as the receiver stores a new report, so
// dashboards do not wait for the next tick.
//
// Clients connecting with ?workspace=<id> only receive that workspace: their
// snapshots are filtered and other workspaces' report events are skipped.
// A client whose send buffer fills up is disconnected.
//
// The upgrader accepts all origins. The endpoint is mounted at /ws/stream.
package ws
