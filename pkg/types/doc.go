// Package types defines the Go types shared by the agent and the server.
// These are the canonical in-memory representations of training data and
// the KPI report derived from it; Report is also the JSON wire format the
// agent ships to the server.
package types
