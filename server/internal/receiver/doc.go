// Package receiver implements POST /api/v1/reports, the endpoint that accepts
// Report JSON from trainingpulse-agent instances.
//
// Receiver.ServeHTTP decodes the body, validates it (id, workspace and
// generated_at are required; 400 otherwise), records it in the store, hands it
// to the alert evaluator, appends it to the history when one is configured and
// publishes the new entry to live dashboard clients.
// Authentication is enforced upstream by the auth middleware, so the receiver
// itself only performs structural validation.
package receiver
