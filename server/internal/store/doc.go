// Package store keeps the latest report per workspace in memory with TTL
// eviction, and optionally every received report in a SQLite history for
// trend queries.
package store
