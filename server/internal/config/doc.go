// Package config loads the server-side configuration from the `server:` section
// of config.yaml (the `agent:` key is ignored by the server binary).
//
// Config fields:
//   - HTTPPort          port for the REST API, /metrics and WebSocket hub (default 8080)
//   - Auth.Mode         "apikey" or "none"
//   - Auth.KeyEnv       environment variable holding the expected API key
//   - Auth.Header       HTTP header name (default "X-API-Key")
//   - Report.TTL        how long a workspace report remains live (default 30m)
//   - BroadcastInterval WebSocket push period (default 5s)
//   - Alerts            rule overrides with cooldowns, plus webhooks
//   - Storage           SQLite history path and retention (default 30 days)
//
// Load(path) applies defaults before unmarshalling, then validates.
package config
