// Package config loads and watches the agent configuration file (agent.yaml).
//
// Top-level types:
//   - Config{Agent}: full config tree parsed from YAML
//   - AgentConfig: workspace, server_endpoint, poll_interval, buffer_size,
//     server_auth, datasets, compute, thresholds, alerts
//   - Source: path | url, format (csv|csv-quoted|xlsx), sheet, auth, tls
//   - AuthConfig: mode (mtls|apikey|bearer|basic|none); Key(), Token() and
//     Password() resolve secrets from environment variables
//
// Load(path) reads the YAML file, applies defaults (5m poll, 100 buffer),
// then validates struct tags with go-playground/validator followed by the
// threshold and alert rule tables.
//
// Watch(ctx, path, onChange) and WatchFiles(ctx, paths, onChange) use
// fsnotify on the parent directories, so atomic-save editors that replace the
// file via rename keep being observed.
package config
