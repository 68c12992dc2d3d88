package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/trainingpulse/trainingpulse/pkg/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// Agent-only file; the server section is absent.
	p := writeConfig(t, `agent:
  workspace: plant-a
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.Report.TTL != DefaultReportTTL {
		t.Errorf("report.ttl: got %v, want %v", cfg.Server.Report.TTL, DefaultReportTTL)
	}
	if cfg.Server.BroadcastInterval != DefaultBroadcastInterval {
		t.Errorf("broadcast_interval: got %v, want %v", cfg.Server.BroadcastInterval, DefaultBroadcastInterval)
	}
	if cfg.Server.Storage.Enabled() {
		t.Error("storage should be disabled without a path")
	}
}

func TestLoad_FullServer(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9091
  auth:
    mode: apikey
    key_env: MY_KEY
    header: X-TP-Key
  report:
    ttl: 10m
  broadcast_interval: 2s
  storage:
    backend: sqlite
    path: /var/lib/trainingpulse/history.db
    retention: 168h
  alerts:
    rules:
      - name: registration_low
        condition: "registration_pct < 95"
        severity: yellow
        title: LMS registration lagging
        cooldown: 1h
    webhooks:
      - type: slack
        url_env: SLACK_URL
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", s.HTTPPort)
	}
	if s.Auth.Mode != "apikey" {
		t.Errorf("auth.mode: got %q, want apikey", s.Auth.Mode)
	}
	if s.Auth.EffectiveHeader() != "X-TP-Key" {
		t.Errorf("header: got %q, want X-TP-Key", s.Auth.EffectiveHeader())
	}
	if s.Report.TTL != 10*time.Minute {
		t.Errorf("report.ttl: got %v, want 10m", s.Report.TTL)
	}
	if !s.Storage.Enabled() || s.Storage.Retention != 168*time.Hour {
		t.Errorf("storage: got %+v", s.Storage)
	}
	if len(s.Alerts.Rules) != 1 {
		t.Fatalf("alerts.rules: got %d, want 1", len(s.Alerts.Rules))
	}
	r := s.Alerts.Rules[0]
	if r.Name != "registration_low" || r.Severity != types.SeverityYellow || r.Cooldown != time.Hour {
		t.Errorf("rule: got %+v", r)
	}
	if len(s.Alerts.Webhooks) != 1 || s.Alerts.Webhooks[0].Type != "slack" {
		t.Errorf("webhooks: got %+v", s.Alerts.Webhooks)
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: K
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "X-API-Key" {
		t.Errorf("EffectiveHeader: got %q, want X-API-Key", h)
	}
}

func TestLoad_KeyEnvResolution(t *testing.T) {
	t.Setenv("TEST_SERVER_KEY", "supersecret")
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: TEST_SERVER_KEY
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k := cfg.Server.Auth.Key(); k != "supersecret" {
		t.Errorf("Key(): got %q, want supersecret", k)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown auth mode": `server:
  auth:
    mode: oauth2
`,
		"apikey without key_env": `server:
  auth:
    mode: apikey
`,
		"port out of range": `server:
  http_port: 70000
`,
		"bad rule condition": `server:
  alerts:
    rules:
      - name: x
        condition: "drop_pct > 10"
        severity: red
`,
		"green rule severity": `server:
  alerts:
    rules:
      - name: x
        condition: "cne_pct < 90"
        severity: green
`,
		"unknown webhook type": `server:
  alerts:
    webhooks:
      - type: pager
        url_env: X
`,
		"unknown backend": `server:
  storage:
    backend: postgres
    path: x
`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
