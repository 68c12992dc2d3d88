package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/trainingpulse/trainingpulse/pkg/rules"
	"github.com/trainingpulse/trainingpulse/pkg/types"
)

func TestLoad_Valid(t *testing.T) {
	yaml := `
agent:
  workspace: plant-north
  server_endpoint: "http://localhost:8080"
  poll_interval: 10m
  buffer_size: 20
  datasets:
    participations:
      path: /data/participaciones.csv
    plan:
      url: "https://lms.example.com/plan.xlsx"
      format: xlsx
      sheet: Plan2025
      auth:
        mode: bearer
        token_env: LMS_TOKEN
  compute:
    exclude_inverted_dates: true
  thresholds:
    - kpi: throughput
      green: 12
      yellow: 10
      polarity: higher
`
	cfg := loadFromString(t, yaml)

	if cfg.Agent.Workspace != "plant-north" {
		t.Errorf("workspace: got %q", cfg.Agent.Workspace)
	}
	if cfg.Agent.PollInterval != 10*time.Minute {
		t.Errorf("poll_interval: got %v", cfg.Agent.PollInterval)
	}
	if cfg.Agent.BufferSize != 20 {
		t.Errorf("buffer_size: got %d", cfg.Agent.BufferSize)
	}
	if got := cfg.Agent.Datasets.Participations.Location(); got != "/data/participaciones.csv" {
		t.Errorf("participations location: got %q", got)
	}
	if got := cfg.Agent.Datasets.Participations.EffectiveFormat(); got != FormatCSV {
		t.Errorf("participations format: got %q, want csv", got)
	}
	plan := cfg.Agent.Datasets.Plan
	if plan.EffectiveFormat() != FormatXLSX || plan.Sheet != "Plan2025" {
		t.Errorf("plan: got format %q sheet %q", plan.Format, plan.Sheet)
	}
	if plan.Auth.Mode != "bearer" {
		t.Errorf("plan auth mode: got %q", plan.Auth.Mode)
	}
	if !cfg.Agent.Compute.ExcludeInvertedDates {
		t.Error("compute.exclude_inverted_dates: got false")
	}
	if len(cfg.Agent.Thresholds) != 1 || cfg.Agent.Thresholds[0].KPI != types.KPIThroughput {
		t.Fatalf("thresholds: got %+v", cfg.Agent.Thresholds)
	}
	if cfg.Agent.Thresholds[0].Polarity != rules.HigherBetter {
		t.Errorf("threshold polarity: got %q", cfg.Agent.Thresholds[0].Polarity)
	}
}

func TestLoad_Defaults(t *testing.T) {
	yaml := `
agent:
  workspace: w
  datasets:
    participations: {path: a.csv}
    plan: {path: b.csv}
`
	cfg := loadFromString(t, yaml)

	if cfg.Agent.PollInterval != DefaultPollInterval {
		t.Errorf("default poll_interval: got %v, want %v", cfg.Agent.PollInterval, DefaultPollInterval)
	}
	if cfg.Agent.BufferSize != DefaultBufferSize {
		t.Errorf("default buffer_size: got %d, want %d", cfg.Agent.BufferSize, DefaultBufferSize)
	}
	if cfg.Agent.ServerEndpoint != "" {
		t.Errorf("server_endpoint: got %q, want empty", cfg.Agent.ServerEndpoint)
	}
	if got := cfg.Agent.ServerAuth.EffectiveHeader(); got != DefaultAPIKeyHeader {
		t.Errorf("EffectiveHeader(): got %q", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing workspace", `
agent:
  datasets:
    participations: {path: a.csv}
    plan: {path: b.csv}
`},
		{"missing dataset", `
agent:
  workspace: w
  datasets:
    participations: {path: a.csv}
`},
		{"path and url", `
agent:
  workspace: w
  datasets:
    participations: {path: a.csv, url: "http://x/a.csv"}
    plan: {path: b.csv}
`},
		{"unknown format", `
agent:
  workspace: w
  datasets:
    participations: {path: a.csv, format: ods}
    plan: {path: b.csv}
`},
		{"ftp url", `
agent:
  workspace: w
  datasets:
    participations: {url: "ftp://x/a.csv"}
    plan: {path: b.csv}
`},
		{"unknown auth mode", `
agent:
  workspace: w
  datasets:
    participations: {url: "http://x/a.csv", auth: {mode: magictoken}}
    plan: {path: b.csv}
`},
		{"inverted threshold", `
agent:
  workspace: w
  datasets:
    participations: {path: a.csv}
    plan: {path: b.csv}
  thresholds:
    - {kpi: cne_pct, green: 80, yellow: 90, polarity: higher}
`},
		{"bad alert condition", `
agent:
  workspace: w
  datasets:
    participations: {path: a.csv}
    plan: {path: b.csv}
  alerts:
    - {name: x, condition: "drop_pct > 1", severity: red}
`},
		{"zero poll interval", `
agent:
  workspace: w
  poll_interval: 0s
  datasets:
    participations: {path: a.csv}
    plan: {path: b.csv}
`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := loadStringErr(t, tc.yaml); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestAuthConfig_Secrets(t *testing.T) {
	t.Setenv("TEST_API_KEY", "supersecret")
	t.Setenv("TEST_BEARER_TOKEN", "mytoken")
	t.Setenv("TEST_PASSWORD", "hunter2")
	a := AuthConfig{KeyEnv: "TEST_API_KEY", TokenEnv: "TEST_BEARER_TOKEN", PasswordEnv: "TEST_PASSWORD"}

	if got := a.Key(); got != "supersecret" {
		t.Errorf("Key(): got %q", got)
	}
	if got := a.Token(); got != "mytoken" {
		t.Errorf("Token(): got %q", got)
	}
	if got := a.Password(); got != "hunter2" {
		t.Errorf("Password(): got %q", got)
	}
	if got := (AuthConfig{}).Key(); got != "" {
		t.Errorf("Key() with no KeyEnv: got %q, want empty", got)
	}
}

func TestWatchFiles_CallsOnWrite(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "participaciones.csv")
	other := filepath.Join(dir, "other.csv")
	if err := os.WriteFile(watched, []byte("Estado\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- WatchFiles(ctx, []string{watched}, func(p string) { changed <- p })
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(other, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(watched, []byte("Estado\nC\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-changed:
		if p != watched {
			t.Errorf("onChange path: got %q, want %q", p, watched)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("onChange not called within 3s")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WatchFiles returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("WatchFiles did not return after cancel")
	}
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return Load(path)
}
