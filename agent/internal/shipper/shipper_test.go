package shipper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trainingpulse/trainingpulse/agent/internal/config"
	"github.com/trainingpulse/trainingpulse/pkg/types"
)

// mockServer records reports posted to /api/v1/reports.
type mockServer struct {
	mu       sync.Mutex
	received []*types.Report
	headers  []http.Header
	status   int // response status; 0 means 202
	failN    int // answer 503 to the first N calls
}

func (m *mockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.URL.Path != ReportsPath || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if m.failN > 0 {
		m.failN--
		http.Error(w, "warming up", http.StatusServiceUnavailable)
		return
	}
	var rep types.Report
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m.received = append(m.received, &rep)
	m.headers = append(m.headers, r.Header.Clone())
	if m.status != 0 {
		w.WriteHeader(m.status)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (m *mockServer) reports() []*types.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.Report, len(m.received))
	copy(out, m.received)
	return out
}

func startTestServer(t *testing.T, srv *mockServer) string {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts.URL
}

func makeReport(id string) *types.Report {
	return &types.Report{
		ID:          id,
		Workspace:   "plant-a",
		GeneratedAt: time.Now().UTC(),
		KPIs:        &types.KPISet{CNEPct: "97.5", LeadTimeP95: 30, ConversionPct: "88.0", RegistrationPct: "99.0"},
	}
}

func agentCfg(endpoint string) config.AgentConfig {
	return config.AgentConfig{
		Workspace:      "plant-a",
		ServerEndpoint: endpoint,
		BufferSize:     10,
	}
}

func newShipper(t *testing.T, cfg config.AgentConfig) *Shipper {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// waitFor polls cond until it holds or two seconds pass.
func waitFor(cond func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !cond() {
		time.Sleep(20 * time.Millisecond)
	}
}

// --- Tests ---

func TestShipper_DeliversReport(t *testing.T) {
	srv := &mockServer{}
	s := newShipper(t, agentCfg(startTestServer(t, srv)))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go s.Run(ctx)

	s.Ship(makeReport("r-1"))
	waitFor(func() bool { return len(srv.reports()) > 0 })

	reps := srv.reports()
	if len(reps) != 1 {
		t.Fatalf("server received %d reports, want 1", len(reps))
	}
	if reps[0].ID != "r-1" {
		t.Errorf("ID = %q, want %q", reps[0].ID, "r-1")
	}
	if reps[0].KPIs == nil || reps[0].KPIs.CNEPct != "97.5" {
		t.Errorf("KPIs = %+v, want CNEPct 97.5", reps[0].KPIs)
	}
}

func TestShipper_SendsAPIKey(t *testing.T) {
	t.Setenv("TP_TEST_KEY", "s3cret")
	srv := &mockServer{}
	cfg := agentCfg(startTestServer(t, srv) + "/")
	cfg.ServerAuth = config.AuthConfig{Mode: "apikey", KeyEnv: "TP_TEST_KEY"}
	s := newShipper(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go s.Run(ctx)

	s.Ship(makeReport("r-1"))
	waitFor(func() bool { return len(srv.reports()) > 0 })

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.headers) != 1 {
		t.Fatalf("server received %d requests, want 1", len(srv.headers))
	}
	if got := srv.headers[0].Get("X-API-Key"); got != "s3cret" {
		t.Errorf("X-API-Key = %q, want s3cret", got)
	}
	if got := srv.headers[0].Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}

func TestShipper_MultipleReports(t *testing.T) {
	srv := &mockServer{}
	s := newShipper(t, agentCfg(startTestServer(t, srv)))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go s.Run(ctx)

	for i := 0; i < 5; i++ {
		s.Ship(makeReport("r"))
	}
	waitFor(func() bool { return len(srv.reports()) >= 5 })

	if got := len(srv.reports()); got != 5 {
		t.Errorf("server received %d reports, want 5", got)
	}
}

func TestShipper_BufferEvictsOldest(t *testing.T) {
	// BufferSize=3; Ship 5 items while the shipper is not running.
	// Only the 3 most recent should survive.
	cfg := agentCfg("http://127.0.0.1:1")
	cfg.BufferSize = 3
	s := newShipper(t, cfg)

	for _, id := range []string{"0", "1", "2", "3", "4"} {
		s.Ship(makeReport(id))
	}

	var ids []string
	for len(s.buf) > 0 {
		ids = append(ids, (<-s.buf).ID)
	}
	want := []string{"2", "3", "4"}
	if len(ids) != len(want) {
		t.Fatalf("buffer has %d items, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestShipper_PermanentErrorDiscards(t *testing.T) {
	var calls atomic.Int32
	s := newShipper(t, agentCfg("http://unused"))
	s.post = func(_ context.Context, rep *types.Report) error {
		calls.Add(1)
		if rep.ID == "bad" {
			return errPermanent
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go s.Run(ctx)

	s.Ship(makeReport("bad"))
	s.Ship(makeReport("good"))
	waitFor(func() bool { return calls.Load() >= 2 })

	if got := calls.Load(); got != 2 {
		t.Errorf("post called %d times, want 2 (no retry of the rejected report)", got)
	}
}

func TestShipper_RetriesTransientErrors(t *testing.T) {
	srv := &mockServer{failN: 1}
	s := newShipper(t, agentCfg(startTestServer(t, srv)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go s.Run(ctx)

	s.Ship(makeReport("r-1"))
	deadline := time.Now().Add(4 * time.Second)
	for time.Now().Before(deadline) && len(srv.reports()) == 0 {
		time.Sleep(50 * time.Millisecond)
	}

	if got := len(srv.reports()); got != 1 {
		t.Fatalf("server received %d reports after retry, want 1", got)
	}
}

func TestHTTPPost_ClassifiesStatus(t *testing.T) {
	tests := []struct {
		status    int
		wantErr   bool
		permanent bool
	}{
		{http.StatusAccepted, false, false},
		{http.StatusOK, false, false},
		{http.StatusBadRequest, true, true},
		{http.StatusUnauthorized, true, true},
		{http.StatusForbidden, true, true},
		{http.StatusInternalServerError, true, false},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := &mockServer{status: tc.status}
			s := newShipper(t, agentCfg(startTestServer(t, srv)))

			err := s.post(context.Background(), makeReport("r"))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if got := errors.Is(err, errPermanent); got != tc.permanent {
				t.Errorf("permanent = %v, want %v (err %v)", got, tc.permanent, err)
			}
		})
	}
}

func TestShipper_BackoffResets(t *testing.T) {
	b := newBackoff()
	first := b.next()
	if first > 2*time.Second {
		t.Errorf("first backoff too large: %v", first)
	}
	for i := 0; i < 10; i++ {
		b.next()
	}
	b.reset()
	after := b.next()
	if after > 2*time.Second {
		t.Errorf("backoff after reset too large: %v", after)
	}
}

func TestBackoff_NeverExceedsMax(t *testing.T) {
	b := newBackoff()
	for i := 0; i < 50; i++ {
		d := b.next()
		// With jitter, max is backoffMax * 1.25
		if d > backoffMax*2 {
			t.Errorf("backoff[%d] = %v, exceeds 2×max", i, d)
		}
	}
}

func TestShipper_GracefulShutdown(t *testing.T) {
	s := newShipper(t, agentCfg(startTestServer(t, &mockServer{})))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}
