package shipper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/trainingpulse/trainingpulse/agent/internal/config"
	"github.com/trainingpulse/trainingpulse/agent/internal/ingest"
	"github.com/trainingpulse/trainingpulse/pkg/types"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
	sendTimeout       = 10 * time.Second

	// ReportsPath is appended to the server endpoint.
	ReportsPath = "/api/v1/reports"
)

// Shipper buffers reports and ships them to trainingpulse-server.
// Ship() is non-blocking; when the buffer is full the oldest report is evicted.
// Run() must be called in a goroutine to drain the buffer.
type Shipper struct {
	url  string
	buf  chan *types.Report
	post postFunc // injectable for tests
}

// postFunc delivers one report. Errors wrapping errPermanent are not retried.
type postFunc func(ctx context.Context, rep *types.Report) error

// errPermanent marks a rejection that retrying cannot fix.
var errPermanent = errors.New("permanent")

// New creates a Shipper for the given agent config.
func New(cfg config.AgentConfig) (*Shipper, error) {
	client, err := ingest.NewHTTPClient(cfg.ServerAuth, config.TLSConfig{}, sendTimeout)
	if err != nil {
		return nil, fmt.Errorf("shipper: build http client: %w", err)
	}
	s := &Shipper{
		url: strings.TrimRight(cfg.ServerEndpoint, "/") + ReportsPath,
		buf: make(chan *types.Report, cfg.BufferSize),
	}
	s.post = httpPost(client, s.url)
	return s, nil
}

// Ship enqueues rep. If the buffer is full the oldest entry is evicted to
// make room.
func (s *Shipper) Ship(rep *types.Report) {
	for {
		select {
		case s.buf <- rep:
			return
		default:
		}
		select {
		case old := <-s.buf:
			slog.Warn("shipper: buffer full, evicted oldest report",
				"workspace", old.Workspace, "report_id", old.ID, "buffer_cap", cap(s.buf))
		default:
		}
	}
}

// Run drains the buffer, posting reports to the server. Transient failures
// are retried with exponential backoff. Run blocks until ctx is cancelled.
func (s *Shipper) Run(ctx context.Context) {
	bo := newBackoff()

	for {
		var rep *types.Report
		select {
		case <-ctx.Done():
			return
		case rep = <-s.buf:
		}

		for {
			err := s.post(ctx, rep)
			if err == nil {
				slog.Debug("shipper: report delivered",
					"workspace", rep.Workspace, "report_id", rep.ID)
				bo.reset()
				break
			}
			if errors.Is(err, errPermanent) {
				slog.Error("shipper: permanent send error, discarding report",
					"workspace", rep.Workspace, "report_id", rep.ID, "err", err)
				break
			}
			if ctx.Err() != nil {
				return
			}

			wait := bo.next()
			slog.Warn("shipper: send failed, will retry",
				"url", s.url, "err", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}

			// A newer report supersedes the one that failed.
			select {
			case newer := <-s.buf:
				rep = newer
			default:
			}
		}
	}
}

// httpPost returns a postFunc that sends JSON to url with client.
func httpPost(client *http.Client, url string) postFunc {
	return func(ctx context.Context, rep *types.Report) error {
		body, err := json.Marshal(rep)
		if err != nil {
			return fmt.Errorf("marshal report: %w: %w", errPermanent, err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w: %w", errPermanent, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("post: %w", err)
		}
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case isPermanentStatus(resp.StatusCode):
			return fmt.Errorf("server answered %d %s: %w",
				resp.StatusCode, strings.TrimSpace(string(msg)), errPermanent)
		default:
			return fmt.Errorf("server answered %d", resp.StatusCode)
		}
	}
}

// isPermanentStatus returns true for responses that indicate the report
// itself (or the agent's credentials) is invalid and should not be retried.
func isPermanentStatus(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// Apply ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}
