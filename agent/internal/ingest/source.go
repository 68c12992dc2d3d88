package ingest

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/trainingpulse/trainingpulse/agent/internal/config"
)

const (
	defaultFetchTimeout = 30 * time.Second

	// maxFetchBytes caps a single download.
	maxFetchBytes = 64 << 20
)

// Source fetches the raw bytes of one dataset.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	// Location is the path or URL, used in logs and reports.
	Location() string
	// Watchable reports whether the source is a local file that can be
	// watched for changes rather than polled.
	Watchable() bool
}

// NewSource returns a file or HTTP Source for the given configuration.
// The HTTP client is built once and reused across fetches.
func NewSource(src config.Source) (Source, error) {
	if src.Path != "" {
		return &fileSource{path: src.Path}, nil
	}
	if src.URL == "" {
		return nil, fmt.Errorf("ingest: source has neither path nor url")
	}
	client, err := NewHTTPClient(src.Auth, src.TLS, defaultFetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("ingest %q: build http client: %w", src.URL, err)
	}
	return &httpSource{url: src.URL, client: client}, nil
}

type fileSource struct {
	path string
}

func (s *fileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", s.path, err)
	}
	return data, nil
}

func (s *fileSource) Location() string { return s.path }
func (s *fileSource) Watchable() bool  { return true }

type httpSource struct {
	url    string
	client *http.Client
}

// Fetch performs an HTTP GET and returns the body.
func (s *httpSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxFetchBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", maxFetchBytes)
	}
	return data, nil
}

func (s *httpSource) Location() string { return s.url }
func (s *httpSource) Watchable() bool  { return false }

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.EffectiveHeader(), t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// NewHTTPClient constructs an http.Client that authenticates every request
// according to auth. It is shared by dataset sources and the report shipper.
func NewHTTPClient(auth config.AuthConfig, tlsOpts config.TLSConfig, timeout time.Duration) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: tlsOpts.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(auth.CertFile, auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		if auth.CAFile != "" {
			caPEM, err := os.ReadFile(auth.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("no valid certs found in ca file %q", auth.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	return &http.Client{
		Transport: &authRoundTripper{
			base: &http.Transport{TLSClientConfig: tlsCfg},
			auth: auth,
		},
		Timeout: timeout,
	}, nil
}
