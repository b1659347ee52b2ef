package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	logx "stockbot/pkg/logx"
)

// maxBody caps a single captured payload.
const maxBody = 16 << 20

type HTTPConfig struct {
	URL     string
	Pincode string
	Headers map[string]string
	Timeout time.Duration
	Proxy   string
	// Profile names a tls-client browser profile (e.g. "chrome_120", "firefox_117").
	Profile string
}

// Doer is satisfied by tls_client.HttpClient.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource fetches the catalog endpoint with a browser-like TLS fingerprint.
// "{pincode}" in the URL or header values is replaced with the configured pincode.
type HTTPSource struct {
	cfg    HTTPConfig
	log    logx.Logger
	client Doer

	mu   sync.Mutex
	body []byte
	at   time.Time
}

func NewHTTPSource(cfg HTTPConfig, log logx.Logger) (*HTTPSource, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("feed url is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(int(cfg.Timeout / time.Second)),
		tls_client.WithClientProfile(clientProfile(cfg.Profile)),
		tls_client.WithCookieJar(tls_client.NewCookieJar()),
	}
	if cfg.Proxy != "" {
		options = append(options, tls_client.WithProxyUrl(cfg.Proxy))
	}
	c, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, err
	}
	return NewHTTPSourceWithClient(cfg, c, log), nil
}

func clientProfile(name string) profiles.ClientProfile {
	if p, ok := profiles.MappedTLSClients[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return profiles.Chrome_120
}

// NewHTTPSourceWithClient uses a caller-provided client (tests, custom transports).
func NewHTTPSourceWithClient(cfg HTTPConfig, c Doer, log logx.Logger) *HTTPSource {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &HTTPSource{cfg: cfg, log: log, client: c}
}

func (s *HTTPSource) Snapshot(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	body := s.body
	s.mu.Unlock()
	if body != nil {
		return body, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body, nil
}

// Refresh fetches the endpoint and replaces the captured body on success.
// On failure the previous snapshot is dropped so stale data is never re-reported.
func (s *HTTPSource) Refresh(ctx context.Context) error {
	body, err := s.fetch(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.body = nil
		return err
	}
	s.body = body
	s.at = time.Now()
	return nil
}

// CapturedAt returns when the current snapshot was fetched.
func (s *HTTPSource) CapturedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.at
}

func (s *HTTPSource) fetch(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	url := s.expand(s.cfg.URL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFeed, err)
	}
	req.Header = http.Header{
		"accept":          {"application/json, text/plain, */*"},
		"accept-encoding": {"gzip"},
		"accept-language": {"en-US,en;q=0.9"},
		"user-agent":      {"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"},
	}
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, s.expand(v))
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFeed, err)
	}
	s.log.Debug("feed fetched",
		logx.Int("status", resp.StatusCode),
		logx.Int("bytes", len(body)),
		logx.Duration("took", time.Since(start)),
	)
	if resp.StatusCode/100 != 2 {
		sample := string(body)
		if len(sample) > 200 {
			sample = sample[:200] + "..."
		}
		return nil, fmt.Errorf("%w: unexpected status %d: %s", ErrFeed, resp.StatusCode, sample)
	}
	return body, nil
}

func (s *HTTPSource) expand(v string) string {
	return strings.ReplaceAll(v, "{pincode}", s.cfg.Pincode)
}
