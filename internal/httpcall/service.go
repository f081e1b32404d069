// Package httpcall wraps outbound HTTP calls to configured sources and keeps
// per-source rate-limit bookkeeping so the engine can fail fast instead of
// burning an exhausted budget.
package httpcall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/logger"
)

const (
	// DefaultTimeout bounds one outbound call when the source has no
	// timeout of its own
	DefaultTimeout = 30 * time.Second

	// rateLimitCacheSize bounds the in-process rate-limit state cache
	rateLimitCacheSize = 256
)

// CallConfig carries per-call overrides merged over the source defaults
type CallConfig struct {
	Headers map[string]string
	Query   map[string]string
	Body    any
}

// Response is the outcome of one outbound call
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IsSuccess reports whether the response status is 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Service performs HTTP calls against sources
type Service interface {
	// Call executes one request. A 429 response returns a
	// *domain.RateLimitError carrying the upstream retry headers.
	Call(ctx context.Context, source *domain.Source, endpoint, method string, cfg CallConfig) (*Response, error)

	// CheckRateLimit fails fast with a *domain.RateLimitError when the
	// cached state for the source is exhausted and not yet reset.
	CheckRateLimit(sourceID string) error
}

type service struct {
	client *http.Client
	limits *lru.Cache[string, *rateLimitState]
}

type rateLimitState struct {
	Limit     int
	Remaining int
	Reset     time.Time
	Window    time.Duration
}

// NewService creates a call service with the given default timeout
func NewService(timeout time.Duration) (Service, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limits, err := lru.New[string, *rateLimitState](rateLimitCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit cache: %w", err)
	}
	return &service{
		client: &http.Client{Timeout: timeout},
		limits: limits,
	}, nil
}

func (s *service) CheckRateLimit(sourceID string) error {
	state, ok := s.limits.Get(sourceID)
	if !ok {
		return nil
	}
	if state.Remaining <= 0 && state.Reset.After(time.Now()) {
		return &domain.RateLimitError{
			SourceID:  sourceID,
			Limit:     state.Limit,
			Remaining: state.Remaining,
			Reset:     state.Reset,
			Window:    state.Window,
		}
	}
	return nil
}

func (s *service) Call(ctx context.Context, source *domain.Source, endpoint, method string, cfg CallConfig) (*Response, error) {
	if err := s.CheckRateLimit(source.ID.String()); err != nil {
		return nil, err
	}

	requestURL, err := buildURL(source, endpoint, cfg.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if cfg.Body != nil {
		payload, err := json.Marshal(cfg.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	if source.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, source.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if cfg.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range source.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	log := logger.FromContext(ctx)
	log.Debug("Calling source", "source", source.Name, "method", method, "url", requestURL)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call to %s failed: %w", requestURL, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	s.recordRateLimit(source.ID.String(), resp.Header)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, s.rateLimitErrorFromHeaders(source.ID.String(), resp.Header)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       responseBody,
	}, nil
}

// buildURL joins the source location with the endpoint and adds query
// parameters from the source defaults and the call config.
func buildURL(source *domain.Source, endpoint string, query map[string]string) (string, error) {
	full := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		full = strings.TrimRight(source.Location, "/")
		if endpoint != "" {
			full += "/" + strings.TrimLeft(endpoint, "/")
		}
	}

	parsed, err := url.Parse(full)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", full, err)
	}

	values := parsed.Query()
	for k, v := range source.Query {
		values.Set(k, v)
	}
	for k, v := range query {
		values.Set(k, v)
	}
	parsed.RawQuery = values.Encode()

	return parsed.String(), nil
}

// recordRateLimit caches X-RateLimit-* state observed on a response
func (s *service) recordRateLimit(sourceID string, headers http.Header) {
	remaining, hasRemaining := headerInt(headers, "X-RateLimit-Remaining")
	if !hasRemaining {
		return
	}

	state := &rateLimitState{Remaining: remaining}
	if limit, ok := headerInt(headers, "X-RateLimit-Limit"); ok {
		state.Limit = limit
	}
	if reset, ok := headerInt(headers, "X-RateLimit-Reset"); ok {
		state.Reset = time.Unix(int64(reset), 0)
	}
	if window, ok := headerInt(headers, "X-RateLimit-Window"); ok {
		state.Window = time.Duration(window) * time.Second
	}
	s.limits.Add(sourceID, state)
}

func (s *service) rateLimitErrorFromHeaders(sourceID string, headers http.Header) *domain.RateLimitError {
	rlErr := &domain.RateLimitError{SourceID: sourceID}
	if limit, ok := headerInt(headers, "X-RateLimit-Limit"); ok {
		rlErr.Limit = limit
	}
	if remaining, ok := headerInt(headers, "X-RateLimit-Remaining"); ok {
		rlErr.Remaining = remaining
	}
	if reset, ok := headerInt(headers, "X-RateLimit-Reset"); ok {
		rlErr.Reset = time.Unix(int64(reset), 0)
	} else if retry, ok := headerInt(headers, "Retry-After"); ok {
		rlErr.Reset = time.Now().Add(time.Duration(retry) * time.Second)
	}
	return rlErr
}

func headerInt(headers http.Header, key string) (int, bool) {
	raw := headers.Get(key)
	if raw == "" {
		return 0, false
	}
	var value int
	if _, err := fmt.Sscanf(raw, "%d", &value); err != nil {
		return 0, false
	}
	return value, true
}
