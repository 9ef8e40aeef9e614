// Package panelapi is the typed client for the panel REST backend.
package panelapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"sitepanel.org/internal/ids"
	"sitepanel.org/internal/obs"
)

const (
	// DefaultBaseURL is used when configuration names no backend.
	DefaultBaseURL = "http://localhost:3000"

	authPathPrefix = "/api/auth/"
	maxBodyBytes   = 8 << 20

	defaultTimeout = 15 * time.Second
	defaultRate    = 10
	defaultBurst   = 20
)

// Request headers set by the client.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderSite      = "X-Site"
	HeaderCompany   = "X-Company"
)

// Client talks to the backend. The bearer credential and the established
// manager scope are the only mutable state and are safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	timeout time.Duration

	mu    sync.RWMutex
	token string
	scope Scope
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is still
// wrapped with request metrics.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			c.http = &cp
		}
	}
}

// WithTimeout bounds every request. It applies whatever the option order,
// including over a client given to WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit sets the outgoing token bucket. A non-positive perSec disables
// limiting.
func WithRateLimit(perSec float64, burst int) Option {
	return func(c *Client) {
		if perSec <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// New creates a client for baseURL, or DefaultBaseURL when empty.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("panelapi: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("panelapi: base url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(defaultRate), defaultBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		c.http.Timeout = c.timeout
	}
	c.http.Transport = obs.InstrumentTransport(c.http.Transport)
	return c, nil
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// SetToken installs the bearer credential for later requests. An empty token
// removes the Authorization header.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

// Token returns the installed bearer credential.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type call struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
	// token overrides the installed credential when non-nil.
	token *string
}

func (c *Client) do(ctx context.Context, cl call) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &APIError{Err: err}
	}

	var body io.Reader
	if cl.body != nil {
		buf, err := json.Marshal(cl.body)
		if err != nil {
			return &APIError{Message: "invalid request", Err: err}
		}
		body = bytes.NewReader(buf)
	}
	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return &APIError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := obs.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = ids.New()
	}
	req.Header.Set(HeaderRequestID, requestID)

	token := c.Token()
	if cl.token != nil {
		token = *cl.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if !strings.HasPrefix(cl.path, authPathPrefix) {
		if scope := c.scopeFor(ctx); scope.Complete() {
			req.Header.Set(HeaderSite, scope.Site)
			req.Header.Set(HeaderCompany, scope.Company)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		obs.Logger().Debug().Err(err).Str("method", cl.method).Str("path", cl.path).Str("request_id", requestID).Msg("panel request failed")
		return &APIError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Err: err}
	}
	obs.Logger().Debug().
		Str("method", cl.method).
		Str("path", cl.path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Str("request_id", requestID).
		Msg("panel request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp.StatusCode, raw)
	}
	if cl.out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, cl.out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return nil
}

// getList fetches a collection that the backend returns either as a bare
// array or wrapped as {key: [...]}.
func getList[T any](ctx context.Context, c *Client, path string, query url.Values, key string) ([]T, error) {
	var raw json.RawMessage
	if err := c.do(ctx, call{method: http.MethodGet, path: path, query: query, out: &raw}); err != nil {
		return nil, err
	}
	return decodeList[T](raw, key)
}

func decodeList[T any](raw json.RawMessage, key string) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []T{}, nil
	}
	var items []T
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, &APIError{Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
		}
		return items, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, &APIError{Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	inner, ok := wrapped[key]
	if !ok {
		return []T{}, nil
	}
	if err := json.Unmarshal(inner, &items); err != nil {
		return nil, &APIError{Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func escape(segment string) string { return url.PathEscape(segment) }

func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("panelapi: %s id is required", kind)
	}
	return nil
}

var errNameRequired = errors.New("panelapi: name is required")
