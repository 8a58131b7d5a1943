// Package gateway is the single point through which backend calls flow.
//
// FILES:
//   - client.go:   Client, options and the request/response path
//   - recovery.go: one-shot 401 recovery protocol
//   - errors.go:   error normalization into *apierror.Error
//
// Every request carries X-AI-Guard-Provider: web-ui (not overridable) and,
// when a principal is signed in, Authorization: Bearer <token>.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aiguard/console/internal/apierror"
	"github.com/aiguard/console/internal/config"
	"github.com/aiguard/console/internal/identity"
	"github.com/aiguard/console/internal/monitoring"
	"github.com/aiguard/console/internal/utils"
)

// Fixed routing header. Always set last, so caller values are overwritten.
const (
	ProviderHeader      = "X-AI-Guard-Provider"
	ProviderHeaderValue = "web-ui"
	RequestIDHeader     = "X-Request-ID"
)

// TokenSource supplies bearer tokens for the signed-in principal.
// identity.Provider satisfies it.
type TokenSource interface {
	Current() *identity.Principal
	Token(ctx context.Context, forceRefresh bool) (string, error)
}

// Request describes one backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
}

// =============================================================================
// Client
// =============================================================================

// Client is the HTTP gateway. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	tokens     TokenSource
	userAgent  string
	tracker    *monitoring.Tracker
	metrics    *monitoring.MetricsCollector

	hooksMu      sync.RWMutex
	successHooks []func()
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the transport-level timeout. It applies to a copy of the
// HTTP client, so a shared client passed to WithHTTPClient is left alone.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(client *Client) {
		client.timeout = timeout
	}
}

// WithTokenSource attaches the identity provider used for bearer tokens.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(client *Client) {
		client.tokens = ts
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(client *Client) {
		client.userAgent = ua
	}
}

// WithTracker records every HTTP exchange to a JSONL trace.
func WithTracker(t *monitoring.Tracker) ClientOption {
	return func(client *Client) {
		client.tracker = t
	}
}

// WithMetrics counts requests, refreshes and replays.
func WithMetrics(m *monitoring.MetricsCollector) ClientOption {
	return func(client *Client) {
		client.metrics = m
	}
}

// NewClient creates a gateway for the backend at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = config.DefaultAPIBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.DefaultAPITimeout,
		},
		userAgent: config.DefaultUserAgent,
		metrics:   monitoring.NewMetricsCollector(),
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Metrics returns the gateway counters.
func (c *Client) Metrics() monitoring.Snapshot {
	return c.metrics.Snapshot()
}

// OnAuthenticatedSuccess registers fn to run after every successful request
// that carried a bearer token. fn runs on the request goroutine and must not block.
func (c *Client) OnAuthenticatedSuccess(fn func()) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.successHooks = append(c.successHooks, fn)
}

// =============================================================================
// Verbs
// =============================================================================

// Get issues a GET and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path}, out)
}

// Do sends req and decodes a 2xx JSON response into out (nil to discard).
// Failures are returned as *apierror.Error.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	p, err := c.prepare(req)
	if err != nil {
		c.metrics.RecordRequest(false)
		return err
	}

	res, err := c.execute(ctx, p)
	if err != nil {
		c.metrics.RecordRequest(false)
		return err
	}

	if out != nil && len(res.body) > 0 {
		if err := json.Unmarshal(res.body, out); err != nil {
			c.metrics.RecordRequest(false)
			e := apierror.New(apierror.TypeUnknown, fmt.Sprintf("parsing response: %v", err))
			e.StatusCode = res.status
			return e.Wrap(err)
		}
	}

	c.metrics.RecordRequest(true)
	if res.authenticated {
		c.runSuccessHooks()
	}
	return nil
}

// =============================================================================
// Request path
// =============================================================================

// pendingRequest is a fully materialized request that can be sent more than once.
type pendingRequest struct {
	id     string
	method string
	url    string
	header http.Header
	body   []byte
}

// response is the outcome of one HTTP exchange.
type response struct {
	status        int
	body          []byte
	authenticated bool
}

func (c *Client) prepare(req *Request) (*pendingRequest, error) {
	if req == nil || req.Method == "" || req.Path == "" {
		return nil, apierror.Validation("request", "method and path are required")
	}

	body, err := utils.MarshalBody(req.Body)
	if err != nil {
		return nil, apierror.New(apierror.TypeUnknown, fmt.Sprintf("marshaling payload: %v", err)).Wrap(err)
	}

	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	header := make(http.Header)
	for k, vs := range req.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	header.Set("Accept", "application/json")
	if body != nil {
		header.Set("Content-Type", "application/json")
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", c.userAgent)
	}

	return &pendingRequest{
		id:     uuid.NewString(),
		method: req.Method,
		url:    target,
		header: header,
		body:   body,
	}, nil
}

// send performs one HTTP exchange. token may be empty for anonymous requests.
// A transport failure is returned as error; any HTTP status is a response.
func (c *Client) send(ctx context.Context, p *pendingRequest, attempt monitoring.Attempt, token string) (*response, error) {
	var bodyReader io.Reader
	if p.body != nil {
		bodyReader = bytes.NewReader(p.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, p.method, p.url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header = p.header.Clone()
	httpReq.Header.Set(RequestIDHeader, p.id)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	httpReq.Header.Set(ProviderHeader, ProviderHeaderValue)

	auth := httpReq.Header.Get("Authorization")
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.trace(p, attempt, auth, 0, 0, start, err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxResponseSize))
	if err != nil {
		c.trace(p, attempt, auth, resp.StatusCode, 0, start, err)
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.trace(p, attempt, auth, resp.StatusCode, len(body), start, nil)
	return &response{status: resp.StatusCode, body: body, authenticated: token != ""}, nil
}

// trace logs the exchange and records it. Advisory only.
func (c *Client) trace(p *pendingRequest, attempt monitoring.Attempt, auth string, status, size int, start time.Time, err error) {
	latency := time.Since(start)
	authenticated := auth != ""
	ev := log.Debug().
		Str("request_id", p.id).
		Str("method", p.method).
		Str("url", p.url).
		Str("attempt", string(attempt)).
		Bool("authenticated", authenticated).
		Int("status", status).
		Dur("latency", latency)
	if authenticated {
		ev = ev.Str("authorization", utils.MaskBearer(auth))
	}
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("api request")

	event := &monitoring.RequestEvent{
		RequestID:     p.id,
		Timestamp:     start,
		Method:        p.method,
		URL:           p.url,
		Attempt:       attempt,
		Authenticated: authenticated,
		StatusCode:    status,
		RequestBytes:  len(p.body),
		ResponseBytes: size,
		LatencyMs:     latency.Milliseconds(),
		Success:       err == nil && isSuccess(status),
	}
	if err != nil {
		event.Error = err.Error()
	}
	c.tracker.RecordRequest(event)
}

func (c *Client) runSuccessHooks() {
	c.hooksMu.RLock()
	hooks := append([]func(){}, c.successHooks...)
	c.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
