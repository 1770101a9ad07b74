// Package backend is the HTTP client for the hosted auth and data backend:
// a GoTrue-style auth API under /auth/v1 and a PostgREST-style table API
// under /rest/v1.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"taskroom/internal/observability"
)

// DefaultTimeout bounds a single backend call when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Sentinel errors.
var (
	// ErrNotFound is matched by errors.Is for single-row reads that returned no row.
	ErrNotFound = errors.New("backend: row not found")
	// ErrAdminKeyMissing is returned by admin calls when no service-role key is configured.
	ErrAdminKeyMissing = errors.New("backend: service role key not configured")
	// ErrNoSession is returned when a call needs a user token and the client has none.
	ErrNoSession = errors.New("backend: no access token")
)

// APIError is a non-2xx answer from the backend. Message is the text the
// backend meant for people and is shown to users verbatim.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
	Hint    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned HTTP %d", e.Status)
}

// Is makes errors.Is(err, ErrNotFound) true for PostgREST single-row misses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && (e.Status == http.StatusNotAcceptable || e.Code == "PGRST116")
}

// Message returns the backend's own message carried by err, or fallback when
// err is not an *APIError or the backend sent no text. Transport failures
// never leak their internals this way.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Options configures New.
type Options struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
	Timeout        time.Duration
	Transport      http.RoundTripper // nil means http.DefaultTransport
	Metrics        *observability.Metrics
}

// Client talks to one backend project. A Client is immutable; WithAccessToken
// returns a copy scoped to one signed-in user, so a Client can be shared by
// concurrent requests.
type Client struct {
	baseURL     *url.URL
	anonKey     string
	serviceKey  string
	accessToken string
	http        *http.Client
}

// New creates an anonymous client.
// PRE: opts.URL is an absolute URL, opts.AnonKey is non-empty
// POST: Returns a client whose requests are traced and measured
func New(opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(opts.URL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend: invalid url %q", opts.URL)
	}
	if opts.AnonKey == "" {
		return nil, errors.New("backend: anon key is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &Client{
		baseURL:    u,
		anonKey:    opts.AnonKey,
		serviceKey: opts.ServiceRoleKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(&measuredTransport{base: base, metrics: opts.Metrics}),
		},
	}, nil
}

// WithAccessToken returns a copy of c that authorizes as the given user.
// An empty token yields an anonymous copy.
func (c *Client) WithAccessToken(token string) *Client {
	cp := *c
	cp.accessToken = token
	return &cp
}

// AccessToken returns the user token the client authorizes with, if any.
func (c *Client) AccessToken() string {
	return c.accessToken
}

// HasAdminKey reports whether admin calls can be made.
func (c *Client) HasAdminKey() bool {
	return c.serviceKey != ""
}

// request is one call to the backend.
type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
	bearer  string // overrides the client's token when set
	useKey  string // overrides the apikey header when set
}

// response is the raw outcome of a successful call.
type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) do(ctx context.Context, r request) (*response, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + r.path
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("backend: encode %s %s: %w", r.method, r.path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("backend: build %s %s: %w", r.method, r.path, err)
	}

	apiKey := c.anonKey
	if r.useKey != "" {
		apiKey = r.useKey
	}
	bearer := c.accessToken
	if r.bearer != "" {
		bearer = r.bearer
	}
	if bearer == "" {
		bearer = apiKey
	}
	req.Header.Set("apikey", apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("backend: read %s %s: %w", r.method, r.path, err)
	}

	if resp.StatusCode >= 300 {
		apiErr := decodeError(resp.StatusCode, raw)
		slog.Debug("backend_request", "method", r.method, "path", r.path, "status", resp.StatusCode, "code", apiErr.Code)
		return nil, apiErr
	}
	slog.Debug("backend_request", "method", r.method, "path", r.path, "status", resp.StatusCode)
	return &response{status: resp.StatusCode, header: resp.Header, body: raw}, nil
}

// decodeError maps both error shapes the backend uses onto APIError:
// PostgREST {code, details, hint, message} and GoTrue
// {error, error_description} or {code, error_code, msg}.
func decodeError(status int, raw []byte) *APIError {
	var body struct {
		Code             json.RawMessage `json:"code"`
		ErrorCode        string          `json:"error_code"`
		Message          string          `json:"message"`
		Msg              string          `json:"msg"`
		Details          string          `json:"details"`
		Hint             string          `json:"hint"`
		Error            string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}

	// GoTrue sends code as a number (the HTTP status); PostgREST as a string.
	var code string
	if err := json.Unmarshal(body.Code, &code); err == nil {
		apiErr.Code = code
	}
	if body.ErrorCode != "" {
		apiErr.Code = body.ErrorCode
	}
	if apiErr.Code == "" {
		apiErr.Code = body.Error
	}

	switch {
	case body.Message != "":
		apiErr.Message = body.Message
	case body.Msg != "":
		apiErr.Message = body.Msg
	case body.ErrorDescription != "":
		apiErr.Message = body.ErrorDescription
	default:
		apiErr.Message = body.Error
	}
	apiErr.Details = body.Details
	apiErr.Hint = body.Hint
	return apiErr
}

// measuredTransport records backend call metrics.
type measuredTransport struct {
	base    http.RoundTripper
	metrics *observability.Metrics
}

func (t *measuredTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	t.metrics.ObserveBackend(service(req.URL.Path), req.Method, status, time.Since(start))
	return resp, err
}

// service names the backend API a path belongs to.
func service(path string) string {
	switch {
	case strings.Contains(path, "/auth/v1/"):
		return "auth"
	case strings.Contains(path, "/rest/v1/rpc/"):
		return "rpc"
	case strings.Contains(path, "/rest/v1/"):
		return "rest"
	}
	return "other"
}
