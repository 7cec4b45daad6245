package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Request timeout budgets. Short calls (count, stats, single mutations)
// stay tight; the list carries more data; the notification recompute is
// expensive on the server side.
const (
	TimeoutShort = 5 * time.Second
	TimeoutList  = 10 * time.Second
	TimeoutCheck = 15 * time.Second
)

// TokenSource supplies the bearer credential for each request. It is
// consulted per call so credential changes take effect without rebuilding
// the client.
type TokenSource func() (string, error)

// StaticToken returns a TokenSource that always yields the given token.
func StaticToken(token string) TokenSource {
	return func() (string, error) { return token, nil }
}

// Client is a thin HTTP client for the fleet-maintenance REST API.
// It handles Bearer token authentication, JSON marshaling, per-call
// timeouts, and converts 401/403 responses into an AuthError while
// firing the OnUnauthorized hook.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *log.Logger

	// onUnauthorized is the session-invalidation hook. It fires at most
	// once per run of consecutive auth failures; a successful call
	// re-arms it.
	onUnauthorized func()
	mu             sync.Mutex
	unauthFired    bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithOnUnauthorized installs the hook invoked when the server answers
// 401 or 403. The hook is expected to clear the stored credential and
// route the user back to the connect screen.
func WithOnUnauthorized(hook func()) Option {
	return func(c *Client) { c.onUnauthorized = hook }
}

// WithHTTPClient replaces the underlying http.Client. Used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new fleet API client. The baseURL should be the root URL
// of the server (e.g. https://fleet.example.com/api).
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{},
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetBaseURL repoints the client at a different server. Safe to call
// concurrently with in-flight requests.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.mu.Unlock()
}

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(
	ctx context.Context,
	path string,
	result interface{},
	timeout time.Duration,
) error {
	return c.do(ctx, http.MethodGet, path, nil, result, timeout)
}

// Post performs an HTTP POST request with an optional JSON body and
// unmarshals the JSON response.
func (c *Client) Post(
	ctx context.Context,
	path string,
	body interface{},
	result interface{},
	timeout time.Duration,
) error {
	return c.do(ctx, http.MethodPost, path, body, result, timeout)
}

// Patch performs an HTTP PATCH request with an optional JSON body and
// unmarshals the JSON response.
func (c *Client) Patch(
	ctx context.Context,
	path string,
	body interface{},
	result interface{},
	timeout time.Duration,
) error {
	return c.do(ctx, http.MethodPatch, path, body, result, timeout)
}

// do is the core HTTP method that builds the request, attaches auth,
// applies the per-call timeout, and handles the response status taxonomy.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
	timeout time.Duration,
) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c.mu.Lock()
	url := c.baseURL + path
	c.mu.Unlock()

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	token, err := c.tokens()
	if err != nil {
		return fmt.Errorf("loading credential: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "err", err)
		return fmt.Errorf("executing request %s %s: %w", method, path, err)
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("reading response body: %w", readErr)
	}

	if resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden {
		c.logger.Warn("session rejected", "status", resp.StatusCode, "path", path)
		c.fireUnauthorized()
		return &AuthError{
			StatusCode: resp.StatusCode,
			Message:    "session expired or credential rejected",
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       string(respBody),
		}
	}

	c.rearmUnauthorized()

	// No content to parse (e.g. 204).
	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf(
			"unmarshaling response from %s %s: %w", method, path, err,
		)
	}

	return nil
}

// fireUnauthorized invokes the hook once per run of auth failures.
func (c *Client) fireUnauthorized() {
	c.mu.Lock()
	fired := c.unauthFired
	c.unauthFired = true
	c.mu.Unlock()

	if !fired && c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

// rearmUnauthorized resets the once-guard after a successful call.
func (c *Client) rearmUnauthorized() {
	c.mu.Lock()
	c.unauthFired = false
	c.mu.Unlock()
}
