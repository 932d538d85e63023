// Package apiclient is the single gateway to the marketplace REST backend.
// It attaches the bearer credential to every request and signals 401
// responses so the session can be torn down in one place.
package apiclient

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
	"sort"
	"strings"
	"time"

	"github.com/ashureev/marketdesk/internal/apperr"
)

const maxResponseBytes = 4 << 20

// TokenSource yields the current bearer credential, or "" when logged out.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func() string

func (f TokenSourceFunc) Token() string { return f() }

type bearerKey struct{}

// WithBearer returns a copy of ctx whose requests carry token instead of the
// client's token source. It lets a credential be checked before it is
// committed anywhere.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

// BearerFromContext returns the token set by WithBearer.
func BearerFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(bearerKey{}).(string)
	return token, ok
}

// StatusError captures a non-2xx backend response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("apiclient: %s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Detail extracts a human readable message from a DRF-style error body:
// {"detail": "..."}, {"error": "..."} or {"field": ["..."]}.
func (e *StatusError) Detail() string {
	var payload map[string]any
	if err := json.Unmarshal([]byte(e.Body), &payload); err != nil || len(payload) == 0 {
		return strings.TrimSpace(e.Body)
	}
	for _, key := range []string{"detail", "error", "message"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		switch v := payload[k].(type) {
		case string:
			parts = append(parts, k+": "+v)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					parts = append(parts, k+": "+s)
				}
			}
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(e.Body)
	}
	return strings.Join(parts, "; ")
}

// StatusCodeOf returns the backend status carried by err, or 0.
func StatusCodeOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Client talks JSON to the marketplace backend.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized func()
	userAgent      string
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTokenSource sets where the bearer credential is read from on every request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithUnauthorizedHandler sets the hook invoked once for every 401 response.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a Client rooted at baseURL (e.g. http://localhost:8000/api).
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("apiclient: invalid base URL %q", baseURL)
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  "marketdesk",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do performs one request. body, when non-nil, is sent as JSON; a 2xx
// response body is decoded into out when out is non-nil. The bearer comes
// from WithBearer when set on ctx, otherwise from the token source.
//
// A 401 calls the unauthorized handler once and returns a SESSION_EXPIRED
// error; the request is not retried.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.endpoint(path, query)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("apiclient: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	token, ok := BearerFromContext(ctx)
	if !ok && c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.New(apperr.CodeNetwork, "backend unreachable", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("apiclient: failed to close response body", "error", closeErr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperr.New(apperr.CodeNetwork, "reading backend response failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
		if resp.StatusCode == http.StatusUnauthorized {
			slog.Warn("Backend rejected credential", "method", method, "path", path)
			if c.onUnauthorized != nil {
				c.onUnauthorized()
			}
			return apperr.New(apperr.CodeSessionExpired, "session expired", statusErr)
		}
		return statusErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.New(apperr.CodeUpstream, "malformed backend response", fmt.Errorf("decode %s %s: %w", method, path, err))
	}
	return nil
}
