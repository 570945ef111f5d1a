package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cuemby/zerocon/pkg/log"
	"github.com/cuemby/zerocon/pkg/metrics"
	"github.com/rs/zerolog"
)

// ErrAuthRequired is returned for any 401 response. The session cookie is
// missing or expired and the user has to sign in again.
var ErrAuthRequired = errors.New("authentication required")

// StatusError is a non-2xx response other than 401
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: server error (%d): %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: request failed with status %d", e.Method, e.Path, e.Code)
}

// IsAuthRequired reports whether err came from a 401 response
func IsAuthRequired(err error) bool {
	return errors.Is(err, ErrAuthRequired)
}

const (
	// DefaultTimeout bounds a single request
	DefaultTimeout = 30 * time.Second

	// DefaultCookieName is the console session cookie
	DefaultCookieName = "pritunl-zero-console"

	csrfHeader = "Csrf-Token"
)

// Config configures a Client
type Config struct {
	// BaseURL is the console origin, e.g. https://zero.example.com
	BaseURL string

	// Session is the value of the session cookie
	Session    string
	CookieName string

	Timeout            time.Duration
	InsecureSkipVerify bool

	// HTTPClient overrides the client built from the fields above
	HTTPClient *http.Client
}

// Csrf is the response of GET /csrf
type Csrf struct {
	Token       string `json:"token"`
	Theme       string `json:"theme"`
	EditorTheme string `json:"editor_theme"`
}

// Client talks to the console REST API
type Client struct {
	base       *url.URL
	http       *http.Client
	session    string
	cookieName string

	mu   sync.RWMutex
	csrf Csrf

	logger zerolog.Logger
}

// New creates a client. The CSRF token is empty until LoadCsrf succeeds.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed consoles
		}
		httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}

	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	return &Client{
		base:       base,
		http:       httpClient,
		session:    cfg.Session,
		cookieName: cookieName,
		logger:     log.WithComponent("api"),
	}, nil
}

// BaseURL returns a copy of the console origin
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Token returns the CSRF token loaded by LoadCsrf
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.csrf.Token
}

// SessionCookie returns the cookie sent with every request, or nil when no
// session is configured
func (c *Client) SessionCookie() *http.Cookie {
	if c.session == "" {
		return nil
	}
	return &http.Cookie{Name: c.cookieName, Value: c.session}
}

// Header returns the headers the event channel handshake needs
func (c *Client) Header() http.Header {
	h := http.Header{}
	if cookie := c.SessionCookie(); cookie != nil {
		h.Set("Cookie", cookie.String())
	}
	return h
}

// LoadCsrf fetches the CSRF token used by every later request
func (c *Client) LoadCsrf(ctx context.Context) (Csrf, error) {
	var csrf Csrf
	if err := c.do(ctx, http.MethodGet, "/csrf", nil, nil, &csrf); err != nil {
		return Csrf{}, fmt.Errorf("failed to load csrf token: %w", err)
	}

	c.mu.Lock()
	c.csrf = csrf
	c.mu.Unlock()

	c.logger.Debug().Str("theme", csrf.Theme).Msg("Loaded CSRF token")
	return csrf, nil
}

// Get decodes the JSON response of GET path into out
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Put sends body to path and decodes the response into out, if non-nil
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

// Post sends body to path and decodes the response into out, if non-nil
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// Delete deletes path. A non-nil body is sent as JSON (bulk deletes).
func (c *Client) Delete(ctx context.Context, path string, body any) error {
	return c.do(ctx, http.MethodDelete, path, nil, body, nil)
}

// Page is a decoded list response
type Page[T any] struct {
	Items []T
	Count int
}

// List fetches a collection. The server answers either with a bare array
// or with an object holding the items under plural and the total count.
func List[T any](ctx context.Context, c *Client, path, plural string, query url.Values) (Page[T], error) {
	var raw json.RawMessage
	if err := c.Get(ctx, path, query, &raw); err != nil {
		return Page[T]{}, err
	}
	return decodePage[T](raw, plural)
}

func decodePage[T any](raw json.RawMessage, plural string) (Page[T], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Page[T]{Items: []T{}}, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Page[T]{}, fmt.Errorf("failed to decode %s: %w", plural, err)
		}
		return Page[T]{Items: items, Count: len(items)}, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return Page[T]{}, fmt.Errorf("failed to decode %s: %w", plural, err)
	}

	var page Page[T]
	if data, ok := obj[plural]; ok && !bytes.Equal(data, []byte("null")) {
		if err := json.Unmarshal(data, &page.Items); err != nil {
			return Page[T]{}, fmt.Errorf("failed to decode %s: %w", plural, err)
		}
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	page.Count = len(page.Items)
	if data, ok := obj["count"]; ok {
		if err := json.Unmarshal(data, &page.Count); err != nil {
			return Page[T]{}, fmt.Errorf("failed to decode %s count: %w", plural, err)
		}
	}
	return page, nil
}

type errorResponse struct {
	Error    string `json:"error"`
	ErrorMsg string `json:"error_msg"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set(csrfHeader, token)
	}
	if cookie := c.SessionCookie(); cookie != nil {
		req.AddCookie(cookie)
	}

	timer := metrics.NewTimer()
	resp, err := c.http.Do(req)
	timer.ObserveDurationVec(metrics.APIRequestDuration, method)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("%s %s: request failed: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	metrics.APIRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response body: %w", method, path, err)
	}

	c.logger.Trace().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", timer.Duration()).
		Msg("API request")

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s %s: %w", method, path, ErrAuthRequired)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Method: method, Path: path, Code: resp.StatusCode}
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil {
			statusErr.Message = errResp.ErrorMsg
			if statusErr.Message == "" {
				statusErr.Message = errResp.Error
			}
		}
		return statusErr
	}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
		}
	}
	return nil
}
