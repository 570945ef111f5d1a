package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPChecker requests a URL and expects one exact status code
type HTTPChecker struct {
	URL            string
	Method         string
	Headers        map[string]string
	ExpectedStatus int
	Timeout        time.Duration

	client *http.Client
}

// NewHTTPChecker creates an HTTP checker for url. A nil client uses
// http.DefaultClient; the timeout is applied per request.
func NewHTTPChecker(url string, client *http.Client) *HTTPChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPChecker{
		URL:            url,
		Method:         http.MethodGet,
		Headers:        make(map[string]string),
		ExpectedStatus: DefaultStatusCode,
		Timeout:        DefaultTimeout * time.Second,
		client:         client,
	}
}

// Check performs the request
func (h *HTTPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, h.Method, h.URL, nil)
	if err != nil {
		return failed(h.URL, start, "failed to create request: %v", err)
	}
	for key, value := range h.Headers {
		req.Header.Set(key, value)
	}
	// Host has to be set on the request, not in the header map
	if host, ok := h.Headers["Host"]; ok {
		req.Host = host
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return failed(h.URL, start, "request failed: %v", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	healthy := resp.StatusCode == h.ExpectedStatus
	message := fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	if !healthy {
		message = fmt.Sprintf("%s (expected %d)", message, h.ExpectedStatus)
	}

	return Result{
		Target:    h.URL,
		Healthy:   healthy,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Target returns the URL
func (h *HTTPChecker) Target() string {
	return h.URL
}

// WithMethod sets the HTTP method
func (h *HTTPChecker) WithMethod(method string) *HTTPChecker {
	h.Method = method
	return h
}

// WithHeader adds a request header
func (h *HTTPChecker) WithHeader(key, value string) *HTTPChecker {
	h.Headers[http.CanonicalHeaderKey(key)] = value
	return h
}

// WithStatus sets the expected status code
func (h *HTTPChecker) WithStatus(code int) *HTTPChecker {
	h.ExpectedStatus = code
	return h
}

// WithTimeout sets the request timeout
func (h *HTTPChecker) WithTimeout(timeout time.Duration) *HTTPChecker {
	h.Timeout = timeout
	return h
}
