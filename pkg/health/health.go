package health

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cuemby/zerocon/pkg/types"
)

// Timeout bounds applied to a check, in seconds. The server clamps to the
// same range when it saves a check.
const (
	DefaultTimeout = 5
	MaxTimeout     = 30

	DefaultStatusCode = http.StatusOK
)

// Result represents the outcome of probing one target
type Result struct {
	Target    string
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker probes a single target
type Checker interface {
	Check(ctx context.Context) Result

	// Target returns what the checker probes, for reporting
	Target() string
}

// ForCheck builds one checker per target of c, using the check's timeout,
// method, headers and expected status.
func ForCheck(c types.Check, client *http.Client) ([]Checker, error) {
	timeout := time.Duration(clampTimeout(c.Timeout)) * time.Second

	checkers := make([]Checker, 0, len(c.Targets))
	switch c.Type {
	case types.CheckTypeHTTP:
		method := strings.ToUpper(c.Method)
		switch method {
		case "":
			method = http.MethodGet
		case http.MethodGet, http.MethodHead:
		default:
			return nil, fmt.Errorf("check %s: unsupported method %q", c.ID, c.Method)
		}
		status := c.StatusCode
		if status <= 0 || status > 900 {
			status = DefaultStatusCode
		}

		for _, target := range c.Targets {
			h := NewHTTPChecker(target, client).
				WithMethod(method).
				WithStatus(status).
				WithTimeout(timeout)
			for _, header := range c.Headers {
				h.WithHeader(header.Key, header.Value)
			}
			checkers = append(checkers, h)
		}
	case types.CheckTypePing:
		for _, target := range c.Targets {
			checkers = append(checkers, NewTCPChecker(target).WithTimeout(timeout))
		}
	default:
		return nil, fmt.Errorf("check %s: unsupported type %q", c.ID, c.Type)
	}
	return checkers, nil
}

func clampTimeout(seconds int) int {
	switch {
	case seconds < 1:
		return DefaultTimeout
	case seconds > MaxTimeout:
		return MaxTimeout
	}
	return seconds
}

// Status tracks the results of repeated probes of one target
type Status struct {
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastResult           Result

	// Healthy turns false after retries consecutive failures
	Healthy bool
}

// NewStatus creates a Status that starts healthy
func NewStatus() *Status {
	return &Status{Healthy: true}
}

// Update records result. retries below 1 counts as 1.
func (s *Status) Update(result Result, retries int) {
	s.LastResult = result

	if result.Healthy {
		s.ConsecutiveSuccesses++
		s.ConsecutiveFailures = 0
		s.Healthy = true
		return
	}

	s.ConsecutiveFailures++
	s.ConsecutiveSuccesses = 0
	if s.ConsecutiveFailures >= max(retries, 1) {
		s.Healthy = false
	}
}

// Probe runs every checker once, concurrently, and returns the results in
// checker order.
func Probe(ctx context.Context, checkers []Checker) []Result {
	results := make([]Result, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.Check(ctx)
		}()
	}
	wg.Wait()
	return results
}

func failed(target string, start time.Time, format string, args ...any) Result {
	return Result{
		Target:    target,
		Healthy:   false,
		Message:   fmt.Sprintf(format, args...),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}
