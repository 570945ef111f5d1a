package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cuemby/zerocon/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPChecker_HealthyEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("healthy"))
	}))
	defer server.Close()

	result := NewHTTPChecker(server.URL, nil).Check(context.Background())

	if !result.Healthy {
		t.Errorf("Expected healthy, got unhealthy: %s", result.Message)
	}
	if result.Duration <= 0 {
		t.Error("Expected positive duration")
	}
	if result.Target != server.URL {
		t.Errorf("Expected target %s, got %s", server.URL, result.Target)
	}
}

func TestHTTPChecker_StatusMustMatchExactly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	result := NewHTTPChecker(server.URL, nil).Check(context.Background())
	if result.Healthy {
		t.Errorf("Expected unhealthy for 201 when 200 is expected: %s", result.Message)
	}
	if !strings.Contains(result.Message, "expected 200") {
		t.Errorf("Expected message to name the expected status, got %q", result.Message)
	}

	result = NewHTTPChecker(server.URL, nil).WithStatus(http.StatusCreated).Check(context.Background())
	if !result.Healthy {
		t.Errorf("Expected healthy for 201, got unhealthy: %s", result.Message)
	}
}

func TestHTTPChecker_CustomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Custom-Header") != "test-value" || r.Host != "app.example.com" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewHTTPChecker(server.URL, nil).
		WithHeader("x-custom-header", "test-value").
		WithHeader("host", "app.example.com")

	result := checker.Check(context.Background())
	if !result.Healthy {
		t.Errorf("Expected healthy with custom headers, got unhealthy: %s", result.Message)
	}
}

func TestHTTPChecker_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	result := NewHTTPChecker(server.URL, nil).WithTimeout(50 * time.Millisecond).Check(context.Background())
	if result.Healthy {
		t.Errorf("Expected unhealthy due to timeout, got healthy: %s", result.Message)
	}
}

func TestHTTPChecker_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewHTTPChecker(server.URL, nil).Check(ctx)
	if result.Healthy {
		t.Errorf("Expected unhealthy due to cancelled context, got healthy: %s", result.Message)
	}
}

func TestTCPChecker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	result := NewTCPChecker(addr).Check(context.Background())
	assert.True(t, result.Healthy, result.Message)

	ln.Close()
	result = NewTCPChecker(addr).WithTimeout(time.Second).Check(context.Background())
	assert.False(t, result.Healthy)
}

func TestTCPCheckerDefaultPort(t *testing.T) {
	assert.Equal(t, "zero.example.com:80", NewTCPChecker("zero.example.com").Target())
	assert.Equal(t, "zero.example.com:8443", NewTCPChecker("zero.example.com:8443").Target())
}

func TestForCheck(t *testing.T) {
	tests := []struct {
		name    string
		check   types.Check
		want    []string
		wantErr bool
	}{
		{
			name:  "http targets",
			check: types.Check{Type: types.CheckTypeHTTP, Targets: []string{"https://a", "https://b"}},
			want:  []string{"https://a", "https://b"},
		},
		{
			name:  "ping targets",
			check: types.Check{Type: types.CheckTypePing, Targets: []string{"10.0.0.1", "10.0.0.2:22"}},
			want:  []string{"10.0.0.1:80", "10.0.0.2:22"},
		},
		{
			name:    "unknown type",
			check:   types.Check{Type: "icmp", Targets: []string{"x"}},
			wantErr: true,
		},
		{
			name:    "unsupported method",
			check:   types.Check{Type: types.CheckTypeHTTP, Method: "POST", Targets: []string{"https://a"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkers, err := ForCheck(tt.check, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			var got []string
			for _, c := range checkers {
				got = append(got, c.Target())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestForCheckAppliesSettings(t *testing.T) {
	checkers, err := ForCheck(types.Check{
		Type:       types.CheckTypeHTTP,
		Method:     "head",
		Targets:    []string{"https://a"},
		Timeout:    120,
		StatusCode: 204,
		Headers:    []types.Header{{Key: "x-token", Value: "t"}},
	}, nil)
	require.NoError(t, err)
	require.Len(t, checkers, 1)

	h := checkers[0].(*HTTPChecker)
	assert.Equal(t, http.MethodHead, h.Method)
	assert.Equal(t, MaxTimeout*time.Second, h.Timeout)
	assert.Equal(t, 204, h.ExpectedStatus)
	assert.Equal(t, map[string]string{"X-Token": "t"}, h.Headers)

	checkers, err = ForCheck(types.Check{Type: types.CheckTypeHTTP, Targets: []string{"https://a"}}, nil)
	require.NoError(t, err)
	h = checkers[0].(*HTTPChecker)
	assert.Equal(t, http.MethodGet, h.Method)
	assert.Equal(t, DefaultTimeout*time.Second, h.Timeout)
	assert.Equal(t, http.StatusOK, h.ExpectedStatus)
}

func TestProbeKeepsOrder(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	results := Probe(context.Background(), []Checker{
		NewHTTPChecker(slow.URL, nil),
		NewHTTPChecker(broken.URL, nil),
	})
	require.Len(t, results, 2)
	assert.Equal(t, slow.URL, results[0].Target)
	assert.True(t, results[0].Healthy)
	assert.Equal(t, broken.URL, results[1].Target)
	assert.False(t, results[1].Healthy)
}

func TestStatusUpdate(t *testing.T) {
	s := NewStatus()
	s.Update(Result{Healthy: false}, 2)
	assert.True(t, s.Healthy, "one failure is below the retry threshold")
	s.Update(Result{Healthy: false}, 2)
	assert.False(t, s.Healthy)
	assert.Equal(t, 2, s.ConsecutiveFailures)

	s.Update(Result{Healthy: true}, 2)
	assert.True(t, s.Healthy)
	assert.Equal(t, 0, s.ConsecutiveFailures)
	assert.Equal(t, 1, s.ConsecutiveSuccesses)
}
