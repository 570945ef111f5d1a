package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/cuemby/zerocon/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, Session: "sess-1"})
	require.NoError(t, err)
	return c
}

func TestNewValidatesURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://zero.example.com", false},
		{"trailing slash", "http://localhost:9700/", false},
		{"empty", "", true},
		{"no scheme", "zero.example.com", true},
		{"websocket scheme", "wss://zero.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Config{BaseURL: tt.url})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadCsrfAndHeaders(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/csrf", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Empty(t, r.Header.Get("Csrf-Token"))
		_ = json.NewEncoder(w).Encode(Csrf{Token: "tok-123", Theme: "dark-5"})
	})
	mux.HandleFunc("/node", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "tok-123", r.Header.Get("Csrf-Token"))

		cookie, err := r.Cookie(DefaultCookieName)
		if assert.NoError(t, err) {
			assert.Equal(t, "sess-1", cookie.Value)
		}

		_, _ = w.Write([]byte(`[]`))
	})
	c := newTestClient(t, mux)

	csrf, err := c.LoadCsrf(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", csrf.Token)
	assert.Equal(t, "tok-123", c.Token())

	var out []types.Node
	require.NoError(t, c.Get(context.Background(), "/node", nil, &out))
}

func TestUnauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := c.Get(context.Background(), "/node", nil, nil)
	require.Error(t, err)
	assert.True(t, IsAuthRequired(err))
	assert.True(t, errors.Is(err, ErrAuthRequired))

	_, err = c.LoadCsrf(context.Background())
	assert.True(t, IsAuthRequired(err))
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"name_invalid","error_msg":"Name is invalid"}`))
	}))

	err := c.Put(context.Background(), "/service/s1", types.Service{ID: "s1"}, nil)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Equal(t, "Name is invalid", statusErr.Message)
	assert.Equal(t, http.MethodPut, statusErr.Method)
	assert.False(t, IsAuthRequired(err))
}

func TestListShapes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/node", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"n1","name":"a"},{"id":"n2","name":"b"}]`))
	})
	mux.HandleFunc("/check", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("page_count"))
		assert.Equal(t, "web", r.URL.Query().Get("name"))
		_, _ = w.Write([]byte(`{"checks":[{"id":"c1"}],"count":41}`))
	})
	mux.HandleFunc("/alert", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"alerts":null,"count":0}`))
	})
	c := newTestClient(t, mux)

	nodes, err := List[types.Node](context.Background(), c, "/node", "nodes", nil)
	require.NoError(t, err)
	assert.Len(t, nodes.Items, 2)
	assert.Equal(t, 2, nodes.Count)

	query := url.Values{"page": {"2"}, "page_count": {"20"}, "name": {"web"}}
	checks, err := List[types.Check](context.Background(), c, "/check", "checks", query)
	require.NoError(t, err)
	assert.Equal(t, []types.Check{{ID: "c1"}}, checks.Items)
	assert.Equal(t, 41, checks.Count)

	alerts, err := List[types.Alert](context.Background(), c, "/alert", "alerts", nil)
	require.NoError(t, err)
	assert.NotNil(t, alerts.Items)
	assert.Empty(t, alerts.Items)
}

func TestDeleteWithBody(t *testing.T) {
	var got []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/policy", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &got))
	}))

	require.NoError(t, c.Delete(context.Background(), "/policy", []string{"p1", "p2"}))
	assert.Equal(t, []string{"p1", "p2"}, got)
}

func TestPostDecodesResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in types.Secret
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		in.ID = "created"
		_ = json.NewEncoder(w).Encode(in)
	}))

	var out types.Secret
	require.NoError(t, c.Post(context.Background(), "/secret", types.Secret{Name: "dns"}, &out))
	assert.Equal(t, "created", out.ID)
	assert.Equal(t, "dns", out.Name)
}

func TestSessionCookieHeader(t *testing.T) {
	c, err := New(Config{BaseURL: "https://zero.example.com", Session: "abc", CookieName: "console"})
	require.NoError(t, err)
	assert.Equal(t, "console=abc", c.Header().Get("Cookie"))

	c, err = New(Config{BaseURL: "https://zero.example.com"})
	require.NoError(t, err)
	assert.Nil(t, c.SessionCookie())
	assert.Empty(t, c.Header().Get("Cookie"))
}
