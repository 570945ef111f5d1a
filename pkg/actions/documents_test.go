package actions

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cuemby/zerocon/pkg/action"
	"github.com/cuemby/zerocon/pkg/store"
	"github.com/cuemby/zerocon/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditsLoad(t *testing.T) {
	var path, page atomic.Value
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		page.Store(r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`{"audits":[{"id":"a1","type":"admin_login"}],"count":120}`))
	}))
	st := store.NewAudits(store.Options{PageCount: 50, Deferrer: f.manual})
	f.env.Dispatcher.Register(st.Callback)
	audits := NewAudits(f.env, st)

	// No user selected yet
	require.NoError(t, audits.Reload(context.Background()))
	assert.Nil(t, path.Load())

	require.NoError(t, audits.Load(context.Background(), "u1"))
	assert.Equal(t, "/audit/u1", path.Load())
	assert.Equal(t, "u1", st.UserID())
	assert.Equal(t, 120, st.Count())

	require.NoError(t, audits.Traverse(context.Background(), 2))
	assert.Equal(t, "2", page.Load())
	assert.Equal(t, 2, st.Page())
}

func TestSessionsLoadAndRemove(t *testing.T) {
	var mu sync.Mutex
	var requests []string
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.Method+" "+r.URL.RequestURI())
		mu.Unlock()
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`[{"id":"s1","user_id":"u1"},{"id":"s2","user_id":"u1"}]`))
		}
	}))
	st := store.NewOwned[types.Session](action.ResourceSession, store.Options{Deferrer: f.manual})
	f.env.Dispatcher.Register(st.Callback)
	sessions := NewOwned(f.env, OwnedSpecs[action.ResourceSession], st)

	require.NoError(t, sessions.Load(context.Background(), "u1"))
	assert.Equal(t, "u1", st.UserID())
	assert.Len(t, st.Items(), 2)
	assert.Equal(t, 2, st.Count())

	require.NoError(t, sessions.Remove(context.Background(), "s1"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"GET /session/u1", "DELETE /session/s1"}, requests)
}

func TestSettingsSyncAndCommit(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"auth_providers":[],"elastic_address":"http://old:9200"}`))
		case http.MethodPut:
			var in types.Settings
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			in.AuthProviders = append(in.AuthProviders, types.Provider{ID: "generated", Type: "google"})
			_ = json.NewEncoder(w).Encode(in)
		}
	}))
	st := store.NewObject[types.Settings](action.ResourceSettings, false, f.manual)
	f.env.Dispatcher.Register(st.Callback)
	settings := NewSettings(f.env, st)

	require.NoError(t, settings.Sync(context.Background()))
	assert.Equal(t, "http://old:9200", st.Value().ElasticAddress)

	require.NoError(t, settings.Commit(context.Background(), types.Settings{ElasticAddress: "http://new:9200"}))
	assert.Equal(t, "http://new:9200", st.Value().ElasticAddress)
	require.Len(t, st.Value().AuthProviders, 1)
	assert.Equal(t, "generated", st.Value().AuthProviders[0].ID)
}

func TestSettingsCommitFailureKeepsStore(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	st := store.NewObject[types.Settings](action.ResourceSettings, false, f.manual)
	f.env.Dispatcher.Register(st.Callback)
	settings := NewSettings(f.env, st)

	assert.Error(t, settings.Commit(context.Background(), types.Settings{ElasticAddress: "x"}))
	assert.False(t, st.Synced())
	assert.Equal(t, []string{"Failed to commit settings"}, f.notifier.messages())
}

func TestCompletionSkipsWhileInFlight(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	var requests atomic.Int32
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "node", r.URL.Query().Get("kind"))
		close(arrived)
		<-release
		_, _ = w.Write([]byte(`{"nodes":[{"id":"n1","name":"edge"}]}`))
	}))
	st := store.NewObject[types.Completion](action.ResourceCompletion, true, f.manual)
	f.env.Dispatcher.Register(st.Callback)
	completion := NewCompletion(f.env, st)

	done := make(chan error, 1)
	go func() { done <- completion.Filter(context.Background(), action.Filter{"kind": "node"}) }()
	<-arrived

	// Returns at once without a second request
	require.NoError(t, completion.Sync(context.Background()))

	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), requests.Load())
	require.Len(t, st.Value().Nodes, 1)
	assert.Equal(t, "edge", st.Value().Nodes[0].Name)
}
