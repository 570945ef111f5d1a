package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/zerocon/pkg/action"
	"github.com/cuemby/zerocon/pkg/api"
	"github.com/cuemby/zerocon/pkg/dispatcher"
	"github.com/cuemby/zerocon/pkg/loop/looptest"
	"github.com/cuemby/zerocon/pkg/store"
	"github.com/cuemby/zerocon/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Error(msg string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

type fixture struct {
	env      *Env
	manual   *looptest.Manual
	notifier *recordingNotifier
	authHits atomic.Int32
}

func newFixture(t *testing.T, handler http.Handler) *fixture {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := api.New(api.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	f := &fixture{
		manual:   looptest.New(),
		notifier: &recordingNotifier{},
	}
	f.env = &Env{
		Client:     client,
		Scheduler:  f.manual,
		Dispatcher: dispatcher.New(dispatcher.Options{}),
		Loader:     NewLoader(nil),
		Notifier:   f.notifier,
		AuthRequired: func() {
			f.authHits.Add(1)
		},
	}
	return f
}

func newChecks(f *fixture) *Resource[types.Check] {
	st := store.NewCollection[types.Check](action.ResourceCheck, store.Options{
		PageCount: 20,
		Deferrer:  f.manual,
	})
	f.env.Dispatcher.Register(st.Callback)
	return NewResource(f.env, Specs[action.ResourceCheck], st)
}

func checkList(n, count int) []byte {
	checks := make([]types.Check, n)
	for i := range checks {
		checks[i] = types.Check{ID: fmt.Sprintf("c%d", i)}
	}
	data, _ := json.Marshal(map[string]any{"checks": checks, "count": count})
	return data
}

func TestSyncDispatchesPage(t *testing.T) {
	var query atomic.Value
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.RawQuery)
		_, _ = w.Write(checkList(3, 43))
	}))
	checks := newChecks(f)

	require.NoError(t, checks.Filter(context.Background(), action.Filter{"name": "web", "role": ""}))

	assert.Equal(t, "name=web&page=0&page_count=20", query.Load())
	assert.Len(t, checks.Store().Items(), 3)
	assert.Equal(t, 43, checks.Store().Count())
	assert.Equal(t, 3, checks.Store().Pages())
	assert.False(t, f.env.Loader.Busy())
}

func TestTraverseRequestsPage(t *testing.T) {
	var pages []string
	var mu sync.Mutex
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		pages = append(pages, r.URL.Query().Get("page"))
		mu.Unlock()
		_, _ = w.Write(checkList(20, 100))
	}))
	checks := newChecks(f)

	require.NoError(t, checks.Sync(context.Background()))
	require.NoError(t, checks.Traverse(context.Background(), 3))

	assert.Equal(t, []string{"0", "3"}, pages)
	assert.Equal(t, 3, checks.Store().Page())
}

func TestStaleResponseIsDropped(t *testing.T) {
	type call struct {
		release chan []byte
	}
	arrived := make(chan call, 2)
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := call{release: make(chan []byte)}
		arrived <- c
		_, _ = w.Write(<-c.release)
	}))
	checks := newChecks(f)

	first := make(chan error, 1)
	go func() { first <- checks.Sync(context.Background()) }()
	req1 := <-arrived

	second := make(chan error, 1)
	go func() { second <- checks.Sync(context.Background()) }()
	req2 := <-arrived

	// The later request resolves first
	req2.release <- checkList(2, 2)
	require.NoError(t, <-second)
	assert.Equal(t, 2, checks.Store().Count())

	// The superseded request resolves last and must not win
	req1.release <- checkList(5, 5)
	require.NoError(t, <-first)

	assert.Equal(t, 2, checks.Store().Count())
	assert.Len(t, checks.Store().Items(), 2)
	assert.Empty(t, f.notifier.messages())
}

func TestUnauthorizedCallsHook(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	checks := newChecks(f)

	assert.NoError(t, checks.Sync(context.Background()))
	assert.NoError(t, checks.Create(context.Background(), types.Check{Name: "web"}))
	assert.NoError(t, checks.Remove(context.Background(), "c1"))

	assert.Equal(t, int32(3), f.authHits.Load())
	assert.Empty(t, f.notifier.messages())
	assert.Empty(t, checks.Store().Items())
}

func TestUnauthorizedWinsOverStaleness(t *testing.T) {
	arrived := make(chan chan struct{}, 2)
	var calls atomic.Int32
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			release := make(chan struct{})
			arrived <- release
			<-release
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write(checkList(1, 1))
	}))
	checks := newChecks(f)

	first := make(chan error, 1)
	go func() { first <- checks.Sync(context.Background()) }()
	release := <-arrived

	require.NoError(t, checks.Sync(context.Background()))
	close(release)
	require.NoError(t, <-first)

	// The superseded 401 still reaches the hook
	assert.Equal(t, int32(1), f.authHits.Load())
}

func TestSyncErrorNotifies(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"database_error","error_msg":"Database error"}`))
	}))
	checks := newChecks(f)

	err := checks.Sync(context.Background())
	require.Error(t, err)

	var statusErr *api.StatusError
	assert.True(t, errors.As(err, &statusErr))
	assert.Equal(t, []string{"Failed to load checks"}, f.notifier.messages())
	assert.False(t, f.env.Loader.Busy())
}

func TestMutations(t *testing.T) {
	type request struct {
		method string
		path   string
		body   string
	}
	var mu sync.Mutex
	var got []request
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, request{r.Method, r.URL.Path, string(body)})
		mu.Unlock()
	}))
	policies := NewResource(f.env, Specs[action.ResourcePolicy],
		store.NewCollection[types.Policy](action.ResourcePolicy, store.Options{Deferrer: f.manual}))

	ctx := context.Background()
	require.NoError(t, policies.Create(ctx, types.Policy{Name: "admins"}))
	require.NoError(t, policies.Commit(ctx, types.Policy{ID: "p1", Name: "admins"}))
	require.NoError(t, policies.Remove(ctx, "p1"))
	require.NoError(t, policies.RemoveMulti(ctx, []string{"p1", "p2"}))

	assert.Equal(t, []request{
		{http.MethodPost, "/policy", `{"name":"admins"}`},
		{http.MethodPut, "/policy/p1", `{"id":"p1","name":"admins"}`},
		{http.MethodDelete, "/policy/p1", ""},
		{http.MethodDelete, "/policy", `["p1","p2"]`},
	}, got)
	assert.Empty(t, policies.Store().Items())
}

func TestMutationErrorNotifies(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	nodes := NewResource(f.env, Specs[action.ResourceNode],
		store.NewCollection[types.Node](action.ResourceNode, store.Options{Deferrer: f.manual}))

	ctx := context.Background()
	assert.Error(t, nodes.Create(ctx, types.Node{Name: "a"}))
	assert.Error(t, nodes.Commit(ctx, types.Node{ID: "n1"}))
	assert.Error(t, nodes.RemoveMulti(ctx, []string{"n1"}))

	assert.Equal(t, []string{
		"Failed to create node",
		"Failed to save node",
		"Failed to delete nodes",
	}, f.notifier.messages())
}

func TestWatchResyncsOnChange(t *testing.T) {
	synced := make(chan struct{}, 4)
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"n1"}]`))
		synced <- struct{}{}
	}))
	nodes := NewResource(f.env, Specs[action.ResourceNode],
		store.NewCollection[types.Node](action.ResourceNode, store.Options{Deferrer: f.manual}))
	f.env.Dispatcher.Register(nodes.Store().Callback)

	bus := dispatcher.New(dispatcher.Options{Name: "events"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	nodes.Watch(ctx, bus)

	require.NoError(t, bus.Dispatch(action.Change(action.ResourceService)))
	require.NoError(t, bus.Dispatch(action.Change(action.ResourceNode)))

	select {
	case <-synced:
	case <-time.After(2 * time.Second):
		t.Fatal("change event did not trigger a sync")
	}
	assert.Eventually(t, func() bool {
		_, ok := nodes.Store().Get("n1")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, synced, 0)
}

func TestLoader(t *testing.T) {
	var states []bool
	l := NewLoader(func(busy bool) { states = append(states, busy) })

	a := l.Loading()
	b := l.Loading()
	assert.True(t, l.Busy())

	a()
	a()
	assert.True(t, l.Busy())
	b()
	assert.False(t, l.Busy())

	assert.Equal(t, []bool{true, false}, states)
}

func TestLoaderConcurrentNotificationsAlternate(t *testing.T) {
	var states []bool
	l := NewLoader(func(busy bool) { states = append(states, busy) })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Loading()()
			}
		}()
	}
	wg.Wait()

	assert.False(t, l.Busy())
	require.NotEmpty(t, states)
	for i, busy := range states {
		assert.Equal(t, i%2 == 0, busy, "notification %d", i)
	}
	assert.False(t, states[len(states)-1])
}
