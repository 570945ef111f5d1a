package actions

import (
	"context"
	"sync"

	"github.com/cuemby/zerocon/pkg/action"
	"github.com/cuemby/zerocon/pkg/api"
	"github.com/cuemby/zerocon/pkg/dispatcher"
	"github.com/cuemby/zerocon/pkg/log"
	"github.com/cuemby/zerocon/pkg/loop"
	"github.com/cuemby/zerocon/pkg/metrics"
	"github.com/google/uuid"
)

// Sync outcomes recorded in zerocon_syncs_total
const (
	OutcomeApplied = "applied"
	OutcomeStale   = "stale"
	OutcomeError   = "error"
	OutcomeAuth    = "auth"
)

// Notifier shows failures to the user
type Notifier interface {
	Error(msg string, err error)
}

// LogNotifier reports failures as warnings on the global logger
type LogNotifier struct{}

// Error implements Notifier
func (LogNotifier) Error(msg string, err error) {
	log.Logger.Warn().Err(err).Msg(msg)
}

// Loader counts requests in flight. Each Loading call must be paired with
// a call to the returned release function.
//
// The count and onChange share mu, so busy and idle notifications arrive
// in the order the count crossed zero.
type Loader struct {
	mu       sync.Mutex
	n        int
	onChange func(busy bool)
}

// NewLoader creates a loader. onChange, if set, is called when the loader
// becomes busy or idle.
func NewLoader(onChange func(busy bool)) *Loader {
	return &Loader{onChange: onChange}
}

// Loading marks a request as started and returns its release function.
// Calling release more than once has no effect.
func (l *Loader) Loading() (release func()) {
	l.add(1)
	metrics.RequestsInFlight.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			metrics.RequestsInFlight.Dec()
			l.add(-1)
		})
	}
}

// Busy reports whether any request is in flight
func (l *Loader) Busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n > 0
}

func (l *Loader) add(delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	was := l.n > 0
	l.n += delta
	if busy := l.n > 0; busy != was && l.onChange != nil {
		l.onChange(busy)
	}
}

// Env holds what every action needs. One Env is shared by all resources of
// a console.
type Env struct {
	Client     *api.Client
	Scheduler  loop.Scheduler
	Dispatcher *dispatcher.Dispatcher
	Loader     *Loader
	Notifier   Notifier

	// AuthRequired is called on the loop for every 401 response
	AuthRequired func()
}

func (e *Env) loading() func() {
	if e.Loader == nil {
		return func() {}
	}
	return e.Loader.Loading()
}

func (e *Env) notify(msg string, err error) {
	if e.Notifier == nil {
		LogNotifier{}.Error(msg, err)
		return
	}
	e.Notifier.Error(msg, err)
}

func (e *Env) authRequired() {
	if e.AuthRequired != nil {
		e.AuthRequired()
	}
}

// dispatch runs a on the loop and waits for it
func (e *Env) dispatch(ctx context.Context, a action.Action) error {
	var err error
	if doErr := e.Scheduler.Do(ctx, func() {
		err = e.Dispatcher.Dispatch(a)
	}); doErr != nil {
		return doErr
	}
	return err
}

// mutate reports the result of a create, commit or remove call. It runs on
// the loop so the auth hook and notifier see the same ordering as syncs.
func (e *Env) mutate(ctx context.Context, reqErr error, failMsg string) error {
	var result error
	if doErr := e.Scheduler.Do(ctx, func() {
		switch {
		case api.IsAuthRequired(reqErr):
			e.authRequired()
		case reqErr != nil:
			e.notify(failMsg, reqErr)
			result = reqErr
		}
	}); doErr != nil {
		return doErr
	}
	return result
}

// tracker holds the token of the latest sync request of a resource
type tracker struct {
	mu     sync.Mutex
	latest string
}

func (t *tracker) next() string {
	token := uuid.NewString()
	t.mu.Lock()
	t.latest = token
	t.mu.Unlock()
	return token
}

func (t *tracker) current(token string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest == token
}

// settle applies the result of a sync request on the loop. The order of
// checks is auth, staleness, then error. apply runs only for the latest
// successful response. A nil tracker skips the staleness check.
func (e *Env) settle(ctx context.Context, resource action.Resource, t *tracker, token string,
	reqErr error, failMsg string, apply func() error) error {

	logger := log.WithResource("actions", string(resource))

	var result error
	if doErr := e.Scheduler.Do(ctx, func() {
		switch {
		case api.IsAuthRequired(reqErr):
			metrics.SyncsTotal.WithLabelValues(string(resource), OutcomeAuth).Inc()
			logger.Warn().Msg("Session expired, authentication required")
			e.authRequired()

		case t != nil && !t.current(token):
			metrics.SyncsTotal.WithLabelValues(string(resource), OutcomeStale).Inc()
			logger.Debug().Str("token", token).Msg("Dropping stale sync response")

		case reqErr != nil:
			metrics.SyncsTotal.WithLabelValues(string(resource), OutcomeError).Inc()
			e.notify(failMsg, reqErr)
			result = reqErr

		default:
			metrics.SyncsTotal.WithLabelValues(string(resource), OutcomeApplied).Inc()
			result = apply()
		}
	}); doErr != nil {
		return doErr
	}
	return result
}

// watch re-runs sync whenever the event bus reports a change of resource.
// The sync runs on its own goroutine bound to ctx.
func watch(ctx context.Context, bus *dispatcher.Dispatcher, resource action.Resource, sync func(context.Context) error) dispatcher.Token {
	return bus.Register(func(a action.Action) {
		if a.Resource != resource || a.Kind != action.KindChange {
			return
		}
		if ctx.Err() != nil {
			return
		}
		go func() {
			_ = sync(ctx)
		}()
	})
}
