package console

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cuemby/zerocon/pkg/action"
	"github.com/cuemby/zerocon/pkg/actions"
	"github.com/cuemby/zerocon/pkg/api"
	"github.com/cuemby/zerocon/pkg/config"
	"github.com/cuemby/zerocon/pkg/dispatcher"
	"github.com/cuemby/zerocon/pkg/event"
	"github.com/cuemby/zerocon/pkg/events"
	"github.com/cuemby/zerocon/pkg/log"
	"github.com/cuemby/zerocon/pkg/loop"
	"github.com/cuemby/zerocon/pkg/metrics"
	"github.com/cuemby/zerocon/pkg/store"
	"github.com/cuemby/zerocon/pkg/types"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrSessionExpired is returned when the server rejected the session
var ErrSessionExpired = errors.New("session expired, sign in to the console again")

// Console owns one instance of every component. Nothing in the packages it
// wires is global, so tests may build as many consoles as they need.
type Console struct {
	cfg config.Config

	Loop       *loop.Loop
	Dispatcher *dispatcher.Dispatcher
	// Bus carries server change events to the resources
	Bus    *dispatcher.Dispatcher
	Client *api.Client
	Loader *actions.Loader
	Events *events.Broker

	Nodes        *actions.Resource[types.Node]
	Services     *actions.Resource[types.Service]
	Certificates *actions.Resource[types.Certificate]
	Authorities  *actions.Resource[types.Authority]
	Policies     *actions.Resource[types.Policy]
	Checks       *actions.Resource[types.Check]
	Alerts       *actions.Resource[types.Alert]
	Secrets      *actions.Resource[types.Secret]
	Logs         *actions.Resource[types.Log]
	Users        *actions.Resource[types.User]
	Endpoints    *actions.Resource[types.Endpoint]

	Audits          *actions.Owned[types.Audit]
	Sessions        *actions.Owned[types.Session]
	Devices         *actions.Owned[types.Device]
	SSHCertificates *actions.Owned[types.SSHCertificate]

	Settings   *actions.Settings
	Completion *actions.Completion

	mirrors []Mirror
	owned   []OwnedMirror

	expireOnce sync.Once
	expired    chan struct{}

	logger zerolog.Logger
}

// New builds a console from cfg. No network call is made.
func New(cfg config.Config) (*Console, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := api.New(api.Config{
		BaseURL:            cfg.Server,
		Session:            cfg.SessionCookie,
		CookieName:         cfg.CookieName,
		Timeout:            cfg.RequestTimeout,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, err
	}

	c := &Console{
		cfg:        cfg,
		Loop:       loop.New(),
		Dispatcher: dispatcher.New(dispatcher.Options{Name: "actions"}),
		Bus:        dispatcher.New(dispatcher.Options{Name: "events"}),
		Client:     client,
		Events:     events.NewBroker(),
		expired:    make(chan struct{}),
		logger:     log.WithComponent("console"),
	}
	c.Loader = actions.NewLoader(func(busy bool) {
		c.logger.Trace().Bool("busy", busy).Msg("Loader state changed")
	})

	env := &actions.Env{
		Client:       client,
		Scheduler:    c.Loop,
		Dispatcher:   c.Dispatcher,
		Loader:       c.Loader,
		Notifier:     &notifier{broker: c.Events},
		AuthRequired: c.authRequired,
	}

	reset := store.PolicyFor(cfg.FilterReset, cfg.FilterResetKey)
	c.Nodes = newResource[types.Node](c, env, action.ResourceNode, reset)
	c.Services = newResource[types.Service](c, env, action.ResourceService, reset)
	c.Certificates = newResource[types.Certificate](c, env, action.ResourceCertificate, reset)
	c.Authorities = newResource[types.Authority](c, env, action.ResourceAuthority, reset)
	c.Policies = newResource[types.Policy](c, env, action.ResourcePolicy, reset)
	c.Checks = newResource[types.Check](c, env, action.ResourceCheck, reset)
	c.Alerts = newResource[types.Alert](c, env, action.ResourceAlert, reset)
	c.Secrets = newResource[types.Secret](c, env, action.ResourceSecret, reset)
	c.Logs = newResource[types.Log](c, env, action.ResourceLog, store.PolicyFor(cfg.FilterReset, "level"))

	c.Users = newResource[types.User](c, env, action.ResourceUser, store.PolicyFor(cfg.FilterReset, "username"))
	c.Endpoints = newResource[types.Endpoint](c, env, action.ResourceEndpoint, reset)

	c.Audits = newOwned[types.Audit](c, env, action.ResourceAudit, reset)
	c.Sessions = newOwned[types.Session](c, env, action.ResourceSession, reset)
	c.Devices = newOwned[types.Device](c, env, action.ResourceDevice, reset)
	c.SSHCertificates = newOwned[types.SSHCertificate](c, env, action.ResourceSSHCert, reset)

	settings := store.NewObject[types.Settings](action.ResourceSettings, false, c.Loop)
	c.Dispatcher.Register(settings.Callback)
	c.Settings = actions.NewSettings(env, settings)

	completion := store.NewObject[types.Completion](action.ResourceCompletion, true, c.Loop)
	c.Dispatcher.Register(completion.Callback)
	c.Completion = actions.NewCompletion(env, completion)

	return c, nil
}

func newResource[T types.Entity](c *Console, env *actions.Env, r action.Resource, reset store.ResetPolicy) *actions.Resource[T] {
	st := store.NewCollection[T](r, store.Options{
		PageCount: c.cfg.PageCount(string(r)),
		Reset:     reset,
		Deferrer:  c.Loop,
	})
	c.Dispatcher.Register(st.Callback)

	res := actions.NewResource(env, actions.Specs[r], st)
	c.mirrors = append(c.mirrors, mirror[T]{res})
	return res
}

func newOwned[T types.Entity](c *Console, env *actions.Env, r action.Resource, reset store.ResetPolicy) *actions.Owned[T] {
	st := store.NewOwned[T](r, store.Options{
		PageCount: c.cfg.PageCount(string(r)),
		Reset:     reset,
		Deferrer:  c.Loop,
	})
	c.Dispatcher.Register(st.Callback)

	res := actions.NewOwned(env, actions.OwnedSpecs[r], st)
	c.owned = append(c.owned, ownedMirror[T]{res})
	return res
}

// Mirrors returns the collection resources in display order
func (c *Console) Mirrors() []Mirror {
	return append([]Mirror(nil), c.mirrors...)
}

// Mirror returns the collection resource r
func (c *Console) Mirror(r action.Resource) (Mirror, bool) {
	for _, m := range c.mirrors {
		if m.Resource() == r {
			return m, true
		}
	}
	return nil, false
}

// Owned returns the per-user resources: audits, sessions, devices and SSH
// certificates
func (c *Console) Owned() []OwnedMirror {
	return append([]OwnedMirror(nil), c.owned...)
}

// Config returns the configuration the console was built with
func (c *Console) Config() config.Config {
	return c.cfg
}

// Expired is closed when the server answered 401
func (c *Console) Expired() <-chan struct{} {
	return c.expired
}

// Exec starts the loop, loads the CSRF token and runs fn. The loop stops
// when fn returns. A 401 seen at any point turns the result into
// ErrSessionExpired.
func (c *Console) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	// The loop stops when fn returns, not when ctx is done
	loopCtx, stopLoop := context.WithCancel(context.WithoutCancel(ctx))

	g.Go(func() error {
		if err := c.Loop.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		defer stopLoop()

		if _, err := c.Client.LoadCsrf(gctx); err != nil {
			if api.IsAuthRequired(err) {
				return ErrSessionExpired
			}
			metrics.UpdateComponent(metrics.ComponentAPI, false, err.Error())
			return fmt.Errorf("load csrf token: %w", err)
		}
		metrics.UpdateComponent(metrics.ComponentAPI, true, "")

		err := fn(gctx)
		select {
		case <-c.expired:
			return ErrSessionExpired
		default:
		}
		return err
	})

	return g.Wait()
}

// Reset clears every store
func (c *Console) Reset(ctx context.Context) error {
	var err error
	if doErr := c.Loop.Do(ctx, func() {
		err = c.Dispatcher.Dispatch(action.Reset(action.ResourceGlobal))
	}); doErr != nil {
		return doErr
	}
	return err
}

// SyncAll syncs every collection, settings and completion with at most
// limit requests in flight. Failures are already reported through the
// notifier; the first one is returned.
func (c *Console) SyncAll(ctx context.Context, limit int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, m := range c.mirrors {
		g.Go(func() error { return m.Sync(gctx) })
	}
	g.Go(func() error { return c.Settings.Sync(gctx) })
	g.Go(func() error { return c.Completion.Sync(gctx) })
	return g.Wait()
}

// authRequired runs on the loop, outside any dispatch
func (c *Console) authRequired() {
	c.expireOnce.Do(func() {
		c.logger.Error().Msg("Server rejected the session")
		metrics.UpdateComponent(metrics.ComponentAPI, false, "authentication required")
		c.Events.Publish(&events.Event{
			Type:    events.EventSessionExpired,
			Message: ErrSessionExpired.Error(),
		})
		if err := c.Dispatcher.Dispatch(action.Reset(action.ResourceGlobal)); err != nil {
			c.logger.Error().Err(err).Msg("Failed to reset stores")
		}
		close(c.expired)
	})
}

func (c *Console) websocketDialer() event.Dialer {
	d := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 15 * time.Second,
	}
	if c.cfg.InsecureSkipVerify {
		d.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed consoles
	}
	return event.WebsocketDialer{Dialer: d}
}

// notifier logs failures and forwards them to the broker
type notifier struct {
	broker *events.Broker
}

func (n *notifier) Error(msg string, err error) {
	actions.LogNotifier{}.Error(msg, err)

	e := &events.Event{Type: events.EventOperationFailed, Message: msg}
	if err != nil {
		e.Metadata = map[string]string{"error": err.Error()}
	}
	n.broker.Publish(e)
}
