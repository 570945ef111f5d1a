package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cuemby/zerocon/pkg/dispatcher"
	"github.com/cuemby/zerocon/pkg/emitter"
	"github.com/cuemby/zerocon/pkg/event"
	"github.com/cuemby/zerocon/pkg/events"
	"github.com/cuemby/zerocon/pkg/metrics"
	"github.com/cuemby/zerocon/pkg/storage"
	"github.com/cuemby/zerocon/pkg/store"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// syncLimit bounds the requests of the initial sync
const syncLimit = 4

// Watch runs the console until ctx is done: it connects the event
// channel, restores saved views, syncs every resource and keeps them in
// step with the server.
func (c *Console) Watch(ctx context.Context) error {
	return c.Exec(ctx, c.watch)
}

func (c *Console) watch(ctx context.Context) error {
	c.Events.Start()
	defer c.Events.Stop()

	metrics.RegisterComponent(metrics.ComponentEvent, false, "not connected")

	views, err := c.openViews()
	if err != nil {
		return err
	}
	if views != nil {
		defer views.Close()
	}

	g, gctx := errgroup.WithContext(ctx)

	if c.cfg.MetricsAddr != "" {
		srv := newMetricsServer(c.cfg.MetricsAddr)
		g.Go(func() error {
			c.logger.Info().Str("addr", srv.Addr).Msg("Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	collector := metrics.NewCollector(0)
	for _, m := range c.mirrors {
		if m.Paginated() {
			collector.AddStore(string(m.Resource()), m)
		}
	}
	collector.SetDropped(c.Events.Dropped)
	collector.Start()
	defer collector.Stop()

	var saver *viewSaver
	if views != nil {
		saver = newViewSaver(views, c.logger)
		g.Go(func() error { return saver.run(gctx) })
	}

	for _, sub := range c.listen(saver) {
		defer sub.remove()
	}

	tokens := []dispatcher.Token{
		c.Settings.Watch(gctx, c.Bus),
		c.Completion.Watch(gctx, c.Bus),
	}
	for _, m := range c.mirrors {
		tokens = append(tokens, m.Watch(gctx, c.Bus))
	}
	for _, o := range c.owned {
		tokens = append(tokens, o.Watch(gctx, c.Bus))
	}
	defer func() {
		for _, t := range tokens {
			c.Bus.Unregister(t)
		}
	}()

	bridge := event.New(event.Config{
		URL:            event.EndpointURL(c.Client.BaseURL(), c.Client.Token()),
		Header:         c.Client.Header(),
		ReconnectDelay: c.cfg.ReconnectDelay,
		Debounce:       c.cfg.Debounce,
		Dialer:         c.websocketDialer(),
		OnStateChange:  c.publishState,
	}, c.Loop, c.Bus)
	g.Go(func() error { return bridge.Run(gctx) })

	g.Go(func() error {
		if err := c.restore(gctx, views); err != nil && gctx.Err() == nil {
			c.logger.Warn().Err(err).Msg("Initial sync incomplete")
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-c.expired:
			return ErrSessionExpired
		}
	})

	return g.Wait()
}

// restore applies saved views and syncs everything once
func (c *Console) restore(ctx context.Context, views storage.Store) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(syncLimit)

	for _, m := range c.mirrors {
		g.Go(func() error { return c.restoreMirror(gctx, views, m) })
	}
	g.Go(func() error { return c.Settings.Sync(gctx) })
	g.Go(func() error { return c.Completion.Sync(gctx) })
	return g.Wait()
}

func (c *Console) restoreMirror(ctx context.Context, views storage.Store, m Mirror) error {
	if views == nil {
		return m.Sync(ctx)
	}

	view, err := views.LoadView(string(m.Resource()))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return m.Sync(ctx)
	case err != nil:
		c.logger.Warn().Err(err).Str("resource", string(m.Resource())).Msg("Ignoring unreadable view state")
		return m.Sync(ctx)
	}

	// The page is clamped against the count, so it can only be applied
	// after the first sync
	if view.Filter != nil {
		err = m.Filter(ctx, view.Filter)
	} else {
		err = m.Sync(ctx)
	}
	if err != nil {
		return err
	}
	if view.Page > 0 {
		if err := m.Traverse(ctx, view.Page); err != nil {
			return err
		}
	}

	c.Events.Publish(&events.Event{
		Type:     events.EventViewStateRestored,
		Resource: string(m.Resource()),
		Message:  fmt.Sprintf("restored %s at page %d", m.Plural(), m.Page()),
	})
	return nil
}

func (c *Console) openViews() (storage.Store, error) {
	if c.cfg.StateFile == "" {
		return nil, nil
	}
	views, err := storage.NewBoltStore(c.cfg.StateFile)
	if err != nil {
		return nil, err
	}
	if err := views.BindServer(c.cfg.Server); err != nil {
		views.Close()
		return nil, fmt.Errorf("bind view state: %w", err)
	}
	return views, nil
}

type subscription struct {
	remove func()
}

// listen publishes every store change and queues the view for saving.
// Listeners run on the loop.
func (c *Console) listen(saver *viewSaver) []subscription {
	var subs []subscription

	for _, m := range c.mirrors {
		sub := m.AddChangeListener(func() {
			view := m.View()
			msg := fmt.Sprintf("%d of %d %s", m.Len(), m.Count(), m.Plural())
			if m.Paginated() {
				msg += fmt.Sprintf(", page %d/%d", m.Page()+1, max(m.Pages(), 1))
			}
			c.Events.Publish(&events.Event{
				Type:     events.EventStoreChanged,
				Resource: string(m.Resource()),
				Message:  msg,
				Metadata: map[string]string{
					"count": strconv.Itoa(m.Count()),
					"page":  strconv.Itoa(view.Page),
				},
			})
			if saver != nil {
				saver.queue(string(m.Resource()), view)
			}
		})
		subs = append(subs, subscription{remove: func() { m.RemoveChangeListener(sub) }})
	}

	for _, o := range c.owned {
		subs = append(subs, c.listenOne(string(o.Resource()), o.AddChangeListener, o.RemoveChangeListener, func() string {
			return fmt.Sprintf("%d of %d %s of user %s", o.Len(), o.Count(), o.Plural(), o.UserID())
		}))
	}

	settings := c.Settings.Store()
	subs = append(subs, c.listenOne("settings", settings.AddChangeListener, settings.RemoveChangeListener, func() string {
		return fmt.Sprintf("%d auth providers", len(settings.Value().AuthProviders))
	}))

	completion := c.Completion.Store()
	subs = append(subs, c.listenOne("completion", completion.AddChangeListener, completion.RemoveChangeListener, func() string {
		v := completion.Value()
		return fmt.Sprintf("%d nodes, %d services, %d policies", len(v.Nodes), len(v.Services), len(v.Policies))
	}))

	return subs
}

func (c *Console) listenOne(resource string, add func(func()) emitter.Subscription,
	remove func(emitter.Subscription), describe func() string) subscription {

	sub := add(func() {
		c.Events.Publish(&events.Event{
			Type:     events.EventStoreChanged,
			Resource: resource,
			Message:  describe(),
		})
	})
	return subscription{remove: func() { remove(sub) }}
}

func (c *Console) publishState(s event.State, reason string) {
	switch s {
	case event.StateConnected:
		c.Events.Publish(&events.Event{Type: events.EventChannelConnected, Message: "event channel connected"})
	case event.StateDisconnected:
		c.Events.Publish(&events.Event{Type: events.EventChannelLost, Message: reason})
	}
}

func newMetricsServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      metrics.Mux(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// viewSaver writes views off the loop. Only the latest view of each
// resource is kept while a write is in progress.
type viewSaver struct {
	views  storage.Store
	mu     sync.Mutex
	queued map[string]store.View
	signal chan struct{}
	logger zerolog.Logger
}

func newViewSaver(views storage.Store, logger zerolog.Logger) *viewSaver {
	return &viewSaver{
		views:  views,
		queued: make(map[string]store.View),
		signal: make(chan struct{}, 1),
		logger: logger,
	}
}

func (s *viewSaver) queue(resource string, view store.View) {
	s.mu.Lock()
	s.queued[resource] = view
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *viewSaver) run(ctx context.Context) error {
	for {
		select {
		case <-s.signal:
			s.flush()
		case <-ctx.Done():
			s.flush()
			return nil
		}
	}
}

func (s *viewSaver) flush() {
	s.mu.Lock()
	queued := s.queued
	s.queued = make(map[string]store.View)
	s.mu.Unlock()

	for resource, view := range queued {
		if err := s.views.SaveView(resource, view); err != nil {
			s.logger.Warn().Err(err).Str("resource", resource).Msg("Failed to save view state")
		}
	}
}
