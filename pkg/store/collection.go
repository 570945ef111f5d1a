package store

import (
	"sync"

	"github.com/cuemby/zerocon/pkg/action"
	"github.com/cuemby/zerocon/pkg/emitter"
	"github.com/cuemby/zerocon/pkg/log"
	"github.com/cuemby/zerocon/pkg/metrics"
	"github.com/cuemby/zerocon/pkg/types"
	"github.com/rs/zerolog"
)

// Options configures a store
type Options struct {
	// PageCount is the page size. Zero means the resource is not paginated.
	PageCount int

	// Reset decides when a filter change sends the page back to 0. Nil
	// uses FilterResetKey("name").
	Reset ResetPolicy

	// Deferrer runs change notifications after the current loop task.
	Deferrer emitter.Deferrer
}

// Collection mirrors one server collection. Mutations happen only in
// Callback, on the loop goroutine. Getters may be called from any
// goroutine.
type Collection[T types.Entity] struct {
	resource  action.Resource
	pageCount int
	reset     ResetPolicy

	mu     sync.RWMutex
	items  []T
	index  map[string]int
	page   int
	count  int
	filter action.Filter
	owner  string

	emitter *emitter.Emitter
	logger  zerolog.Logger
}

// NewCollection creates an empty store for resource
func NewCollection[T types.Entity](resource action.Resource, opts Options) *Collection[T] {
	reset := opts.Reset
	if reset == nil {
		reset = FilterResetKey("name")
	}
	return &Collection[T]{
		resource:  resource,
		pageCount: opts.PageCount,
		reset:     reset,
		items:     []T{},
		index:     map[string]int{},
		emitter:   emitter.New(opts.Deferrer),
		logger:    log.WithResource("store", string(resource)),
	}
}

// Resource returns the resource the store mirrors
func (c *Collection[T]) Resource() action.Resource {
	return c.resource
}

// Items returns a deep copy of the current snapshot when T has a Clone
// method, a shallow one otherwise. It is never nil.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneItems(c.items)
}

// Get returns the entity with the given ID
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return cloneItem(c.items[i]), true
}

// Page returns the current page index
func (c *Collection[T]) Page() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.page
}

// PageCount returns the page size, or 0 for unpaginated resources
func (c *Collection[T]) PageCount() int {
	return c.pageCount
}

// Paginated reports whether syncs request a single page
func (c *Collection[T]) Paginated() bool {
	return c.pageCount > 0
}

// Pages returns the number of pages the server count spans
func (c *Collection[T]) Pages() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pages()
}

// Count returns the server-reported total
func (c *Collection[T]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

// Filter returns a copy of the filter. Nil means the filter is hidden.
func (c *Collection[T]) Filter() action.Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter.Clone()
}

// Owner returns the owner of the synced page, if the resource is scoped
func (c *Collection[T]) Owner() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

// View returns the page and filter, which is the state worth persisting
func (c *Collection[T]) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return View{Page: c.page, Filter: c.filter.Clone()}
}

// AddChangeListener subscribes fn to change notifications
func (c *Collection[T]) AddChangeListener(fn func()) emitter.Subscription {
	return c.emitter.On(emitter.Change, func(string) { fn() })
}

// RemoveChangeListener unsubscribes a change listener
func (c *Collection[T]) RemoveChangeListener(sub emitter.Subscription) {
	c.emitter.Off(sub)
}

// Callback is registered with the dispatcher
func (c *Collection[T]) Callback(a action.Action) {
	if !a.Targets(c.resource) {
		c.ignore(a)
		return
	}

	switch a.Kind {
	case action.KindSync:
		data, ok := a.Data.(action.SyncData[T])
		if !ok {
			c.ignore(a)
			return
		}
		c.sync(data)

	case action.KindTraverse:
		data, ok := a.Data.(action.TraverseData)
		if !ok {
			c.ignore(a)
			return
		}
		c.traverse(data.Page)

	case action.KindFilter:
		data, ok := a.Data.(action.FilterData)
		if !ok {
			c.ignore(a)
			return
		}
		c.applyFilter(data.Filter)

	case action.KindReset:
		c.clear()

	default:
		c.ignore(a)
	}
}

func (c *Collection[T]) sync(data action.SyncData[T]) {
	items := cloneItems(data.Items)
	index := make(map[string]int, len(items))
	for i, item := range items {
		if id := item.EntityID(); id != "" {
			index[id] = i
		}
	}

	c.mu.Lock()
	c.items = items
	c.index = index
	c.count = data.Count
	c.owner = data.Owner
	c.page = c.clamp(c.page)
	page := c.page
	c.mu.Unlock()

	metrics.StoreItems.WithLabelValues(string(c.resource)).Set(float64(len(items)))
	metrics.StoreCount.WithLabelValues(string(c.resource)).Set(float64(data.Count))
	c.logger.Debug().
		Int("items", len(items)).
		Int("count", data.Count).
		Int("page", page).
		Msg("Synced")

	c.emitter.EmitDefer(emitter.Change)
}

func (c *Collection[T]) traverse(page int) {
	c.mu.Lock()
	c.page = c.clamp(page)
	c.mu.Unlock()

	c.emitter.EmitDefer(emitter.Change)
}

func (c *Collection[T]) applyFilter(filter action.Filter) {
	c.mu.Lock()
	if c.reset.ShouldReset(c.filter, filter) {
		c.page = 0
	}
	c.filter = filter.Clone()
	c.mu.Unlock()

	c.emitter.EmitDefer(emitter.Change)
}

func (c *Collection[T]) clear() {
	c.mu.Lock()
	c.items = []T{}
	c.index = map[string]int{}
	c.page = 0
	c.count = 0
	c.filter = nil
	c.owner = ""
	c.mu.Unlock()

	metrics.StoreItems.WithLabelValues(string(c.resource)).Set(0)
	metrics.StoreCount.WithLabelValues(string(c.resource)).Set(0)

	c.emitter.EmitDefer(emitter.Change)
}

func (c *Collection[T]) ignore(a action.Action) {
	metrics.ActionsIgnoredTotal.WithLabelValues(string(c.resource), a.Type()).Inc()
	c.logger.Trace().Str("action_type", a.Type()).Msg("Ignoring action")
}

// pages is called with c.mu held.
func (c *Collection[T]) pages() int {
	if c.pageCount <= 0 {
		return 0
	}
	return (c.count + c.pageCount - 1) / c.pageCount
}

// clamp bounds page to [0, pages-1]. Called with c.mu held.
func (c *Collection[T]) clamp(page int) int {
	pages := c.pages()
	if pages == 0 || page < 0 {
		return 0
	}
	return min(page, pages-1)
}

// View is the user-selected part of a store's state
type View struct {
	Page   int           `json:"page"`
	Filter action.Filter `json:"filter"`
}

// Owned is a Collection holding the entities of one user, such as the
// audits or sessions
type Owned[T types.Entity] struct {
	*Collection[T]
}

// NewOwned creates a per-user store for resource
func NewOwned[T types.Entity](resource action.Resource, opts Options) *Owned[T] {
	return &Owned[T]{Collection: NewCollection[T](resource, opts)}
}

// NewAudits creates the audit store
func NewAudits(opts Options) *Owned[types.Audit] {
	return NewOwned[types.Audit](action.ResourceAudit, opts)
}

// UserID returns the user whose entities are loaded
func (o *Owned[T]) UserID() string {
	return o.Owner()
}

type cloner[T any] interface {
	Clone() T
}

func cloneItem[T any](v T) T {
	if c, ok := any(v).(cloner[T]); ok {
		return c.Clone()
	}
	return v
}

func cloneItems[T any](items []T) []T {
	out := make([]T, len(items))
	for i, v := range items {
		out[i] = cloneItem(v)
	}
	return out
}
