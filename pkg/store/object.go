package store

import (
	"sync"

	"github.com/cuemby/zerocon/pkg/action"
	"github.com/cuemby/zerocon/pkg/emitter"
	"github.com/cuemby/zerocon/pkg/log"
	"github.com/cuemby/zerocon/pkg/metrics"
	"github.com/rs/zerolog"
)

// Object mirrors a single server document such as the settings.
type Object[T any] struct {
	resource   action.Resource
	filterable bool

	mu     sync.RWMutex
	value  T
	synced bool
	filter action.Filter

	emitter *emitter.Emitter
	logger  zerolog.Logger
}

// NewObject creates an empty document store. Filter actions are only
// handled when filterable is set.
func NewObject[T any](resource action.Resource, filterable bool, d emitter.Deferrer) *Object[T] {
	return &Object[T]{
		resource:   resource,
		filterable: filterable,
		emitter:    emitter.New(d),
		logger:     log.WithResource("store", string(resource)),
	}
}

// Resource returns the resource the store mirrors
func (o *Object[T]) Resource() action.Resource {
	return o.resource
}

// Value returns the current document, the zero value before the first sync
func (o *Object[T]) Value() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Synced reports whether a document has been received
func (o *Object[T]) Synced() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.synced
}

// Filter returns a copy of the filter
func (o *Object[T]) Filter() action.Filter {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.filter.Clone()
}

// AddChangeListener subscribes fn to change notifications
func (o *Object[T]) AddChangeListener(fn func()) emitter.Subscription {
	return o.emitter.On(emitter.Change, func(string) { fn() })
}

// RemoveChangeListener unsubscribes a change listener
func (o *Object[T]) RemoveChangeListener(sub emitter.Subscription) {
	o.emitter.Off(sub)
}

// Callback is registered with the dispatcher
func (o *Object[T]) Callback(a action.Action) {
	if !a.Targets(o.resource) {
		o.ignore(a)
		return
	}

	switch a.Kind {
	case action.KindSync:
		data, ok := a.Data.(action.ObjectData[T])
		if !ok {
			o.ignore(a)
			return
		}
		o.mu.Lock()
		o.value = data.Value
		o.synced = true
		o.mu.Unlock()
		o.logger.Debug().Msg("Synced")
		o.emitter.EmitDefer(emitter.Change)

	case action.KindFilter:
		data, ok := a.Data.(action.FilterData)
		if !ok || !o.filterable {
			o.ignore(a)
			return
		}
		o.mu.Lock()
		o.filter = data.Filter.Clone()
		o.mu.Unlock()
		o.emitter.EmitDefer(emitter.Change)

	case action.KindReset:
		var zero T
		o.mu.Lock()
		o.value = zero
		o.synced = false
		o.filter = nil
		o.mu.Unlock()
		o.emitter.EmitDefer(emitter.Change)

	default:
		o.ignore(a)
	}
}

func (o *Object[T]) ignore(a action.Action) {
	metrics.ActionsIgnoredTotal.WithLabelValues(string(o.resource), a.Type()).Inc()
	o.logger.Trace().Str("action_type", a.Type()).Msg("Ignoring action")
}
