package console

import (
	"context"

	"github.com/cuemby/zerocon/pkg/action"
	"github.com/cuemby/zerocon/pkg/actions"
	"github.com/cuemby/zerocon/pkg/dispatcher"
	"github.com/cuemby/zerocon/pkg/emitter"
	"github.com/cuemby/zerocon/pkg/store"
	"github.com/cuemby/zerocon/pkg/types"
)

// Mirror is the type-erased view of one collection resource
type Mirror interface {
	Resource() action.Resource
	Plural() string

	Sync(ctx context.Context) error
	Traverse(ctx context.Context, page int) error
	Filter(ctx context.Context, f action.Filter) error
	Watch(ctx context.Context, bus *dispatcher.Dispatcher) dispatcher.Token

	Len() int
	Count() int
	Page() int
	Pages() int
	Paginated() bool
	View() store.View

	AddChangeListener(fn func()) emitter.Subscription
	RemoveChangeListener(sub emitter.Subscription)
}

type mirror[T types.Entity] struct {
	res *actions.Resource[T]
}

func (m mirror[T]) Resource() action.Resource { return m.res.Spec().Resource }
func (m mirror[T]) Plural() string            { return m.res.Spec().Plural }
func (m mirror[T]) Len() int                  { return len(m.res.Store().Items()) }
func (m mirror[T]) Count() int                { return m.res.Store().Count() }
func (m mirror[T]) Page() int                 { return m.res.Store().Page() }
func (m mirror[T]) Pages() int                { return m.res.Store().Pages() }
func (m mirror[T]) Paginated() bool           { return m.res.Store().Paginated() }
func (m mirror[T]) View() store.View          { return m.res.Store().View() }

func (m mirror[T]) Sync(ctx context.Context) error {
	return m.res.Sync(ctx)
}

func (m mirror[T]) Traverse(ctx context.Context, page int) error {
	return m.res.Traverse(ctx, page)
}

func (m mirror[T]) Filter(ctx context.Context, f action.Filter) error {
	return m.res.Filter(ctx, f)
}

func (m mirror[T]) Watch(ctx context.Context, bus *dispatcher.Dispatcher) dispatcher.Token {
	return m.res.Watch(ctx, bus)
}

func (m mirror[T]) AddChangeListener(fn func()) emitter.Subscription {
	return m.res.Store().AddChangeListener(fn)
}

func (m mirror[T]) RemoveChangeListener(sub emitter.Subscription) {
	m.res.Store().RemoveChangeListener(sub)
}

// OwnedMirror is the type-erased view of one per-user resource
type OwnedMirror interface {
	Resource() action.Resource
	Plural() string
	UserID() string

	Load(ctx context.Context, userID string) error
	Watch(ctx context.Context, bus *dispatcher.Dispatcher) dispatcher.Token

	Len() int
	Count() int

	AddChangeListener(fn func()) emitter.Subscription
	RemoveChangeListener(sub emitter.Subscription)
}

type ownedMirror[T types.Entity] struct {
	res *actions.Owned[T]
}

func (m ownedMirror[T]) Resource() action.Resource { return m.res.Spec().Resource }
func (m ownedMirror[T]) Plural() string            { return m.res.Spec().Plural }
func (m ownedMirror[T]) UserID() string            { return m.res.Store().UserID() }
func (m ownedMirror[T]) Len() int                  { return len(m.res.Store().Items()) }
func (m ownedMirror[T]) Count() int                { return m.res.Store().Count() }

func (m ownedMirror[T]) Load(ctx context.Context, userID string) error {
	return m.res.Load(ctx, userID)
}

func (m ownedMirror[T]) Watch(ctx context.Context, bus *dispatcher.Dispatcher) dispatcher.Token {
	return m.res.Watch(ctx, bus)
}

func (m ownedMirror[T]) AddChangeListener(fn func()) emitter.Subscription {
	return m.res.Store().AddChangeListener(fn)
}

func (m ownedMirror[T]) RemoveChangeListener(sub emitter.Subscription) {
	m.res.Store().RemoveChangeListener(sub)
}
