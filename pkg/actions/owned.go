package actions

import (
	"context"
	"net/url"

	"github.com/cuemby/zerocon/pkg/action"
	"github.com/cuemby/zerocon/pkg/api"
	"github.com/cuemby/zerocon/pkg/dispatcher"
	"github.com/cuemby/zerocon/pkg/log"
	"github.com/cuemby/zerocon/pkg/store"
	"github.com/cuemby/zerocon/pkg/types"
	"github.com/rs/zerolog"
)

// Owned loads the entities of one user at a time: audits, sessions,
// devices or SSH certificates
type Owned[T types.Entity] struct {
	env     *Env
	spec    Spec
	store   *store.Owned[T]
	tracker tracker
	logger  zerolog.Logger
}

// NewOwned creates the actions for spec, one of OwnedSpecs
func NewOwned[T types.Entity](env *Env, spec Spec, st *store.Owned[T]) *Owned[T] {
	return &Owned[T]{
		env:    env,
		spec:   spec,
		store:  st,
		logger: log.WithResource("actions", string(spec.Resource)),
	}
}

// NewAudits creates the audit actions
func NewAudits(env *Env, st *store.Owned[types.Audit]) *Owned[types.Audit] {
	return NewOwned(env, OwnedSpecs[action.ResourceAudit], st)
}

// Store returns the store the actions feed
func (o *Owned[T]) Store() *store.Owned[T] {
	return o.store
}

// Spec returns the server description of the resource
func (o *Owned[T]) Spec() Spec {
	return o.spec
}

// Load fetches the current page of userID's entities. An empty userID is
// a no-op.
func (o *Owned[T]) Load(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}

	token := o.tracker.next()
	release := o.env.loading()
	defer release()

	query := pageQuery(nil, o.store.Paginated(), o.store.Page(), o.store.PageCount())
	page, err := api.List[T](ctx, o.env.Client, o.spec.Path+"/"+url.PathEscape(userID), o.spec.Key, query)

	return o.env.settle(ctx, o.spec.Resource, &o.tracker, token, err,
		"Failed to load "+o.spec.Plural,
		func() error {
			return o.env.Dispatcher.Dispatch(action.SyncOwned(o.spec.Resource, userID, page.Items, page.Count))
		})
}

// Reload loads the entities of the user currently shown
func (o *Owned[T]) Reload(ctx context.Context) error {
	return o.Load(ctx, o.store.UserID())
}

// Traverse moves to page and reloads
func (o *Owned[T]) Traverse(ctx context.Context, page int) error {
	if err := o.env.dispatch(ctx, action.Traverse(o.spec.Resource, page)); err != nil {
		return err
	}
	return o.Reload(ctx)
}

// Remove deletes one entity. Only sessions and devices can be removed.
func (o *Owned[T]) Remove(ctx context.Context, id string) error {
	release := o.env.loading()
	defer release()

	err := o.env.Client.Delete(ctx, o.spec.Path+"/"+url.PathEscape(id), nil)
	if err == nil {
		o.logger.Info().Str("id", id).Msg("Deleted " + o.spec.Singular)
	}
	return o.env.mutate(ctx, err, "Failed to delete "+o.spec.Singular)
}

// Watch reloads on every change event of the resource
func (o *Owned[T]) Watch(ctx context.Context, bus *dispatcher.Dispatcher) dispatcher.Token {
	return watch(ctx, bus, o.spec.Resource, o.Reload)
}
