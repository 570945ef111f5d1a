package actions

import (
	"context"
	"net/url"
	"strconv"

	"github.com/cuemby/zerocon/pkg/action"
	"github.com/cuemby/zerocon/pkg/api"
	"github.com/cuemby/zerocon/pkg/dispatcher"
	"github.com/cuemby/zerocon/pkg/log"
	"github.com/cuemby/zerocon/pkg/store"
	"github.com/cuemby/zerocon/pkg/types"
	"github.com/rs/zerolog"
)

// Spec names a collection on the server
type Spec struct {
	Resource action.Resource
	// Path is the collection path, e.g. "/node"
	Path string
	// Key holds the items in object-shaped list responses
	Key string
	// Singular and Plural are used in user-facing messages
	Singular string
	Plural   string
}

// Specs describes every paginated or plain collection of the console
var Specs = map[action.Resource]Spec{
	action.ResourceNode:        {action.ResourceNode, "/node", "nodes", "node", "nodes"},
	action.ResourceService:     {action.ResourceService, "/service", "services", "service", "services"},
	action.ResourceCertificate: {action.ResourceCertificate, "/certificate", "certificates", "certificate", "certificates"},
	action.ResourceAuthority:   {action.ResourceAuthority, "/authority", "authorities", "authority", "authorities"},
	action.ResourcePolicy:      {action.ResourcePolicy, "/policy", "policies", "policy", "policies"},
	action.ResourceCheck:       {action.ResourceCheck, "/check", "checks", "check", "checks"},
	action.ResourceAlert:       {action.ResourceAlert, "/alert", "alerts", "alert", "alerts"},
	action.ResourceSecret:      {action.ResourceSecret, "/secret", "secrets", "secret", "secrets"},
	action.ResourceLog:         {action.ResourceLog, "/log", "logs", "log", "logs"},
	action.ResourceUser:        {action.ResourceUser, "/user", "users", "user", "users"},
	action.ResourceEndpoint:    {action.ResourceEndpoint, "/endpoint", "endpoints", "endpoint", "endpoints"},
}

// OwnedSpecs describes the collections listed per user. Path is followed
// by the user ID.
var OwnedSpecs = map[action.Resource]Spec{
	action.ResourceAudit:   {action.ResourceAudit, "/audit", "audits", "audit", "audits"},
	action.ResourceSession: {action.ResourceSession, "/session", "sessions", "session", "sessions"},
	action.ResourceDevice:  {action.ResourceDevice, "/device", "devices", "device", "devices"},
	action.ResourceSSHCert: {action.ResourceSSHCert, "/sshcertificate", "certificates", "SSH certificate", "SSH certificates"},
}

// Resource runs the REST operations of one collection and feeds the
// results to its store through the dispatcher.
type Resource[T types.Entity] struct {
	env     *Env
	spec    Spec
	store   *store.Collection[T]
	tracker tracker
	logger  zerolog.Logger
}

// NewResource creates the actions for spec, reading paging and filter
// state from st
func NewResource[T types.Entity](env *Env, spec Spec, st *store.Collection[T]) *Resource[T] {
	return &Resource[T]{
		env:    env,
		spec:   spec,
		store:  st,
		logger: log.WithResource("actions", string(spec.Resource)),
	}
}

// Store returns the collection the resource feeds
func (r *Resource[T]) Store() *store.Collection[T] {
	return r.store
}

// Spec returns the server description of the resource
func (r *Resource[T]) Spec() Spec {
	return r.spec
}

// Sync fetches the current page and dispatches it. Responses superseded by
// a later Sync are dropped.
func (r *Resource[T]) Sync(ctx context.Context) error {
	token := r.tracker.next()
	release := r.env.loading()
	defer release()

	page, err := api.List[T](ctx, r.env.Client, r.spec.Path, r.spec.Key, r.query())

	return r.env.settle(ctx, r.spec.Resource, &r.tracker, token, err,
		"Failed to load "+r.spec.Plural,
		func() error {
			return r.env.Dispatcher.Dispatch(action.Sync(r.spec.Resource, page.Items, page.Count))
		})
}

// Traverse moves to page and syncs it
func (r *Resource[T]) Traverse(ctx context.Context, page int) error {
	if err := r.env.dispatch(ctx, action.Traverse(r.spec.Resource, page)); err != nil {
		return err
	}
	return r.Sync(ctx)
}

// Filter replaces the filter and syncs. A nil filter hides it.
func (r *Resource[T]) Filter(ctx context.Context, f action.Filter) error {
	if err := r.env.dispatch(ctx, action.FilterBy(r.spec.Resource, f)); err != nil {
		return err
	}
	return r.Sync(ctx)
}

// Create posts a new entity. The store is updated by the change event the
// server pushes afterwards.
func (r *Resource[T]) Create(ctx context.Context, v T) error {
	release := r.env.loading()
	defer release()

	err := r.env.Client.Post(ctx, r.spec.Path, v, nil)
	if err == nil {
		r.logger.Info().Msg("Created " + r.spec.Singular)
	}
	return r.env.mutate(ctx, err, "Failed to create "+r.spec.Singular)
}

// Commit saves an existing entity
func (r *Resource[T]) Commit(ctx context.Context, v T) error {
	release := r.env.loading()
	defer release()

	err := r.env.Client.Put(ctx, r.itemPath(v.EntityID()), v, nil)
	if err == nil {
		r.logger.Info().Str("id", v.EntityID()).Msg("Saved " + r.spec.Singular)
	}
	return r.env.mutate(ctx, err, "Failed to save "+r.spec.Singular)
}

// Remove deletes one entity
func (r *Resource[T]) Remove(ctx context.Context, id string) error {
	release := r.env.loading()
	defer release()

	err := r.env.Client.Delete(ctx, r.itemPath(id), nil)
	if err == nil {
		r.logger.Info().Str("id", id).Msg("Deleted " + r.spec.Singular)
	}
	return r.env.mutate(ctx, err, "Failed to delete "+r.spec.Plural)
}

// RemoveMulti deletes several entities in one request
func (r *Resource[T]) RemoveMulti(ctx context.Context, ids []string) error {
	release := r.env.loading()
	defer release()

	err := r.env.Client.Delete(ctx, r.spec.Path, ids)
	if err == nil {
		r.logger.Info().Int("count", len(ids)).Msg("Deleted " + r.spec.Plural)
	}
	return r.env.mutate(ctx, err, "Failed to delete "+r.spec.Plural)
}

// Watch re-syncs on every change event of the resource
func (r *Resource[T]) Watch(ctx context.Context, bus *dispatcher.Dispatcher) dispatcher.Token {
	return watch(ctx, bus, r.spec.Resource, r.Sync)
}

func (r *Resource[T]) itemPath(id string) string {
	return r.spec.Path + "/" + url.PathEscape(id)
}

func (r *Resource[T]) query() url.Values {
	return pageQuery(r.store.Filter(), r.store.Paginated(), r.store.Page(), r.store.PageCount())
}

func pageQuery(filter action.Filter, paginated bool, page, pageCount int) url.Values {
	q := url.Values{}
	for k, v := range filter.Criteria() {
		q.Set(k, v)
	}
	if paginated {
		q.Set("page", strconv.Itoa(page))
		q.Set("page_count", strconv.Itoa(pageCount))
	}
	return q
}
