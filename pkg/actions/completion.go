package actions

import (
	"context"
	"sync/atomic"

	"github.com/cuemby/zerocon/pkg/action"
	"github.com/cuemby/zerocon/pkg/dispatcher"
	"github.com/cuemby/zerocon/pkg/store"
	"github.com/cuemby/zerocon/pkg/types"
)

// Completion loads the lookup lists. Only one sync runs at a time.
type Completion struct {
	env      *Env
	store    *store.Object[types.Completion]
	inFlight atomic.Bool
}

// NewCompletion creates the completion actions
func NewCompletion(env *Env, st *store.Object[types.Completion]) *Completion {
	return &Completion{env: env, store: st}
}

// Store returns the completion store
func (c *Completion) Store() *store.Object[types.Completion] {
	return c.store
}

// Sync fetches the completion data. It returns nil at once when a sync is
// already running.
func (c *Completion) Sync(ctx context.Context) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil
	}
	defer c.inFlight.Store(false)

	release := c.env.loading()
	defer release()

	var completion types.Completion
	err := c.env.Client.Get(ctx, "/completion", pageQuery(c.store.Filter(), false, 0, 0), &completion)

	// Only one sync runs at a time, so no response can be stale
	return c.env.settle(ctx, action.ResourceCompletion, nil, "", err,
		"Failed to load completion data",
		func() error {
			return c.env.Dispatcher.Dispatch(action.SyncObject(action.ResourceCompletion, completion))
		})
}

// Filter replaces the completion filter and syncs
func (c *Completion) Filter(ctx context.Context, f action.Filter) error {
	if err := c.env.dispatch(ctx, action.FilterBy(action.ResourceCompletion, f)); err != nil {
		return err
	}
	return c.Sync(ctx)
}

// Watch re-syncs on every completion change event
func (c *Completion) Watch(ctx context.Context, bus *dispatcher.Dispatcher) dispatcher.Token {
	return watch(ctx, bus, action.ResourceCompletion, c.Sync)
}
