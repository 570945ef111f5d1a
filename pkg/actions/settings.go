package actions

import (
	"context"

	"github.com/cuemby/zerocon/pkg/action"
	"github.com/cuemby/zerocon/pkg/dispatcher"
	"github.com/cuemby/zerocon/pkg/store"
	"github.com/cuemby/zerocon/pkg/types"
)

// Settings reads and saves the server settings document
type Settings struct {
	env     *Env
	store   *store.Object[types.Settings]
	tracker tracker
}

// NewSettings creates the settings actions
func NewSettings(env *Env, st *store.Object[types.Settings]) *Settings {
	return &Settings{env: env, store: st}
}

// Store returns the settings store
func (s *Settings) Store() *store.Object[types.Settings] {
	return s.store
}

// Sync fetches the settings
func (s *Settings) Sync(ctx context.Context) error {
	token := s.tracker.next()
	release := s.env.loading()
	defer release()

	var settings types.Settings
	err := s.env.Client.Get(ctx, "/settings", nil, &settings)

	return s.env.settle(ctx, action.ResourceSettings, &s.tracker, token, err,
		"Failed to load settings",
		func() error {
			return s.env.Dispatcher.Dispatch(action.SyncObject(action.ResourceSettings, settings))
		})
}

// Commit saves settings and dispatches the document the server returns
func (s *Settings) Commit(ctx context.Context, settings types.Settings) error {
	release := s.env.loading()
	defer release()

	var saved types.Settings
	if err := s.env.Client.Put(ctx, "/settings", settings, &saved); err != nil {
		// nil for a 401, which went to the auth hook
		return s.env.mutate(ctx, err, "Failed to commit settings")
	}
	return s.env.dispatch(ctx, action.SyncObject(action.ResourceSettings, saved))
}

// Watch re-syncs on every settings change event
func (s *Settings) Watch(ctx context.Context, bus *dispatcher.Dispatcher) dispatcher.Token {
	return watch(ctx, bus, action.ResourceSettings, s.Sync)
}
