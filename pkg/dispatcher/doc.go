/*
Package dispatcher broadcasts actions to every registered callback.

A Dispatcher delivers each action synchronously, in registration order, to
all callbacks. Callbacks decide for themselves whether an action concerns
them, usually by comparing its resource. The console runs two of them:

	"actions"  sync, traverse, filter and reset actions for the stores
	"events"   change actions from the event channel for the resources

# Re-entrancy

Dispatching from inside a callback is rejected with an
*InvalidOperationError wrapping ErrInvalidOperation, naming the action in
progress and the one attempted. The rejection is counted in
zerocon_reentrant_dispatches_total. Work that has to follow a dispatch is
queued with loop.Scheduler.Defer instead, which is what store change
listeners rely on.

# Panics

	ModeIsolate    recover, log, count, keep notifying the rest (default)
	ModePropagate  unwind through Dispatch; later callbacks miss the action

The in-progress flag is cleared on both paths, so a dispatcher stays usable
after a propagated panic.

A dispatcher is confined to the loop goroutine. Register and Unregister
may be called from any goroutine; a callback unregistered during a
dispatch still sees the action being delivered.
*/
package dispatcher
