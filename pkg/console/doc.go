/*
Package console wires the data-sync core into one runnable client.

A Console owns the loop, both dispatchers, the API client, every store with
its actions, and the notification broker. Nothing is global, so tests and
tools can build several consoles side by side.

	┌──────────────────────────── Console ────────────────────────────┐
	│                                                                  │
	│   event.Bridge ──push──▶ Bus (dispatcher "events")               │
	│                             │ change actions                     │
	│                             ▼                                    │
	│                        actions.Resource ──HTTP──▶ api.Client      │
	│                             │ sync / traverse / filter           │
	│                             ▼                                    │
	│                        Dispatcher ("actions")                     │
	│                             │                                    │
	│             ┌───────────────┼───────────────┐                    │
	│             ▼               ▼               ▼                    │
	│      store.Collection  store.Owned    store.Object               │
	│             │ change listeners (deferred on the loop)            │
	│             ▼                                                    │
	│      events.Broker ──▶ CLI output        storage (view state)    │
	└──────────────────────────────────────────────────────────────────┘

All dispatches and store mutations run on Loop. Exec starts it, loads the
CSRF token and then runs a function; Watch is Exec around the long-running
mode that connects the event channel and keeps every store current.

A 401 from any request resets all stores once, publishes a session expired
event and makes Exec return ErrSessionExpired.
*/
package console
