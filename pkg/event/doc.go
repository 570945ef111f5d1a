/*
Package event bridges the console's push channel into the in-process event
bus.

The server pushes a frame whenever a resource changes. The bridge reads the
frames on a websocket, collapses bursts of identical payloads, and dispatches
one change action per burst. Resources registered on the bus re-sync when
their change arrives.

# Architecture

	┌────────────────────── EVENT BRIDGE ───────────────────────┐
	│                                                            │
	│  server ── ws(s)://host/event?csrf_token=… ──┐             │
	│                                               │             │
	│  ┌──────────── reader goroutine ─────────────▼──────────┐  │
	│  │  ReadMessage until error                              │  │
	│  │  ping → extend read deadline (40s), answer pong       │  │
	│  │  each frame → Post(receive)                           │  │
	│  │  error      → Post(closed)                            │  │
	│  └───────────────────────────┬───────────────────────────┘  │
	│                              │ loop goroutine               │
	│  ┌───────────────────────────▼───────────────────────────┐  │
	│  │  receive                                               │  │
	│  │    key = xxhash64(canonical JSON of data)              │  │
	│  │    key pending?  yes → drop                            │  │
	│  │                  no  → pending[key], timer(300ms)      │  │
	│  │  timer fires → delete pending[key], bus.Dispatch       │  │
	│  └────────────────────────────────────────────────────────┘  │
	│                                                            │
	│  closed → Disconnected, one reconnect timer (500ms)        │
	└────────────────────────────────────────────────────────────┘

# States

	Disconnected ──Run──▶ Connecting ──dial ok──▶ Connected
	     ▲                    │                      │
	     └──── dial failed ───┘◀──── read error ─────┘

Retries never give up. A reconnect timer that is already pending absorbs
further close notifications, so a flapping connection does not stack dials.

# Frames

Only the data member of a frame is used:

	{"id": "…", "channel": "dispatch", "data": {"type": "service.change"}}

The payload type is parsed with action.Parse. A type that does not name a
known kind is still dispatched, as a raw action no store handles.

# Usage

	bus := dispatcher.New(dispatcher.Options{Name: "events"})
	bridge := event.New(event.Config{
		URL:    event.EndpointURL(client.BaseURL(), client.Token()),
		Header: client.Header(),
	}, l, bus)

	go bridge.Run(ctx)

All pending-map and timer work happens on the loop. Connection health is
reported to pkg/metrics as the "event" component.
*/
package event
