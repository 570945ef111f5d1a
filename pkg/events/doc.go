/*
Package events provides an in-memory broker for console notifications.

The broker is how the outside of the console learns what the inside did.
Store changes, event channel transitions, failed operations and session
expiry are published here and fanned out to subscribers, such as the watch
command that prints one line per event.

# Architecture

	┌──────────────────── EVENT BROKER ─────────────────────┐
	│                                                        │
	│  loop goroutine                                        │
	│    store change listener ─┐                            │
	│    notifier              ─┼─▶ Publish (never blocks)   │
	│    auth hook             ─┘        │                   │
	│                                    ▼                   │
	│                    queue (buffer: 256)                 │
	│                                    │                   │
	│                          broadcast goroutine           │
	│                                    │                   │
	│              ┌─────────────────────┼──────────┐        │
	│              ▼                     ▼          ▼        │
	│         subscriber            subscriber     ...       │
	│         (buffer: 64)          (buffer: 64)             │
	└────────────────────────────────────────────────────────┘

Publish is called from the loop goroutine, so it must not wait. A full queue
or subscriber buffer drops the event and bumps Dropped.

# Event Types

  - store.changed: a store emitted change; Resource names it
  - channel.connected, channel.lost: the push channel state changed
  - operation.failed: a user-visible failure, Message holds the text
  - session.expired: the server answered 401
  - view.restored: a persisted filter and page were applied

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	for e := range sub {
		fmt.Printf("%s %s %s\n", e.Timestamp.Format(time.TimeOnly), e.Type, e.Message)
	}
*/
package events
