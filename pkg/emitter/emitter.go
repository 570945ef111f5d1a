// Package emitter notifies change listeners after the current loop task.
package emitter

import (
	"fmt"
	"sync"

	"github.com/cuemby/zerocon/pkg/log"
	"github.com/rs/zerolog"
)

// Change is the event every store emits after its snapshot moved.
const Change = "change"

// Deferrer queues work to run after the current loop task.
type Deferrer interface {
	Defer(task func())
}

// Listener is called with the event name.
type Listener func(event string)

// Subscription is returned by On and passed to Off.
type Subscription struct {
	event string
	id    uint64
}

type listener struct {
	id uint64
	fn Listener
}

// Emitter delivers named events to listeners in subscription order.
type Emitter struct {
	mu        sync.Mutex
	listeners map[string][]listener
	next      uint64
	deferrer  Deferrer
	logger    zerolog.Logger
}

// New creates an emitter. EmitDefer queues on d.
func New(d Deferrer) *Emitter {
	return &Emitter{
		listeners: make(map[string][]listener),
		deferrer:  d,
		logger:    log.WithComponent("emitter"),
	}
}

// On subscribes fn to event.
func (e *Emitter) On(event string, fn Listener) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.next++
	e.listeners[event] = append(e.listeners[event], listener{id: e.next, fn: fn})
	return Subscription{event: event, id: e.next}
}

// Off removes a subscription. Removing twice is a no-op.
func (e *Emitter) Off(sub Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ls := e.listeners[sub.event]
	for i, l := range ls {
		if l.id == sub.id {
			e.listeners[sub.event] = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(e.listeners[sub.event]) == 0 {
		delete(e.listeners, sub.event)
	}
}

// ListenerCount returns the number of listeners on event
func (e *Emitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}

// Emit calls every listener of event before returning. A panicking listener
// is logged and does not stop the others.
func (e *Emitter) Emit(event string) {
	e.mu.Lock()
	ls := make([]listener, len(e.listeners[event]))
	copy(ls, e.listeners[event])
	e.mu.Unlock()

	for _, l := range ls {
		e.call(l, event)
	}
}

// EmitDefer emits event once the current loop task has finished.
func (e *Emitter) EmitDefer(event string) {
	if e.deferrer == nil {
		e.Emit(event)
		return
	}
	e.deferrer.Defer(func() { e.Emit(event) })
}

func (e *Emitter) call(l listener, event string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Err(fmt.Errorf("%v", r)).
				Str("event", event).
				Msg("Listener panicked")
		}
	}()
	l.fn(event)
}
