package dispatcher

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cuemby/zerocon/pkg/action"
	"github.com/cuemby/zerocon/pkg/log"
	"github.com/cuemby/zerocon/pkg/metrics"
	"github.com/rs/zerolog"
)

// ErrInvalidOperation marks programming errors such as a dispatch issued
// from inside a dispatch callback.
var ErrInvalidOperation = errors.New("invalid operation")

// InvalidOperationError reports a re-entrant dispatch.
type InvalidOperationError struct {
	Dispatcher string
	Current    string
	Attempted  string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("dispatcher %s: cannot dispatch %q in the middle of dispatching %q",
		e.Dispatcher, e.Attempted, e.Current)
}

func (e *InvalidOperationError) Unwrap() error {
	return ErrInvalidOperation
}

// Callback receives every dispatched action.
type Callback func(action.Action)

// Token identifies a registered callback
type Token uint64

// Mode selects what happens when a callback panics
type Mode int

const (
	// ModeIsolate recovers the panic, logs it and keeps notifying the
	// remaining callbacks.
	ModeIsolate Mode = iota
	// ModePropagate lets the panic unwind through Dispatch, so callbacks
	// registered after the failing one never see the action.
	ModePropagate
)

// Options configures a Dispatcher
type Options struct {
	Name string
	Mode Mode
}

type entry struct {
	token Token
	cb    Callback
}

// Dispatcher broadcasts actions to registered callbacks, synchronously and
// in registration order. It is confined to the loop goroutine.
type Dispatcher struct {
	name      string
	mode      Mode
	mu        sync.Mutex
	callbacks []entry
	next      Token

	dispatching atomic.Bool
	current     string

	logger zerolog.Logger
}

// New creates a dispatcher
func New(opts Options) *Dispatcher {
	name := opts.Name
	if name == "" {
		name = "actions"
	}
	return &Dispatcher{
		name:   name,
		mode:   opts.Mode,
		logger: log.WithComponent("dispatcher").With().Str("dispatcher", name).Logger(),
	}
}

// Name returns the dispatcher's name
func (d *Dispatcher) Name() string {
	return d.name
}

// Register appends cb to the callback list
func (d *Dispatcher) Register(cb Callback) Token {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.next++
	d.callbacks = append(d.callbacks, entry{token: d.next, cb: cb})
	return d.next
}

// Unregister removes the callback registered under token
func (d *Dispatcher) Unregister(token Token) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, e := range d.callbacks {
		if e.token == token {
			d.callbacks = append(d.callbacks[:i:i], d.callbacks[i+1:]...)
			return true
		}
	}
	return false
}

// Dispatching reports whether a dispatch is in progress
func (d *Dispatcher) Dispatching() bool {
	return d.dispatching.Load()
}

// Dispatch delivers a to every callback before returning. Calling it from
// inside a callback fails with an *InvalidOperationError.
func (d *Dispatcher) Dispatch(a action.Action) error {
	if !d.dispatching.CompareAndSwap(false, true) {
		err := &InvalidOperationError{
			Dispatcher: d.name,
			Current:    d.current,
			Attempted:  a.Type(),
		}
		metrics.ReentrantDispatchesTotal.WithLabelValues(d.name).Inc()
		d.logger.Error().Err(err).Msg("Rejected re-entrant dispatch")
		return err
	}
	d.current = a.Type()
	defer func() {
		d.current = ""
		d.dispatching.Store(false)
	}()

	metrics.DispatchesTotal.WithLabelValues(d.name, a.Type()).Inc()
	d.logger.Trace().Str("action_type", a.Type()).Msg("Dispatching")

	d.mu.Lock()
	callbacks := make([]entry, len(d.callbacks))
	copy(callbacks, d.callbacks)
	d.mu.Unlock()

	for _, e := range callbacks {
		d.invoke(e, a)
	}
	return nil
}

func (d *Dispatcher) invoke(e entry, a action.Action) {
	if d.mode == ModeIsolate {
		defer func() {
			if r := recover(); r != nil {
				metrics.DispatchPanicsTotal.WithLabelValues(d.name).Inc()
				d.logger.Error().
					Err(fmt.Errorf("%v", r)).
					Uint64("token", uint64(e.token)).
					Str("action_type", a.Type()).
					Msg("Callback panicked during dispatch")
			}
		}()
	}
	e.cb(a)
}
