package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/zerocon/pkg/log"
	"github.com/rs/zerolog"
)

// ErrStopped is returned by Do when the loop is no longer running tasks.
var ErrStopped = errors.New("loop stopped")

// Timer is a pending AfterFunc registration.
type Timer interface {
	// Stop prevents the task from being posted. It reports false when the
	// timer already fired or was stopped.
	Stop() bool
}

// Scheduler is the single-threaded execution context shared by the
// dispatcher, the stores and the event bridge.
//
// Ordering: tasks run one at a time in Post order. Tasks queued with Defer
// run after the current task returns and before the next posted task.
type Scheduler interface {
	Post(task func())
	Defer(task func())
	AfterFunc(d time.Duration, task func()) Timer
	// Do posts task and blocks until it has run. It must not be called
	// from the loop goroutine.
	Do(ctx context.Context, task func()) error
}

// Loop runs posted tasks on a single goroutine.
type Loop struct {
	mu      sync.Mutex
	tasks   []func()
	micro   []func()
	signal  chan struct{}
	stopCh  chan struct{}
	stopped bool
	logger  zerolog.Logger
}

var _ Scheduler = (*Loop)(nil)

// New creates a loop. Nothing runs until Run is called.
func New() *Loop {
	return &Loop{
		tasks:  make([]func(), 0, 64),
		signal: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		logger: log.WithComponent("loop"),
	}
}

// Post appends task to the queue. Tasks posted after Stop are dropped.
func (l *Loop) Post(task func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		l.logger.Debug().Msg("Dropping task posted after stop")
		return
	}
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()
	l.wake()
}

// Defer queues task on the microtask queue.
func (l *Loop) Defer(task func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.micro = append(l.micro, task)
	l.mu.Unlock()
	l.wake()
}

// AfterFunc posts task to the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, task func()) Timer {
	return time.AfterFunc(d, func() {
		l.Post(task)
	})
}

// Do posts task and waits until the loop has executed it.
func (l *Loop) Do(ctx context.Context, task func()) error {
	done := make(chan struct{})
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	l.tasks = append(l.tasks, func() {
		defer close(done)
		task()
	})
	l.mu.Unlock()
	l.wake()

	select {
	case <-done:
		return nil
	case <-l.stopCh:
		// The task may still have run just before stop
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes tasks until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug().Msg("Event loop started")
	defer l.logger.Debug().Msg("Event loop stopped")

	for {
		for l.step() {
		}

		select {
		case <-l.signal:
		case <-l.stopCh:
			return nil
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		}
	}
}

// Stop halts the loop. Queued tasks are discarded.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	l.tasks = nil
	l.micro = nil
	close(l.stopCh)
}

// step runs pending microtasks, or else one task followed by the
// microtasks it queued. It reports whether anything ran.
func (l *Loop) step() bool {
	if l.drainMicro() {
		return true
	}

	l.mu.Lock()
	if l.stopped || len(l.tasks) == 0 {
		l.mu.Unlock()
		return false
	}
	task := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	l.mu.Unlock()

	l.run(task)
	l.drainMicro()
	return true
}

func (l *Loop) drainMicro() bool {
	ran := false
	for {
		l.mu.Lock()
		if l.stopped || len(l.micro) == 0 {
			l.mu.Unlock()
			return ran
		}
		task := l.micro[0]
		l.micro[0] = nil
		l.micro = l.micro[1:]
		l.mu.Unlock()

		l.run(task)
		ran = true
	}
}

func (l *Loop) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().
				Err(fmt.Errorf("%v", r)).
				Msg("Recovered panic in loop task")
		}
	}()
	task()
}

func (l *Loop) wake() {
	select {
	case l.signal <- struct{}{}:
	default:
	}
}
