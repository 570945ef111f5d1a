// Package looptest provides a deterministic loop.Scheduler for tests.
package looptest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/zerocon/pkg/loop"
)

// Manual is a Scheduler driven by the test. Posted tasks run on Drain,
// timers fire on Advance, and Do runs its task inline.
type Manual struct {
	mu     sync.Mutex
	exec   sync.Mutex
	now    time.Duration
	seq    uint64
	tasks  []func()
	micro  []func()
	timers []*manualTimer
}

var _ loop.Scheduler = (*Manual)(nil)

type manualTimer struct {
	m       *Manual
	due     time.Duration
	seq     uint64
	task    func()
	stopped bool
	fired   bool
}

// Stop implements loop.Timer.
func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// New returns a Manual scheduler at time zero.
func New() *Manual {
	return &Manual{}
}

// Post implements loop.Scheduler.
func (m *Manual) Post(task func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
}

// Defer implements loop.Scheduler.
func (m *Manual) Defer(task func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.micro = append(m.micro, task)
}

// AfterFunc implements loop.Scheduler.
func (m *Manual) AfterFunc(d time.Duration, task func()) loop.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, due: m.now + d, seq: m.seq, task: task}
	m.timers = append(m.timers, t)
	return t
}

// Do runs task immediately, followed by any microtasks it queued.
func (m *Manual) Do(ctx context.Context, task func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.exec.Lock()
	defer m.exec.Unlock()
	task()
	m.drainMicro()
	return nil
}

// Drain runs queued tasks and microtasks until both queues are empty.
func (m *Manual) Drain() {
	m.exec.Lock()
	defer m.exec.Unlock()
	for {
		m.drainMicro()
		m.mu.Lock()
		if len(m.tasks) == 0 {
			m.mu.Unlock()
			return
		}
		task := m.tasks[0]
		m.tasks = m.tasks[1:]
		m.mu.Unlock()
		task()
	}
}

// Advance moves the clock forward by d, firing due timers in order and
// draining the queues after each one.
func (m *Manual) Advance(d time.Duration) {
	m.Drain()

	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.due
		next.fired = true
		m.tasks = append(m.tasks, next.task)
		m.mu.Unlock()

		m.Drain()
	}
}

// Now returns the elapsed manual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Clock returns the manual time as a wall clock starting at the Unix
// epoch, for code that takes a func() time.Time.
func (m *Manual) Clock() time.Time {
	return time.Unix(0, 0).Add(m.Now())
}

// PendingTimers counts timers that have neither fired nor been stopped.
func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// nextDue returns the earliest live timer due at or before target.
// Callers hold m.mu.
func (m *Manual) nextDue(target time.Duration) *manualTimer {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.fired && !t.stopped {
			live = append(live, t)
		}
	}
	m.timers = live
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].due == m.timers[j].due {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].due < m.timers[j].due
	})
	if len(m.timers) == 0 || m.timers[0].due > target {
		return nil
	}
	return m.timers[0]
}

func (m *Manual) drainMicro() {
	for {
		m.mu.Lock()
		if len(m.micro) == 0 {
			m.mu.Unlock()
			return
		}
		task := m.micro[0]
		m.micro = m.micro[1:]
		m.mu.Unlock()
		task()
	}
}
