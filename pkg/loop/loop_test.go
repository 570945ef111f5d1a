package loop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l, cancel
}

func TestTasksRunInPostOrder(t *testing.T) {
	l, _ := startLoop(t)

	var order []int
	for i := range 10 {
		l.Post(func() { order = append(order, i) })
	}

	var got []int
	require.NoError(t, l.Do(context.Background(), func() { got = append(got, order...) }))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestDeferredRunsBeforeNextTask(t *testing.T) {
	l, _ := startLoop(t)

	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	require.NoError(t, l.Do(context.Background(), func() {
		l.Post(func() { record("second task") })
		l.Defer(func() { record("microtask") })
		record("first task")
	}))
	require.NoError(t, l.Do(context.Background(), func() {}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first task", "microtask", "second task"}, order)
}

func TestAfterFuncPostsToLoop(t *testing.T) {
	l, _ := startLoop(t)

	fired := make(chan struct{})
	l.AfterFunc(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer task did not run")
	}
}

func TestAfterFuncStop(t *testing.T) {
	l, _ := startLoop(t)

	ran := make(chan struct{}, 1)
	timer := l.AfterFunc(50*time.Millisecond, func() { ran <- struct{}{} })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	select {
	case <-ran:
		t.Fatal("stopped timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPanicInTaskDoesNotStopLoop(t *testing.T) {
	l, _ := startLoop(t)

	l.Post(func() { panic("task failure") })

	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestDoAfterStop(t *testing.T) {
	l := New()
	l.Stop()
	l.Stop()

	err := l.Do(context.Background(), func() {})
	assert.True(t, errors.Is(err, ErrStopped))
}

func TestDoHonoursContext(t *testing.T) {
	// Never run, so the task can only be abandoned through ctx
	l := New()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Do(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunReturnsContextError(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrStopped)
}
