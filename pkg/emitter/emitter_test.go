package emitter

import (
	"testing"

	"github.com/cuemby/zerocon/pkg/loop/looptest"
	"github.com/stretchr/testify/assert"
)

func TestEmitCallsListenersInOrder(t *testing.T) {
	e := New(nil)

	var got []string
	e.On(Change, func(ev string) { got = append(got, "a:"+ev) })
	e.On(Change, func(ev string) { got = append(got, "b:"+ev) })
	e.On("other", func(ev string) { got = append(got, "c:"+ev) })

	e.Emit(Change)
	assert.Equal(t, []string{"a:change", "b:change"}, got)
}

func TestOff(t *testing.T) {
	e := New(nil)

	calls := 0
	sub := e.On(Change, func(string) { calls++ })
	assert.Equal(t, 1, e.ListenerCount(Change))

	e.Off(sub)
	e.Off(sub)
	e.Emit(Change)

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, e.ListenerCount(Change))
}

func TestPanickingListenerDoesNotStopOthers(t *testing.T) {
	e := New(nil)

	e.On(Change, func(string) { panic("listener failure") })
	calls := 0
	e.On(Change, func(string) { calls++ })

	assert.NotPanics(t, func() { e.Emit(Change) })
	assert.Equal(t, 1, calls)
}

func TestEmitDeferRunsAfterCurrentTask(t *testing.T) {
	m := looptest.New()
	e := New(m)

	var order []string
	e.On(Change, func(string) { order = append(order, "listener") })

	m.Post(func() {
		e.EmitDefer(Change)
		order = append(order, "task")
	})
	m.Post(func() { order = append(order, "next task") })
	m.Drain()

	assert.Equal(t, []string{"task", "listener", "next task"}, order)
}
