/*
Package loop provides the single-threaded execution context of the console.

Every dispatch and store mutation runs as a task on one Loop goroutine.
Other goroutines hand work over with Post, wait for a result with Do, or
schedule it with AfterFunc. Defer queues a task behind the current one,
ahead of anything posted since:

	l := loop.New()
	go l.Run(ctx)

	err := l.Do(ctx, func() {
		err = d.Dispatch(action.Traverse(action.ResourceCheck, 2))
	})

Run returns ctx.Err() once ctx is done. Tasks still queued are dropped and
Do callers waiting on them get ErrStopped.

Package looptest has a Manual scheduler for tests that need to control
time and task order.
*/
package loop
