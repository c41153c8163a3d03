// Package schedule runs a function on a fixed period without overlapping runs.
package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPeriod replaces a non-positive period passed to Start.
const DefaultPeriod = time.Second

// Task calls fn once immediately and then on every tick. If fn is still
// running when a tick arrives, the tick is dropped and counted.
type Task struct {
	period time.Duration
	fn     func(ctx context.Context)

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	busy    atomic.Bool
	runs    atomic.Uint64
	dropped atomic.Uint64
}

func Start(parent context.Context, period time.Duration, fn func(ctx context.Context)) *Task {
	if period <= 0 {
		period = DefaultPeriod
	}

	ctx, cancel := context.WithCancel(parent)

	t := &Task{
		period: period,
		fn:     fn,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go t.loop(ctx)

	return t
}

func (t *Task) loop(ctx context.Context) {
	var wg sync.WaitGroup

	defer close(t.done)
	defer wg.Wait()

	fire := func() {
		if !t.busy.CompareAndSwap(false, true) {
			t.dropped.Add(1)
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer t.busy.Store(false)

			t.runs.Add(1)
			t.fn(ctx)
		}()
	}

	fire()

	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fire()
		}
	}
}

// Stop cancels the context given to fn and waits for the current run to
// return. Safe to call more than once.
func (t *Task) Stop() {
	t.stopOnce.Do(t.cancel)
	<-t.done
}

// Done is closed once the task has fully stopped.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) Runs() uint64    { return t.runs.Load() }
func (t *Task) Dropped() uint64 { return t.dropped.Load() }
