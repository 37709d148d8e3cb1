package pagination

import (
	"context"
	"sync"
)

// loop runs posted functions one at a time on a single goroutine.
// The queue is unbounded so functions running on the loop may post
// without blocking.
type loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
	done  chan struct{}
}

func newLoop() *loop {
	return &loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// post enqueues fn. Functions posted before the loop starts run once it does.
func (l *loop) post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// run drains the queue until ctx is done.
func (l *loop) run(ctx context.Context) {
	defer close(l.done)

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			if ctx.Err() != nil {
				return
			}
			fn()
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}
