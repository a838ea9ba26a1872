// pattern: Imperative Shell

package server

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("event loop stopped")

// Loop runs posted closures one at a time on a single goroutine. Everything
// that touches the tree goes through it.
type Loop struct {
	mu      sync.Mutex
	tasks   []func()
	wake    chan struct{}
	stopped chan struct{}
	done    bool
}

// NewLoop creates an idle loop.
func NewLoop() *Loop {
	return &Loop{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Post queues fn without waiting. It is safe to call from any goroutine,
// including the loop itself. Posts after the loop stops are dropped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from the loop goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Stopped is closed once Run returns.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}

// Run executes tasks until ctx is cancelled. After every batch it asks
// deadline when tick is next due and arms a single timer for it.
func (l *Loop) Run(ctx context.Context, deadline func() (time.Time, bool), tick func()) error {
	defer func() {
		l.mu.Lock()
		l.done = true
		l.tasks = nil
		l.mu.Unlock()
		close(l.stopped)
	}()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		l.drain()

		var fire <-chan time.Time
		if deadline != nil {
			if at, ok := deadline(); ok {
				timer.Reset(max(time.Until(at), 0))
				fire = timer.C
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-fire:
			if tick != nil {
				tick()
			}
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		tasks := l.tasks
		l.tasks = nil
		l.mu.Unlock()
		if len(tasks) == 0 {
			return
		}
		for _, fn := range tasks {
			fn()
		}
	}
}
