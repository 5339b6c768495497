// Package eventloop runs all window-system state mutation on one goroutine.
//
// Backend reader goroutines and IPC handlers never touch state directly; they
// hand closures to the loop. Closures run in the order they were posted.
package eventloop

import (
	"context"
	"errors"
	"log/slog"
)

// ErrStopped is returned by Call once the loop has exited.
var ErrStopped = errors.New("event loop stopped")

// Loop serializes work onto a single goroutine.
type Loop struct {
	work   chan func()
	done   chan struct{}
	fail   chan error
	logger *slog.Logger
}

// New creates a loop with the given queue depth.
func New(depth int, logger *slog.Logger) *Loop {
	if depth <= 0 {
		depth = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		work:   make(chan func(), depth),
		done:   make(chan struct{}),
		fail:   make(chan error, 1),
		logger: logger,
	}
}

// Post enqueues fn. It blocks while the queue is full and drops fn once the
// loop has stopped.
func (l *Loop) Post(fn func()) {
	select {
	case l.work <- fn:
	case <-l.done:
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case l.work <- wrapped:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fail stops the loop with err. Only the first failure is kept.
func (l *Loop) Fail(err error) {
	select {
	case l.fail <- err:
	default:
	}
}

// Run executes posted work until ctx is cancelled or Fail is called.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-l.fail:
			return err
		case fn := <-l.work:
			l.run(fn)
		}
	}
}

// run executes one closure; panics are logged and the loop carries on.
func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event loop panic recovered", "error", r)
		}
	}()
	fn()
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
