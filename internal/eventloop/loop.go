// Package eventloop runs every state mutation of a client on a single goroutine.
package eventloop

import (
	"context"
	"errors"
)

var ErrStopped = errors.New("event loop stopped")

const defaultBuffer = 64

type Loop struct {
	tasks chan func()
	done  chan struct{}
}

func New() *Loop {
	return &Loop{
		tasks: make(chan func(), defaultBuffer),
		done:  make(chan struct{}),
	}
}

// Post queues task for the loop goroutine. It reports false once the loop has stopped.
func (that *Loop) Post(task func()) bool {
	select {
	case <-that.done:
		return false
	default:
	}

	select {
	case that.tasks <- task:
		return true
	case <-that.done:
		return false
	}
}

// Enqueue is Post without the result, suitable as a callback sink.
func (that *Loop) Enqueue(task func()) {
	that.Post(task)
}

// Call runs task on the loop and waits for its result.
func (that *Loop) Call(ctx context.Context, task func() error) error {
	result := make(chan error, 1)

	if !that.Post(func() { result <- task() }) {
		return ErrStopped
	}

	select {
	case err := <-result:
		return err
	case <-that.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes tasks until ctx is cancelled. Tasks still queued at that point are dropped.
func (that *Loop) Run(ctx context.Context) error {
	defer close(that.done)

	for {
		select {
		case <-ctx.Done():
			return nil
		case task := <-that.tasks:
			task()
		}
	}
}

// Done is closed when Run returns.
func (that *Loop) Done() <-chan struct{} {
	return that.done
}
