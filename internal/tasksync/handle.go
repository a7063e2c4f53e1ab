package tasksync

import (
	"context"
	"sync"
)

// Handle is a background operation that can be cancelled. Once Cancel
// returns, the operation's result is never applied to the view.
type Handle[T any] struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
	val       T
	err       error
}

func start[T any](ctx context.Context, run func(context.Context) (T, error), apply func(T)) *Handle[T] {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle[T]{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer cancel()
		v, err := run(ctx)
		h.finish(v, err, apply)
	}()
	return h
}

func (h *Handle[T]) finish(v T, err error, apply func(T)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled {
		var zero T
		h.val, h.err = zero, context.Canceled
		return
	}
	if err == nil && apply != nil {
		apply(v)
	}
	h.val, h.err = v, err
}

// Cancel stops the operation and discards its result.
func (h *Handle[T]) Cancel() {
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
	h.cancel()
}

// Done is closed when the operation has finished.
func (h *Handle[T]) Done() <-chan struct{} { return h.done }

// Wait blocks until the operation finishes and returns its result.
// A cancelled operation returns context.Canceled.
func (h *Handle[T]) Wait() (T, error) {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.val, h.err
}
