// Package worker provides a bounded pool for blocking I/O such as database
// calls. Callers submit a function and wait for its result; at most Size
// functions run at the same time.
package worker

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// DefaultSize is used when a pool is created with a non-positive size.
const DefaultSize = 4

// Pool bounds the number of concurrently running tasks.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool returns a pool that runs at most size tasks at once.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the maximum number of concurrent tasks.
func (p *Pool) Size() int { return p.size }

// Do runs fn on a pool goroutine and waits for it. If ctx is cancelled while
// waiting for a slot, fn never runs and ctx.Err() is returned. If ctx is
// cancelled while fn is running, Do returns ctx.Err() and fn finishes in the
// background before releasing its slot.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Submit(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Submit is the value-returning form of [Pool.Do].
func Submit[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, fmt.Errorf("waiting for worker: %w", err)
	}

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("worker task panicked: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
