// Package workers runs blocking upstream calls on a bounded set of slots so
// slow sessions cannot starve the rest of the server.
package workers

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

type Pool struct {
	sem  *semaphore.Weighted
	size int
}

func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the number of concurrent slots.
func (p *Pool) Size() int { return p.size }

// Do waits for a free slot, runs fn on it and returns fn's error. If ctx is
// done before a slot frees up, fn never runs. Once started, fn runs to
// completion and Do waits for it. A panic in fn is returned as an error.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("worker panic: %v", r)
			}
		}()
		done <- fn(ctx)
	}()
	return <-done
}

// Run is Do for functions that produce a value.
func Run[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	return out, err
}
