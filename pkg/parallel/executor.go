// Package parallel provides bounded fan-out for batch operations
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Executor fans work out across at most a fixed number of goroutines.
// Callers write results by input index, so output order always matches input
// order regardless of completion order.
type Executor struct {
	limit int
}

// NewExecutor creates an executor with the given concurrency limit
func NewExecutor(limit int) *Executor {
	if limit < 1 {
		limit = 1
	}
	return &Executor{limit: limit}
}

// Limit returns the configured concurrency limit
func (e *Executor) Limit() int {
	return e.limit
}

// ForEach runs fn for every index in [0, n), at most limit at a time. The
// first error cancels the remaining work and is returned.
func (e *Executor) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return fn(ctx, i)
		})
	}
	return g.Wait()
}

// MapInts applies fn to each item and returns the results indexed by input
// position
func (e *Executor) MapInts(ctx context.Context, items []string, fn func(ctx context.Context, item string) (int, error)) ([]int, error) {
	results := make([]int, len(items))
	err := e.ForEach(ctx, len(items), func(ctx context.Context, i int) error {
		v, err := fn(ctx, items[i])
		if err != nil {
			return err
		}
		results[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
