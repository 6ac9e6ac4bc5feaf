package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach runs fn once per item with at most limit goroutines in flight
// (limit <= 0 means unbounded). The first error cancels the shared
// context and is returned, but work already finished in other goroutines
// keeps whatever it wrote.
func ForEach[T any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, i int, item T) error) error {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			return fn(ctx, i, item)
		})
	}
	return g.Wait()
}

// Map fans fn out over items and collects results by index, so output
// order always matches input order regardless of completion order. On
// error the returned slice still holds every result that completed.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, i int, item T) (R, error)) ([]R, error) {
	out := make([]R, len(items))
	err := ForEach(ctx, items, limit, func(ctx context.Context, i int, item T) error {
		r, err := fn(ctx, i, item)
		if err != nil {
			return err
		}
		out[i] = r
		return nil
	})
	return out, err
}
