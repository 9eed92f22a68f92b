package propagate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Batch propagates independent requests concurrently, at most limit at a
// time (limit <= 0 means unbounded). Each request gets its own stepper and
// recorder. The first failure cancels the remaining requests.
func (s *Service) Batch(ctx context.Context, reqs []Request, limit int, opts ...Option) ([]*Result, error) {
	results := make([]*Result, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, req := range reqs {
		g.Go(func() error {
			res, err := s.Propagate(ctx, req, opts...)
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func Batch(ctx context.Context, reqs []Request, limit int, opts ...Option) ([]*Result, error) {
	return NewService().Batch(ctx, reqs, limit, opts...)
}
