package navigator

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/adalia-navigator/internal/logging"
)

// WarmOrbits computes the default orbit path of every body in ids so later
// Orbit and PlanRoute calls hit the cache. At most workers paths are
// computed at once. It stops at the first hard error or when ctx is done
// and returns how many paths were filled.
func (s *Service) WarmOrbits(ctx context.Context, ids []int, workers int) (int, error) {
	if s.store == nil || len(ids) == 0 {
		return 0, nil
	}
	if workers <= 0 {
		workers = 1
	}

	started := time.Now()
	var filled atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			body, err := s.catalog.Lookup(id)
			if err != nil {
				return err
			}
			if _, err := s.orbit(gctx, body, 0); err != nil {
				return err
			}
			filled.Add(1)
			return nil
		})
	}
	err := g.Wait()
	n := int(filled.Load())
	s.log.Info(ctx, "orbit cache warmed",
		logging.Int("bodies", n),
		logging.Int("workers", workers),
		logging.Any("duration", time.Since(started)),
	)
	return n, err
}
