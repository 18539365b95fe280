package cache

import (
	"context"
	"time"

	"github.com/yungbote/docindex/internal/observability"
	"github.com/yungbote/docindex/internal/platform/logger"
)

// Sweeper periodically deletes expired entries from a store.
type Sweeper struct {
	store      Store
	log        *logger.Logger
	interval   time.Duration
	namespaces []string
	now        func() time.Time
}

func NewSweeper(log *logger.Logger, store Store, interval time.Duration, namespaces ...string) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Sweeper{
		store:      store,
		log:        log.With("service", "CacheSweeper"),
		interval:   interval,
		namespaces: namespaces,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start runs SweepOnce every interval until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	if s == nil || s.store == nil {
		return
	}
	go func() {
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.SweepOnce(ctx)
			}
		}
	}()
}

func (s *Sweeper) SweepOnce(ctx context.Context) int64 {
	var total int64
	now := s.now()
	for _, ns := range s.namespaces {
		n, err := s.store.Sweep(ctx, ns, now)
		if err != nil {
			s.log.Warn("cache sweep failed", "namespace", ns, "error", err)
			observability.Current().IncCacheError(ns, "sweep")
			continue
		}
		if n > 0 {
			s.log.Debug("cache sweep removed expired entries", "namespace", ns, "removed", n)
			observability.Current().AddCacheSwept(ns, int(n))
		}
		total += n
	}
	return total
}
