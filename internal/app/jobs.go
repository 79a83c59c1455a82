package app

import (
	"context"

	pkgcron "github.com/votehub/core/internal/pkg/cron"
	"go.uber.org/zap"
)

const jobRefreshTrending = "refresh_psi_trending"

func (a *App) registerJobs(s *services) {
	interval := a.cfg.TrendingRefreshInterval()
	if interval == 0 || a.redis == nil {
		return
	}
	a.sched.Register(pkgcron.Job{
		Name:        jobRefreshTrending,
		Description: "Recompute the PSI trending ranking into the cache",
		Interval:    interval,
		Warm:        true,
		Fn: func(ctx context.Context) error {
			entries, err := s.psi.RefreshTrending(ctx)
			if err != nil {
				return err
			}
			a.logger.Debug("trending refreshed", zap.Int("profiles", len(entries)))
			return nil
		},
	})
}
