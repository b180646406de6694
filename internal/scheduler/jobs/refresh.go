package jobs

import (
	"context"

	"losertrack/internal/ranking"
	"losertrack/pkg/logger"
)

// RefreshJob recomputes the top-losers cache on a fixed schedule, so the
// ranking stays warm even when no page views are triggering refreshes
type RefreshJob struct {
	cache    *ranking.Cache
	schedule string
	logger   *logger.Logger
}

// NewRefreshJob creates a new losers refresh job
func NewRefreshJob(cache *ranking.Cache, schedule string, log *logger.Logger) *RefreshJob {
	return &RefreshJob{
		cache:    cache,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "losers_refresh"
}

// Schedule returns the cron schedule expression
func (j *RefreshJob) Schedule() string {
	return j.schedule
}

// Run executes one cache refresh
func (j *RefreshJob) Run(ctx context.Context) error {
	return j.cache.Refresh(ctx)
}
