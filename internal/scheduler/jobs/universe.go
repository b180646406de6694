package jobs

import (
	"context"
	"fmt"

	"losertrack/internal/universe"
	"losertrack/pkg/logger"
)

// UniverseJob reloads the ticker universe, picking up listings and
// delistings since the last load
type UniverseJob struct {
	cache    *universe.Cache
	schedule string
	logger   *logger.Logger
}

// NewUniverseJob creates a new universe reload job
func NewUniverseJob(cache *universe.Cache, schedule string, log *logger.Logger) *UniverseJob {
	return &UniverseJob{
		cache:    cache,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *UniverseJob) Name() string {
	return "universe_reload"
}

// Schedule returns the cron schedule expression
func (j *UniverseJob) Schedule() string {
	return j.schedule
}

// Run executes one universe reload
func (j *UniverseJob) Run(ctx context.Context) error {
	j.logger.Info("Reloading ticker universe")

	j.cache.Refresh(ctx)

	if !j.cache.Ready() {
		return fmt.Errorf("universe still empty after reload")
	}

	j.logger.WithField("symbols", j.cache.Len()).Info("Ticker universe reloaded")
	return nil
}
