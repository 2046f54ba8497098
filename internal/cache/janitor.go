package cache

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultCleanupSchedule runs the janitor hourly.
const DefaultCleanupSchedule = "@every 1h"

// Janitor deletes expired entries on a cron schedule.
type Janitor struct {
	cache *Lazy
	cron  *cron.Cron
}

// NewJanitor creates a janitor for the cache held by l.
func NewJanitor(l *Lazy) *Janitor {
	return &Janitor{cache: l, cron: cron.New()}
}

// Start schedules the cleanup job. An empty schedule uses the hourly default.
func (j *Janitor) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	if _, err := j.cron.AddFunc(schedule, j.RunOnce); err != nil {
		return eris.Wrapf(err, "cache: schedule cleanup %q", schedule)
	}
	j.cron.Start()
	zap.L().Info("cache: cleanup scheduled", zap.String("schedule", schedule))
	return nil
}

// RunOnce performs a single cleanup pass.
func (j *Janitor) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := j.cache.Get(ctx).Cleanup(ctx)
	if err != nil {
		zap.L().Error("cache: cleanup failed", zap.Error(err))
		return
	}
	zap.L().Info("cache: cleanup complete", zap.Int("deleted", n))
}

// Stop stops the scheduler and waits for a running job to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}
