// Package jobs runs the background tasks (cron).
// scheduler.go schedules the hourly cooldown sweep. Expiry is already
// lazy at touch time; the sweep just keeps dormant rows from carrying
// stale timestamps forever.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/Lesamuen/Meridia2/internal/features/users"
)

// Scheduler manages the background tasks.
type Scheduler struct {
	cron *cron.Cron
	repo users.Repository
}

// NewScheduler creates the task scheduler. Cooldowns are stored in UTC,
// so the schedule runs in UTC too.
func NewScheduler(repo users.Repository) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		repo: repo,
	}
}

// Start registers and launches all background tasks.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.AddFunc("0 * * * *", func() {
		log.Debug("[CRON] sweeping expired cooldowns")
		cleared, err := s.repo.ClearExpiredCooldowns(ctx, time.Now().UTC())
		if err != nil {
			log.WithError(err).Error("[CRON] cooldown sweep failed")
			return
		}
		if cleared > 0 {
			log.WithField("cleared", cleared).Info("[CRON] expired cooldowns cleared")
		}
	})

	s.cron.Start()
	log.Info("task scheduler started (UTC)")
}

// Stop halts the scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("task scheduler stopped")
}
