// Package scheduler wraps robfig/cron for the CLI's optional
// --schedule recurring-backtest mode: rerun a backtest on a cron
// expression against a daily-refreshed cache, useful for paper-trading
// a strategy without a separate long-running service. The core
// simulation loop itself stays synchronous; this is a thin wrapper
// around it.
package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one scheduled unit of recurring work.
type Job interface {
	Run() error
	Name() string
}

// Scheduler runs Jobs on cron expressions.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a Scheduler with second-level cron precision.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler.Scheduler").Logger(),
	}
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop waits for in-flight jobs to finish, then returns.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

// AddJob registers job on the given cron expression: 6-field with a
// leading seconds field (this Scheduler runs WithSeconds), or a
// descriptor such as "@every 1h". Standard 5-field expressions are
// rejected.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", job.Name()).Msg("running scheduled job")
		if err := job.Run(); err != nil {
			s.log.Error().Err(err).Str("job", job.Name()).Msg("scheduled job failed")
			return
		}
		s.log.Debug().Str("job", job.Name()).Msg("scheduled job completed")
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("schedule", schedule).Str("job", job.Name()).Msg("job registered")
	return nil
}
