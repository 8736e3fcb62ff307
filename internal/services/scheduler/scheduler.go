package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Scheduler runs the scrape pipeline on a cron spec until the context is
// cancelled. Runs never overlap: a tick that fires while the previous run
// is still going is skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  arbor.ILogger
	mu      sync.Mutex
	running bool
	active  bool
}

// New creates a scheduler
func New(logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the job under the cron spec and begins scheduling. The
// job receives ctx; cancellation stops the scheduler after the current
// run completes.
func (s *Scheduler) Start(ctx context.Context, spec string, job func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	_, err := s.cron.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		if !s.tryBegin() {
			s.logger.Warn().Msg("Previous scheduled run still active, skipping tick")
			return
		}
		defer s.end()

		s.logger.Info().Str("spec", spec).Msg("Scheduled run starting")
		if err := job(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Scheduled run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("spec", spec).Msg("Scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts scheduling and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) tryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return false
	}
	s.active = true
	return true
}

func (s *Scheduler) end() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}
