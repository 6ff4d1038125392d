package daemon

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler wraps gocron for the daemon's periodic maintenance tasks.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// ScheduleLivenessSweep runs the process liveness check on a fixed interval.
func (s *Scheduler) ScheduleLivenessSweep(interval time.Duration, sweep func()) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(sweep),
		gocron.WithName("liveness-sweep"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule liveness sweep: %w", err)
	}
	return nil
}

// ScheduleAuditPrune runs audit-row pruning on a fixed interval.
func (s *Scheduler) ScheduleAuditPrune(interval time.Duration, prune func()) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(prune),
		gocron.WithName("audit-prune"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule audit prune: %w", err)
	}
	return nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting maintenance scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping maintenance scheduler")
	return s.scheduler.Shutdown()
}
