package daemon

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler wraps gocron for periodic re-provisioning.
type Scheduler struct {
	scheduler gocron.Scheduler
	trigger   func(reason string)
}

// NewScheduler creates a scheduler that fires the trigger on each tick.
func NewScheduler(trigger func(reason string)) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, trigger: trigger}, nil
}

// ScheduleInterval registers a periodic run and returns the job ID.
func (s *Scheduler) ScheduleInterval(interval time.Duration) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.tick),
		gocron.WithName("periodic-provision"),
	)
	if err != nil {
		return "", fmt.Errorf("creating periodic job: %w", err)
	}
	return job.ID().String(), nil
}

func (s *Scheduler) tick() {
	slog.Info("Scheduled provisioning tick")
	s.trigger("scheduled interval")
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for a running task to finish.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
