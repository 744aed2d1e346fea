package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"intranet-lending/internal/jobs"
	"intranet-lending/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron     *cron.Cron
	jobs     *jobs.JobRunner
	registry map[string]func()
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
		registry: map[string]func(){
			"sync-inventory": jobRunner.SyncInventory,
		},
	}

	s.registerJobs()
	return s
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	// Mirror the remote inventory
	_, err := s.cron.AddFunc(cfg.SyncInventory, s.registry["sync-inventory"])
	if err != nil {
		logger.Error("Failed to register SyncInventory job", "schedule", cfg.SyncInventory, "error", err)
		return
	}

	logger.Info("All cron jobs registered successfully", "count", len(s.cron.Entries()))
}

// RunOnce executes a registered job immediately in the caller's goroutine
func (s *Scheduler) RunOnce(name string) error {
	job, ok := s.registry[name]
	if !ok {
		return fmt.Errorf("unknown job %q (available: %v)", name, s.JobNames())
	}
	job()
	return nil
}

// JobNames lists the jobs RunOnce accepts
func (s *Scheduler) JobNames() []string {
	names := make([]string, 0, len(s.registry))
	for name := range s.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler has jobs registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
