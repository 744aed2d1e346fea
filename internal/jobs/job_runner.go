package jobs

import (
	"context"
	"time"

	"intranet-lending/internal/config"
	"intranet-lending/internal/domain"
	"intranet-lending/internal/logger"
	"intranet-lending/internal/repository"
	"intranet-lending/internal/service"
)

// InventorySource performs the full, uncached remote item fetch. Entries
// that fail to normalize come back as rejections next to the good items.
type InventorySource interface {
	ListItemsReport(ctx context.Context) ([]domain.RemoteItem, []domain.RejectedItem, error)
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	mirror   repository.MirrorRepository
	services *Services
	config   *config.Config
	now      func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Inventory InventorySource
	Alert     service.AlertService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(mirror repository.MirrorRepository, services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		mirror:   mirror,
		services: services,
		config:   cfg,
		now:      time.Now,
	}
}

// Config returns the configuration the jobs were built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}
