package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/internal/jobs"
	"github.com/avdeevk/story-video-generator/internal/locks"
	"github.com/avdeevk/story-video-generator/internal/models"
	"github.com/avdeevk/story-video-generator/pkg/logger"
	"github.com/avdeevk/story-video-generator/pkg/utils"
	"github.com/pkg/errors"
)

const cpuCheckInterval = 10 * time.Second

// Dispatcher pulls jobs off the durable queue and runs them one at a time.
// A single job's failure never takes the loop down.
type Dispatcher struct {
	cfg       *config.Config
	logger    logger.Logger
	redisRepo jobs.RedisRepository
	jobsRepo  jobs.Repository
	registry  Registry
	backend   BackendClient
	workerID  string
}

func NewDispatcher(
	cfg *config.Config,
	log logger.Logger,
	redisRepo jobs.RedisRepository,
	jobsRepo jobs.Repository,
	registry Registry,
	backend BackendClient,
) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		logger:    log,
		redisRepo: redisRepo,
		jobsRepo:  jobsRepo,
		registry:  registry,
		backend:   backend,
		workerID:  cfg.Worker.WorkerID,
	}
}

// Listen blocks until ctx is cancelled.
func (d *Dispatcher) Listen(ctx context.Context) error {
	d.logger.Infof("worker %s listening on queue %s", d.workerID, d.cfg.Redis.JobQueueKey)
	for {
		if ctx.Err() != nil {
			d.shutdown()
			return nil
		}

		if d.cfg.Worker.MaxCPUUsage > 0 {
			if canAcceptJob, usage := utils.CheckCPUUsage(d.cfg.Worker.MaxCPUUsage); !canAcceptJob {
				d.logger.Infof("CPU usage is high: %.2f, waiting", usage)
				d.wait(ctx, cpuCheckInterval)
				continue
			}
		}

		job, err := d.redisRepo.DequeueJob(ctx, d.cfg.Worker.DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				d.shutdown()
				return nil
			}
			// Store connectivity fault, not a job fault.
			d.logger.Errorf("dequeue failed: %v", err)
			d.wait(ctx, d.cfg.Worker.DequeueBackoff)
			continue
		}
		if job == nil {
			continue
		}
		d.handle(ctx, job)
	}
}

func (d *Dispatcher) handle(ctx context.Context, job *models.Job) {
	if job.IsStale(time.Now().UTC(), d.cfg.Worker.StaleThreshold) {
		d.logger.Infof("dropping stale job %s (%s) created at %s", job.TaskID, job.Type, job.CreatedAt.Format(time.RFC3339))
		return
	}

	pipeline, ok := d.registry[job.Type]
	if !ok {
		d.logger.Warnf("unknown job type %q for job %s, dropping", job.Type, job.TaskID)
		return
	}

	job.WorkerID = d.workerID
	d.markStatus(ctx, job.TaskID, models.JobStatusProcessing, "")
	d.logger.Infof("job %s (%s) started", job.TaskID, job.Type)

	err := pipeline.Run(ctx, job)
	switch {
	case err == nil:
		d.markStatus(ctx, job.TaskID, models.JobStatusCompleted, "")
		d.logger.Infof("job %s (%s) completed", job.TaskID, job.Type)

	case errors.Is(err, locks.ErrLockHeld):
		// The shared resource is busy, not broken. Put the job back and
		// let the holder finish before trying again.
		d.logger.Infof("job %s blocked on a busy resource: %v", job.TaskID, err)
		if !job.Type.Retryable() {
			// Withholding the requeue must not turn into a silent drop.
			d.markStatus(ctx, job.TaskID, models.JobStatusFailed, "shared account is busy")
			if userID := job.UserID(); userID != "" {
				d.backend.Notify(ctx, "The shared account is busy right now, please resubmit your request later.", userID)
			}
			return
		}
		d.markStatus(ctx, job.TaskID, models.JobStatusQueued, "")
		d.requeue(ctx, job)
		d.wait(ctx, d.cfg.Worker.RequeueCooldown)

	default:
		var pre *PreconditionError
		if errors.As(err, &pre) {
			d.logger.Warnf("job %s dropped: %v", job.TaskID, err)
			d.markStatus(ctx, job.TaskID, models.JobStatusFailed, pre.Reason)
			return
		}
		d.logger.Errorf("job %s (%s) failed: %+v", job.TaskID, job.Type, err)
		d.markStatus(ctx, job.TaskID, models.JobStatusFailed, err.Error())
		d.requeue(ctx, job)
		d.wait(ctx, d.cfg.Worker.RequeueCooldown)
	}
}

func (d *Dispatcher) requeue(ctx context.Context, job *models.Job) {
	if !job.Type.Retryable() {
		d.logger.Warnf("job %s type %s is not retryable, withholding requeue", job.TaskID, job.Type)
		return
	}
	if err := d.redisRepo.EnqueueJob(ctx, job); err != nil {
		d.logger.Errorf("failed to requeue job %s: %v", job.TaskID, err)
	}
}

func (d *Dispatcher) markStatus(ctx context.Context, taskID string, status models.JobStatus, errorMessage string) {
	if d.jobsRepo == nil {
		return
	}
	if err := d.jobsRepo.UpdateStatus(ctx, taskID, status, errorMessage); err != nil {
		d.logger.Errorf("failed to update status of job %s: %v", taskID, err)
	}
}

// ClearQueue flushes every queued job. Destructive and irreversible.
func (d *Dispatcher) ClearQueue(ctx context.Context) error {
	d.logger.Warnf("clearing queue %s", d.cfg.Redis.JobQueueKey)
	return d.redisRepo.ClearQueue(ctx)
}

func (d *Dispatcher) shutdown() {
	d.logger.Info("worker shutting down")
	if d.cfg.Worker.OpsChannel == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Worker.ShutdownGrace)
	defer cancel()
	d.backend.Notify(ctx, fmt.Sprintf("worker %s is shutting down", d.workerID), d.cfg.Worker.OpsChannel)
}

func (d *Dispatcher) wait(ctx context.Context, duration time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(duration):
	}
}
