package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/internal/jobs"
	"github.com/avdeevk/story-video-generator/internal/models"
	"github.com/avdeevk/story-video-generator/pkg/logger"
	"github.com/google/uuid"
)

type jobsUC struct {
	cfg       *config.Config
	jobsRepo  jobs.Repository
	redisRepo jobs.RedisRepository
	logger    logger.Logger
}

func NewJobsUseCase(
	cfg *config.Config,
	jobsRepo jobs.Repository,
	redisRepo jobs.RedisRepository,
	log logger.Logger,
) jobs.UseCase {
	return &jobsUC{
		cfg:       cfg,
		jobsRepo:  jobsRepo,
		redisRepo: redisRepo,
		logger:    log,
	}
}

func (u *jobsUC) CreateJob(ctx context.Context, jobType models.JobType, userID string, data []byte) (*models.Job, error) {
	if !jobType.Valid() {
		return nil, fmt.Errorf("unknown job type: %s", jobType)
	}
	job := &models.Job{
		TaskID:    uuid.New().String(),
		Type:      jobType,
		CreatedAt: time.Now().UTC(),
		Data:      data,
	}
	record := &models.JobRecord{
		TaskID:    job.TaskID,
		Type:      job.Type,
		UserID:    userID,
		Status:    models.JobStatusQueued,
		CreatedAt: job.CreatedAt,
	}
	if _, err := u.jobsRepo.CreateJob(ctx, record); err != nil {
		u.logger.Errorf("CreateJob - history insert error: %v", err)
		return nil, err
	}
	if err := u.redisRepo.EnqueueJob(ctx, job); err != nil {
		u.logger.Errorf("CreateJob - EnqueueJob error: %v", err)
		return nil, fmt.Errorf("failed to queue the job: %v", err)
	}
	u.logger.Infof("queued %s job %s for user %s", job.Type, job.TaskID, userID)
	return job, nil
}

func (u *jobsUC) GetJob(ctx context.Context, taskID string) (*models.JobRecord, error) {
	if _, err := uuid.Parse(taskID); err != nil {
		return nil, fmt.Errorf("invalid task id: %s", taskID)
	}
	return u.jobsRepo.GetJobByID(ctx, taskID)
}

// SubmitSelection records the human's choice for one offered scene.
// choice -1 requests regeneration of that scene.
func (u *jobsUC) SubmitSelection(ctx context.Context, selectionTaskID string, choice int) error {
	if choice < -1 {
		return fmt.Errorf("invalid selection choice: %d", choice)
	}
	return u.redisRepo.PutSelectionResult(ctx, selectionTaskID, strconv.Itoa(choice))
}

func (u *jobsUC) QueueLen(ctx context.Context) (int64, error) {
	return u.redisRepo.QueueLen(ctx)
}

func (u *jobsUC) ClearQueue(ctx context.Context) error {
	u.logger.Warn("clearing the whole job queue")
	return u.redisRepo.ClearQueue(ctx)
}
