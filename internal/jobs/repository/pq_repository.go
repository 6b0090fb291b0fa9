package repository

import (
	"context"

	"github.com/avdeevk/story-video-generator/internal/jobs"
	"github.com/avdeevk/story-video-generator/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type jobsRepo struct {
	db *sqlx.DB
}

func NewJobsRepo(db *sqlx.DB) jobs.Repository {
	return &jobsRepo{
		db: db,
	}
}

func (r *jobsRepo) CreateJob(ctx context.Context, record *models.JobRecord) (*models.JobRecord, error) {
	created := &models.JobRecord{}
	if err := r.db.QueryRowxContext(
		ctx,
		createJobQuery,
		record.TaskID,
		record.Type,
		record.UserID,
		record.Status,
		record.CreatedAt,
	).StructScan(created); err != nil {
		return nil, errors.Wrap(err, "jobsRepo.CreateJob.StructScan")
	}
	return created, nil
}

func (r *jobsRepo) UpdateStatus(ctx context.Context, taskID string, status models.JobStatus, errorMessage string) error {
	if _, err := r.db.ExecContext(ctx, updateJobStatusQuery, status, errorMessage, taskID); err != nil {
		return errors.Wrap(err, "jobsRepo.UpdateStatus.Exec")
	}
	return nil
}

func (r *jobsRepo) GetJobByID(ctx context.Context, taskID string) (*models.JobRecord, error) {
	record := &models.JobRecord{}
	if err := r.db.GetContext(ctx, record, getJobByIDQuery, taskID); err != nil {
		return nil, errors.Wrap(err, "jobsRepo.GetJobByID.Get")
	}
	return record, nil
}
