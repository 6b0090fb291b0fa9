package jobs

import (
	"context"

	"github.com/avdeevk/story-video-generator/internal/models"
)

// Repository persists the job history producers poll for status.
type Repository interface {
	CreateJob(ctx context.Context, record *models.JobRecord) (*models.JobRecord, error)
	UpdateStatus(ctx context.Context, taskID string, status models.JobStatus, errorMessage string) error
	GetJobByID(ctx context.Context, taskID string) (*models.JobRecord, error)
}
