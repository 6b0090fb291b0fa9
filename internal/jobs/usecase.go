package jobs

import (
	"context"

	"github.com/avdeevk/story-video-generator/internal/models"
)

// UseCase is the producer-side surface exposed over HTTP.
type UseCase interface {
	CreateJob(ctx context.Context, jobType models.JobType, userID string, data []byte) (*models.Job, error)
	GetJob(ctx context.Context, taskID string) (*models.JobRecord, error)
	SubmitSelection(ctx context.Context, selectionTaskID string, choice int) error
	QueueLen(ctx context.Context) (int64, error)
	ClearQueue(ctx context.Context) error
}
