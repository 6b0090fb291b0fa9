package worker

import (
	"context"
	"fmt"

	"github.com/avdeevk/story-video-generator/internal/models"
)

// BackendClient is the worker's view of the backend HTTP service.
type BackendClient interface {
	UploadFile(ctx context.Context, path string) (string, error)
	UploadVideo(ctx context.Context, path string) (string, error)
	UploadArchive(ctx context.Context, path string) (string, error)
	Notify(ctx context.Context, text, sendTo string)
	OfferSelection(ctx context.Context, taskID, userID string, relativePaths []string) error
}

// Pipeline executes one dequeued job to completion.
type Pipeline interface {
	Run(ctx context.Context, job *models.Job) error
}

type Registry map[models.JobType]Pipeline

// PreconditionError marks a job that can never succeed as queued: the user
// has been told, the dispatcher must not requeue it.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return e.Reason
}

func preconditionf(format string, args ...interface{}) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}
