package jobs

import (
	"context"
	"time"

	"github.com/avdeevk/story-video-generator/internal/models"
)

// RedisRepository is the shared coordination store: durable job queue,
// ephemeral selection results, per-worker scratch state and lock primitives.
type RedisRepository interface {
	EnqueueJob(ctx context.Context, job *models.Job) error
	DequeueJob(ctx context.Context, timeout time.Duration) (*models.Job, error)
	QueueLen(ctx context.Context) (int64, error)
	ClearQueue(ctx context.Context) error

	PutSelectionResult(ctx context.Context, selectionTaskID, value string) error
	ConsumeSelectionResult(ctx context.Context, selectionTaskID string) (string, bool, error)

	GetWorkerValue(ctx context.Context, workerID, field string) (string, bool, error)
	SetWorkerValue(ctx context.Context, workerID, field, value string, ttl time.Duration) error
	DeleteWorkerValue(ctx context.Context, workerID, field string) error

	AcquireLock(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, name, token string) error
}
