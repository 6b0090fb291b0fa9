package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avdeevk/story-video-generator/internal/jobs"
	"github.com/avdeevk/story-video-generator/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	selectionResultPrefix = "result:image_selection:"
	workerMemoryPrefix    = "worker_memory:"
	lockPrefix            = "lock:"
)

// Ownership-checked release: only the token that acquired the lock may
// delete it, so a lock that expired and was re-acquired elsewhere survives.
const releaseLockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

type jobsRedisRepo struct {
	redisClient *redis.Client
	queueKey    string
}

func NewJobsRedisRepo(redisClient *redis.Client, queueKey string) jobs.RedisRepository {
	return &jobsRedisRepo{
		redisClient: redisClient,
		queueKey:    queueKey,
	}
}

func (r *jobsRedisRepo) EnqueueJob(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "jobsRedisRepo.EnqueueJob.Marshal")
	}
	return errors.Wrap(r.redisClient.LPush(ctx, r.queueKey, data).Err(), "jobsRedisRepo.EnqueueJob.LPush")
}

// DequeueJob block-pops the queue head for up to timeout. An empty queue
// returns (nil, nil) so the caller can distinguish idle from failure.
func (r *jobsRedisRepo) DequeueJob(ctx context.Context, timeout time.Duration) (*models.Job, error) {
	res, err := r.redisClient.BRPop(ctx, timeout, r.queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "jobsRedisRepo.DequeueJob.BRPop")
	}
	job := &models.Job{}
	if err = json.Unmarshal([]byte(res[1]), job); err != nil {
		return nil, errors.Wrap(err, "jobsRedisRepo.DequeueJob.Unmarshal")
	}
	return job, nil
}

func (r *jobsRedisRepo) QueueLen(ctx context.Context) (int64, error) {
	length, err := r.redisClient.LLen(ctx, r.queueKey).Result()
	if err != nil {
		return 0, errors.Wrap(err, "jobsRedisRepo.QueueLen.LLen")
	}
	return length, nil
}

func (r *jobsRedisRepo) ClearQueue(ctx context.Context) error {
	return errors.Wrap(r.redisClient.Del(ctx, r.queueKey).Err(), "jobsRedisRepo.ClearQueue.Del")
}

func (r *jobsRedisRepo) PutSelectionResult(ctx context.Context, selectionTaskID, value string) error {
	key := selectionResultPrefix + selectionTaskID
	return errors.Wrap(r.redisClient.Set(ctx, key, value, time.Hour).Err(), "jobsRedisRepo.PutSelectionResult.Set")
}

// ConsumeSelectionResult reads and deletes a selection result. The second
// return value is false while no selection has been written yet.
func (r *jobsRedisRepo) ConsumeSelectionResult(ctx context.Context, selectionTaskID string) (string, bool, error) {
	key := selectionResultPrefix + selectionTaskID
	value, err := r.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "jobsRedisRepo.ConsumeSelectionResult.Get")
	}
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return "", false, errors.Wrap(err, "jobsRedisRepo.ConsumeSelectionResult.Del")
	}
	return value, true, nil
}

func workerMemoryKey(workerID, field string) string {
	return fmt.Sprintf("%s%s:%s", workerMemoryPrefix, workerID, field)
}

func (r *jobsRedisRepo) GetWorkerValue(ctx context.Context, workerID, field string) (string, bool, error) {
	value, err := r.redisClient.Get(ctx, workerMemoryKey(workerID, field)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "jobsRedisRepo.GetWorkerValue.Get")
	}
	return value, true, nil
}

func (r *jobsRedisRepo) SetWorkerValue(ctx context.Context, workerID, field, value string, ttl time.Duration) error {
	err := r.redisClient.Set(ctx, workerMemoryKey(workerID, field), value, ttl).Err()
	return errors.Wrap(err, "jobsRedisRepo.SetWorkerValue.Set")
}

func (r *jobsRedisRepo) DeleteWorkerValue(ctx context.Context, workerID, field string) error {
	err := r.redisClient.Del(ctx, workerMemoryKey(workerID, field)).Err()
	return errors.Wrap(err, "jobsRedisRepo.DeleteWorkerValue.Del")
}

func (r *jobsRedisRepo) AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	ok, err := r.redisClient.SetNX(ctx, lockPrefix+name, token, ttl).Result()
	if err != nil {
		return "", false, errors.Wrap(err, "jobsRedisRepo.AcquireLock.SetNX")
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *jobsRedisRepo) ReleaseLock(ctx context.Context, name, token string) error {
	err := r.redisClient.Eval(ctx, releaseLockScript, []string{lockPrefix + name}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return errors.Wrap(err, "jobsRedisRepo.ReleaseLock.Eval")
	}
	return nil
}
