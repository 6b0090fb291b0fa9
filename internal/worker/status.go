package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avdeevk/story-video-generator/internal/jobs"
	"github.com/pkg/errors"
)

const (
	selectedImagesField      = "selected_images"
	animationsReadyField     = "animations_ready_flag"
	animationsReadyFlagValue = "1"
)

// StatusManager is the per-worker scratch state bridging pipeline phases:
// image selection results feed the animation pipeline, the ready flag gates
// concatenation. Everything expires after the scratch TTL.
type StatusManager struct {
	redisRepo jobs.RedisRepository
	ttl       time.Duration
}

func NewStatusManager(redisRepo jobs.RedisRepository, ttl time.Duration) *StatusManager {
	return &StatusManager{redisRepo: redisRepo, ttl: ttl}
}

func (m *StatusManager) SelectedImages(ctx context.Context, workerID string) ([]string, bool, error) {
	value, ok, err := m.redisRepo.GetWorkerValue(ctx, workerID, selectedImagesField)
	if err != nil || !ok {
		return nil, false, err
	}
	var paths []string
	if err := json.Unmarshal([]byte(value), &paths); err != nil {
		return nil, false, errors.Wrapf(err, "corrupt selected images state for worker %s", workerID)
	}
	return paths, true, nil
}

func (m *StatusManager) SetSelectedImages(ctx context.Context, workerID string, paths []string) error {
	data, err := json.Marshal(paths)
	if err != nil {
		return errors.Wrap(err, "failed to marshal selected images")
	}
	return m.redisRepo.SetWorkerValue(ctx, workerID, selectedImagesField, string(data), m.ttl)
}

func (m *StatusManager) AnimationsReady(ctx context.Context, workerID string) (bool, error) {
	_, ok, err := m.redisRepo.GetWorkerValue(ctx, workerID, animationsReadyField)
	return ok, err
}

func (m *StatusManager) SetAnimationsReady(ctx context.Context, workerID string) error {
	return m.redisRepo.SetWorkerValue(ctx, workerID, animationsReadyField, animationsReadyFlagValue, m.ttl)
}

// Reset clears all scratch state for the worker. Deleting absent keys is a
// no-op, so calling it repeatedly is safe.
func (m *StatusManager) Reset(ctx context.Context, workerID string) error {
	if err := m.redisRepo.DeleteWorkerValue(ctx, workerID, selectedImagesField); err != nil {
		return err
	}
	return m.redisRepo.DeleteWorkerValue(ctx, workerID, animationsReadyField)
}
