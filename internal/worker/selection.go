package worker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avdeevk/story-video-generator/internal/jobs"
	"github.com/avdeevk/story-video-generator/pkg/logger"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// RegenerateChoice is the sentinel a selector sends to reject a whole scene.
const RegenerateChoice = -1

var ErrSelectionTimeout = errors.New("selection wait timed out")

// Selector offers a scene's candidates to a human and polls the store for
// their choice. Every offer gets a fresh selection-task id, independent of
// the parent job, so scenes are tracked individually.
type Selector struct {
	redisRepo    jobs.RedisRepository
	backend      BackendClient
	pollInterval time.Duration
	timeout      time.Duration
	logger       logger.Logger
}

func NewSelector(redisRepo jobs.RedisRepository, backend BackendClient, pollInterval, timeout time.Duration, log logger.Logger) *Selector {
	return &Selector{
		redisRepo:    redisRepo,
		backend:      backend,
		pollInterval: pollInterval,
		timeout:      timeout,
		logger:       log,
	}
}

func (s *Selector) OfferAndAwait(ctx context.Context, userID string, relativePaths []string) (int, error) {
	selectionTaskID := uuid.New().String()
	if err := s.backend.OfferSelection(ctx, selectionTaskID, userID, relativePaths); err != nil {
		return 0, err
	}
	s.logger.Infof("offered %d candidates to %s under selection task %s", len(relativePaths), userID, selectionTaskID)

	deadline := time.Now().Add(s.timeout)
	for {
		value, ok, err := s.redisRepo.ConsumeSelectionResult(ctx, selectionTaskID)
		if err != nil {
			return 0, err
		}
		if ok {
			choice, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return 0, fmt.Errorf("invalid selection result %q for task %s", value, selectionTaskID)
			}
			return choice, nil
		}
		if time.Now().After(deadline) {
			return 0, errors.Wrapf(ErrSelectionTimeout, "selection task %s", selectionTaskID)
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}
