package worker

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/internal/locks"
	"github.com/avdeevk/story-video-generator/internal/models"
	"github.com/avdeevk/story-video-generator/pkg/logger"
	"github.com/pkg/errors"
)

// imagePipeline resolves every scene to one chosen image and persists the
// selection for the worker, so the animation pipeline can pick it up later.
type imagePipeline struct {
	cfg      *config.Config
	resolver *sceneResolver
	status   *StatusManager
	locker   *locks.Locker
	backend  BackendClient
	logger   logger.Logger
}

func (p *imagePipeline) Run(ctx context.Context, job *models.Job) error {
	payload, err := job.GenerationPayload(ctx)
	if err != nil {
		return preconditionf("job %s: %v", job.TaskID, err)
	}

	handle, err := p.locker.AcquireAndHold(ctx, p.cfg.Worker.LockName, p.cfg.Worker.LockTTL, p.cfg.Worker.LockAcquireWait)
	if err != nil {
		return err
	}
	defer handle.Release(ctx)

	destDir := filepath.Join(p.cfg.Worker.OutputDir, payload.WorkerID, "images")
	chosen, err := p.resolver.Resolve(ctx, payload.UserID, destDir, payload.ImagePrompts)
	if err != nil {
		p.failCleanup(ctx, payload)
		return errors.Wrapf(err, "image generation job %s failed", job.TaskID)
	}

	if err := p.status.SetSelectedImages(ctx, payload.WorkerID, chosen); err != nil {
		p.failCleanup(ctx, payload)
		return errors.Wrapf(err, "image generation job %s failed to persist selection", job.TaskID)
	}

	p.backend.Notify(ctx, fmt.Sprintf("All %d scenes are resolved. You can generate animations now.", len(chosen)), payload.UserID)
	return nil
}

// failCleanup wipes the worker's scratch state so a half-finished selection
// can never leak into a retried run, then tells the user.
func (p *imagePipeline) failCleanup(ctx context.Context, payload *models.GenerationPayload) {
	if err := p.status.Reset(ctx, payload.WorkerID); err != nil {
		p.logger.Errorf("failed to reset scratch state for worker %s: %v", payload.WorkerID, err)
	}
	p.backend.Notify(ctx, "Image generation failed, please try again.", payload.UserID)
}
