package worker

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/internal/generator"
	"github.com/avdeevk/story-video-generator/internal/locks"
	"github.com/avdeevk/story-video-generator/internal/models"
	"github.com/avdeevk/story-video-generator/pkg/logger"
	"github.com/pkg/errors"
)

// videoPipeline runs the full story: resolve scenes, then turn the chosen
// images into a single video using the animation prompts.
type videoPipeline struct {
	cfg      *config.Config
	resolver *sceneResolver
	status   *StatusManager
	locker   *locks.Locker
	video    generator.VideoGenerator
	backend  BackendClient
	logger   logger.Logger
}

func (p *videoPipeline) Run(ctx context.Context, job *models.Job) error {
	payload, err := job.GenerationPayload(ctx)
	if err != nil {
		return preconditionf("job %s: %v", job.TaskID, err)
	}
	if len(payload.AnimationPrompts) != len(payload.ImagePrompts) {
		p.logger.Warnf("job %s has %d animation prompts for %d image prompts", job.TaskID, len(payload.AnimationPrompts), len(payload.ImagePrompts))
		p.backend.Notify(ctx, "Warning: the number of animation prompts does not match the number of scenes.", payload.UserID)
	}

	handle, err := p.locker.AcquireAndHold(ctx, p.cfg.Worker.LockName, p.cfg.Worker.LockTTL, p.cfg.Worker.LockAcquireWait)
	if err != nil {
		return err
	}
	defer handle.Release(ctx)

	workDir := filepath.Join(p.cfg.Worker.OutputDir, payload.WorkerID)
	chosen, err := p.resolver.Resolve(ctx, payload.UserID, filepath.Join(workDir, "images"), payload.ImagePrompts)
	if err != nil {
		p.failCleanup(ctx, payload)
		return errors.Wrapf(err, "video generation job %s failed during scene resolution", job.TaskID)
	}
	if err := p.status.SetSelectedImages(ctx, payload.WorkerID, chosen); err != nil {
		p.failCleanup(ctx, payload)
		return errors.Wrapf(err, "video generation job %s failed to persist selection", job.TaskID)
	}

	outputPath, err := p.video.GenerateVideo(ctx, chosen, payload.AnimationPrompts, filepath.Join(workDir, "video"))
	if err != nil {
		p.failCleanup(ctx, payload)
		return errors.Wrapf(err, "video generation job %s failed", job.TaskID)
	}

	remote, err := p.backend.UploadVideo(ctx, outputPath)
	if err != nil {
		p.failCleanup(ctx, payload)
		return errors.Wrapf(err, "video generation job %s failed to upload result", job.TaskID)
	}

	p.backend.Notify(ctx, fmt.Sprintf("Your video is ready: %s", remote), payload.UserID)
	return nil
}

func (p *videoPipeline) failCleanup(ctx context.Context, payload *models.GenerationPayload) {
	if err := p.status.Reset(ctx, payload.WorkerID); err != nil {
		p.logger.Errorf("failed to reset scratch state for worker %s: %v", payload.WorkerID, err)
	}
	p.backend.Notify(ctx, "Video generation failed, please try again.", payload.UserID)
}
