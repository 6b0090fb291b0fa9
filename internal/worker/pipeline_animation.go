package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/internal/generator"
	"github.com/avdeevk/story-video-generator/internal/locks"
	"github.com/avdeevk/story-video-generator/internal/models"
	"github.com/avdeevk/story-video-generator/pkg/logger"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// animationPipeline animates the images a previous pipeline selected for
// this worker. It never generates or selects images itself.
type animationPipeline struct {
	cfg     *config.Config
	status  *StatusManager
	locker  *locks.Locker
	video   generator.VideoGenerator
	backend BackendClient
	logger  logger.Logger
}

func (p *animationPipeline) Run(ctx context.Context, job *models.Job) error {
	payload, err := job.AnimationPayload(ctx)
	if err != nil {
		return preconditionf("job %s: %v", job.TaskID, err)
	}

	selected, ok, err := p.status.SelectedImages(ctx, payload.WorkerID)
	if err != nil {
		return errors.Wrapf(err, "animation job %s failed to read selected images", job.TaskID)
	}
	if !ok || len(selected) == 0 {
		p.backend.Notify(ctx, "No selected images found. Run image generation first.", payload.UserID)
		return preconditionf("worker %s has no selected images", payload.WorkerID)
	}

	handle, err := p.locker.AcquireAndHold(ctx, p.cfg.Worker.LockName, p.cfg.Worker.LockTTL, p.cfg.Worker.LockAcquireWait)
	if err != nil {
		return err
	}
	defer handle.Release(ctx)

	destDir := filepath.Join(p.cfg.Worker.OutputDir, payload.WorkerID, "animations")
	clips, err := p.video.GenerateAnimations(ctx, selected, payload.AnimationPrompts, destDir)
	if err != nil {
		p.backend.Notify(ctx, "Animation generation failed, please try again.", payload.UserID)
		return errors.Wrapf(err, "animation job %s failed", job.TaskID)
	}

	remotes := make([]string, len(clips))
	g, gctx := errgroup.WithContext(ctx)
	for i, clip := range clips {
		i, clip := i, clip
		g.Go(func() error {
			remote, err := p.backend.UploadVideo(gctx, clip)
			if err != nil {
				return errors.Wrapf(err, "failed to upload animation %d", i)
			}
			remotes[i] = remote
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.backend.Notify(ctx, "Animation upload failed, please try again.", payload.UserID)
		return errors.Wrapf(err, "animation job %s failed", job.TaskID)
	}

	if err := p.status.SetAnimationsReady(ctx, payload.WorkerID); err != nil {
		return errors.Wrapf(err, "animation job %s failed to set ready flag", job.TaskID)
	}

	p.backend.Notify(ctx, fmt.Sprintf("Animations are ready:\n%s", strings.Join(remotes, "\n")), payload.UserID)
	return nil
}
