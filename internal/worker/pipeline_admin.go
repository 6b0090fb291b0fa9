package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/internal/models"
	"github.com/avdeevk/story-video-generator/pkg/logger"
	"github.com/pkg/errors"
)

// resetPipeline clears a worker's scratch state. Best-effort: a reset must
// never leave the job stuck in the retry loop.
type resetPipeline struct {
	status  *StatusManager
	backend BackendClient
	logger  logger.Logger
}

func (p *resetPipeline) Run(ctx context.Context, job *models.Job) error {
	payload, err := job.WorkerPayload(ctx)
	if err != nil {
		return preconditionf("job %s: %v", job.TaskID, err)
	}
	if err := p.status.Reset(ctx, payload.WorkerID); err != nil {
		p.logger.Errorf("reset for worker %s failed: %v", payload.WorkerID, err)
		p.backend.Notify(ctx, "Session reset failed, please try again.", payload.UserID)
		return nil
	}
	p.backend.Notify(ctx, "Session has been reset.", payload.UserID)
	return nil
}

// setForcePipeline marks animations as ready without running the animation
// pipeline, for sessions restored by hand.
type setForcePipeline struct {
	status  *StatusManager
	backend BackendClient
	logger  logger.Logger
}

func (p *setForcePipeline) Run(ctx context.Context, job *models.Job) error {
	payload, err := job.WorkerPayload(ctx)
	if err != nil {
		return preconditionf("job %s: %v", job.TaskID, err)
	}
	if err := p.status.SetAnimationsReady(ctx, payload.WorkerID); err != nil {
		return errors.Wrapf(err, "job %s failed to force ready flag", job.TaskID)
	}
	p.backend.Notify(ctx, "Animations are marked as ready.", payload.UserID)
	return nil
}

// deleteFolderPipeline removes a generated-artifacts folder under the
// worker output root.
type deleteFolderPipeline struct {
	cfg    *config.Config
	logger logger.Logger
}

func (p *deleteFolderPipeline) Run(ctx context.Context, job *models.Job) error {
	payload, err := job.DeleteFolderPayload(ctx)
	if err != nil {
		return preconditionf("job %s: %v", job.TaskID, err)
	}

	cleaned := filepath.Clean(payload.Folder)
	if filepath.IsAbs(cleaned) || cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return preconditionf("job %s refuses to delete folder %q", job.TaskID, payload.Folder)
	}

	target := filepath.Join(p.cfg.Worker.OutputDir, cleaned)
	if err := os.RemoveAll(target); err != nil {
		return errors.Wrapf(err, "job %s failed to delete %s", job.TaskID, target)
	}
	p.logger.Infof("deleted folder %s", target)
	return nil
}
