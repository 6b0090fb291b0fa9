package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/internal/generator"
	"github.com/avdeevk/story-video-generator/internal/models"
	"github.com/avdeevk/story-video-generator/pkg/logger"
	"github.com/avdeevk/story-video-generator/pkg/utils"
	"github.com/pkg/errors"
)

// concatPipeline stitches the worker's generated animations into one video
// and bundles the raw clips into an archive next to it.
type concatPipeline struct {
	cfg     *config.Config
	status  *StatusManager
	backend BackendClient
	logger  logger.Logger
}

func (p *concatPipeline) Run(ctx context.Context, job *models.Job) error {
	payload, err := job.WorkerPayload(ctx)
	if err != nil {
		return preconditionf("job %s: %v", job.TaskID, err)
	}

	ready, err := p.status.AnimationsReady(ctx, payload.WorkerID)
	if err != nil {
		return errors.Wrapf(err, "concat job %s failed to read ready flag", job.TaskID)
	}
	if !ready {
		p.backend.Notify(ctx, "Animations are not ready yet, nothing to concatenate.", payload.UserID)
		return preconditionf("worker %s animations are not ready", payload.WorkerID)
	}

	animDir := filepath.Join(p.cfg.Worker.OutputDir, payload.WorkerID, "animations")
	clips, err := listClips(animDir)
	if err != nil {
		return errors.Wrapf(err, "concat job %s failed to list animations", job.TaskID)
	}
	if len(clips) == 0 {
		p.backend.Notify(ctx, "No animation files found, nothing to concatenate.", payload.UserID)
		return preconditionf("worker %s has no animation files", payload.WorkerID)
	}

	outputPath := filepath.Join(p.cfg.Worker.OutputDir, payload.WorkerID, "concat.mp4")
	if err := generator.ConcatClips(ctx, clips, outputPath); err != nil {
		p.backend.Notify(ctx, "Concatenation failed, please try again.", payload.UserID)
		return errors.Wrapf(err, "concat job %s failed", job.TaskID)
	}

	videoRemote, err := p.backend.UploadVideo(ctx, outputPath)
	if err != nil {
		p.backend.Notify(ctx, "Failed to upload the concatenated video, please try again.", payload.UserID)
		return errors.Wrapf(err, "concat job %s failed to upload video", job.TaskID)
	}

	// The video link is already secured; a broken archive must not hide it.
	archiveRemote := ""
	archivePath := filepath.Join(p.cfg.Worker.OutputDir, payload.WorkerID, "animations.zip")
	if err := utils.CreateZip(archivePath, []string{animDir}); err != nil {
		p.logger.Errorf("concat job %s failed to build archive: %v", job.TaskID, err)
	} else if archiveRemote, err = p.backend.UploadArchive(ctx, archivePath); err != nil {
		p.logger.Errorf("concat job %s failed to upload archive: %v", job.TaskID, err)
		archiveRemote = ""
	}

	msg := fmt.Sprintf("Your video is ready: %s", videoRemote)
	if archiveRemote != "" {
		msg += fmt.Sprintf("\nSource animations: %s", archiveRemote)
	} else {
		msg += "\nThe animations archive could not be prepared."
	}
	p.backend.Notify(ctx, msg, payload.UserID)
	return nil
}

func listClips(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var clips []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".mp4") {
			clips = append(clips, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(clips)
	return clips, nil
}
