package worker

import (
	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/internal/generator"
	"github.com/avdeevk/story-video-generator/internal/jobs"
	"github.com/avdeevk/story-video-generator/internal/locks"
	"github.com/avdeevk/story-video-generator/internal/models"
	"github.com/avdeevk/story-video-generator/pkg/logger"
)

// NewRegistry wires every pipeline against the shared store, the generator
// and the backend client.
func NewRegistry(
	cfg *config.Config,
	log logger.Logger,
	gen generator.Generator,
	redisRepo jobs.RedisRepository,
	backend BackendClient,
) Registry {
	status := NewStatusManager(redisRepo, cfg.Worker.ScratchTTL)
	selector := NewSelector(redisRepo, backend, cfg.Worker.SelectionPoll, cfg.Worker.SelectionTimeout, log)
	locker := locks.NewLocker(redisRepo, log)
	resolver := &sceneResolver{
		cfg:      cfg,
		images:   gen,
		backend:  backend,
		selector: selector,
		logger:   log,
	}

	return Registry{
		models.JobImageGeneration: &imagePipeline{
			cfg:      cfg,
			resolver: resolver,
			status:   status,
			locker:   locker,
			backend:  backend,
			logger:   log,
		},
		models.JobVideoGeneration: &videoPipeline{
			cfg:      cfg,
			resolver: resolver,
			status:   status,
			locker:   locker,
			video:    gen,
			backend:  backend,
			logger:   log,
		},
		models.JobAnimationGeneration: &animationPipeline{
			cfg:     cfg,
			status:  status,
			locker:  locker,
			video:   gen,
			backend: backend,
			logger:  log,
		},
		models.JobConcatAnimations: &concatPipeline{
			cfg:     cfg,
			status:  status,
			backend: backend,
			logger:  log,
		},
		models.JobResetWorkerSession: &resetPipeline{
			status:  status,
			backend: backend,
			logger:  log,
		},
		models.JobSetAnimationsForce: &setForcePipeline{
			status:  status,
			backend: backend,
			logger:  log,
		},
		models.JobDeleteImageFolder: &deleteFolderPipeline{
			cfg:    cfg,
			logger: log,
		},
	}
}
