package generator

import (
	"context"

	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/pkg/logger"
)

// ImageGenerator produces candidate images for scenes. indices restricts
// generation to a subset of the prompt list; the returned map is keyed by
// scene index so restricted output maps back onto the full prompt list.
type ImageGenerator interface {
	GenerateImages(ctx context.Context, prompts []string, indices []int, destDir string) (map[int][]string, error)
}

// VideoGenerator turns chosen scene images into animations or a final video.
type VideoGenerator interface {
	GenerateAnimations(ctx context.Context, imagePaths, animationPrompts []string, destDir string) ([]string, error)
	GenerateVideo(ctx context.Context, imagePaths, animationPrompts []string, destDir string) (string, error)
}

type Generator interface {
	ImageGenerator
	VideoGenerator
}

// New picks the provider by configuration. When the privileged provider is
// configured but unusable the demo generator stands in, loudly.
func New(cfg *config.Config, log logger.Logger) Generator {
	switch cfg.Generator.Provider {
	case "hailuo":
		if cfg.Generator.APIURL == "" {
			log.Warn("hailuo provider configured without api url, falling back to demo generator")
			return NewDemoGenerator(cfg, log)
		}
		return NewHailuoGenerator(cfg, log)
	case "", "demo":
		return NewDemoGenerator(cfg, log)
	default:
		log.Warnf("unknown generator provider %q, using demo", cfg.Generator.Provider)
		return NewDemoGenerator(cfg, log)
	}
}
