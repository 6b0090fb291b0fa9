package worker

import (
	"context"
	"fmt"

	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/internal/generator"
	"github.com/avdeevk/story-video-generator/pkg/logger"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type scene struct {
	candidates []string // local candidate paths
	uploaded   []string // server paths, same order as candidates
	chosen     string   // local path of the resolved candidate
	resolved   bool
}

// sceneResolver runs the generate → upload → await-selection loop shared by
// the image and video pipelines. Rejected scenes are regenerated as a batch
// restricted to their indices; resolved scenes are never revisited.
type sceneResolver struct {
	cfg      *config.Config
	images   generator.ImageGenerator
	backend  BackendClient
	selector *Selector
	logger   logger.Logger
}

// Resolve returns one chosen local path per prompt, in prompt order.
func (r *sceneResolver) Resolve(ctx context.Context, userID, destDir string, prompts []string) ([]string, error) {
	scenes := make([]scene, len(prompts))
	pending := make([]int, len(prompts))
	for i := range prompts {
		pending[i] = i
	}

	for round := 0; len(pending) > 0; round++ {
		if round >= r.cfg.Worker.MaxRegenRounds {
			r.logger.Warnf("regeneration round limit reached, defaulting %d scene(s) to their first candidate", len(pending))
			for _, idx := range pending {
				scenes[idx].chosen = scenes[idx].candidates[0]
				scenes[idx].resolved = true
			}
			break
		}

		if err := r.generate(ctx, scenes, prompts, pending, destDir); err != nil {
			return nil, err
		}
		if err := r.uploadPending(ctx, scenes, pending); err != nil {
			return nil, err
		}

		var regen []int
		for _, idx := range pending {
			choice, err := r.selector.OfferAndAwait(ctx, userID, scenes[idx].uploaded)
			if err != nil {
				if errors.Is(err, ErrSelectionTimeout) {
					r.logger.Warnf("selection for scene %d timed out, defaulting to the first candidate", idx)
					choice = 0
				} else {
					return nil, err
				}
			}
			if choice == RegenerateChoice {
				regen = append(regen, idx)
				continue
			}
			if choice < 0 || choice >= len(scenes[idx].candidates) {
				r.logger.Warnf("selection %d out of range for scene %d, defaulting to the first candidate", choice, idx)
				choice = 0
			}
			scenes[idx].chosen = scenes[idx].candidates[choice]
			scenes[idx].resolved = true
		}
		pending = regen
	}

	chosen := make([]string, len(prompts))
	for i := range scenes {
		if !scenes[i].resolved {
			return nil, fmt.Errorf("scene %d left unresolved", i)
		}
		chosen[i] = scenes[i].chosen
	}
	return chosen, nil
}

// generate fills candidate groups for exactly the pending indices. The
// generator returns groups keyed by scene index, which keeps restricted
// regeneration output aligned with the full prompt list.
func (r *sceneResolver) generate(ctx context.Context, scenes []scene, prompts []string, pending []int, destDir string) error {
	groups, err := r.images.GenerateImages(ctx, prompts, pending, destDir)
	if err != nil {
		return errors.Wrap(err, "image generation failed")
	}
	for _, idx := range pending {
		group, ok := groups[idx]
		if !ok || len(group) == 0 {
			return fmt.Errorf("generator returned no candidates for scene %d", idx)
		}
		scenes[idx].candidates = group
	}
	return nil
}

// uploadPending fans out every candidate upload concurrently. One failed
// upload fails the whole batch; no scene is offered with missing candidates.
func (r *sceneResolver) uploadPending(ctx context.Context, scenes []scene, pending []int) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, idx := range pending {
		idx := idx
		scenes[idx].uploaded = make([]string, len(scenes[idx].candidates))
		for c, local := range scenes[idx].candidates {
			c, local := c, local
			g.Go(func() error {
				remote, err := r.backend.UploadFile(gctx, local)
				if err != nil {
					return errors.Wrapf(err, "failed to upload candidate %d of scene %d", c, idx)
				}
				scenes[idx].uploaded[c] = remote
				return nil
			})
		}
	}
	return g.Wait()
}
