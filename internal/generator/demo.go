package generator

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/pkg/logger"
	"github.com/pkg/errors"
)

const (
	demoImageSize   = 512
	demoClipSeconds = 3
)

// demoGenerator renders deterministic placeholder images and stitches them
// into clips with ffmpeg. It needs no external account and exists so the
// whole pipeline can run without the privileged provider.
type demoGenerator struct {
	cfg    *config.Config
	logger logger.Logger
}

func NewDemoGenerator(cfg *config.Config, log logger.Logger) Generator {
	return &demoGenerator{cfg: cfg, logger: log}
}

func (g *demoGenerator) GenerateImages(ctx context.Context, prompts []string, indices []int, destDir string) (map[int][]string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create image dir")
	}
	groups := make(map[int][]string, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(prompts) {
			return nil, fmt.Errorf("scene index %d out of range for %d prompts", idx, len(prompts))
		}
		candidates := make([]string, 0, g.cfg.Worker.CandidatesPerScene)
		for c := 0; c < g.cfg.Worker.CandidatesPerScene; c++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			path := filepath.Join(destDir, fmt.Sprintf("scene_%03d_cand_%d.png", idx, c))
			if err := writePlaceholder(path, prompts[idx], c); err != nil {
				return nil, errors.Wrapf(err, "failed to render candidate %d for scene %d", c, idx)
			}
			candidates = append(candidates, path)
		}
		groups[idx] = candidates
	}
	return groups, nil
}

func (g *demoGenerator) GenerateAnimations(ctx context.Context, imagePaths, animationPrompts []string, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create animation dir")
	}
	clips := make([]string, 0, len(imagePaths))
	for i, img := range imagePaths {
		clip := filepath.Join(destDir, fmt.Sprintf("animation_%03d.mp4", i))
		if err := renderClip(ctx, img, clip); err != nil {
			return nil, errors.Wrapf(err, "failed to animate scene %d", i)
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

func (g *demoGenerator) GenerateVideo(ctx context.Context, imagePaths, animationPrompts []string, destDir string) (string, error) {
	clips, err := g.GenerateAnimations(ctx, imagePaths, animationPrompts, filepath.Join(destDir, "clips"))
	if err != nil {
		return "", err
	}
	outputPath := filepath.Join(destDir, "final.mp4")
	if err := ConcatClips(ctx, clips, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

func writePlaceholder(path, prompt string, candidate int) error {
	h := fnv.New32a()
	h.Write([]byte(prompt))
	seed := h.Sum32() + uint32(candidate)*0x9e3779b9

	img := image.NewRGBA(image.Rect(0, 0, demoImageSize, demoImageSize))
	fill := color.RGBA{
		R: uint8(seed >> 16),
		G: uint8(seed >> 8),
		B: uint8(seed),
		A: 255,
	}
	for y := 0; y < demoImageSize; y++ {
		for x := 0; x < demoImageSize; x++ {
			img.Set(x, y, fill)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func renderClip(ctx context.Context, imagePath, outputPath string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-loop", "1",
		"-i", imagePath,
		"-t", fmt.Sprintf("%d", demoClipSeconds),
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-y", outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg clip render failed: %v, stderr: %s", err, stderr.String())
	}
	return nil
}

func ConcatClips(ctx context.Context, clips []string, outputPath string) error {
	concatListPath := filepath.Join(filepath.Dir(outputPath), "concat_list.txt")
	concatFile, err := os.Create(concatListPath)
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}
	defer os.Remove(concatListPath)

	for _, clip := range clips {
		absPath, err := filepath.Abs(clip)
		if err != nil {
			concatFile.Close()
			return fmt.Errorf("failed to get absolute path for clip: %w", err)
		}
		if _, err := fmt.Fprintf(concatFile, "file '%s'\n", absPath); err != nil {
			concatFile.Close()
			return fmt.Errorf("failed to write to concat list: %w", err)
		}
	}
	concatFile.Close()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "concat",
		"-safe", "0",
		"-i", concatListPath,
		"-c", "copy",
		"-movflags", "+faststart",
		"-y", outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %v, stderr: %s", err, stderr.String())
	}
	return nil
}
