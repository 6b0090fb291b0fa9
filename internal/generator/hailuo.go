package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/pkg/logger"
	"github.com/pkg/errors"
)

// hailuoGenerator drives the privileged generation service over its
// submit/poll API. One generation session at a time per account; callers
// hold the account lock around these methods.
type hailuoGenerator struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     logger.Logger
}

func NewHailuoGenerator(cfg *config.Config, log logger.Logger) Generator {
	return &hailuoGenerator{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		logger:     log,
	}
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

type pollResponse struct {
	Status  string              `json:"status"`
	Results map[string][]string `json:"results,omitempty"`
	Error   string              `json:"error,omitempty"`
}

func (g *hailuoGenerator) GenerateImages(ctx context.Context, prompts []string, indices []int, destDir string) (map[int][]string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create image dir")
	}
	scenePrompts := make(map[string]string, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(prompts) {
			return nil, fmt.Errorf("scene index %d out of range for %d prompts", idx, len(prompts))
		}
		scenePrompts[strconv.Itoa(idx)] = prompts[idx]
	}

	jobID, err := g.submit(ctx, "/v1/images", map[string]interface{}{
		"prompts":    scenePrompts,
		"candidates": g.cfg.Worker.CandidatesPerScene,
	})
	if err != nil {
		return nil, err
	}
	results, err := g.poll(ctx, jobID)
	if err != nil {
		return nil, err
	}

	groups := make(map[int][]string, len(indices))
	for key, urls := range results {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("unexpected scene key %q in generation result", key)
		}
		files := make([]string, 0, len(urls))
		for c, url := range urls {
			path := filepath.Join(destDir, fmt.Sprintf("scene_%03d_cand_%d.png", idx, c))
			if err := g.download(ctx, url, path); err != nil {
				return nil, errors.Wrapf(err, "failed to fetch candidate %d for scene %d", c, idx)
			}
			files = append(files, path)
		}
		groups[idx] = files
	}
	return groups, nil
}

func (g *hailuoGenerator) GenerateAnimations(ctx context.Context, imagePaths, animationPrompts []string, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create animation dir")
	}
	images, err := encodeImages(imagePaths)
	if err != nil {
		return nil, err
	}
	jobID, err := g.submit(ctx, "/v1/animations", map[string]interface{}{
		"images":  images,
		"prompts": animationPrompts,
	})
	if err != nil {
		return nil, err
	}
	results, err := g.poll(ctx, jobID)
	if err != nil {
		return nil, err
	}

	clips := make([]string, 0, len(imagePaths))
	for i := range imagePaths {
		urls, ok := results[strconv.Itoa(i)]
		if !ok || len(urls) == 0 {
			return nil, fmt.Errorf("generation result is missing animation %d", i)
		}
		path := filepath.Join(destDir, fmt.Sprintf("animation_%03d.mp4", i))
		if err := g.download(ctx, urls[0], path); err != nil {
			return nil, errors.Wrapf(err, "failed to fetch animation %d", i)
		}
		clips = append(clips, path)
	}
	return clips, nil
}

func (g *hailuoGenerator) GenerateVideo(ctx context.Context, imagePaths, animationPrompts []string, destDir string) (string, error) {
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

func (g *hailuoGenerator) submit(ctx context.Context, endpoint string, payload map[string]interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal generation request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Generator.APIURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.Generator.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "generation submit failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("generation submit returned %d: %s", resp.StatusCode, raw)
	}
	submitted := &submitResponse{}
	if err = json.NewDecoder(resp.Body).Decode(submitted); err != nil {
		return "", errors.Wrap(err, "failed to decode submit response")
	}
	return submitted.JobID, nil
}

func (g *hailuoGenerator) poll(ctx context.Context, jobID string) (map[string][]string, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.cfg.Generator.PollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.Generator.APIURL+"/v1/jobs/"+jobID, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+g.cfg.Generator.APIKey)

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "generation poll failed")
		}
		status := &pollResponse{}
		err = json.NewDecoder(resp.Body).Decode(status)
		resp.Body.Close()
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode poll response")
		}

		switch status.Status {
		case "completed":
			return status.Results, nil
		case "failed":
			return nil, fmt.Errorf("generation job %s failed: %s", jobID, status.Error)
		}
	}
}

func (g *hailuoGenerator) download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("artifact download returned %d", resp.StatusCode)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, resp.Body)
	return err
}

func encodeImages(paths []string) ([]string, error) {
	encoded := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read image %s", p)
		}
		encoded = append(encoded, base64.StdEncoding.EncodeToString(data))
	}
	return encoded, nil
}
