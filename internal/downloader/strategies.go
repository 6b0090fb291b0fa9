package downloader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"

	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/internal/models"
	"github.com/pkg/errors"
)

// Strategy is one way of fetching media for a URL.
type Strategy interface {
	Name() models.DownloadStrategy
	Download(ctx context.Context, rawURL, destDir string) (files []string, caption string, err error)
}

var platformPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^https?://(www\.)?instagram\.com/`),
	regexp.MustCompile(`(?i)^https?://(www\.)?(twitter|x)\.com/`),
}

// RecognizedPlatform reports whether a dedicated scraper exists for the URL.
func RecognizedPlatform(rawURL string) bool {
	for _, p := range platformPatterns {
		if p.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// platformStrategy asks the scraper service to resolve a recognized
// platform's post into direct media URLs, then fetches them.
type platformStrategy struct {
	cfg        *config.Config
	httpClient *http.Client
}

func newPlatformStrategy(cfg *config.Config) *platformStrategy {
	return &platformStrategy{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Downloader.CommandTimeout},
	}
}

func (s *platformStrategy) Name() models.DownloadStrategy {
	return models.StrategyPlatform
}

type scraperResponse struct {
	Media   []string `json:"media"`
	Caption string   `json:"caption"`
	Error   string   `json:"error"`
}

func (s *platformStrategy) Download(ctx context.Context, rawURL, destDir string) ([]string, string, error) {
	endpoint := fmt.Sprintf("%s?url=%s", s.cfg.Downloader.ScraperURL, url.QueryEscape(rawURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(err, "scraper request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("scraper returned %d: %s", resp.StatusCode, raw)
	}

	scraped := &scraperResponse{}
	if err = json.NewDecoder(resp.Body).Decode(scraped); err != nil {
		return nil, "", errors.Wrap(err, "failed to decode scraper response")
	}
	if scraped.Error != "" {
		return nil, "", errors.New(scraped.Error)
	}
	if len(scraped.Media) == 0 {
		return nil, "", errors.New("scraper found no media")
	}

	files := make([]string, 0, len(scraped.Media))
	for i, mediaURL := range scraped.Media {
		path := filepath.Join(destDir, fmt.Sprintf("media_%03d%s", i, guessExt(mediaURL)))
		if err := s.fetch(ctx, mediaURL, path); err != nil {
			return nil, "", errors.Wrapf(err, "failed to fetch media %d", i)
		}
		files = append(files, path)
	}
	return files, scraped.Caption, nil
}

func (s *platformStrategy) fetch(ctx context.Context, mediaURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("media fetch returned %d", resp.StatusCode)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, resp.Body)
	return err
}

func guessExt(mediaURL string) string {
	if u, err := url.Parse(mediaURL); err == nil {
		if ext := filepath.Ext(u.Path); ext != "" {
			return ext
		}
	}
	return ".bin"
}

// execStrategy shells out to a downloader binary and collects whatever it
// wrote into destDir.
type execStrategy struct {
	name    models.DownloadStrategy
	binary  string
	argsFor func(rawURL, destDir string) []string
	timeout config.DownloaderConfig
}

func newVideoStrategy(cfg *config.Config) *execStrategy {
	return &execStrategy{
		name:   models.StrategyVideo,
		binary: cfg.Downloader.YtDlpPath,
		argsFor: func(rawURL, destDir string) []string {
			return []string{
				"--no-playlist",
				"-o", filepath.Join(destDir, "%(id)s.%(ext)s"),
				rawURL,
			}
		},
		timeout: cfg.Downloader,
	}
}

func newGalleryStrategy(cfg *config.Config) *execStrategy {
	return &execStrategy{
		name:   models.StrategyGallery,
		binary: cfg.Downloader.GalleryDlPath,
		argsFor: func(rawURL, destDir string) []string {
			return []string{
				"-D", destDir,
				rawURL,
			}
		},
		timeout: cfg.Downloader,
	}
}

func (s *execStrategy) Name() models.DownloadStrategy {
	return s.name
}

func (s *execStrategy) Download(ctx context.Context, rawURL, destDir string) ([]string, string, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout.CommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, s.binary, s.argsFor(rawURL, destDir)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, "", fmt.Errorf("%s failed: %v, stderr: %s", s.binary, err, stderr.String())
	}

	entries, err := os.ReadDir(destDir)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read download dir")
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, filepath.Join(destDir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, "", errors.New("downloader produced no files")
	}
	return files, "", nil
}
