package downloader

import (
	"context"
	"os"

	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/internal/models"
	"github.com/avdeevk/story-video-generator/pkg/logger"
	"github.com/pkg/errors"
)

// Manager resolves a URL to local media files by trying strategies in
// priority order: dedicated platform scraper, then generic video, then
// generic gallery download.
type Manager struct {
	cfg      *config.Config
	platform Strategy
	generics []Strategy
	logger   logger.Logger
}

func NewManager(cfg *config.Config, log logger.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		platform: newPlatformStrategy(cfg),
		generics: []Strategy{
			newVideoStrategy(cfg),
			newGalleryStrategy(cfg),
		},
		logger: log,
	}
}

// newManagerWithStrategies is the seam tests use to substitute strategies.
func newManagerWithStrategies(cfg *config.Config, platform Strategy, generics []Strategy, log logger.Logger) *Manager {
	return &Manager{cfg: cfg, platform: platform, generics: generics, logger: log}
}

// Download runs the strategy chain. A recognized platform's failure is
// final: generic downloaders rarely do better on those hosts and retrying
// them doubles the ban risk, so the classified error goes straight back.
func (m *Manager) Download(ctx context.Context, rawURL string) *models.DownloadResult {
	result := &models.DownloadResult{}

	baseDir, err := os.MkdirTemp(m.cfg.Downloader.DownloadDir, "download_")
	if err != nil {
		result.Error = errors.Wrap(err, "failed to create download dir").Error()
		return result
	}

	if RecognizedPlatform(rawURL) {
		m.attempt(ctx, m.platform, rawURL, baseDir, result)
	} else {
		for _, s := range m.generics {
			if m.attempt(ctx, s, rawURL, baseDir, result) {
				break
			}
		}
	}

	if !result.Success {
		if rmErr := os.RemoveAll(baseDir); rmErr != nil {
			m.logger.Warnf("failed to remove download dir %s: %v", baseDir, rmErr)
		}
	}
	return result
}

// attempt runs one strategy in its own subdirectory of baseDir, appends its
// outcome to the attempt log and fills the result on success. The isolation
// matters: exec strategies list whatever their directory holds, so a failed
// run's partial files must never sit where the next strategy looks. Failed
// subdirectories are removed on the spot. Returns true on success.
func (m *Manager) attempt(ctx context.Context, s Strategy, rawURL, baseDir string, result *models.DownloadResult) bool {
	destDir, err := os.MkdirTemp(baseDir, string(s.Name())+"_")
	if err != nil {
		wrapped := errors.Wrap(err, "failed to create strategy dir").Error()
		result.Attempts = append(result.Attempts, models.DownloadAttempt{
			Strategy: s.Name(),
			Success:  false,
			Error:    wrapped,
		})
		result.Error = wrapped
		return false
	}

	files, caption, err := s.Download(ctx, rawURL, destDir)
	if err != nil {
		classified := ClassifyError(err.Error())
		m.logger.Warnf("%s failed for %s: %v", s.Name(), rawURL, err)
		result.Attempts = append(result.Attempts, models.DownloadAttempt{
			Strategy: s.Name(),
			Success:  false,
			Error:    classified,
		})
		result.Error = classified
		if rmErr := os.RemoveAll(destDir); rmErr != nil {
			m.logger.Warnf("failed to remove strategy dir %s: %v", destDir, rmErr)
		}
		return false
	}

	result.Attempts = append(result.Attempts, models.DownloadAttempt{
		Strategy: s.Name(),
		Success:  true,
	})
	result.Success = true
	result.Files = files
	result.Caption = caption
	result.Error = ""
	result.StrategyUsed = s.Name()
	m.logger.Infof("downloaded %d file(s) from %s via %s", len(files), rawURL, s.Name())
	return true
}
