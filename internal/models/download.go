package models

type DownloadStrategy string

const (
	StrategyPlatform DownloadStrategy = "platform_scraper"
	StrategyVideo    DownloadStrategy = "video_downloader"
	StrategyGallery  DownloadStrategy = "gallery_downloader"
)

// DownloadAttempt records one strategy's outcome for diagnostics.
type DownloadAttempt struct {
	Strategy DownloadStrategy `json:"strategy"`
	Success  bool             `json:"success"`
	Error    string           `json:"error,omitempty"`
}

type DownloadResult struct {
	Success      bool              `json:"success"`
	Files        []string          `json:"files"`
	Caption      string            `json:"caption,omitempty"`
	Error        string            `json:"error,omitempty"`
	StrategyUsed DownloadStrategy  `json:"strategy_used,omitempty"`
	Attempts     []DownloadAttempt `json:"attempts"`
}
