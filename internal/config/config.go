package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Postgres   DBConfig
	Redis      RedisConfig
	S3         S3Config
	Backend    BackendConfig
	Worker     WorkerConfig
	Generator  GeneratorConfig
	Downloader DownloaderConfig
	Logger     Logger
}

type ServerConfig struct {
	AppVersion   string
	Port         string
	Mode         string
	JwtSecretKey string
	NotifierURL  string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	PgDriver string
}

type RedisConfig struct {
	RedisAddr     string
	RedisPassword string
	DB            int
	MinIdleConns  int
	PoolSize      int
	PoolTimeout   int
	JobQueueKey   string
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

type BackendConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	UploadRetries  int
	RetryBaseDelay time.Duration
}

type WorkerConfig struct {
	WorkerID           string
	MaxCPUUsage        float64
	OutputDir          string
	OpsChannel         string
	DequeueTimeout     time.Duration
	StaleThreshold     time.Duration
	RequeueCooldown    time.Duration
	DequeueBackoff     time.Duration
	ShutdownGrace      time.Duration
	ScratchTTL         time.Duration
	SelectionPoll      time.Duration
	SelectionTimeout   time.Duration
	MaxRegenRounds     int
	CandidatesPerScene int
	LockName           string
	LockTTL            time.Duration
	LockAcquireWait    time.Duration
}

type GeneratorConfig struct {
	Provider     string
	APIURL       string
	APIKey       string
	PollInterval time.Duration
}

type DownloaderConfig struct {
	ScraperURL     string
	YtDlpPath      string
	GalleryDlPath  string
	DownloadDir    string
	CommandTimeout time.Duration
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Redis.JobQueueKey == "" {
		c.Redis.JobQueueKey = "hailuo_tasks"
	}
	if c.Worker.DequeueTimeout == 0 {
		c.Worker.DequeueTimeout = 5 * time.Second
	}
	if c.Worker.StaleThreshold == 0 {
		c.Worker.StaleThreshold = 3 * time.Hour
	}
	if c.Worker.RequeueCooldown == 0 {
		c.Worker.RequeueCooldown = 60 * time.Second
	}
	if c.Worker.DequeueBackoff == 0 {
		c.Worker.DequeueBackoff = 2 * time.Second
	}
	if c.Worker.MaxCPUUsage == 0 {
		c.Worker.MaxCPUUsage = 90
	}
	if c.Worker.ShutdownGrace == 0 {
		c.Worker.ShutdownGrace = 10 * time.Second
	}
	if c.Worker.ScratchTTL == 0 {
		c.Worker.ScratchTTL = 8 * time.Hour
	}
	if c.Worker.SelectionPoll == 0 {
		c.Worker.SelectionPoll = time.Second
	}
	if c.Worker.SelectionTimeout == 0 {
		c.Worker.SelectionTimeout = 30 * time.Minute
	}
	if c.Worker.MaxRegenRounds == 0 {
		c.Worker.MaxRegenRounds = 3
	}
	if c.Worker.CandidatesPerScene == 0 {
		c.Worker.CandidatesPerScene = 4
	}
	if c.Worker.LockName == "" {
		c.Worker.LockName = "hailuo_account"
	}
	if c.Worker.LockTTL == 0 {
		c.Worker.LockTTL = 30 * time.Minute
	}
	if c.Worker.LockAcquireWait == 0 {
		c.Worker.LockAcquireWait = time.Second
	}
	if c.Backend.UploadRetries == 0 {
		c.Backend.UploadRetries = 3
	}
	if c.Backend.RetryBaseDelay == 0 {
		c.Backend.RetryBaseDelay = time.Second
	}
	if c.Backend.RequestTimeout == 0 {
		c.Backend.RequestTimeout = 2 * time.Minute
	}
	if c.Downloader.YtDlpPath == "" {
		c.Downloader.YtDlpPath = "yt-dlp"
	}
	if c.Downloader.GalleryDlPath == "" {
		c.Downloader.GalleryDlPath = "gallery-dl"
	}
	if c.Downloader.CommandTimeout == 0 {
		c.Downloader.CommandTimeout = 5 * time.Minute
	}
	if c.Generator.PollInterval == 0 {
		c.Generator.PollInterval = 2 * time.Second
	}
}
