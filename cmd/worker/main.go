package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/avdeevk/story-video-generator/internal/backend"
	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/internal/generator"
	"github.com/avdeevk/story-video-generator/internal/jobs"
	jobsRepository "github.com/avdeevk/story-video-generator/internal/jobs/repository"
	"github.com/avdeevk/story-video-generator/internal/worker"
	"github.com/avdeevk/story-video-generator/pkg/db/postgres"
	clientRedis "github.com/avdeevk/story-video-generator/pkg/db/redis"
	"github.com/avdeevk/story-video-generator/pkg/logger"
)

func main() {
	configFile := "config.yml"
	cfgFile, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}
	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s", cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode)

	redisClient, err := clientRedis.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %s", err)
	}
	appLogger.Infof("redis connected")
	defer redisClient.Close()

	redisRepo := jobsRepository.NewJobsRedisRepo(redisClient, cfg.Redis.JobQueueKey)

	// Job history is best effort: the worker keeps running without it.
	var jobsRepo jobs.Repository
	if psqlDB, err := postgres.NewPsqlDB(cfg); err != nil {
		appLogger.Warnf("could not connect to db, history disabled: %s", err)
	} else {
		appLogger.Infof("db connected, status: %#v", psqlDB.Stats())
		defer psqlDB.Close()
		jobsRepo = jobsRepository.NewJobsRepo(psqlDB)
	}

	backendClient := backend.NewClient(cfg, appLogger)
	gen := generator.New(cfg, appLogger)
	registry := worker.NewRegistry(cfg, appLogger, gen, redisRepo, backendClient)
	dispatcher := worker.NewDispatcher(cfg, appLogger, redisRepo, jobsRepo, registry, backendClient)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if len(os.Args) > 1 && os.Args[1] == "clear" {
		if err := dispatcher.ClearQueue(ctx); err != nil {
			appLogger.Fatalf("could not clear the queue: %s", err)
		}
		appLogger.Info("queue cleared")
		return
	}

	if err := dispatcher.Listen(ctx); err != nil {
		appLogger.Fatalf("dispatcher stopped: %s", err)
	}
}
