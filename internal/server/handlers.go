package server

import (
	"net/http"

	"github.com/avdeevk/story-video-generator/internal/downloader"
	jobsHttp "github.com/avdeevk/story-video-generator/internal/jobs/delivery/http"
	jobsRepository "github.com/avdeevk/story-video-generator/internal/jobs/repository"
	jobsUsecase "github.com/avdeevk/story-video-generator/internal/jobs/usecase"
	"github.com/avdeevk/story-video-generator/internal/middleware"
	"github.com/labstack/echo/v4"
)

func (s *Server) MapHandlers(e *echo.Echo) error {
	jRepo := jobsRepository.NewJobsRepo(s.db)
	jRedisRepo := jobsRepository.NewJobsRedisRepo(s.redisClient, s.cfg.Redis.JobQueueKey)
	jAWSRepo := jobsRepository.NewAwsRepository(s.s3Client)

	jobsUC := jobsUsecase.NewJobsUseCase(s.cfg, jRepo, jRedisRepo, s.logger)
	dlManager := downloader.NewManager(s.cfg, s.logger)

	jobsHandlers := jobsHttp.NewJobsHandler(s.cfg, jobsUC, jAWSRepo, dlManager, s.logger)

	mw := middleware.NewMiddlewareManager(s.cfg, []string{"*"}, s.logger)

	v1 := e.Group("/api/v1")
	health := v1.Group("/health")

	jobsHttp.MapJobRoutes(v1, jobsHandlers, mw)
	health.GET("", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})
	return nil
}
