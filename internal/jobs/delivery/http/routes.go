package http

import (
	"github.com/avdeevk/story-video-generator/internal/jobs"
	"github.com/avdeevk/story-video-generator/internal/middleware"
	"github.com/labstack/echo/v4"
)

func MapJobRoutes(v1 *echo.Group, h jobs.Handler, mw *middleware.MiddlewareManager) {
	jobsGroup := v1.Group("/jobs")
	jobsGroup.POST("", h.CreateJob())
	jobsGroup.GET("/queue/length", h.QueueLen())
	jobsGroup.GET("/:task_id", h.GetJob())

	v1.POST("/selection/:task_id", h.SubmitSelection())

	filesGroup := v1.Group("/files")
	filesGroup.POST("/upload", h.UploadFile())
	filesGroup.POST("/upload-video", h.UploadVideo())
	filesGroup.POST("/upload-archive", h.UploadArchive())
	filesGroup.GET("", h.ListFiles())
	filesGroup.GET("/*", h.GetFile())

	v1.POST("/notify", h.Notify())
	v1.POST("/selection-offer", h.OfferSelection())
	v1.POST("/download", h.Download())

	adminGroup := v1.Group("/admin", mw.AdminJWTMiddleware())
	adminGroup.POST("/queue/clear", h.ClearQueue())
	adminGroup.DELETE("/files/*", h.DeleteFile())
}
