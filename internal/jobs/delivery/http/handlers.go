package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/internal/downloader"
	"github.com/avdeevk/story-video-generator/internal/jobs"
	"github.com/avdeevk/story-video-generator/internal/models"
	"github.com/avdeevk/story-video-generator/pkg/logger"
	"github.com/avdeevk/story-video-generator/pkg/utils"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type jobsHandler struct {
	cfg        *config.Config
	jobsUC     jobs.UseCase
	awsRepo    jobs.AWSRepository
	downloader *downloader.Manager
	httpClient *http.Client
	logger     logger.Logger
}

func NewJobsHandler(
	cfg *config.Config,
	jobsUC jobs.UseCase,
	awsRepo jobs.AWSRepository,
	dl *downloader.Manager,
	log logger.Logger,
) jobs.Handler {
	return &jobsHandler{
		cfg:        cfg,
		jobsUC:     jobsUC,
		awsRepo:    awsRepo,
		downloader: dl,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log,
	}
}

type createJobInput struct {
	Type   string          `json:"type" validate:"required"`
	UserID string          `json:"user_id" validate:"required"`
	Data   json.RawMessage `json:"data"`
}

func (h *jobsHandler) CreateJob() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &createJobInput{}
		if err := c.Bind(input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		if err := utils.ValidateStruct(c.Request().Context(), input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		job, err := h.jobsUC.CreateJob(c.Request().Context(), models.JobType(input.Type), input.UserID, input.Data)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusCreated, job)
	}
}

func (h *jobsHandler) GetJob() echo.HandlerFunc {
	return func(c echo.Context) error {
		record, err := h.jobsUC.GetJob(c.Request().Context(), c.Param("task_id"))
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, record)
	}
}

type selectionInput struct {
	Choice *int `json:"choice" validate:"required"`
}

func (h *jobsHandler) SubmitSelection() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &selectionInput{}
		if err := c.Bind(input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		if err := utils.ValidateStruct(c.Request().Context(), input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		if err := h.jobsUC.SubmitSelection(c.Request().Context(), c.Param("task_id"), *input.Choice); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "Selection recorded"})
	}
}

func (h *jobsHandler) QueueLen() echo.HandlerFunc {
	return func(c echo.Context) error {
		length, err := h.jobsUC.QueueLen(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]int64{"length": length})
	}
}

func (h *jobsHandler) ClearQueue() echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := h.jobsUC.ClearQueue(c.Request().Context()); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "Queue cleared"})
	}
}

func (h *jobsHandler) UploadFile() echo.HandlerFunc {
	return h.upload("uploads")
}

func (h *jobsHandler) UploadVideo() echo.HandlerFunc {
	return h.upload("videos")
}

func (h *jobsHandler) UploadArchive() echo.HandlerFunc {
	return h.upload("archives")
}

// upload stores a multipart file in the shared bucket and answers with the
// object key the caller can hand out as a link.
func (h *jobsHandler) upload(prefix string) echo.HandlerFunc {
	return func(c echo.Context) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "file field is required"})
		}
		src, err := fileHeader.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		defer src.Close()

		key := fmt.Sprintf("%s/%s_%s", prefix, uuid.New().String(), filepath.Base(fileHeader.Filename))
		input := jobs.UploadInput{
			File:     src,
			Key:      key,
			MimeType: fileHeader.Header.Get("Content-Type"),
			Size:     fileHeader.Size,
			Bucket:   h.cfg.S3.Bucket,
		}
		if _, err := h.awsRepo.PutObject(c.Request().Context(), input); err != nil {
			h.logger.Errorf("upload of %s failed: %v", key, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "upload failed"})
		}
		return c.JSON(http.StatusOK, map[string]string{"filepath": key})
	}
}

// GetFile streams a stored object back. Pipelines upload artifacts through
// the endpoints above; this is the read side handed out as links.
func (h *jobsHandler) GetFile() echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Param("*")
		if key == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "file key is required"})
		}
		obj, err := h.awsRepo.GetObject(c.Request().Context(), h.cfg.S3.Bucket, key)
		if err != nil {
			h.logger.Warnf("get of %s failed: %v", key, err)
			return c.JSON(http.StatusNotFound, map[string]string{"error": "file not found"})
		}
		defer obj.Body.Close()
		contentType := "application/octet-stream"
		if obj.ContentType != nil && *obj.ContentType != "" {
			contentType = *obj.ContentType
		}
		return c.Stream(http.StatusOK, contentType, obj.Body)
	}
}

func (h *jobsHandler) ListFiles() echo.HandlerFunc {
	return func(c echo.Context) error {
		keys, err := h.awsRepo.ListObjects(c.Request().Context(), h.cfg.S3.Bucket)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string][]string{"files": keys})
	}
}

func (h *jobsHandler) DeleteFile() echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Param("*")
		if key == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "file key is required"})
		}
		if err := h.awsRepo.RemoveObject(c.Request().Context(), h.cfg.S3.Bucket, key); err != nil {
			h.logger.Errorf("removal of %s failed: %v", key, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "removal failed"})
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "File removed"})
	}
}

type notifyInput struct {
	Text   string `json:"text" validate:"required"`
	SendTo string `json:"send_to" validate:"required"`
}

// Notify relays a user notification to the external notifier webhook.
// Delivery failures are logged, never surfaced: notifications are advisory.
func (h *jobsHandler) Notify() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &notifyInput{}
		if err := c.Bind(input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		if err := utils.ValidateStruct(c.Request().Context(), input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.forward(input)
		return c.JSON(http.StatusOK, map[string]string{"message": "Notification accepted"})
	}
}

type selectionOfferInput struct {
	TaskID        string   `json:"task_id" validate:"required"`
	UserID        string   `json:"user_id" validate:"required"`
	RelativePaths []string `json:"relative_paths" validate:"required,min=1"`
}

func (h *jobsHandler) OfferSelection() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &selectionOfferInput{}
		if err := c.Bind(input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		if err := utils.ValidateStruct(c.Request().Context(), input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.forward(input)
		return c.JSON(http.StatusOK, map[string]string{"message": "Selection offer accepted"})
	}
}

func (h *jobsHandler) forward(payload interface{}) {
	if h.cfg.Server.NotifierURL == "" {
		h.logger.Warn("notifier url is not configured, dropping notification")
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Errorf("failed to encode notifier payload: %v", err)
		return
	}
	resp, err := h.httpClient.Post(h.cfg.Server.NotifierURL, "application/json", bytes.NewReader(body))
	if err != nil {
		h.logger.Errorf("notifier request failed: %v", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		h.logger.Errorf("notifier answered %s", strconv.Itoa(resp.StatusCode))
	}
}

type downloadInput struct {
	URL string `json:"url" validate:"required,url"`
}

func (h *jobsHandler) Download() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &downloadInput{}
		if err := c.Bind(input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		if err := utils.ValidateStruct(c.Request().Context(), input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		result := h.downloader.Download(c.Request().Context(), input.URL)
		if !result.Success {
			return c.JSON(http.StatusUnprocessableEntity, result)
		}
		return c.JSON(http.StatusOK, result)
	}
}
