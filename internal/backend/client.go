package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/pkg/logger"
	"github.com/pkg/errors"
)

// StatusError carries a non-2xx backend response. 4xx responses are caller
// bugs and must not be retried.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Body)
}

func (e *StatusError) Retryable() bool {
	return e.Code >= 500
}

// Client talks to the backend HTTP service: artifact uploads, user
// notifications and selection offers.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     logger.Logger
}

func NewClient(cfg *config.Config, log logger.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Backend.RequestTimeout,
		},
		logger: log,
	}
}

type uploadResponse struct {
	Filepath string `json:"filepath"`
}

func (c *Client) UploadFile(ctx context.Context, path string) (string, error) {
	return c.upload(ctx, "/api/v1/files/upload", path)
}

func (c *Client) UploadVideo(ctx context.Context, path string) (string, error) {
	return c.upload(ctx, "/api/v1/files/upload-video", path)
}

func (c *Client) UploadArchive(ctx context.Context, path string) (string, error) {
	return c.upload(ctx, "/api/v1/files/upload-archive", path)
}

// upload posts the file as multipart form data with bounded exponential
// backoff. Timeouts and 5xx responses are retried, 4xx aborts immediately.
func (c *Client) upload(ctx context.Context, endpoint, path string) (string, error) {
	var filepathResp string
	err := c.withRetry(ctx, func() error {
		resp, err := c.postFile(ctx, endpoint, path)
		if err != nil {
			return err
		}
		filepathResp = resp.Filepath
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload %s", filepath.Base(path))
	}
	return filepathResp, nil
}

func (c *Client) postFile(ctx context.Context, endpoint, path string) (*uploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err = io.Copy(part, f); err != nil {
		return nil, err
	}
	if err = mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Backend.BaseURL+endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	uploaded := &uploadResponse{}
	if err = json.NewDecoder(resp.Body).Decode(uploaded); err != nil {
		return nil, err
	}
	return uploaded, nil
}

func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	delay := c.cfg.Backend.RetryBaseDelay
	var err error
	for attempt := 1; attempt <= c.cfg.Backend.UploadRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return err
		}
		if attempt == c.cfg.Backend.UploadRetries {
			break
		}
		c.logger.Warnf("backend call failed (attempt %d/%d): %v", attempt, c.cfg.Backend.UploadRetries, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

// Notify sends a user-facing message. Fire-and-forget: failures are logged,
// never propagated.
func (c *Client) Notify(ctx context.Context, text, sendTo string) {
	payload := map[string]string{"text": text, "send_to": sendTo}
	if err := c.postJSON(ctx, "/api/v1/notify", payload); err != nil {
		c.logger.Errorf("failed to notify %s: %v", sendTo, err)
	}
}

// OfferSelection asks the selector to pick one of the uploaded candidates.
func (c *Client) OfferSelection(ctx context.Context, taskID, userID string, relativePaths []string) error {
	payload := map[string]interface{}{
		"task_id":        taskID,
		"user_id":        userID,
		"relative_paths": relativePaths,
	}
	return errors.Wrap(c.postJSON(ctx, "/api/v1/selection-offer", payload), "failed to offer selection")
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Backend.BaseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}
	return nil
}
