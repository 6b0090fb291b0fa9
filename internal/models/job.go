package models

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avdeevk/story-video-generator/pkg/utils"
)

type JobType string

const (
	JobVideoGeneration     JobType = "video_generation"
	JobImageGeneration     JobType = "image_generation"
	JobAnimationGeneration JobType = "animation_generation"
	JobDeleteImageFolder   JobType = "delete_image_folder"
	JobConcatAnimations    JobType = "concat_animations"
	JobResetWorkerSession  JobType = "reset_worker_session"
	JobSetAnimationsForce  JobType = "set_animations_force"
)

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

func (t JobType) Valid() bool {
	switch t {
	case JobVideoGeneration, JobImageGeneration, JobAnimationGeneration,
		JobDeleteImageFolder, JobConcatAnimations, JobResetWorkerSession,
		JobSetAnimationsForce:
		return true
	}
	return false
}

// Retryable reports whether a failed job of this type may be pushed back
// onto the queue. Video generation is excluded: a retried run would burn a
// second full session on the locked shared account.
func (t JobType) Retryable() bool {
	return t != JobVideoGeneration
}

// Job is the queue envelope. The payload stays raw until a pipeline decodes
// it into the typed struct for its job type.
type Job struct {
	TaskID    string          `json:"task_id" validate:"required"`
	Type      JobType         `json:"type" validate:"required"`
	CreatedAt time.Time       `json:"created_at" validate:"required"`
	WorkerID  string          `json:"worker_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func (j *Job) IsStale(now time.Time, threshold time.Duration) bool {
	return now.Sub(j.CreatedAt) > threshold
}

// UserID extracts the submitting user from the payload without validating
// the rest, so failure notices can reach the user even for jobs that never
// make it into a pipeline.
func (j *Job) UserID() string {
	var p struct {
		UserID string `json:"user_id"`
	}
	if len(j.Data) == 0 || json.Unmarshal(j.Data, &p) != nil {
		return ""
	}
	return p.UserID
}

// GenerationPayload drives image and video generation jobs.
type GenerationPayload struct {
	UserID           string   `json:"user_id" validate:"required"`
	WorkerID         string   `json:"worker_id" validate:"required"`
	ImagePrompts     []string `json:"image_prompts" validate:"required,min=1,dive,required"`
	AnimationPrompts []string `json:"animation_prompts,omitempty"`
}

// AnimationPayload drives animation-only generation, which reuses the images
// a previous pipeline selected for the same worker.
type AnimationPayload struct {
	UserID           string   `json:"user_id" validate:"required"`
	WorkerID         string   `json:"worker_id" validate:"required"`
	AnimationPrompts []string `json:"animation_prompts" validate:"required,min=1,dive,required"`
}

// WorkerPayload addresses a worker's scratch state (concat, reset, force).
type WorkerPayload struct {
	UserID   string `json:"user_id" validate:"required"`
	WorkerID string `json:"worker_id" validate:"required"`
}

type DeleteFolderPayload struct {
	UserID string `json:"user_id,omitempty"`
	Folder string `json:"folder" validate:"required"`
}

func (j *Job) GenerationPayload(ctx context.Context) (*GenerationPayload, error) {
	p := &GenerationPayload{}
	if err := j.decode(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (j *Job) AnimationPayload(ctx context.Context) (*AnimationPayload, error) {
	p := &AnimationPayload{}
	if err := j.decode(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (j *Job) WorkerPayload(ctx context.Context) (*WorkerPayload, error) {
	p := &WorkerPayload{}
	if err := j.decode(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (j *Job) DeleteFolderPayload(ctx context.Context) (*DeleteFolderPayload, error) {
	p := &DeleteFolderPayload{}
	if err := j.decode(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (j *Job) decode(ctx context.Context, dst interface{}) error {
	if len(j.Data) == 0 {
		return fmt.Errorf("job %s has no payload", j.TaskID)
	}
	if err := json.Unmarshal(j.Data, dst); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", j.Type, err)
	}
	if err := utils.ValidateStruct(ctx, dst); err != nil {
		return fmt.Errorf("invalid %s payload: %w", j.Type, err)
	}
	return nil
}
