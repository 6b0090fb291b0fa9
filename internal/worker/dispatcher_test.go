package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/avdeevk/story-video-generator/internal/config"
	"github.com/avdeevk/story-video-generator/internal/locks"
	"github.com/avdeevk/story-video-generator/internal/models"
	"github.com/pkg/errors"
)

// fakeHistoryRepo records status transitions per task.
type fakeHistoryRepo struct {
	statuses map[string]models.JobStatus
}

func (f *fakeHistoryRepo) CreateJob(ctx context.Context, record *models.JobRecord) (*models.JobRecord, error) {
	return record, nil
}

func (f *fakeHistoryRepo) UpdateStatus(ctx context.Context, taskID string, status models.JobStatus, errorMessage string) error {
	if f.statuses == nil {
		f.statuses = make(map[string]models.JobStatus)
	}
	f.statuses[taskID] = status
	return nil
}

func (f *fakeHistoryRepo) GetJobByID(ctx context.Context, taskID string) (*models.JobRecord, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Redis: config.RedisConfig{JobQueueKey: "hailuo_tasks"},
		Worker: config.WorkerConfig{
			WorkerID:        "worker-test",
			DequeueTimeout:  time.Millisecond,
			StaleThreshold:  3 * time.Hour,
			RequeueCooldown: time.Millisecond,
			DequeueBackoff:  time.Millisecond,
			ShutdownGrace:   10 * time.Millisecond,
			OpsChannel:      "ops",
		},
	}
}

type fakePipeline struct {
	err  error
	runs int
	last *models.Job
}

func (p *fakePipeline) Run(ctx context.Context, job *models.Job) error {
	p.runs++
	p.last = job
	return p.err
}

func newTestDispatcher(repo *fakeRedisRepo, registry Registry, backend *fakeBackend) *Dispatcher {
	return NewDispatcher(testConfig(), nopLogger{}, repo, nil, registry, backend)
}

func freshJob(jobType models.JobType) *models.Job {
	return &models.Job{
		TaskID:    "task-1",
		Type:      jobType,
		CreatedAt: time.Now().UTC(),
	}
}

func TestDispatcherDropsStaleJobs(t *testing.T) {
	repo := newFakeRedisRepo()
	pipeline := &fakePipeline{}
	d := newTestDispatcher(repo, Registry{models.JobImageGeneration: pipeline}, &fakeBackend{})

	job := freshJob(models.JobImageGeneration)
	job.CreatedAt = time.Now().UTC().Add(-4 * time.Hour)
	d.handle(context.Background(), job)

	if pipeline.runs != 0 {
		t.Fatalf("stale job reached the pipeline")
	}
	if n, _ := repo.QueueLen(context.Background()); n != 0 {
		t.Fatalf("stale job was requeued, queue length %d", n)
	}
}

func TestDispatcherDropsUnknownJobTypes(t *testing.T) {
	repo := newFakeRedisRepo()
	d := newTestDispatcher(repo, Registry{}, &fakeBackend{})

	d.handle(context.Background(), freshJob("mystery_type"))

	if n, _ := repo.QueueLen(context.Background()); n != 0 {
		t.Fatalf("unknown job was requeued, queue length %d", n)
	}
}

func TestDispatcherAssignsWorkerID(t *testing.T) {
	repo := newFakeRedisRepo()
	pipeline := &fakePipeline{}
	d := newTestDispatcher(repo, Registry{models.JobImageGeneration: pipeline}, &fakeBackend{})

	d.handle(context.Background(), freshJob(models.JobImageGeneration))

	if pipeline.runs != 1 {
		t.Fatalf("expected 1 pipeline run, got %d", pipeline.runs)
	}
	if pipeline.last.WorkerID != "worker-test" {
		t.Fatalf("worker id not assigned at pickup, got %q", pipeline.last.WorkerID)
	}
}

func TestDispatcherRequeuesOnLockContention(t *testing.T) {
	repo := newFakeRedisRepo()
	pipeline := &fakePipeline{err: errors.Wrap(locks.ErrLockHeld, "resource hailuo_account")}
	d := newTestDispatcher(repo, Registry{models.JobImageGeneration: pipeline}, &fakeBackend{})

	job := freshJob(models.JobImageGeneration)
	d.handle(context.Background(), job)

	if n, _ := repo.QueueLen(context.Background()); n != 1 {
		t.Fatalf("lock-blocked job not requeued, queue length %d", n)
	}
	requeued, _ := repo.DequeueJob(context.Background(), 0)
	if requeued.TaskID != job.TaskID {
		t.Fatalf("requeued a different job: %s", requeued.TaskID)
	}
}

func TestDispatcherNotifiesUserWhenLockBlocksVideoJob(t *testing.T) {
	repo := newFakeRedisRepo()
	history := &fakeHistoryRepo{}
	backend := &fakeBackend{}
	pipeline := &fakePipeline{err: errors.Wrap(locks.ErrLockHeld, "resource hailuo_account")}
	d := NewDispatcher(testConfig(), nopLogger{}, repo, history, Registry{models.JobVideoGeneration: pipeline}, backend)

	job := freshJob(models.JobVideoGeneration)
	job.Data = json.RawMessage(`{"user_id":"user-7","worker_id":"worker-test","image_prompts":["a castle"]}`)
	d.handle(context.Background(), job)

	// Video generation is never requeued, but withholding the retry must
	// not strand the job as queued with nobody told.
	if n, _ := repo.QueueLen(context.Background()); n != 0 {
		t.Fatalf("video job requeued on lock contention, queue length %d", n)
	}
	if got := history.statuses[job.TaskID]; got != models.JobStatusFailed {
		t.Fatalf("job status %q, want %q", got, models.JobStatusFailed)
	}
	if len(backend.notifications) != 1 || backend.notifications[0].sendTo != "user-7" {
		t.Fatalf("expected one notification to user-7, got %v", backend.notifications)
	}
}

func TestDispatcherDropsPreconditionFailures(t *testing.T) {
	repo := newFakeRedisRepo()
	pipeline := &fakePipeline{err: preconditionf("payload is unusable")}
	d := newTestDispatcher(repo, Registry{models.JobImageGeneration: pipeline}, &fakeBackend{})

	d.handle(context.Background(), freshJob(models.JobImageGeneration))

	if n, _ := repo.QueueLen(context.Background()); n != 0 {
		t.Fatalf("precondition failure was requeued, queue length %d", n)
	}
}

func TestDispatcherRequeuePolicyByType(t *testing.T) {
	cases := []struct {
		jobType     models.JobType
		wantQueued  int64
		description string
	}{
		{models.JobImageGeneration, 1, "retryable failure goes back onto the queue"},
		{models.JobVideoGeneration, 0, "video generation is never retried"},
	}
	for _, tc := range cases {
		repo := newFakeRedisRepo()
		pipeline := &fakePipeline{err: errors.New("transient failure")}
		d := newTestDispatcher(repo, Registry{tc.jobType: pipeline}, &fakeBackend{})

		d.handle(context.Background(), freshJob(tc.jobType))

		if n, _ := repo.QueueLen(context.Background()); n != tc.wantQueued {
			t.Errorf("%s: queue length %d, want %d", tc.description, n, tc.wantQueued)
		}
	}
}

func TestDispatcherShutdownNotifiesOps(t *testing.T) {
	repo := newFakeRedisRepo()
	backend := &fakeBackend{}
	d := newTestDispatcher(repo, Registry{}, backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Listen(ctx); err != nil {
		t.Fatalf("Listen returned %v on cancelled context", err)
	}
	if len(backend.notifications) != 1 || backend.notifications[0].sendTo != "ops" {
		t.Fatalf("expected one ops notification, got %v", backend.notifications)
	}
}

func TestDispatcherClearQueue(t *testing.T) {
	repo := newFakeRedisRepo()
	repo.EnqueueJob(context.Background(), freshJob(models.JobImageGeneration))
	repo.EnqueueJob(context.Background(), freshJob(models.JobConcatAnimations))
	d := newTestDispatcher(repo, Registry{}, &fakeBackend{})

	if err := d.ClearQueue(context.Background()); err != nil {
		t.Fatalf("ClearQueue: %v", err)
	}
	if n, _ := repo.QueueLen(context.Background()); n != 0 {
		t.Fatalf("queue length %d after clear", n)
	}
}
