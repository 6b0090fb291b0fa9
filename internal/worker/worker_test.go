package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avdeevk/story-video-generator/internal/models"
)

// nopLogger satisfies logger.Logger for tests.
type nopLogger struct{}

func (nopLogger) InitLogger() {}
func (nopLogger) Debug(args ...interface{}) {}
func (nopLogger) Debugf(template string, args ...interface{}) {}
func (nopLogger) Info(args ...interface{}) {}
func (nopLogger) Infof(template string, args ...interface{}) {}
func (nopLogger) Warn(args ...interface{}) {}
func (nopLogger) Warnf(template string, args ...interface{}) {}
func (nopLogger) Error(args ...interface{}) {}
func (nopLogger) Errorf(template string, args ...interface{}) {}
func (nopLogger) Fatal(args ...interface{}) {}
func (nopLogger) Fatalf(template string, args ...interface{}) {}

// fakeRedisRepo is an in-memory jobs.RedisRepository.
type fakeRedisRepo struct {
	mu         sync.Mutex
	queue      []*models.Job
	selections map[string]string
	scratch    map[string]string
	locks      map[string]string

	lockErr    error
	dequeueErr error
}

func newFakeRedisRepo() *fakeRedisRepo {
	return &fakeRedisRepo{
		selections: make(map[string]string),
		scratch:    make(map[string]string),
		locks:      make(map[string]string),
	}
}

func (f *fakeRedisRepo) EnqueueJob(ctx context.Context, job *models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, job)
	return nil
}

func (f *fakeRedisRepo) DequeueJob(ctx context.Context, timeout time.Duration) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dequeueErr != nil {
		return nil, f.dequeueErr
	}
	if len(f.queue) == 0 {
		return nil, nil
	}
	job := f.queue[0]
	f.queue = f.queue[1:]
	return job, nil
}

func (f *fakeRedisRepo) QueueLen(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.queue)), nil
}

func (f *fakeRedisRepo) ClearQueue(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = nil
	return nil
}

func (f *fakeRedisRepo) PutSelectionResult(ctx context.Context, selectionTaskID, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selections[selectionTaskID] = value
	return nil
}

func (f *fakeRedisRepo) ConsumeSelectionResult(ctx context.Context, selectionTaskID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.selections[selectionTaskID]
	if ok {
		delete(f.selections, selectionTaskID)
	}
	return value, ok, nil
}

func (f *fakeRedisRepo) GetWorkerValue(ctx context.Context, workerID, field string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.scratch[workerID+":"+field]
	return value, ok, nil
}

func (f *fakeRedisRepo) SetWorkerValue(ctx context.Context, workerID, field, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scratch[workerID+":"+field] = value
	return nil
}

func (f *fakeRedisRepo) DeleteWorkerValue(ctx context.Context, workerID, field string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scratch, workerID+":"+field)
	return nil
}

func (f *fakeRedisRepo) AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lockErr != nil {
		return "", false, f.lockErr
	}
	if _, held := f.locks[name]; held {
		return "", false, nil
	}
	token := fmt.Sprintf("token-%d", len(f.locks)+1)
	f.locks[name] = token
	return token, true, nil
}

func (f *fakeRedisRepo) ReleaseLock(ctx context.Context, name, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks[name] == token {
		delete(f.locks, name)
	}
	return nil
}

type notification struct {
	text   string
	sendTo string
}

// fakeBackend records uploads, notifications and offers. When respondWith is
// set, every offer is immediately answered through the shared store with the
// next scripted choice.
type fakeBackend struct {
	mu            sync.Mutex
	uploads       []string
	uploadErr     error
	notifications []notification
	offered       [][]string
	respondWith   []string
	store         *fakeRedisRepo
}

func (f *fakeBackend) UploadFile(ctx context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, path)
	return "remote/" + path, nil
}

func (f *fakeBackend) UploadVideo(ctx context.Context, path string) (string, error) {
	return f.UploadFile(ctx, path)
}

func (f *fakeBackend) UploadArchive(ctx context.Context, path string) (string, error) {
	return f.UploadFile(ctx, path)
}

func (f *fakeBackend) Notify(ctx context.Context, text, sendTo string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, notification{text: text, sendTo: sendTo})
}

func (f *fakeBackend) OfferSelection(ctx context.Context, taskID, userID string, relativePaths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offered = append(f.offered, relativePaths)
	if len(f.respondWith) > 0 {
		choice := f.respondWith[0]
		f.respondWith = f.respondWith[1:]
		f.store.PutSelectionResult(ctx, taskID, choice)
	}
	return nil
}

// fakeImageGen returns deterministic candidate names tagging the generation
// round, so tests can tell regenerated candidates from originals.
type fakeImageGen struct {
	mu         sync.Mutex
	calls      [][]int
	candidates int
}

func (f *fakeImageGen) GenerateImages(ctx context.Context, prompts []string, indices []int, destDir string) (map[int][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	round := len(f.calls)
	f.calls = append(f.calls, append([]int(nil), indices...))
	groups := make(map[int][]string, len(indices))
	for _, idx := range indices {
		group := make([]string, f.candidates)
		for c := range group {
			group[c] = fmt.Sprintf("r%d_scene%d_cand%d.png", round, idx, c)
		}
		groups[idx] = group
	}
	return groups, nil
}
