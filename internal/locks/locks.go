package locks

import (
	"context"
	"sync"
	"time"

	"github.com/avdeevk/story-video-generator/pkg/logger"
	"github.com/pkg/errors"
)

// ErrLockHeld means the resource is busy: the acquire timeout elapsed while
// another process held the lock. Distinct from store transport failures.
var ErrLockHeld = errors.New("lock is held by another process")

const retryInterval = 50 * time.Millisecond

// Store is the subset of the coordination store the locker needs.
type Store interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, name, token string) error
}

type Locker struct {
	store  Store
	logger logger.Logger
}

func NewLocker(store Store, log logger.Logger) *Locker {
	return &Locker{store: store, logger: log}
}

// Handle represents a held lock. Release is idempotent and safe to defer on
// every exit path; the store-side TTL frees the lock if the holder crashes.
type Handle struct {
	name   string
	token  string
	store  Store
	logger logger.Logger
	once   sync.Once
}

func (h *Handle) Release(ctx context.Context) {
	h.once.Do(func() {
		if err := h.store.ReleaseLock(ctx, h.name, h.token); err != nil {
			h.logger.Errorf("failed to release lock %s: %v", h.name, err)
		}
	})
}

// AcquireAndHold claims the named resource, retrying for up to
// acquireTimeout. The lock auto-expires after holdTTL.
func (l *Locker) AcquireAndHold(ctx context.Context, name string, holdTTL, acquireTimeout time.Duration) (*Handle, error) {
	deadline := time.Now().Add(acquireTimeout)
	for {
		token, ok, err := l.store.AcquireLock(ctx, name, holdTTL)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to acquire lock %s", name)
		}
		if ok {
			return &Handle{name: name, token: token, store: l.store, logger: l.logger}, nil
		}
		if time.Now().After(deadline) {
			return nil, errors.Wrapf(ErrLockHeld, "resource %s", name)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}
