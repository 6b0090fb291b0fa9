package locks

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
)

type nopLogger struct{}

func (nopLogger) InitLogger()                                 {}
func (nopLogger) Debug(args ...interface{})                   {}
func (nopLogger) Debugf(template string, args ...interface{}) {}
func (nopLogger) Info(args ...interface{})                    {}
func (nopLogger) Infof(template string, args ...interface{})  {}
func (nopLogger) Warn(args ...interface{})                    {}
func (nopLogger) Warnf(template string, args ...interface{})  {}
func (nopLogger) Error(args ...interface{})                   {}
func (nopLogger) Errorf(template string, args ...interface{}) {}
func (nopLogger) Fatal(args ...interface{})                   {}
func (nopLogger) Fatalf(template string, args ...interface{}) {}

type fakeStore struct {
	held       bool
	acquireErr error
	releases   int
}

func (s *fakeStore) AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	if s.acquireErr != nil {
		return "", false, s.acquireErr
	}
	if s.held {
		return "", false, nil
	}
	s.held = true
	return "token-1", true, nil
}

func (s *fakeStore) ReleaseLock(ctx context.Context, name, token string) error {
	s.releases++
	s.held = false
	return nil
}

func TestAcquireAndHoldSucceeds(t *testing.T) {
	store := &fakeStore{}
	l := NewLocker(store, nopLogger{})

	handle, err := l.AcquireAndHold(context.Background(), "account", time.Minute, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("AcquireAndHold: %v", err)
	}
	handle.Release(context.Background())
	if store.releases != 1 {
		t.Fatalf("expected 1 release, got %d", store.releases)
	}
}

func TestAcquireAndHoldReportsContention(t *testing.T) {
	store := &fakeStore{held: true}
	l := NewLocker(store, nopLogger{})

	_, err := l.AcquireAndHold(context.Background(), "account", time.Minute, 10*time.Millisecond)
	if !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
}

func TestAcquireAndHoldKeepsTransportErrorsDistinct(t *testing.T) {
	store := &fakeStore{acquireErr: errors.New("connection refused")}
	l := NewLocker(store, nopLogger{})

	_, err := l.AcquireAndHold(context.Background(), "account", time.Minute, 10*time.Millisecond)
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, ErrLockHeld) {
		t.Fatal("transport failure must not classify as lock contention")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	l := NewLocker(store, nopLogger{})

	handle, err := l.AcquireAndHold(context.Background(), "account", time.Minute, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("AcquireAndHold: %v", err)
	}
	handle.Release(context.Background())
	handle.Release(context.Background())
	if store.releases != 1 {
		t.Fatalf("release ran %d times, want 1", store.releases)
	}
}
