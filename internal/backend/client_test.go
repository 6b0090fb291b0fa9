package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/avdeevk/story-video-generator/internal/config"
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

func testClient(baseURL string) *Client {
	cfg := &config.Config{
		Backend: config.BackendConfig{
			BaseURL:        baseURL,
			RequestTimeout: 5 * time.Second,
			UploadRetries:  3,
			RetryBaseDelay: time.Millisecond,
		},
	}
	return NewClient(cfg, nopLogger{})
}

func tempFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.png")
	if err := os.WriteFile(path, []byte("not really a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadFileReturnsFilepath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/files/upload" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing multipart file field: %v", err)
		}
		w.Write([]byte(`{"filepath":"uploads/artifact.png"}`))
	}))
	defer srv.Close()

	remote, err := testClient(srv.URL).UploadFile(context.Background(), tempFile(t))
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if remote != "uploads/artifact.png" {
		t.Fatalf("got filepath %q", remote)
	}
}

func TestUploadRetriesServerErrors(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"filepath":"uploads/ok.png"}`))
	}))
	defer srv.Close()

	remote, err := testClient(srv.URL).UploadFile(context.Background(), tempFile(t))
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if hits != 3 {
		t.Fatalf("server hit %d times, want 3", hits)
	}
	if remote != "uploads/ok.png" {
		t.Fatalf("got filepath %q", remote)
	}
}

func TestUploadDoesNotRetryClientErrors(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).UploadFile(context.Background(), tempFile(t)); err == nil {
		t.Fatal("expected an error for a 400 response")
	}
	if hits != 1 {
		t.Fatalf("server hit %d times, want exactly 1 for a client error", hits)
	}
}

func TestUploadGivesUpAfterMaxRetries(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).UploadFile(context.Background(), tempFile(t)); err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if hits != 3 {
		t.Fatalf("server hit %d times, want 3", hits)
	}
}

func TestNotifySwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	// Must not panic or block; failures are only logged.
	testClient(srv.URL).Notify(context.Background(), "hello", "user-1")
}

func TestOfferSelectionPostsPayload(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/selection-offer" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := testClient(srv.URL).OfferSelection(context.Background(), "sel-1", "user-1", []string{"a.png", "b.png"})
	if err != nil {
		t.Fatalf("OfferSelection: %v", err)
	}
	for _, want := range []string{`"task_id":"sel-1"`, `"user_id":"user-1"`, `"relative_paths":["a.png","b.png"]`} {
		if !strings.Contains(gotBody, want) {
			t.Errorf("offer payload %s missing %s", gotBody, want)
		}
	}
}
