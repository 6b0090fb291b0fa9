package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avdeevk/story-video-generator/internal/config"
)

func newTestResolver(store *fakeRedisRepo, backend *fakeBackend, gen *fakeImageGen, maxRounds int, selectionTimeout time.Duration) *sceneResolver {
	cfg := &config.Config{
		Worker: config.WorkerConfig{
			MaxRegenRounds:     maxRounds,
			CandidatesPerScene: gen.candidates,
		},
	}
	return &sceneResolver{
		cfg:      cfg,
		images:   gen,
		backend:  backend,
		selector: NewSelector(store, backend, time.Millisecond, selectionTimeout, nopLogger{}),
		logger:   nopLogger{},
	}
}

func TestResolveAllScenesAcceptedFirstRound(t *testing.T) {
	store := newFakeRedisRepo()
	gen := &fakeImageGen{candidates: 4}
	backend := &fakeBackend{store: store, respondWith: []string{"0", "2", "1"}}
	r := newTestResolver(store, backend, gen, 3, time.Second)

	chosen, err := r.Resolve(context.Background(), "user-1", t.TempDir(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := []string{"r0_scene0_cand0.png", "r0_scene1_cand2.png", "r0_scene2_cand1.png"}
	for i := range want {
		if chosen[i] != want[i] {
			t.Errorf("scene %d: chose %q, want %q", i, chosen[i], want[i])
		}
	}
	if len(gen.calls) != 1 {
		t.Fatalf("expected a single generation round, got %d", len(gen.calls))
	}
	if len(backend.offered) != 3 {
		t.Fatalf("expected 3 offers, got %d", len(backend.offered))
	}
	if len(backend.uploads) != 12 {
		t.Fatalf("expected 12 candidate uploads, got %d", len(backend.uploads))
	}
}

func TestResolveRegeneratesOnlyRejectedScene(t *testing.T) {
	store := newFakeRedisRepo()
	gen := &fakeImageGen{candidates: 4}
	backend := &fakeBackend{store: store, respondWith: []string{"1", "-1", "0", "2"}}
	r := newTestResolver(store, backend, gen, 3, time.Second)

	chosen, err := r.Resolve(context.Background(), "user-1", t.TempDir(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(gen.calls) != 2 {
		t.Fatalf("expected 2 generation rounds, got %d", len(gen.calls))
	}
	second := gen.calls[1]
	if len(second) != 1 || second[0] != 1 {
		t.Fatalf("second round regenerated %v, want only scene 1", second)
	}
	if chosen[0] != "r0_scene0_cand1.png" || chosen[2] != "r0_scene2_cand0.png" {
		t.Fatalf("accepted scenes changed after regeneration: %v", chosen)
	}
	if chosen[1] != "r1_scene1_cand2.png" {
		t.Fatalf("scene 1 chose %q, want the regenerated candidate", chosen[1])
	}
}

func TestResolveRoundLimitDefaultsToFirstCandidate(t *testing.T) {
	store := newFakeRedisRepo()
	gen := &fakeImageGen{candidates: 4}
	backend := &fakeBackend{store: store, respondWith: []string{"-1", "-1"}}
	r := newTestResolver(store, backend, gen, 2, time.Second)

	chosen, err := r.Resolve(context.Background(), "user-1", t.TempDir(), []string{"a"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(gen.calls) != 2 {
		t.Fatalf("expected exactly 2 generation rounds, got %d", len(gen.calls))
	}
	if chosen[0] != "r1_scene0_cand0.png" {
		t.Fatalf("chose %q, want the first candidate of the last round", chosen[0])
	}
}

func TestResolveUploadFailureAbortsBeforeOffering(t *testing.T) {
	store := newFakeRedisRepo()
	gen := &fakeImageGen{candidates: 4}
	backend := &fakeBackend{store: store, uploadErr: errors.New("disk full")}
	r := newTestResolver(store, backend, gen, 3, time.Second)

	if _, err := r.Resolve(context.Background(), "user-1", t.TempDir(), []string{"a", "b"}); err == nil {
		t.Fatal("expected an error when uploads fail")
	}
	if len(backend.offered) != 0 {
		t.Fatalf("scenes were offered despite failed uploads: %d offers", len(backend.offered))
	}
}

func TestResolveSelectionTimeoutDefaultsToFirstCandidate(t *testing.T) {
	store := newFakeRedisRepo()
	gen := &fakeImageGen{candidates: 4}
	backend := &fakeBackend{store: store} // never answers
	r := newTestResolver(store, backend, gen, 3, 10*time.Millisecond)

	chosen, err := r.Resolve(context.Background(), "user-1", t.TempDir(), []string{"a"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if chosen[0] != "r0_scene0_cand0.png" {
		t.Fatalf("chose %q after timeout, want the first candidate", chosen[0])
	}
}

func TestResolveOutOfRangeChoiceDefaultsToFirstCandidate(t *testing.T) {
	store := newFakeRedisRepo()
	gen := &fakeImageGen{candidates: 4}
	backend := &fakeBackend{store: store, respondWith: []string{"7"}}
	r := newTestResolver(store, backend, gen, 3, time.Second)

	chosen, err := r.Resolve(context.Background(), "user-1", t.TempDir(), []string{"a"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if chosen[0] != "r0_scene0_cand0.png" {
		t.Fatalf("chose %q for an out-of-range selection, want the first candidate", chosen[0])
	}
}
