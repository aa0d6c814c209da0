package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"hairstudio/internal/domain"
	"hairstudio/internal/upload"
	"hairstudio/internal/workflow"
)

type urlUploader struct{}

func (urlUploader) Upload(ctx context.Context, asset domain.Asset, progress func(sent, total int64)) (string, error) {
	return "https://s/" + string(asset.Key), nil
}

func newManager(store Store, now func() time.Time) *Manager {
	return NewManager(ManagerOptions{
		NewOptions: func() workflow.Options {
			return workflow.Options{Uploads: upload.NewCoordinator(urlUploader{}, nil)}
		},
		Store:   store,
		IdleTTL: time.Hour,
		Now:     now,
	})
}

// gatedUploader blocks every upload until release is closed.
type gatedUploader struct {
	release chan struct{}
}

func (g gatedUploader) Upload(ctx context.Context, asset domain.Asset, progress func(sent, total int64)) (string, error) {
	select {
	case <-g.release:
		return "https://s/" + string(asset.Key), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func waitForSnapshot(t *testing.T, store Store, id, what string, ok func(*workflow.Snapshot) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap, err := store.Load(context.Background(), id); err == nil && ok(snap) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("snapshot %s never had %s", id, what)
}

func waitForPhase(t *testing.T, store Store, id string, want workflow.Phase) {
	t.Helper()
	waitForSnapshot(t, store, id, "phase "+want.Code(), func(snap *workflow.Snapshot) bool {
		return snap.Phase == want
	})
}

func hasUpload(key domain.AssetKey, url string) func(*workflow.Snapshot) bool {
	return func(snap *workflow.Snapshot) bool {
		return snap.Uploads[key] == url
	}
}

func TestManagerCreateAndGet(t *testing.T) {
	m := newManager(nil, nil)
	defer m.Close(context.Background())

	s := m.Create(context.Background(), "u1", "en")
	got, err := m.Get(context.Background(), s.ID(), "u1")
	if err != nil || got != s {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if _, err := m.Get(context.Background(), s.ID(), "u2"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := m.Get(context.Background(), "missing", "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestManagerPersistsOnChange(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	m := newManager(store, nil)
	defer m.Close(context.Background())

	s := m.Create(context.Background(), "u1", "ja")
	waitForPhase(t, store, s.ID(), workflow.PhaseOpening)
	if err := s.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	waitForPhase(t, store, s.ID(), workflow.PhaseProfile)
}

func TestManagerEvictsAndRestores(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	m := newManager(store, now)
	defer m.Close(context.Background())

	s := m.Create(context.Background(), "u1", "ja")
	_ = s.Next(context.Background())
	_ = s.SetProfile(domain.Profile{Name: "Hanako", Gender: "female"})
	_ = s.Next(context.Background())
	task, err := s.Upload(context.Background(), domain.KeyFrontPhoto, "front.jpg", "image/jpeg", []byte("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	<-task.Done()
	waitForSnapshot(t, store, s.ID(), "front photo", hasUpload(domain.KeyFrontPhoto, "https://s/item-front-photo"))

	clock = clock.Add(2 * time.Hour)
	if n := m.Evict(context.Background()); n != 1 {
		t.Fatalf("evicted = %d, want 1", n)
	}
	if m.Len() != 0 {
		t.Fatalf("live sessions = %d", m.Len())
	}

	restored, err := m.Get(context.Background(), s.ID(), "u1")
	if err != nil {
		t.Fatalf("Get after eviction: %v", err)
	}
	if restored == s || restored.Phase() != workflow.PhaseUpload {
		t.Fatalf("restored phase = %s", restored.Phase().Code())
	}
	if url, ok := restored.Uploads().URL(domain.KeyFrontPhoto); !ok || url != "https://s/item-front-photo" {
		t.Fatalf("front url = %q", url)
	}
	if _, err := m.Get(context.Background(), s.ID(), "u2"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestManagerPersistsFinishedUploads(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	gate := gatedUploader{release: make(chan struct{})}
	m := NewManager(ManagerOptions{
		NewOptions: func() workflow.Options {
			return workflow.Options{Uploads: upload.NewCoordinator(gate, nil)}
		},
		Store:   store,
		IdleTTL: time.Hour,
	})
	defer m.Close(context.Background())

	s := m.Create(context.Background(), "u1", "ja")
	_ = s.Next(context.Background())
	_ = s.SetProfile(domain.Profile{Name: "Hanako", Gender: "female"})
	_ = s.Next(context.Background())
	task, err := s.Upload(context.Background(), domain.KeyFrontPhoto, "front.jpg", "image/jpeg", []byte("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	waitForPhase(t, store, s.ID(), workflow.PhaseUpload)
	snap, err := store.Load(context.Background(), s.ID())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Uploads) != 0 {
		t.Fatalf("uploads before completion = %v", snap.Uploads)
	}

	close(gate.release)
	<-task.Done()
	waitForSnapshot(t, store, s.ID(), "front photo", hasUpload(domain.KeyFrontPhoto, "https://s/item-front-photo"))
}

func TestManagerDeleteRemovesSnapshot(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	m := newManager(store, nil)
	defer m.Close(context.Background())

	s := m.Create(context.Background(), "u1", "ja")
	waitForPhase(t, store, s.ID(), workflow.PhaseOpening)

	if err := m.Delete(context.Background(), s.ID(), "u2"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := m.Delete(context.Background(), s.ID(), "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("live sessions = %d", m.Len())
	}
	if _, err := store.Load(context.Background(), s.ID()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected snapshot removed, got %v", err)
	}
	if _, err := m.Get(context.Background(), s.ID(), "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
