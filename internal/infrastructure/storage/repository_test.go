package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ResearchBriefing/internal/domain"
	"ResearchBriefing/internal/state"
)

var repoNow = time.Date(2025, time.November, 8, 3, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingBackend struct {
	readErr  error
	writeErr error
}

func (f failingBackend) Read(context.Context) ([]byte, error) { return nil, f.readErr }
func (f failingBackend) Write(context.Context, []byte) error  { return f.writeErr }
func (f failingBackend) Close() error                         { return nil }

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	backend := NewFileBackend(filepath.Join(t.TempDir(), "state.json"))
	repo := NewRepository(backend, state.DefaultRetention(), quietLogger())
	ctx := context.Background()

	s := repo.Load(ctx, repoNow)
	s.MarkPapersNotified([]string{"2511.00001"}, repoNow)
	s.BufferPosts([]domain.Post{{Title: "t", URL: "https://blog.example/a"}}, repoNow)
	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := repo.Load(ctx, repoNow.Add(time.Hour))
	if loaded.NotifiedPapers().IsNew("2511.00001") {
		t.Fatalf("notified paper lost")
	}
	if loaded.Buffer().Len() != 1 {
		t.Fatalf("expected 1 buffered item, got %d", loaded.Buffer().Len())
	}
}

func TestRepositoryCorruptDocumentFallsBackToEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	repo := NewRepository(NewFileBackend(path), state.DefaultRetention(), quietLogger())
	s := repo.Load(context.Background(), repoNow)
	if s.Buffer().Len() != 0 || s.NotifiedPapers().Len() != 0 {
		t.Fatalf("expected empty state")
	}
}

func TestRepositoryBackendErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	repo := NewRepository(failingBackend{readErr: boom, writeErr: boom}, state.DefaultRetention(), quietLogger())

	s := repo.Load(context.Background(), repoNow)
	if s == nil {
		t.Fatalf("expected empty state on read failure")
	}
	if err := repo.Save(context.Background(), s); !errors.Is(err, boom) {
		t.Fatalf("expected write error to surface, got %v", err)
	}
}

func TestRepositoryMigratesLegacyDocument(t *testing.T) {
	t.Parallel()

	backend := openMemory(t, "")
	ctx := context.Background()
	if err := backend.Write(ctx, []byte(`{"notified_ids": ["2511.00001"]}`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	repo := NewRepository(backend, state.DefaultRetention(), quietLogger())
	s := repo.Load(ctx, repoNow)
	if s.NotifiedPapers().IsNew("2511.00001") {
		t.Fatalf("legacy id not migrated")
	}
	if len(s.Upgrades()) == 0 {
		t.Fatalf("expected upgrade notes")
	}
}
