package storage

import (
	"context"
	"errors"
	"testing"
)

func openMemory(t *testing.T, name string) *SQLBackend {
	t.Helper()

	backend, err := OpenSQLite(":memory:", "", name)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func TestSQLBackendEmptyTable(t *testing.T) {
	t.Parallel()

	backend := openMemory(t, "")
	if _, err := backend.Read(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLBackendUpsert(t *testing.T) {
	t.Parallel()

	backend := openMemory(t, "briefing")
	ctx := context.Background()

	for _, doc := range []string{`{"version":1}`, `{"version":2}`} {
		if err := backend.Write(ctx, []byte(doc)); err != nil {
			t.Fatalf("write %s: %v", doc, err)
		}
	}

	got, err := backend.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != `{"version":2}` {
		t.Fatalf("unexpected document: %s", got)
	}

	names, err := backend.Names(ctx)
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) != 1 || names[0] != "briefing" {
		t.Fatalf("expected a single row named briefing, got %v", names)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	cases := []Options{
		{Backend: "redis"},
		{Backend: BackendFile},
		{Backend: BackendSQLite},
		{Backend: BackendPostgres},
	}
	for _, opts := range cases {
		if _, err := Open(opts); err == nil {
			t.Fatalf("expected error for %+v", opts)
		}
	}
}
