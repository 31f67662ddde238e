package scanner

import (
	"context"
	"strings"
	"testing"
	"time"

	"ResearchBriefing/internal/domain"
)

type stubScanner struct{ name string }

func (s stubScanner) Name() string { return s.name }
func (s stubScanner) Scan(context.Context, Request) ([]domain.Paper, error) {
	return nil, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubScanner{name: "arxiv-api"})
	reg.Register(stubScanner{name: "arxiv-list"})

	if _, err := reg.Resolve("arxiv-api"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	_, err := reg.Resolve("ieee")
	if err == nil || !strings.Contains(err.Error(), "arxiv-list") {
		t.Fatalf("expected error listing known scanners, got %v", err)
	}
}

func TestRequestSince(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.November, 8, 12, 0, 0, 0, time.UTC)
	req := Request{Now: now, Lookback: 48 * time.Hour}
	if got := req.Since(); !got.Equal(now.Add(-48 * time.Hour)) {
		t.Fatalf("unexpected since: %v", got)
	}
}
