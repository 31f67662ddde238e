package parser

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"ResearchBriefing/internal/config"
	"ResearchBriefing/internal/domain"
	"ResearchBriefing/internal/keywords"
	"ResearchBriefing/internal/scanner"
)

type fakeScanner struct {
	name   string
	papers []domain.Paper
	err    error
	got    scanner.Request
}

func (f *fakeScanner) Name() string { return f.name }

func (f *fakeScanner) Scan(_ context.Context, req scanner.Request) ([]domain.Paper, error) {
	f.got = req
	return f.papers, f.err
}

func newMatcher(t *testing.T) *keywords.Matcher {
	t.Helper()
	m, err := keywords.New([]config.KeywordConfig{
		{Label: "Google", Pattern: "Google"},
		{Label: "Anthropic", Pattern: "Anthropic"},
	})
	if err != nil {
		t.Fatalf("keywords: %v", err)
	}
	return m
}

func TestStrategySourceMatchesKeywords(t *testing.T) {
	t.Parallel()

	api := &fakeScanner{name: "arxiv-api", papers: []domain.Paper{
		{ID: "1", Title: "Work from Google"},
		{ID: "2", Title: "Unrelated"},
		{ID: "3", Title: "Interpretability", Authors: []string{"Anthropic"}},
	}}
	list := &fakeScanner{name: "arxiv-list", papers: []domain.Paper{
		{ID: "1", Title: "Work from Google"},
	}}

	reg := scanner.NewRegistry()
	reg.Register(api)
	reg.Register(list)

	sites := []config.SiteConfig{
		{Name: "api", Scanner: "arxiv-api", Categories: []config.CategoryConfig{{Name: "cs.AI"}}},
		{Name: "list", Scanner: "arxiv-list"},
	}
	now := time.Date(2025, time.November, 9, 0, 0, 0, 0, time.UTC)
	src := NewStrategySource(reg, sites, newMatcher(t), 48*time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	papers, err := src.FetchPapers(context.Background(), now)
	if err != nil {
		t.Fatalf("FetchPapers: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("expected 2 matched papers, got %d", len(papers))
	}
	if papers[0].MatchedKeywords[0] != "Google" || papers[1].MatchedKeywords[0] != "Anthropic" {
		t.Fatalf("unexpected keywords: %v / %v", papers[0].MatchedKeywords, papers[1].MatchedKeywords)
	}
	if api.got.Lookback != 48*time.Hour || !api.got.Now.Equal(now) || api.got.Categories[0].Name != "cs.AI" {
		t.Fatalf("unexpected request: %+v", api.got)
	}
}

func TestStrategySourceToleratesPartialFailure(t *testing.T) {
	t.Parallel()

	reg := scanner.NewRegistry()
	reg.Register(&fakeScanner{name: "ok", papers: []domain.Paper{{ID: "1", Title: "Google"}}})
	reg.Register(&fakeScanner{name: "broken", err: errors.New("timeout")})

	src := NewStrategySource(reg, []config.SiteConfig{
		{Name: "a", Scanner: "broken"},
		{Name: "b", Scanner: "ok"},
	}, newMatcher(t), time.Hour, nil)

	papers, err := src.FetchPapers(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("expected partial success, got %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("expected 1 paper, got %d", len(papers))
	}
}

func TestStrategySourceFailsWhenEverySiteFails(t *testing.T) {
	t.Parallel()

	reg := scanner.NewRegistry()
	reg.Register(&fakeScanner{name: "broken", err: errors.New("timeout")})

	src := NewStrategySource(reg, []config.SiteConfig{
		{Name: "a", Scanner: "broken"},
		{Name: "b", Scanner: "missing"},
	}, newMatcher(t), time.Hour, nil)

	if _, err := src.FetchPapers(context.Background(), time.Now()); err == nil {
		t.Fatalf("expected error when all sites fail")
	}
}
