package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ResearchBriefing/internal/config"
	"ResearchBriefing/internal/domain"
	"ResearchBriefing/internal/keywords"
	"ResearchBriefing/internal/ports"
	"ResearchBriefing/internal/scanner"
)

// StrategySource implements PaperSource via registered scanner strategies and keyword matching.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	matcher  *keywords.Matcher
	lookback time.Duration
	logger   *slog.Logger
}

var _ ports.PaperSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, matcher *keywords.Matcher, lookback time.Duration, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sites:    sites,
		matcher:  matcher,
		lookback: lookback,
		logger:   log,
	}
}

// FetchPapers runs every configured site and keeps papers that match at least one keyword.
// A failing site is logged and skipped; the call fails only when every site failed.
func (s *StrategySource) FetchPapers(ctx context.Context, now time.Time) ([]domain.Paper, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch papers", "sites", len(s.sites), "since", now.Add(-s.lookback).Format(time.RFC3339))

	var (
		aggregated []domain.Paper
		failures   []error
		seen       = map[string]struct{}{}
		scanned    int
	)
	for _, site := range s.sites {
		s.debug("process site", "site", site.Name, "scanner", site.Scanner, "categories", len(site.Categories))
		results, err := s.scanSite(ctx, site, now)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.warn("site failed", "site", site.Name, "error", err)
			failures = append(failures, err)
			continue
		}
		scanned += len(results)

		for _, paper := range results {
			if _, dup := seen[paper.ID]; dup {
				continue
			}
			paper.MatchedKeywords = s.matcher.Match(paper.Title, paper.Summary, paper.Authors)
			if len(paper.MatchedKeywords) == 0 {
				continue
			}
			seen[paper.ID] = struct{}{}
			aggregated = append(aggregated, paper)
		}
		s.debug("site produced papers", "site", site.Name, "count", len(results))
	}

	if len(failures) > 0 && len(failures) == len(s.sites) {
		return nil, errors.Join(failures...)
	}

	s.debug("strategy source done", "scanned", scanned, "matched", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) scanSite(ctx context.Context, site config.SiteConfig, now time.Time) ([]domain.Paper, error) {
	strategy, err := s.registry.Resolve(site.Scanner)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	req := scanner.Request{
		Now:        now,
		Lookback:   s.lookback,
		SiteName:   site.Name,
		Options:    site.Options,
		Categories: toScannerCategories(site.Categories),
	}

	results, err := strategy.Scan(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scan site %s: %w", site.Name, err)
	}
	return results, nil
}

func toScannerCategories(cfg []config.CategoryConfig) []scanner.Category {
	categories := make([]scanner.Category, 0, len(cfg))
	for _, cat := range cfg {
		categories = append(categories, scanner.Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return categories
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
