// Package feeds reads company and safety blog posts from RSS/Atom feeds.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"ResearchBriefing/internal/config"
	"ResearchBriefing/internal/domain"
	"ResearchBriefing/internal/ports"
)

const (
	maxSummaryRunes = 600
	userAgent       = "ResearchBriefing/1.0"
)

// Source fetches one group of feeds (blogs or safety) and filters entries by recency.
type Source struct {
	client   *http.Client
	feeds    []config.FeedConfig
	label    string
	lookback time.Duration
	logger   *slog.Logger
}

var _ ports.PostSource = (*Source)(nil)

// NewSource wires an HTTP client; label only tags log records ("blog", "safety").
func NewSource(client *http.Client, feeds []config.FeedConfig, label string, lookback time.Duration, logger *slog.Logger) *Source {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{client: client, feeds: feeds, label: label, lookback: lookback, logger: logger}
}

// FetchPosts reads every feed. A failing feed is logged and skipped;
// the call errors only when every configured feed failed.
func (s *Source) FetchPosts(ctx context.Context, now time.Time) ([]domain.Post, error) {
	var (
		posts    []domain.Post
		failures []error
	)
	cutoff := now.Add(-s.lookback)

	for _, f := range s.feeds {
		feed, err := s.fetch(ctx, f.URL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("feed failed", "group", s.label, "source", f.Source, "error", err)
			failures = append(failures, fmt.Errorf("feed %s: %w", f.Source, err))
			continue
		}

		kept := 0
		for _, item := range feed.Items {
			post, ok := parseItem(item, f.Source, cutoff)
			if !ok {
				continue
			}
			posts = append(posts, post)
			kept++
		}
		s.logger.Debug("feed read", "group", s.label, "source", f.Source, "entries", len(feed.Items), "kept", kept)
	}

	if len(failures) > 0 && len(failures) == len(s.feeds) {
		return nil, errors.Join(failures...)
	}

	s.logger.Info("fetched posts", "group", s.label, "posts", len(posts), "feeds", len(s.feeds))
	return posts, nil
}

func (s *Source) fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// parseItem converts a feed entry; entries without a title or link, or older than cutoff, are skipped.
// Entries without any date are kept.
func parseItem(item *gofeed.Item, source string, cutoff time.Time) (domain.Post, bool) {
	if item == nil {
		return domain.Post{}, false
	}
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return domain.Post{}, false
	}

	var published time.Time
	switch {
	case item.PublishedParsed != nil:
		published = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		published = item.UpdatedParsed.UTC()
	}
	if !published.IsZero() && published.Before(cutoff) {
		return domain.Post{}, false
	}

	texts := []string{link, item.Description, item.Content}
	texts = append(texts, item.Links...)
	for _, enc := range item.Enclosures {
		if enc != nil {
			texts = append(texts, enc.URL)
		}
	}
	texts = append(texts, hrefs(item.Description)...)
	texts = append(texts, hrefs(item.Content)...)

	post := domain.Post{
		Title:    title,
		URL:      link,
		Source:   source,
		Summary:  truncateRunes(stripHTML(item.Description), maxSummaryRunes),
		ArxivIDs: domain.ExtractArxivIDs(texts...),
	}
	if !published.IsZero() {
		post.Published = published.Format(time.RFC3339)
	}
	if post.ArxivIDs == nil {
		post.ArxivIDs = []string{}
	}
	return post, true
}

// stripHTML returns the visible text of an HTML fragment with whitespace collapsed.
func stripHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// hrefs lists anchor targets, which may hold percent-encoded or relative paper links the raw text hides.
func hrefs(fragment string) []string {
	if !strings.Contains(fragment, "<") {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil
	}
	var out []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			out = append(out, href)
		}
	})
	return out
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
