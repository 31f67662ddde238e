package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"ResearchBriefing/internal/domain"
	"ResearchBriefing/internal/scanner"
)

const (
	defaultAPIEndpoint = "https://export.arxiv.org/api/query"
	defaultMaxResults  = 200
	defaultAttempts    = 3
	defaultBackoff     = 5 * time.Second
)

// statusError is a non-200 API response.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string { return "arxiv api returned " + e.status }

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// ArxivAPIScanner queries the arXiv Atom API for the newest submissions in the configured categories.
type ArxivAPIScanner struct {
	client   *http.Client
	attempts int
	// backoff is multiplied by the attempt number between retries.
	backoff time.Duration
}

var _ scanner.Scanner = (*ArxivAPIScanner)(nil)

// NewArxivAPIScanner wires an HTTP client with three attempts and linear backoff.
func NewArxivAPIScanner(client *http.Client) *ArxivAPIScanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ArxivAPIScanner{client: client, attempts: defaultAttempts, backoff: defaultBackoff}
}

// Name identifies the strategy inside the registry.
func (a *ArxivAPIScanner) Name() string {
	return "arxiv-api"
}

// Scan fetches one page sorted by submission date and keeps entries published inside the window.
// Options: endpoint (API URL), maxResults (page size).
func (a *ArxivAPIScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Paper, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	queryURL, err := buildQueryURL(req.Options["endpoint"], req.Categories, maxResults(req.Options))
	if err != nil {
		return nil, err
	}

	feed, err := a.fetchWithRetry(ctx, queryURL)
	if err != nil {
		return nil, err
	}

	since := req.Since()
	papers := make([]domain.Paper, 0, len(feed.Items))
	for _, item := range feed.Items {
		paper, published, ok := paperFromItem(item)
		if !ok {
			continue
		}
		if !published.IsZero() && published.Before(since) {
			continue
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

func (a *ArxivAPIScanner) fetchWithRetry(ctx context.Context, queryURL string) (*gofeed.Feed, error) {
	var lastErr error
	for attempt := 1; attempt <= a.attempts; attempt++ {
		feed, err := a.fetchFeed(ctx, queryURL)
		if err == nil {
			return feed, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			break
		}
		if ctx.Err() != nil || attempt == a.attempts {
			break
		}

		timer := time.NewTimer(a.backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("query arxiv api: %w", lastErr)
}

func (a *ArxivAPIScanner) fetchFeed(ctx context.Context, queryURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func paperFromItem(item *gofeed.Item) (domain.Paper, time.Time, bool) {
	if item == nil {
		return domain.Paper{}, time.Time{}, false
	}

	rawID := item.GUID
	if rawID == "" {
		rawID = item.Link
	}
	id := domain.ShortArxivID(strings.TrimSpace(rawID))
	title := collapseSpace(item.Title)
	if id == "" || title == "" {
		return domain.Paper{}, time.Time{}, false
	}

	var published time.Time
	switch {
	case item.PublishedParsed != nil:
		published = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		published = item.UpdatedParsed.UTC()
	}

	authors := make([]string, 0, len(item.Authors))
	for _, person := range item.Authors {
		if person != nil && strings.TrimSpace(person.Name) != "" {
			authors = append(authors, strings.TrimSpace(person.Name))
		}
	}

	link := item.Link
	if link == "" {
		link = domain.ArxivAbsURL(id)
	}

	categories := append([]string{}, item.Categories...)

	paper := domain.Paper{
		ID:         id,
		Title:      title,
		Summary:    collapseSpace(item.Description),
		Authors:    authors,
		Link:       link,
		Categories: categories,
	}
	if !published.IsZero() {
		paper.Published = published.Format(time.RFC3339)
	}
	return paper, published, true
}

func buildQueryURL(endpoint string, categories []scanner.Category, limit int) (string, error) {
	if endpoint == "" {
		endpoint = defaultAPIEndpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid api endpoint %s: %w", endpoint, err)
	}

	terms := make([]string, 0, len(categories))
	for _, cat := range categories {
		terms = append(terms, "cat:"+cat.Name)
	}

	query := parsed.Query()
	query.Set("search_query", strings.Join(terms, " OR "))
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")
	query.Set("max_results", strconv.Itoa(limit))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func maxResults(options map[string]string) int {
	if v, err := strconv.Atoi(options["maxResults"]); err == nil && v > 0 {
		return v
	}
	return defaultMaxResults
}
