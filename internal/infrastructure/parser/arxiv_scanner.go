package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ResearchBriefing/internal/domain"
	"ResearchBriefing/internal/scanner"
)

const (
	arxivBaseURL = "https://arxiv.org"
	userAgent    = "ResearchBriefing/1.0 (+https://arxiv.org/help/api)"
)

var (
	dateExpr    = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)
	subjectExpr = regexp.MustCompile(`\(([a-z\-]+(?:\.[A-Za-z\-]+)?)\)`)
)

// ArxivListScanner crawls category listing pages and extracts papers inside the lookback window.
// Listing pages only carry a date, so the window is applied at day granularity.
type ArxivListScanner struct {
	client   *http.Client
	pageSize int
}

var _ scanner.Scanner = (*ArxivListScanner)(nil)

// NewArxivListScanner wires an HTTP client; pageSize defaults to 200.
func NewArxivListScanner(client *http.Client) *ArxivListScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ArxivListScanner{client: client, pageSize: 200}
}

// Name identifies the strategy inside the registry.
func (a *ArxivListScanner) Name() string {
	return "arxiv-list"
}

// Scan walks through each category URL and returns papers listed on or after the first day of the window.
func (a *ArxivListScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Paper, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	firstDay := req.Since().UTC().Truncate(24 * time.Hour)
	results := make([]domain.Paper, 0)
	seen := map[string]struct{}{}

	for _, cat := range req.Categories {
		if cat.URL == "" {
			return nil, fmt.Errorf("category %s: listing url is required", cat.Name)
		}
		skip := 0
		for {
			pageURL, err := buildPageURL(cat.URL, skip, a.pageSize)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			doc, err := a.fetchDocument(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			pagePapers, shouldContinue := a.extractPapers(doc, firstDay, cat.Name)
			for _, paper := range pagePapers {
				if _, ok := seen[paper.ID]; ok {
					continue
				}
				seen[paper.ID] = struct{}{}
				results = append(results, paper)
			}

			if !shouldContinue {
				break
			}
			skip += a.pageSize
		}
	}

	return results, nil
}

func (a *ArxivListScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (a *ArxivListScanner) extractPapers(doc *goquery.Document, firstDay time.Time, category string) ([]domain.Paper, bool) {
	var (
		collected    []domain.Paper
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		dd := dt.Next()
		processed++

		paper, publishedAt, err := parseEntry(dt, dd, category)
		if err != nil {
			return true
		}

		paperDay := publishedAt.UTC().Truncate(24 * time.Hour)
		if paperDay.Before(firstDay) {
			continueScan = false
			return false
		}
		collected = append(collected, paper)
		return true
	})

	if processed < a.pageSize {
		continueScan = false
	}

	return collected, continueScan
}

func parseEntry(dt, dd *goquery.Selection, category string) (domain.Paper, time.Time, error) {
	anchor := dt.Find("a[href*=\"/abs/\"]").First()
	href, _ := anchor.Attr("href")

	rawID := strings.TrimSpace(anchor.Text())
	rawID = strings.TrimPrefix(rawID, "arXiv:")
	if rawID == "" {
		rawID = strings.TrimPrefix(href, "/abs/")
	}
	id := domain.ShortArxivID(rawID)
	if id == "" {
		return domain.Paper{}, time.Time{}, errors.New("entry has no identifier")
	}

	if href == "" {
		href = domain.ArxivAbsURL(id)
	} else if !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = collapseSpace(strings.TrimPrefix(title, "Title:"))
	if title == "" {
		return domain.Paper{}, time.Time{}, fmt.Errorf("entry %s has no title", id)
	}

	summary := dd.Find("p.mathjax").First().Text()
	summary = collapseSpace(strings.TrimPrefix(strings.TrimSpace(summary), "Abstract:"))

	var authors []string
	dd.Find(".list-authors a").Each(func(_ int, s *goquery.Selection) {
		if name := strings.TrimSpace(s.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	categories := []string{}
	for _, m := range subjectExpr.FindAllStringSubmatch(dd.Find(".list-subjects").First().Text(), -1) {
		categories = append(categories, m[1])
	}
	if len(categories) == 0 && category != "" {
		categories = append(categories, category)
	}

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	match := dateExpr.FindString(dateText)
	publishedAt := time.Now().UTC()
	if match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			publishedAt = parsed
		}
	}

	paper := domain.Paper{
		ID:         id,
		Title:      title,
		Summary:    summary,
		Authors:    authors,
		Link:       href,
		Published:  publishedAt.UTC().Format(time.RFC3339),
		Categories: categories,
	}

	return paper, publishedAt, nil
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
