package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"ResearchBriefing/internal/scanner"
)

const atomFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>ArXiv Query</title>
  <id>http://arxiv.org/api/query</id>
  <updated>2025-11-09T00:00:00Z</updated>
  <entry>
    <id>http://arxiv.org/abs/2511.00042v2</id>
    <updated>2025-11-08T18:00:00Z</updated>
    <published>2025-11-08T17:00:00Z</published>
    <title>Scaling Agents
      at Google DeepMind</title>
    <summary>  We study agents.
      Across many tasks.  </summary>
    <author><name>Jane Doe</name></author>
    <author><name>John Roe</name></author>
    <link href="http://arxiv.org/abs/2511.00042v2" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2511.00042v2" rel="related" type="application/pdf"/>
    <category term="cs.AI" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2511.00001v1</id>
    <updated>2025-11-01T18:00:00Z</updated>
    <published>2025-11-01T17:00:00Z</published>
    <title>Too Old</title>
    <summary>Outside the window.</summary>
    <author><name>Old Author</name></author>
    <link href="http://arxiv.org/abs/2511.00001v1" rel="alternate" type="text/html"/>
  </entry>
</feed>`

var apiNow = time.Date(2025, time.November, 9, 6, 0, 0, 0, time.UTC)

func apiRequest(endpoint string) scanner.Request {
	return scanner.Request{
		Now:        apiNow,
		Lookback:   48 * time.Hour,
		SiteName:   "arxiv",
		Categories: []scanner.Category{{Name: "cs.AI"}, {Name: "stat.ML"}},
		Options:    map[string]string{"endpoint": endpoint, "maxResults": "50"},
	}
}

func TestArxivAPIScannerScan(t *testing.T) {
	t.Parallel()

	queries := make(chan url.Values, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.Query()
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atomFixture))
	}))
	defer server.Close()

	papers, err := NewArxivAPIScanner(server.Client()).Scan(context.Background(), apiRequest(server.URL))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	gotQuery := <-queries
	if gotQuery.Get("search_query") != "cat:cs.AI OR cat:stat.ML" {
		t.Fatalf("unexpected search query %q", gotQuery.Get("search_query"))
	}
	if gotQuery.Get("sortBy") != "submittedDate" || gotQuery.Get("sortOrder") != "descending" || gotQuery.Get("max_results") != "50" {
		t.Fatalf("unexpected query: %v", gotQuery)
	}

	if len(papers) != 1 {
		t.Fatalf("expected 1 paper inside the window, got %d", len(papers))
	}
	p := papers[0]
	if p.ID != "2511.00042" {
		t.Fatalf("unexpected id %s", p.ID)
	}
	if p.Title != "Scaling Agents at Google DeepMind" {
		t.Fatalf("unexpected title %q", p.Title)
	}
	if p.Summary != "We study agents. Across many tasks." {
		t.Fatalf("unexpected summary %q", p.Summary)
	}
	if p.Link != "http://arxiv.org/abs/2511.00042v2" {
		t.Fatalf("unexpected link %s", p.Link)
	}
	if !reflect.DeepEqual(p.Authors, []string{"Jane Doe", "John Roe"}) {
		t.Fatalf("unexpected authors %v", p.Authors)
	}
	if !reflect.DeepEqual(p.Categories, []string{"cs.AI", "cs.LG"}) {
		t.Fatalf("unexpected categories %v", p.Categories)
	}
	if p.Published != "2025-11-08T17:00:00Z" {
		t.Fatalf("unexpected published %s", p.Published)
	}
}

func TestArxivAPIScannerRetries(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(atomFixture))
	}))
	defer server.Close()

	sc := NewArxivAPIScanner(server.Client())
	sc.backoff = time.Millisecond

	papers, err := sc.Scan(context.Background(), apiRequest(server.URL))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(papers) != 1 || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected success on third attempt, got %d papers after %d calls", len(papers), calls)
	}
}

func TestArxivAPIScannerGivesUpOnClientErrors(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad query", http.StatusBadRequest)
	}))
	defer server.Close()

	sc := NewArxivAPIScanner(server.Client())
	sc.backoff = time.Millisecond

	if _, err := sc.Scan(context.Background(), apiRequest(server.URL)); err == nil {
		t.Fatalf("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestArxivAPIScannerStopsOnCancel(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sc := NewArxivAPIScanner(server.Client())
	sc.backoff = time.Hour

	done := make(chan error, 1)
	go func() {
		_, err := sc.Scan(ctx, apiRequest(server.URL))
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected cancellation error")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("scan did not stop after cancellation")
	}
}
