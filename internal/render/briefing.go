// Package render turns a buffered digest into a deterministic briefing and its output formats.
package render

import (
	"fmt"
	"strings"
	"time"

	"ResearchBriefing/internal/domain"
)

const (
	defaultMaxItems   = 5
	defaultSummaryLen = 150
	maxArxivRefs      = 3
	titleFormat       = "Daily AI Research Briefing — %s (%s)"
)

// Options tunes section sizes and the footer.
type Options struct {
	Location   *time.Location
	Categories []string
	Lookback   time.Duration
	MaxItems   int
	SummaryLen int
}

// Item is one rendered entry. Fields irrelevant to the item's category stay empty.
type Item struct {
	Title     string
	URL       string
	PDFURL    string
	Source    string
	Published string
	ArxivIDs  []string
	ArxivID   string
	Keywords  []string
	BlogTitle string
	BlogURL   string
	Summary   string
}

// Section is a capped list of items of one category.
type Section struct {
	Category domain.Category
	Icon     string
	Emoji    string
	Heading  string
	Total    int
	Items    []Item
	Overflow int
	Noun     string
}

// Footer summarises what the briefing covers.
type Footer struct {
	Categories    []string
	LookbackHours int
	Posts         int
	Papers        int
	Linked        int
	Safety        int
}

// Total sums every category.
func (f Footer) Total() int { return f.Posts + f.Papers + f.Linked + f.Safety }

// Text renders the one-line footer shared by every output format.
func (f Footer) Text() string {
	counts := fmt.Sprintf("%d blogs, %d arXiv, %d linked", f.Posts, f.Papers, f.Linked)
	if f.Safety > 0 {
		counts += fmt.Sprintf(", %d safety", f.Safety)
	}
	return fmt.Sprintf("%s · Past %dh · %s · %d total",
		strings.Join(f.Categories, ", "), f.LookbackHours, counts, f.Total())
}

// Attachment is a rendered file handed to notifiers that support uploads.
type Attachment struct {
	Name    string
	Title   string
	Content []byte
}

// Briefing is the channel-independent model of one digest.
type Briefing struct {
	Date     string
	Zone     string
	Title    string
	Overview string
	Sections []Section
	Footer   Footer

	Attachments []Attachment
}

// Empty reports whether no section has items.
func (b *Briefing) Empty() bool { return b.Footer.Total() == 0 }

// Build assembles the briefing for digest as of now.
func Build(d domain.Digest, now time.Time, opts Options) *Briefing {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	summaryLen := opts.SummaryLen
	if summaryLen <= 0 {
		summaryLen = defaultSummaryLen
	}

	local := now.In(loc)
	zone, _ := local.Zone()
	date := local.Format("2006-01-02")

	b := &Briefing{
		Date:  date,
		Zone:  zone,
		Title: fmt.Sprintf(titleFormat, date, zone),
		Footer: Footer{
			Categories:    append([]string(nil), opts.Categories...),
			LookbackHours: int(opts.Lookback / time.Hour),
			Posts:         len(d.Posts),
			Papers:        len(d.Papers),
			Linked:        len(d.Linked),
			Safety:        len(d.SafetyPosts),
		},
	}

	if s, ok := postSection(domain.CategoryPosts, d.Posts, maxItems, summaryLen); ok {
		b.Sections = append(b.Sections, s)
	}
	if s, ok := paperSection(d.Papers, maxItems, summaryLen); ok {
		b.Sections = append(b.Sections, s)
	}
	if s, ok := linkedSection(d.Linked, maxItems, summaryLen); ok {
		b.Sections = append(b.Sections, s)
	}
	if s, ok := postSection(domain.CategorySafetyPosts, d.SafetyPosts, maxItems, summaryLen); ok {
		b.Sections = append(b.Sections, s)
	}
	return b
}

func postSection(cat domain.Category, posts []domain.Post, maxItems, summaryLen int) (Section, bool) {
	if len(posts) == 0 {
		return Section{}, false
	}
	s := Section{Category: cat, Total: len(posts)}
	if cat == domain.CategorySafetyPosts {
		s.Icon, s.Emoji, s.Heading, s.Noun = ":shield:", "🛡️", "AI Safety Posts", "safety posts"
	} else {
		s.Icon, s.Emoji, s.Heading, s.Noun = ":fire:", "🔥", "High Priority — Tech Blog Posts", "blog posts"
	}

	for _, p := range posts[:min(maxItems, len(posts))] {
		ids := p.ArxivIDs
		if len(ids) > maxArxivRefs {
			ids = ids[:maxArxivRefs]
		}
		s.Items = append(s.Items, Item{
			Title:     orDefault(p.Title, "No title"),
			URL:       p.URL,
			Source:    orDefault(p.Source, "Blog"),
			Published: p.PublishedDay(),
			ArxivIDs:  append([]string(nil), ids...),
			Summary:   Truncate(p.Summary, summaryLen),
		})
	}
	s.Overflow = len(posts) - len(s.Items)
	return s, true
}

func paperSection(papers []domain.Paper, maxItems, summaryLen int) (Section, bool) {
	if len(papers) == 0 {
		return Section{}, false
	}
	s := Section{
		Category: domain.CategoryPapers,
		Icon:     ":test_tube:",
		Emoji:    "🧪",
		Heading:  "Notable arXiv Papers",
		Total:    len(papers),
		Noun:     "arXiv papers",
	}
	for _, p := range papers[:min(maxItems, len(papers))] {
		s.Items = append(s.Items, Item{
			Title:    orDefault(p.Title, "No title"),
			URL:      p.AbsURL(),
			PDFURL:   p.PDFURL(),
			ArxivID:  p.ID,
			Keywords: append([]string(nil), p.MatchedKeywords...),
			Summary:  Truncate(p.Summary, summaryLen),
		})
	}
	s.Overflow = len(papers) - len(s.Items)
	return s, true
}

func linkedSection(items []domain.LinkedPaper, maxItems, summaryLen int) (Section, bool) {
	if len(items) == 0 {
		return Section{}, false
	}
	s := Section{
		Category: domain.CategoryLinked,
		Icon:     ":link:",
		Emoji:    "🔗",
		Heading:  "Blog ↔ arXiv Updates",
		Total:    len(items),
		Noun:     "linked papers",
	}
	for _, it := range items[:min(maxItems, len(items))] {
		s.Items = append(s.Items, Item{
			Title:     orDefault(it.Paper.Title, "No title"),
			URL:       it.Paper.AbsURL(),
			PDFURL:    it.Paper.PDFURL(),
			ArxivID:   it.Paper.ID,
			Source:    orDefault(it.Link.BlogSource, "Blog"),
			BlogTitle: it.Link.BlogTitle,
			BlogURL:   it.Link.BlogURL,
			Summary:   Truncate(it.Paper.Summary, summaryLen),
		})
	}
	s.Overflow = len(items) - len(s.Items)
	return s, true
}

// Truncate shortens s to limit runes, replacing the last kept rune with an ellipsis.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	return string(r[:limit-1]) + "…"
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
