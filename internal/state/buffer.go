package state

import (
	"sort"

	"ResearchBriefing/internal/domain"
)

// DayBucket holds one calendar day of buffered items, one ordered sequence per category.
type DayBucket struct {
	Posts       []domain.Post        `json:"blog_posts"`
	Papers      []domain.Paper       `json:"arxiv_papers"`
	Linked      []domain.LinkedPaper `json:"linked_papers"`
	SafetyPosts []domain.Post        `json:"safety_posts"`
}

func newDayBucket() *DayBucket {
	return &DayBucket{
		Posts:       []domain.Post{},
		Papers:      []domain.Paper{},
		Linked:      []domain.LinkedPaper{},
		SafetyPosts: []domain.Post{},
	}
}

// normalize replaces nil sequences left over from older or partial documents.
func (d *DayBucket) normalize() {
	if d.Posts == nil {
		d.Posts = []domain.Post{}
	}
	if d.Papers == nil {
		d.Papers = []domain.Paper{}
	}
	if d.Linked == nil {
		d.Linked = []domain.LinkedPaper{}
	}
	if d.SafetyPosts == nil {
		d.SafetyPosts = []domain.Post{}
	}
}

// Len counts items in the bucket.
func (d *DayBucket) Len() int {
	return len(d.Posts) + len(d.Papers) + len(d.Linked) + len(d.SafetyPosts)
}

// Buffer is the date-keyed staging area between collect and brief runs.
type Buffer struct {
	days map[string]*DayBucket
}

func newBuffer() *Buffer {
	return &Buffer{days: map[string]*DayBucket{}}
}

// Dates lists bucket keys in ascending order.
func (b *Buffer) Dates() []string {
	keys := make([]string, 0, len(b.days))
	for k := range b.days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Day returns the bucket for dateKey without creating it.
func (b *Buffer) Day(dateKey string) (*DayBucket, bool) {
	d, ok := b.days[dateKey]
	return d, ok
}

// Len counts items across every bucket.
func (b *Buffer) Len() int {
	total := 0
	for _, d := range b.days {
		total += d.Len()
	}
	return total
}

func (b *Buffer) bucket(dateKey string) *DayBucket {
	d, ok := b.days[dateKey]
	if !ok {
		d = newDayBucket()
		b.days[dateKey] = d
	}
	return d
}

func (b *Buffer) appendPosts(dateKey string, posts []domain.Post, safety bool) int {
	day := b.bucket(dateKey)
	target := &day.Posts
	if safety {
		target = &day.SafetyPosts
	}

	existing := make(map[string]struct{}, len(*target))
	for _, p := range *target {
		existing[p.URL] = struct{}{}
	}

	added := 0
	for _, p := range posts {
		if p.URL == "" {
			continue
		}
		if _, ok := existing[p.URL]; ok {
			continue
		}
		*target = append(*target, clonePost(p))
		existing[p.URL] = struct{}{}
		added++
	}
	return added
}

func (b *Buffer) appendPapers(dateKey string, papers []domain.Paper) int {
	day := b.bucket(dateKey)
	existing := make(map[string]struct{}, len(day.Papers))
	for _, p := range day.Papers {
		existing[p.ID] = struct{}{}
	}

	added := 0
	for _, p := range papers {
		if p.ID == "" {
			continue
		}
		if _, ok := existing[p.ID]; ok {
			continue
		}
		day.Papers = append(day.Papers, clonePaper(p))
		existing[p.ID] = struct{}{}
		added++
	}
	return added
}

func (b *Buffer) appendLinked(dateKey string, items []domain.LinkedPaper) int {
	day := b.bucket(dateKey)
	existing := make(map[string]struct{}, len(day.Linked))
	for _, it := range day.Linked {
		existing[it.Paper.ID] = struct{}{}
	}

	added := 0
	for _, it := range items {
		if it.Paper.ID == "" {
			continue
		}
		if _, ok := existing[it.Paper.ID]; ok {
			continue
		}
		day.Linked = append(day.Linked, domain.LinkedPaper{Paper: clonePaper(it.Paper), Link: it.Link})
		existing[it.Paper.ID] = struct{}{}
		added++
	}
	return added
}

// aggregate concatenates every category across all buckets in ascending date order.
func (b *Buffer) aggregate() domain.Digest {
	digest := domain.Digest{
		Posts:       []domain.Post{},
		Papers:      []domain.Paper{},
		Linked:      []domain.LinkedPaper{},
		SafetyPosts: []domain.Post{},
	}
	for _, key := range b.Dates() {
		day := b.days[key]
		for _, p := range day.Posts {
			digest.Posts = append(digest.Posts, clonePost(p))
		}
		for _, p := range day.Papers {
			digest.Papers = append(digest.Papers, clonePaper(p))
		}
		for _, it := range day.Linked {
			digest.Linked = append(digest.Linked, domain.LinkedPaper{Paper: clonePaper(it.Paper), Link: it.Link})
		}
		for _, p := range day.SafetyPosts {
			digest.SafetyPosts = append(digest.SafetyPosts, clonePost(p))
		}
	}
	return digest
}

func (b *Buffer) clear() {
	b.days = map[string]*DayBucket{}
}

func (b *Buffer) prune(cutoffDate string) int {
	removed := 0
	for key := range b.days {
		if key >= cutoffDate {
			continue
		}
		delete(b.days, key)
		removed++
	}
	return removed
}

func clonePost(p domain.Post) domain.Post {
	p.ArxivIDs = cloneStrings(p.ArxivIDs)
	return p
}

func clonePaper(p domain.Paper) domain.Paper {
	p.Authors = cloneStrings(p.Authors)
	p.Categories = cloneStrings(p.Categories)
	p.MatchedKeywords = cloneStrings(p.MatchedKeywords)
	return p
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string{}, in...)
}
