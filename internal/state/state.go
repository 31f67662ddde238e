// Package state implements the dedup and buffering engine shared by the collect and brief runs.
//
// A State is loaded once per run, mutated in memory and written back as a single document.
// It is not safe for concurrent use; callers merge fetched items sequentially.
package state

import (
	"time"

	"ResearchBriefing/internal/domain"
)

// SchemaVersion is the persisted document version written by Encode.
const SchemaVersion = 2

// State is the root aggregate: two notified sets, the cross-reference map and the daily buffer.
type State struct {
	papers *NotifiedSet
	posts  *NotifiedSet
	links  *LinkMap
	buffer *Buffer

	retention Retention
	upgrades  []string
}

// New returns an empty state governed by the given retention horizons.
func New(r Retention) *State {
	return &State{
		papers:    newNotifiedSet(),
		posts:     newNotifiedSet(),
		links:     newLinkMap(),
		buffer:    newBuffer(),
		retention: r,
	}
}

// Retention exposes the horizons the state prunes with.
func (s *State) Retention() Retention { return s.retention }

// NotifiedPapers is the paper-id dedup guard.
func (s *State) NotifiedPapers() *NotifiedSet { return s.papers }

// NotifiedPosts is the post-URL dedup guard.
func (s *State) NotifiedPosts() *NotifiedSet { return s.posts }

// Links is the pending cross-reference map.
func (s *State) Links() *LinkMap { return s.links }

// Buffer is the date-keyed staging area.
func (s *State) Buffer() *Buffer { return s.buffer }

// Upgrades lists format migrations applied while decoding.
func (s *State) Upgrades() []string { return append([]string(nil), s.upgrades...) }

// DateKey is the buffer bucket that items collected at now land in.
func (s *State) DateKey(now time.Time) string {
	return DateKey(now, s.retention.location())
}

// FilterNewPapers keeps papers whose id was never notified, dropping repeats within the batch.
func (s *State) FilterNewPapers(papers []domain.Paper) []domain.Paper {
	seen := make(map[string]struct{}, len(papers))
	out := make([]domain.Paper, 0, len(papers))
	for _, p := range papers {
		if p.ID == "" || !s.papers.IsNew(p.ID) {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// FilterNewPosts keeps posts whose URL was never notified, dropping repeats within the batch.
func (s *State) FilterNewPosts(posts []domain.Post) []domain.Post {
	seen := make(map[string]struct{}, len(posts))
	out := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if p.URL == "" || !s.posts.IsNew(p.URL) {
			continue
		}
		if _, dup := seen[p.URL]; dup {
			continue
		}
		seen[p.URL] = struct{}{}
		out = append(out, p)
	}
	return out
}

// MarkPapersNotified stamps paper ids with now and runs the pruning pass.
func (s *State) MarkPapersNotified(ids []string, now time.Time) PruneReport {
	s.papers.mark(ids, FormatTimestamp(now))
	return s.Prune(now)
}

// MarkPostsNotified stamps post URLs, records the paper ids each post mentions and prunes
// posts, links and the buffer. The paper set is not touched.
func (s *State) MarkPostsNotified(posts []domain.Post, now time.Time) PruneReport {
	stamp := FormatTimestamp(now)
	for _, p := range posts {
		if p.URL == "" {
			continue
		}
		s.posts.mark([]string{p.URL}, stamp)
		s.links.record(p, p.ArxivIDs, stamp)
	}
	return s.prunePosts(now)
}

// RecordLinks remembers that post mentioned each paper id, then prunes posts, links and the buffer.
func (s *State) RecordLinks(post domain.Post, paperIDs []string, now time.Time) int {
	n := s.links.record(post, paperIDs, FormatTimestamp(now))
	s.prunePosts(now)
	return n
}

// LookupLink returns the post that announced paperID, if any.
func (s *State) LookupLink(paperID string) (domain.LinkInfo, bool) {
	return s.links.Lookup(paperID)
}

// ConsumeLink removes the cross-reference for paperID. Absent ids are ignored.
func (s *State) ConsumeLink(paperID string) {
	s.links.consume(paperID)
}

// BufferPosts appends blog posts to today's bucket and returns how many were new.
func (s *State) BufferPosts(posts []domain.Post, now time.Time) int {
	return s.buffer.appendPosts(s.DateKey(now), posts, false)
}

// BufferSafetyPosts appends safety posts to today's bucket.
func (s *State) BufferSafetyPosts(posts []domain.Post, now time.Time) int {
	return s.buffer.appendPosts(s.DateKey(now), posts, true)
}

// BufferPapers appends keyword-matched papers to today's bucket.
func (s *State) BufferPapers(papers []domain.Paper, now time.Time) int {
	return s.buffer.appendPapers(s.DateKey(now), papers)
}

// BufferLinked appends merged paper + post items to today's bucket.
func (s *State) BufferLinked(items []domain.LinkedPaper, now time.Time) int {
	return s.buffer.appendLinked(s.DateKey(now), items)
}
