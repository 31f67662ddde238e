package state

import "ResearchBriefing/internal/domain"

// LinkMap tracks papers announced by a post before the paper itself showed up.
type LinkMap struct {
	entries map[string]domain.LinkInfo
}

func newLinkMap() *LinkMap {
	return &LinkMap{entries: map[string]domain.LinkInfo{}}
}

// Len reports the number of pending cross-references.
func (l *LinkMap) Len() int {
	return len(l.entries)
}

// Lookup returns the pending cross-reference for a paper id.
func (l *LinkMap) Lookup(paperID string) (domain.LinkInfo, bool) {
	info, ok := l.entries[paperID]
	return info, ok
}

// record overwrites any previous mention: the latest post wins.
func (l *LinkMap) record(post domain.Post, paperIDs []string, stamp string) int {
	recorded := 0
	for _, id := range paperIDs {
		if id == "" {
			continue
		}
		l.entries[id] = domain.LinkInfo{
			BlogURL:    post.URL,
			BlogTitle:  post.Title,
			BlogSource: post.Source,
			AddedAt:    stamp,
		}
		recorded++
	}
	return recorded
}

func (l *LinkMap) consume(paperID string) {
	delete(l.entries, paperID)
}

func (l *LinkMap) prune(cutoff string) int {
	removed := 0
	for id, info := range l.entries {
		if info.AddedAt > cutoff {
			continue
		}
		delete(l.entries, id)
		removed++
	}
	return removed
}

// MergeLinked splits papers into those announced by an earlier post and the rest.
// Every matched cross-reference is consumed so it cannot produce a second linked item.
func (s *State) MergeLinked(papers []domain.Paper) ([]domain.LinkedPaper, []domain.Paper) {
	var (
		linked []domain.LinkedPaper
		plain  []domain.Paper
	)
	for _, p := range papers {
		info, ok := s.links.Lookup(p.ID)
		if !ok {
			plain = append(plain, p)
			continue
		}
		linked = append(linked, domain.LinkedPaper{Paper: p, Link: info})
		s.links.consume(p.ID)
	}
	return linked, plain
}
