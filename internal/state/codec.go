package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"ResearchBriefing/internal/domain"
)

type document struct {
	Version          int                        `json:"version"`
	NotifiedIDs      json.RawMessage            `json:"notified_ids"`
	NotifiedBlogURLs json.RawMessage            `json:"notified_blog_urls"`
	BlogArxivMap     map[string]domain.LinkInfo `json:"blog_arxiv_map"`
	DailyBuffer      map[string]*DayBucket      `json:"daily_buffer"`
}

type encodedDocument struct {
	Version          int                        `json:"version"`
	NotifiedIDs      *NotifiedSet               `json:"notified_ids"`
	NotifiedBlogURLs *NotifiedSet               `json:"notified_blog_urls"`
	BlogArxivMap     map[string]domain.LinkInfo `json:"blog_arxiv_map"`
	DailyBuffer      map[string]*DayBucket      `json:"daily_buffer"`
}

// Decode parses a persisted document and upgrades older layouts in place.
// Keys stored as a plain list (version 1) receive now as their notified timestamp.
func Decode(data []byte, r Retention, now time.Time) (*State, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode state document: %w", err)
	}

	s := New(r)
	stamp := FormatTimestamp(now)

	papers, migrated, err := decodeNotified(doc.NotifiedIDs, stamp)
	if err != nil {
		return nil, fmt.Errorf("decode notified_ids: %w", err)
	}
	if migrated {
		s.upgrades = append(s.upgrades, "notified_ids: list -> map")
	}
	s.papers = papers

	posts, migrated, err := decodeNotified(doc.NotifiedBlogURLs, stamp)
	if err != nil {
		return nil, fmt.Errorf("decode notified_blog_urls: %w", err)
	}
	if migrated {
		s.upgrades = append(s.upgrades, "notified_blog_urls: list -> map")
	}
	s.posts = posts

	for id, info := range doc.BlogArxivMap {
		s.links.entries[id] = info
	}
	for key, day := range doc.DailyBuffer {
		if day == nil {
			day = newDayBucket()
		}
		day.normalize()
		s.buffer.days[key] = day
	}

	if doc.Version < SchemaVersion {
		s.upgrades = append(s.upgrades, fmt.Sprintf("schema v%d -> v%d", doc.Version, SchemaVersion))
	}

	return s, nil
}

func decodeNotified(raw json.RawMessage, stamp string) (*NotifiedSet, bool, error) {
	set := newNotifiedSet()
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return set, false, nil
	}

	if trimmed[0] == '[' {
		var keys []string
		if err := json.Unmarshal(trimmed, &keys); err != nil {
			return nil, false, err
		}
		set.mark(keys, stamp)
		return set, true, nil
	}

	var entries map[string]string
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, false, err
	}
	for k, ts := range entries {
		set.entries[k] = ts
	}
	return set, false, nil
}

// Encode renders the state as an indented document terminated by a newline.
func Encode(s *State) ([]byte, error) {
	doc := encodedDocument{
		Version:          SchemaVersion,
		NotifiedIDs:      s.papers,
		NotifiedBlogURLs: s.posts,
		BlogArxivMap:     s.links.entries,
		DailyBuffer:      s.buffer.days,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode state document: %w", err)
	}
	return buf.Bytes(), nil
}
