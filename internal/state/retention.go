package state

import "time"

// Retention holds the three independent pruning horizons.
type Retention struct {
	// PaperHorizon bounds the paper notified set (lookback window plus safety margin).
	PaperHorizon time.Duration
	// PostHorizon bounds the post notified set and the cross-reference map.
	PostHorizon time.Duration
	// BufferDays bounds how many calendar days of buffer buckets survive.
	BufferDays int
	// Location is the fixed-offset zone used for buffer date keys.
	Location *time.Location
}

// DefaultRetention mirrors the production defaults: 48h lookback + 24h margin, 30 days, 3 days, UTC+9.
func DefaultRetention() Retention {
	return Retention{
		PaperHorizon: 72 * time.Hour,
		PostHorizon:  30 * 24 * time.Hour,
		BufferDays:   3,
		Location:     time.FixedZone("JST", 9*60*60),
	}
}

func (r Retention) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// PruneReport counts entries removed by one pruning pass.
type PruneReport struct {
	Papers int
	Posts  int
	Links  int
	Days   int
}

// Total sums every pruned entry.
func (p PruneReport) Total() int {
	return p.Papers + p.Posts + p.Links + p.Days
}

// Prune drops everything older than its horizon, measured from now.
// Timestamped entries survive only when strictly newer than the cutoff;
// buffer buckets survive when their date is on or after the cutoff date.
func (s *State) Prune(now time.Time) PruneReport {
	report := s.prunePosts(now)
	report.Papers = s.papers.prune(FormatTimestamp(now.Add(-s.retention.PaperHorizon)))
	return report
}

// prunePosts is the pass run by post marking. It leaves the paper set alone,
// which only changes when papers are marked.
func (s *State) prunePosts(now time.Time) PruneReport {
	postCutoff := FormatTimestamp(now.Add(-s.retention.PostHorizon))
	bufferCutoff := DateKey(now.AddDate(0, 0, -s.retention.BufferDays), s.retention.location())

	return PruneReport{
		Posts: s.posts.prune(postCutoff),
		Links: s.links.prune(postCutoff),
		Days:  s.buffer.prune(bufferCutoff),
	}
}
