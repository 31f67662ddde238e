package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ResearchBriefing/internal/domain"
	"ResearchBriefing/internal/metrics"
	"ResearchBriefing/internal/ports"
)

// Source names used in logs and the source_failures metric.
const (
	SourceBlogs  = "blogs"
	SourceSafety = "safety"
	SourcePapers = "papers"
)

// CollectorDeps wires the driven adapters of a collector run.
type CollectorDeps struct {
	Store   ports.StateStore
	Papers  ports.PaperSource
	Blogs   ports.PostSource
	Safety  ports.PostSource
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Clock   func() time.Time
}

// Collector fetches fresh items and appends them to the daily buffer.
type Collector struct {
	store   ports.StateStore
	papers  ports.PaperSource
	blogs   ports.PostSource
	safety  ports.PostSource
	metrics *metrics.Metrics
	logger  *slog.Logger
	clock   func() time.Time
}

// CollectReport summarises one collector run.
type CollectReport struct {
	Posts        int
	SafetyPosts  int
	Papers       int
	Linked       int
	FailedSource []string
	Pruned       int
	Buffered     int
}

// NewCollector constructs the collection use case.
func NewCollector(deps CollectorDeps) *Collector {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Collector{
		store:   deps.Store,
		papers:  deps.Papers,
		blogs:   deps.Blogs,
		safety:  deps.Safety,
		metrics: deps.Metrics,
		logger:  logger,
		clock:   clock,
	}
}

type fetchResult struct {
	posts  []domain.Post
	safety []domain.Post
	papers []domain.Paper

	postsErr  error
	safetyErr error
	papersErr error
}

// Run performs one collection pass. Source failures degrade the run; only a failed save is returned.
func (c *Collector) Run(ctx context.Context) (CollectReport, error) {
	if c.store == nil {
		return CollectReport{}, fmt.Errorf("collector: no state store")
	}
	started := c.clock()
	now := started

	st := c.store.Load(ctx, now)
	res := c.fetch(ctx, now)

	var report CollectReport
	bufferedBefore := st.Buffer().Len()

	// Posts go first so cross-references they record are visible to the paper pass.
	if res.postsErr == nil {
		c.dropMissingPostKeys(res.posts)
		fresh := st.FilterNewPosts(res.posts)
		c.metrics.ItemsDropped(metrics.ReasonAlreadySeen, countPostKeys(res.posts)-len(fresh))
		report.Pruned += st.MarkPostsNotified(fresh, now).Total()
		report.Posts = st.BufferPosts(fresh, now)
		c.metrics.ItemsBuffered(string(domain.CategoryPosts), report.Posts)
	} else {
		report.FailedSource = append(report.FailedSource, c.sourceFailed(SourceBlogs, res.postsErr))
	}

	if res.safetyErr == nil {
		c.dropMissingPostKeys(res.safety)
		fresh := st.FilterNewPosts(res.safety)
		c.metrics.ItemsDropped(metrics.ReasonAlreadySeen, countPostKeys(res.safety)-len(fresh))
		report.Pruned += st.MarkPostsNotified(fresh, now).Total()
		report.SafetyPosts = st.BufferSafetyPosts(fresh, now)
		c.metrics.ItemsBuffered(string(domain.CategorySafetyPosts), report.SafetyPosts)
	} else {
		report.FailedSource = append(report.FailedSource, c.sourceFailed(SourceSafety, res.safetyErr))
	}

	// A failed paper fetch leaves the notified paper set untouched.
	if res.papersErr == nil {
		missing := 0
		for _, p := range res.papers {
			if p.ID == "" {
				missing++
			}
		}
		c.metrics.ItemsDropped(metrics.ReasonMissingKey, missing)

		fresh := st.FilterNewPapers(res.papers)
		c.metrics.ItemsDropped(metrics.ReasonAlreadySeen, len(res.papers)-missing-len(fresh))

		linked, plain := st.MergeLinked(fresh)
		report.Linked = st.BufferLinked(linked, now)
		report.Papers = st.BufferPapers(plain, now)
		c.metrics.ItemsBuffered(string(domain.CategoryLinked), report.Linked)
		c.metrics.ItemsBuffered(string(domain.CategoryPapers), report.Papers)

		ids := make([]string, 0, len(fresh))
		for _, p := range fresh {
			ids = append(ids, p.ID)
		}
		report.Pruned += st.MarkPapersNotified(ids, now).Total()
	} else {
		report.FailedSource = append(report.FailedSource, c.sourceFailed(SourcePapers, res.papersErr))
	}

	if err := c.store.Save(ctx, st); err != nil {
		return report, err
	}

	report.Buffered = st.Buffer().Len()
	c.metrics.BufferSize(report.Buffered)
	c.metrics.ObserveRun("collect", c.clock().Sub(started).Seconds())

	c.logger.Info("collection finished",
		"posts", report.Posts,
		"safety_posts", report.SafetyPosts,
		"papers", report.Papers,
		"linked", report.Linked,
		"buffered_before", bufferedBefore,
		"buffered", report.Buffered,
		"pruned", report.Pruned,
		"failed_sources", report.FailedSource,
	)
	return report, nil
}

func (c *Collector) fetch(ctx context.Context, now time.Time) fetchResult {
	var (
		res fetchResult
		wg  sync.WaitGroup
	)

	if c.blogs != nil {
		wg.Go(func() { res.posts, res.postsErr = c.blogs.FetchPosts(ctx, now) })
	}
	if c.safety != nil {
		wg.Go(func() { res.safety, res.safetyErr = c.safety.FetchPosts(ctx, now) })
	}
	if c.papers != nil {
		wg.Go(func() { res.papers, res.papersErr = c.papers.FetchPapers(ctx, now) })
	}
	wg.Wait()
	return res
}

func (c *Collector) sourceFailed(source string, err error) string {
	c.logger.Warn("source failed", "source", source, "error", err)
	c.metrics.SourceFailed(source)
	return source
}

func (c *Collector) dropMissingPostKeys(posts []domain.Post) {
	c.metrics.ItemsDropped(metrics.ReasonMissingKey, len(posts)-countPostKeys(posts))
}

func countPostKeys(posts []domain.Post) int {
	n := 0
	for _, p := range posts {
		if p.URL != "" {
			n++
		}
	}
	return n
}
