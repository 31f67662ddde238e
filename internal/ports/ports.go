package ports

import (
	"context"
	"time"

	"ResearchBriefing/internal/domain"
	"ResearchBriefing/internal/render"
	"ResearchBriefing/internal/state"
)

// PaperSource pulls keyword-matched papers published inside the lookback window.
type PaperSource interface {
	FetchPapers(ctx context.Context, now time.Time) ([]domain.Paper, error)
}

// PostSource pulls recent posts from a group of feeds (company blogs, safety blogs).
type PostSource interface {
	FetchPosts(ctx context.Context, now time.Time) ([]domain.Post, error)
}

// StateBackend stores the raw persisted state document.
type StateBackend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, document []byte) error
	Close() error
}

// StateStore loads and saves the whole state aggregate once per run.
type StateStore interface {
	Load(ctx context.Context, now time.Time) *state.State
	Save(ctx context.Context, s *state.State) error
}

// Notifier delivers a rendered briefing to one outbound channel.
type Notifier interface {
	Name() string
	Publish(ctx context.Context, briefing *render.Briefing) error
}

// Overviewer writes a short LLM overview paragraph for a digest.
type Overviewer interface {
	Overview(ctx context.Context, digest domain.Digest) (string, error)
}

// Scheduler controls when jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
