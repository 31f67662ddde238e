package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ResearchBriefing/internal/ports"
	"ResearchBriefing/internal/state"
)

// Repository turns backend documents into state aggregates.
// Load never fails: a missing, unreadable or corrupt document yields an empty state.
type Repository struct {
	backend   ports.StateBackend
	retention state.Retention
	logger    *slog.Logger
}

var _ ports.StateStore = (*Repository)(nil)

// NewRepository wires a backend with the retention horizons loaded states use.
func NewRepository(backend ports.StateBackend, retention state.Retention, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{backend: backend, retention: retention, logger: logger}
}

// Load reads and decodes the persisted state, upgrading older documents.
func (r *Repository) Load(ctx context.Context, now time.Time) *state.State {
	data, err := r.backend.Read(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		r.logger.Info("no persisted state, starting empty")
		return state.New(r.retention)
	case err != nil:
		r.logger.Warn("state backend unavailable, starting empty", "error", err)
		return state.New(r.retention)
	}

	s, err := state.Decode(data, r.retention, now)
	if err != nil {
		r.logger.Warn("state document corrupt, starting empty", "error", err, "bytes", len(data))
		return state.New(r.retention)
	}

	for _, upgrade := range s.Upgrades() {
		r.logger.Info("state document upgraded", "upgrade", upgrade)
	}
	r.logger.Debug("state loaded",
		"notified_papers", s.NotifiedPapers().Len(),
		"notified_posts", s.NotifiedPosts().Len(),
		"links", s.Links().Len(),
		"buffered", s.Buffer().Len(),
	)
	return s
}

// Save encodes and writes the whole state.
func (r *Repository) Save(ctx context.Context, s *state.State) error {
	data, err := state.Encode(s)
	if err != nil {
		return err
	}
	if err := r.backend.Write(ctx, data); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
