package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ResearchBriefing/internal/metrics"
	"ResearchBriefing/internal/ports"
	"ResearchBriefing/internal/render"
	"ResearchBriefing/internal/state"
)

// ErrNoNotifier is returned when a briefing has nowhere to go.
var ErrNoNotifier = errors.New("no notifier configured")

// BrieferDeps wires the driven adapters of a briefer run.
type BrieferDeps struct {
	Store      ports.StateStore
	Notifiers  []ports.Notifier
	Overviewer ports.Overviewer
	Render     render.Options
	OutputDir  string
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Briefer turns the buffered items into a briefing and acknowledges them once delivered.
type Briefer struct {
	store      ports.StateStore
	notifiers  []ports.Notifier
	overviewer ports.Overviewer
	render     render.Options
	outputDir  string
	metrics    *metrics.Metrics
	logger     *slog.Logger
	clock      func() time.Time
}

// BriefReport summarises one briefer run.
type BriefReport struct {
	Date      string
	Items     int
	Archive   []string
	Delivered []string
}

// NewBriefer constructs the briefing use case.
func NewBriefer(deps BrieferDeps) *Briefer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Briefer{
		store:      deps.Store,
		notifiers:  deps.Notifiers,
		overviewer: deps.Overviewer,
		render:     deps.Render,
		outputDir:  deps.OutputDir,
		metrics:    deps.Metrics,
		logger:     logger,
		clock:      clock,
	}
}

// Run peeks the buffer, delivers the briefing and commits only when every notifier succeeded.
func (b *Briefer) Run(ctx context.Context) (BriefReport, error) {
	if b.store == nil {
		return BriefReport{}, fmt.Errorf("briefer: no state store")
	}
	started := b.clock()

	st := b.store.Load(ctx, started)
	snap := st.Peek()
	digest := snap.Digest()

	briefing := render.Build(digest, started, b.render)
	report := BriefReport{Date: briefing.Date, Items: digest.Total()}
	b.logger.Info("briefing built", "date", briefing.Date, "items", report.Items, "buckets", snap.Dates())

	if b.overviewer != nil && !digest.Empty() {
		overview, err := b.overviewer.Overview(ctx, digest)
		if err != nil {
			b.logger.Warn("overview skipped", "error", err)
		} else {
			briefing.Overview = overview
		}
	}

	if err := render.Attach(briefing); err != nil {
		return report, b.abort(snap, fmt.Errorf("render attachments: %w", err))
	}
	if b.outputDir != "" {
		paths, err := render.WriteArchive(b.outputDir, briefing)
		if err != nil {
			return report, b.abort(snap, err)
		}
		report.Archive = paths
		b.logger.Info("briefing archived", "files", paths)
	}

	if len(b.notifiers) == 0 {
		return report, b.abort(snap, ErrNoNotifier)
	}

	var errs []error
	for _, n := range b.notifiers {
		if err := n.Publish(ctx, briefing); err != nil {
			b.logger.Error("delivery failed", "notifier", n.Name(), "error", err)
			errs = append(errs, fmt.Errorf("publish %s: %w", n.Name(), err))
			continue
		}
		report.Delivered = append(report.Delivered, n.Name())
		b.logger.Info("briefing delivered", "notifier", n.Name())
	}
	if err := errors.Join(errs...); err != nil {
		return report, b.abort(snap, err)
	}

	if err := snap.Commit(); err != nil {
		return report, fmt.Errorf("commit buffer: %w", err)
	}
	if err := b.store.Save(ctx, st); err != nil {
		return report, err
	}

	b.metrics.Briefing(metrics.ResultSent)
	b.metrics.BufferSize(st.Buffer().Len())
	b.metrics.ObserveRun("brief", b.clock().Sub(started).Seconds())
	b.logger.Info("buffer acknowledged", "items", report.Items)
	return report, nil
}

// abort keeps the buffer for the next run and surfaces err.
func (b *Briefer) abort(snap *state.Snapshot, err error) error {
	_ = snap.Discard()
	b.metrics.Briefing(metrics.ResultFailed)
	b.logger.Warn("briefing not acknowledged, buffer kept", "error", err)
	return err
}
