package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"ResearchBriefing/internal/config"
	"ResearchBriefing/internal/infrastructure/feeds"
	"ResearchBriefing/internal/infrastructure/llm"
	"ResearchBriefing/internal/infrastructure/parser"
	"ResearchBriefing/internal/infrastructure/scheduler"
	"ResearchBriefing/internal/infrastructure/slack"
	"ResearchBriefing/internal/infrastructure/storage"
	"ResearchBriefing/internal/infrastructure/telegram"
	"ResearchBriefing/internal/keywords"
	"ResearchBriefing/internal/logging"
	"ResearchBriefing/internal/metrics"
	"ResearchBriefing/internal/ports"
	"ResearchBriefing/internal/render"
	"ResearchBriefing/internal/scanner"
	"ResearchBriefing/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	backend ports.StateBackend
	store   *storage.Repository

	papers     ports.PaperSource
	blogs      ports.PostSource
	safety     ports.PostSource
	notifiers  []ports.Notifier
	overviewer ports.Overviewer

	clock func() time.Time
}

// New builds every adapter once. Invalid keyword patterns and unreachable state backends are errors.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	matcher, err := keywords.New(cfg.Keywords)
	if err != nil {
		return nil, fmt.Errorf("build keyword matcher: %w", err)
	}

	backend, err := storage.Open(storage.Options{
		Backend: cfg.State.Backend,
		Path:    cfg.State.Path,
		DSN:     cfg.State.DSN,
		Table:   cfg.State.Table,
		Name:    cfg.State.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("open state backend: %w", err)
	}
	store := storage.NewRepository(backend, cfg.StateRetention(), baseLogger.With("component", "storage"))

	httpClient := &http.Client{Timeout: 30 * time.Second}
	lookback := cfg.Retention.Lookback()

	registry := scanner.NewRegistry()
	registry.Register(parser.NewArxivAPIScanner(httpClient))
	registry.Register(parser.NewArxivListScanner(httpClient))

	a := &Application{
		cfg:     cfg,
		logger:  baseLogger,
		metrics: metrics.New(),
		backend: backend,
		store:   store,
		papers:  parser.NewStrategySource(registry, cfg.Sites, matcher, lookback, baseLogger.With("component", "source.papers")),
		blogs:   feeds.NewSource(httpClient, cfg.BlogFeeds, "blog", lookback, baseLogger.With("component", "source.blogs")),
		clock:   time.Now,
	}
	if len(cfg.SafetyFeeds) > 0 {
		a.safety = feeds.NewSource(httpClient, cfg.SafetyFeeds, "safety", lookback, baseLogger.With("component", "source.safety"))
	}

	if cfg.Notifications.Slack.Enabled() {
		a.notifiers = append(a.notifiers, slack.NewNotifier(cfg.Notifications.Slack, httpClient))
	}
	if cfg.Notifications.Telegram.Enabled() {
		a.notifiers = append(a.notifiers, telegram.NewNotifier(cfg.Notifications.Telegram, httpClient))
	}

	if cfg.LLM.Enabled() {
		overviewer, err := llm.NewOverviewClient(cfg.LLM)
		if err != nil {
			baseLogger.Warn("llm overview disabled", "error", err)
		} else {
			a.overviewer = overviewer
		}
	}

	return a, nil
}

// Metrics exposes the instruments, mainly for tests.
func (a *Application) Metrics() *metrics.Metrics { return a.metrics }

// Close releases the state backend.
func (a *Application) Close() error {
	if a.backend == nil {
		return nil
	}
	return a.backend.Close()
}

// Collect runs the collector once.
func (a *Application) Collect(ctx context.Context) error {
	logger, _ := logging.ForRun(a.logger, "collect")
	collector := usecase.NewCollector(usecase.CollectorDeps{
		Store:   a.store,
		Papers:  a.papers,
		Blogs:   a.blogs,
		Safety:  a.safety,
		Metrics: a.metrics,
		Logger:  logger.With("component", "collector"),
		Clock:   a.clock,
	})
	_, err := collector.Run(ctx)
	return err
}

// Brief runs the briefer once.
func (a *Application) Brief(ctx context.Context) error {
	logger, _ := logging.ForRun(a.logger, "brief")
	briefer := usecase.NewBriefer(usecase.BrieferDeps{
		Store:      a.store,
		Notifiers:  a.notifiers,
		Overviewer: a.overviewer,
		Render: render.Options{
			Location:   a.cfg.Timezone.Location(),
			Categories: a.cfg.ArxivCategories(),
			Lookback:   a.cfg.Retention.Lookback(),
		},
		OutputDir: a.cfg.Output.Dir,
		Metrics:   a.metrics,
		Logger:    logger.With("component", "briefer"),
		Clock:     a.clock,
	})
	_, err := briefer.Run(ctx)
	return err
}

// Serve runs the daemon until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	logger, _ := logging.ForRun(a.logger, "serve")

	if a.cfg.Metrics.Listen != "" {
		srv := &http.Server{
			Addr:              a.cfg.Metrics.Listen,
			Handler:           a.metricsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("metrics listening", "addr", a.cfg.Metrics.Listen)
	}

	hour, minute := a.cfg.Scheduler.BriefClock()
	daemon := usecase.NewScheduler(
		scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval(), true),
		scheduler.NewDailyScheduler(hour, minute, a.cfg.Timezone.Location()),
		a.Collect,
		a.Brief,
		logger.With("component", "daemon"),
	)
	return daemon.Run(ctx)
}

func (a *Application) metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok\n")
	})
	return mux
}
