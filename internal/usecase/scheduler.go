package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ResearchBriefing/internal/ports"
)

// Job is one phase the daemon can trigger.
type Job func(ctx context.Context) error

type trigger struct {
	name string
	job  Job
	at   time.Time
}

// Scheduler wires the collect and brief drivers to the use cases.
// Triggered jobs run one at a time on the goroutine that called Run.
type Scheduler struct {
	collectDriver ports.Scheduler
	briefDriver   ports.Scheduler
	collect       Job
	brief         Job
	logger        *slog.Logger
}

// NewScheduler returns the daemon loop. Either driver may be nil to disable its phase.
func NewScheduler(collectDriver, briefDriver ports.Scheduler, collect, brief Job, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		collectDriver: collectDriver,
		briefDriver:   briefDriver,
		collect:       collect,
		brief:         brief,
		logger:        logger,
	}
}

// Run blocks until ctx is cancelled, executing triggered jobs sequentially.
// Job errors are logged; the daemon keeps running.
func (s *Scheduler) Run(ctx context.Context) error {
	triggers := make(chan trigger)
	enqueue := func(name string, job Job) func(time.Time) {
		return func(at time.Time) {
			select {
			case triggers <- trigger{name: name, job: job, at: at}:
			case <-ctx.Done():
			}
		}
	}

	var started []ports.Scheduler
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, d := range started {
			if err := d.Stop(stopCtx); err != nil {
				s.logger.Warn("stop scheduler", "error", err)
			}
		}
	}()

	if s.collectDriver != nil && s.collect != nil {
		if err := s.collectDriver.Start(ctx, enqueue("collect", s.collect)); err != nil {
			return err
		}
		started = append(started, s.collectDriver)
	}
	if s.briefDriver != nil && s.brief != nil {
		if err := s.briefDriver.Start(ctx, enqueue("brief", s.brief)); err != nil {
			return err
		}
		started = append(started, s.briefDriver)
	}
	if len(started) == 0 {
		return errors.New("scheduler: nothing to run")
	}

	s.logger.Info("daemon started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("daemon stopping")
			return nil
		case tr := <-triggers:
			s.logger.Info("job triggered", "job", tr.name, "at", tr.at)
			if err := tr.job(ctx); err != nil {
				s.logger.Error("job failed", "job", tr.name, "error", err)
			}
		}
	}
}
