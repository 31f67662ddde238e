package scheduler

import (
	"context"
	"sync"
	"time"

	"ResearchBriefing/internal/ports"
)

// loop owns the goroutine shared by both drivers.
type loop struct {
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func (l *loop) start(run func(stop <-chan struct{})) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop != nil {
		return false
	}
	stop, done := make(chan struct{}), make(chan struct{})
	l.stop, l.done = stop, done
	go func() {
		defer close(done)
		run(stop)
	}()
	return true
}

// halt signals the goroutine and waits for it, or for ctx.
func (l *loop) halt(ctx context.Context) error {
	l.mu.Lock()
	stop, done := l.stop, l.done
	l.stop, l.done = nil, nil
	l.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IntervalScheduler fires a job at a fixed period using time.Ticker.
type IntervalScheduler struct {
	every     time.Duration
	immediate bool
	loop      loop
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler fires every period; immediate also fires once on Start.
func NewIntervalScheduler(every time.Duration, immediate bool) *IntervalScheduler {
	if every <= 0 {
		every = time.Hour
	}
	return &IntervalScheduler{every: every, immediate: immediate}
}

// Start begins ticking. A second Start before Stop is a no-op.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	s.loop.start(func(stop <-chan struct{}) {
		ticker := time.NewTicker(s.every)
		defer ticker.Stop()
		if s.immediate {
			job(time.Now())
		}
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	})
	return nil
}

// Stop halts the ticker goroutine and waits for it to exit.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	return s.loop.halt(ctx)
}

// DailyScheduler fires a job once a day at a wall-clock time in a zone.
type DailyScheduler struct {
	hour, minute int
	location     *time.Location
	now          func() time.Time
	loop         loop
}

var _ ports.Scheduler = (*DailyScheduler)(nil)

// NewDailyScheduler fires every day at hour:minute in loc.
func NewDailyScheduler(hour, minute int, loc *time.Location) *DailyScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyScheduler{hour: hour, minute: minute, location: loc, now: time.Now}
}

// Next returns the first firing strictly after t.
func (s *DailyScheduler) Next(t time.Time) time.Time {
	local := t.In(s.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start waits for each daily firing. A second Start before Stop is a no-op.
func (s *DailyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	s.loop.start(func(stop <-chan struct{}) {
		target := s.Next(s.now())
		for {
			timer := time.NewTimer(target.Sub(s.now()))
			select {
			case t := <-timer.C:
				job(t)
				target = s.following(target, s.now())
			case <-ctx.Done():
				timer.Stop()
				return
			case <-stop:
				timer.Stop()
				return
			}
		}
	})
	return nil
}

// following returns the firing after target. Stepping from target keeps a lagging
// wall clock from repeating a day. Firings already in the past are skipped.
func (s *DailyScheduler) following(target, now time.Time) time.Time {
	next := s.Next(target)
	if !next.After(now) {
		next = s.Next(now)
	}
	return next
}

// Stop halts the timer goroutine and waits for it to exit.
func (s *DailyScheduler) Stop(ctx context.Context) error {
	return s.loop.halt(ctx)
}
