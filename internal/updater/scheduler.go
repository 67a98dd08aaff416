package updater

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler fires the daily cycle at a fixed hour boundary. It relies on
// upsert semantics to stay safe against a manual trigger running at the same
// time: concurrent runs for the same (date, type) converge on last-write-wins.
type Scheduler struct {
	updater *Updater
	hour    int
	log     *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

// NewScheduler creates a scheduler that fires daily at the given hour (0-23).
func NewScheduler(u *Updater, hour int, log *slog.Logger) *Scheduler {
	return &Scheduler{updater: u, hour: hour, log: log, now: time.Now}
}

// Start launches the scheduling loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	go s.loop(ctx, stop)
	s.log.Info("scheduler started", slog.Int("hour", s.hour), slog.Time("next_run", s.NextRun()))
}

// Stop halts the scheduling loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
}

// Running reports whether the scheduling loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next fire time: the upcoming occurrence of the
// configured hour boundary.
func (s *Scheduler) NextRun() time.Time {
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *Scheduler) loop(ctx context.Context, stop chan struct{}) {
	for {
		timer := time.NewTimer(time.Until(s.NextRun()))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.Stop()
			return
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			if err := s.updater.RunCycle(ctx); err != nil {
				s.log.Error("scheduled cycle failed", slog.Any("err", err))
			}
		}
	}
}
