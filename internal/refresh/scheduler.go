// Package refresh drives section auto-refresh: a recurring timer that, on
// each tick, dispatches the refresh operation registered for the currently
// visible section. Cycles never overlap; disabling deterministically stops
// the timer.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// LoaderFunc performs one refresh of a section. It blocks until the section's
// data has been fetched and published, or fails.
type LoaderFunc func(ctx context.Context) error

// Notifier surfaces refresh failures as non-blocking user-visible
// notifications. May be nil.
type Notifier interface {
	Notify(message string)
}

// Recorder persists refresh outcomes to the session log. May be nil.
type Recorder interface {
	RecordRefresh(ctx context.Context, section string, err error, elapsed time.Duration)
}

// Scheduler is the two-state auto-refresh machine. Disabled (initial): no
// timer exists. Enabled: a recurring timer dispatches one refresh per tick,
// plus one immediately on enabling. Section switches redirect the next tick
// without restarting the timer.
type Scheduler struct {
	interval time.Duration
	notifier Notifier
	recorder Recorder
	log      *slog.Logger

	mu       sync.Mutex
	loaders  map[string]LoaderFunc
	section  string
	inFlight bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a disabled scheduler with the given tick interval.
// notifier and recorder may be nil.
func NewScheduler(interval time.Duration, notifier Notifier, recorder Recorder, log *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 32 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		interval: interval,
		notifier: notifier,
		recorder: recorder,
		log:      log,
		loaders:  make(map[string]LoaderFunc),
	}
}

// Register binds a section name to its refresh operation. Sections form a
// lookup table, so adding one never touches dispatch logic.
func (s *Scheduler) Register(section string, fn LoaderFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaders[section] = fn
}

// SetSection records which section is currently visible. While enabled, the
// next tick dispatches the new section's loader; the timer keeps running.
func (s *Scheduler) SetSection(section string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.section = section
}

// Section returns the current dispatch target.
func (s *Scheduler) Section() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.section
}

// Enabled reports whether the timer is installed.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Enable installs the recurring timer and dispatches one refresh
// immediately. A no-op when already enabled.
func (s *Scheduler) Enable(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	s.log.Info("auto-refresh enabled", "interval", s.interval)
	go s.run(ctx, done)
}

// Disable clears the timer and waits for the run loop to exit. Loaders
// receive the cancelled context, so an in-flight cycle is told to stop; no
// tick fires after Disable returns. A no-op when already disabled.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done
	s.log.Info("auto-refresh disabled")
}

// run dispatches once immediately, then once per tick, until cancelled.
// Cycles run off the loop goroutine so a slow refresh never delays tick
// observation; the in-flight guard in dispatch makes such ticks skips.
func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	launch := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.dispatch(ctx)
		}()
	}

	launch()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			launch()
		}
	}
}

// dispatch runs one refresh cycle for the current section. A tick that
// arrives while the previous cycle is still in flight is skipped: overlapping
// refreshes for the same surface are a correctness bug, not extra freshness.
func (s *Scheduler) dispatch(ctx context.Context) {
	s.mu.Lock()
	if s.inFlight {
		section := s.section
		s.mu.Unlock()
		s.log.Debug("refresh tick skipped, previous cycle in flight", "section", section)
		return
	}
	s.inFlight = true
	section := s.section
	fn := s.loaders[section]
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	if fn == nil {
		s.log.Warn("no refresh registered for section", "section", section)
		return
	}

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if s.recorder != nil {
		s.recorder.RecordRefresh(ctx, section, err, elapsed)
	}

	if err != nil {
		if ctx.Err() != nil {
			// Teardown, not a failure worth surfacing.
			return
		}
		s.log.Warn("refresh failed", "section", section, "elapsed", elapsed, "error", err)
		if s.notifier != nil {
			s.notifier.Notify(fmt.Sprintf("refresh of %s failed: %v", section, err))
		}
		return
	}

	s.log.Debug("refresh completed", "section", section, "elapsed", elapsed)
}
