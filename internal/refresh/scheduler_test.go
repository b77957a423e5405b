package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingLoader struct {
	calls atomic.Int64
	err   error
	block chan struct{} // if non-nil, calls wait on it
}

func (l *countingLoader) fn(ctx context.Context) error {
	if l.block != nil {
		select {
		case <-l.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	l.calls.Add(1)
	return l.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestEnableDispatchesImmediately(t *testing.T) {
	loader := &countingLoader{}
	// Long interval: only the immediate dispatch can account for a call.
	s := NewScheduler(time.Hour, nil, nil, nil)
	s.Register("signals", loader.fn)
	s.SetSection("signals")

	s.Enable(context.Background())
	defer s.Disable()

	waitFor(t, func() bool { return loader.calls.Load() == 1 })
}

func TestTicksDispatchRepeatedly(t *testing.T) {
	loader := &countingLoader{}
	s := NewScheduler(5*time.Millisecond, nil, nil, nil)
	s.Register("signals", loader.fn)
	s.SetSection("signals")

	s.Enable(context.Background())
	waitFor(t, func() bool { return loader.calls.Load() >= 3 })
	s.Disable()
}

func TestDisableStopsTicking(t *testing.T) {
	loader := &countingLoader{}
	s := NewScheduler(5*time.Millisecond, nil, nil, nil)
	s.Register("signals", loader.fn)
	s.SetSection("signals")

	s.Enable(context.Background())
	waitFor(t, func() bool { return loader.calls.Load() >= 1 })
	s.Disable()

	settled := loader.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if got := loader.calls.Load(); got != settled {
		t.Errorf("loader called %d times after Disable returned", got-settled)
	}
	if s.Enabled() {
		t.Error("Enabled() true after Disable")
	}
}

func TestEnableAndDisableAreIdempotent(t *testing.T) {
	loader := &countingLoader{}
	s := NewScheduler(time.Hour, nil, nil, nil)
	s.Register("signals", loader.fn)
	s.SetSection("signals")

	ctx := context.Background()
	s.Enable(ctx)
	s.Enable(ctx)
	waitFor(t, func() bool { return loader.calls.Load() >= 1 })

	// A second Enable must not have installed a second timer or dispatched a
	// second immediate refresh.
	time.Sleep(20 * time.Millisecond)
	if got := loader.calls.Load(); got != 1 {
		t.Errorf("loader called %d times after double Enable, want 1", got)
	}

	s.Disable()
	s.Disable()
}

func TestSectionSwitchRedirectsDispatch(t *testing.T) {
	signals := &countingLoader{}
	news := &countingLoader{}
	s := NewScheduler(5*time.Millisecond, nil, nil, nil)
	s.Register("signals", signals.fn)
	s.Register("news", news.fn)
	s.SetSection("signals")

	s.Enable(context.Background())
	waitFor(t, func() bool { return signals.calls.Load() >= 1 })

	s.SetSection("news")
	waitFor(t, func() bool { return news.calls.Load() >= 1 })
	s.Disable()

	if s.Section() != "news" {
		t.Errorf("Section() = %q, want news", s.Section())
	}
}

func TestOverlappingTickIsSkipped(t *testing.T) {
	loader := &countingLoader{block: make(chan struct{})}
	s := NewScheduler(5*time.Millisecond, nil, nil, nil)
	s.Register("signals", loader.fn)
	s.SetSection("signals")

	s.Enable(context.Background())
	// Several tick periods pass while the first cycle is parked; none of them
	// may start a second cycle.
	time.Sleep(50 * time.Millisecond)
	close(loader.block)
	waitFor(t, func() bool { return loader.calls.Load() >= 1 })
	s.Disable()

	if got := loader.calls.Load(); got > 3 {
		t.Errorf("loader completed %d cycles, expected ticks during the blocked window to be skipped", got)
	}
}

func TestFailureNotifiesAndKeepsTicking(t *testing.T) {
	loader := &countingLoader{err: errors.New("gateway down")}
	notifier := &fakeNotifier{}
	s := NewScheduler(5*time.Millisecond, notifier, nil, nil)
	s.Register("signals", loader.fn)
	s.SetSection("signals")

	s.Enable(context.Background())
	waitFor(t, func() bool { return loader.calls.Load() >= 3 })
	s.Disable()

	if notifier.count() < 1 {
		t.Error("no notification for failed refresh")
	}
}

type fakeRefreshRecorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *fakeRefreshRecorder) RecordRefresh(_ context.Context, section string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := "ok"
	if err != nil {
		status = "err"
	}
	r.entries = append(r.entries, section+":"+status)
}

func TestRefreshOutcomesRecorded(t *testing.T) {
	loader := &countingLoader{}
	rec := &fakeRefreshRecorder{}
	s := NewScheduler(time.Hour, nil, rec, nil)
	s.Register("news", loader.fn)
	s.SetSection("news")

	s.Enable(context.Background())
	waitFor(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.entries) == 1
	})
	s.Disable()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.entries[0] != "news:ok" {
		t.Errorf("recorded %q, want news:ok", rec.entries[0])
	}
}

func TestDisableDuringInFlightCycleReturns(t *testing.T) {
	// The loader honors ctx cancellation, so Disable must not hang on it.
	loader := &countingLoader{block: make(chan struct{})}
	s := NewScheduler(time.Hour, nil, nil, nil)
	s.Register("signals", loader.fn)
	s.SetSection("signals")

	s.Enable(context.Background())
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Disable()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Disable did not return while a cycle was in flight")
	}
}
