// Package watchlist mirrors server-side watchlist membership as a local set,
// mutated optimistically on toggle: the UI flips immediately, the backend is
// asked to confirm, and a failure rolls the flip back. At most one toggle per
// symbol is in flight at any time.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"signalboard/internal/api"
	"signalboard/internal/domain"
)

// ErrToggleInFlight is returned when a toggle for a symbol is requested while
// an earlier toggle for the same symbol has not yet settled.
var ErrToggleInFlight = errors.New("toggle already in flight for symbol")

// Backend is the server side of the watchlist. *api.Client satisfies it.
type Backend interface {
	GetWatchlist(ctx context.Context) ([]domain.Stock, error)
	AddToWatchlist(ctx context.Context, symbol string) error
	RemoveFromWatchlist(ctx context.Context, symbol string) error
}

// Binding receives UI affordance updates for a symbol's star control. All
// callbacks fire in state order: optimistic star, then either nothing
// (confirmed) or the reverted star (rolled back). May be nil.
type Binding interface {
	// SetStarred updates the star affordance.
	SetStarred(symbol string, starred bool)
	// SetEnabled disables the control while a toggle is in flight.
	SetEnabled(symbol string, enabled bool)
}

// Recorder persists toggle outcomes to the session log. May be nil.
type Recorder interface {
	RecordToggle(ctx context.Context, symbol, action string, err error, elapsed time.Duration)
}

// Cache is the local membership set.
type Cache struct {
	backend  Backend
	binding  Binding
	recorder Recorder
	log      *slog.Logger

	mu       sync.Mutex
	members  map[string]struct{}
	inFlight map[string]struct{}
}

// NewCache creates an empty cache. binding and recorder may be nil.
func NewCache(backend Backend, binding Binding, recorder Recorder, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		backend:  backend,
		binding:  binding,
		recorder: recorder,
		log:      log,
		members:  make(map[string]struct{}),
		inFlight: make(map[string]struct{}),
	}
}

// Hydrate fetches current membership from the backend and replaces the local
// set entirely. Safe to call again; the last hydrate wins.
func (c *Cache) Hydrate(ctx context.Context) error {
	stocks, err := c.backend.GetWatchlist(ctx)
	if err != nil {
		return fmt.Errorf("hydrating watchlist: %w", err)
	}

	members := make(map[string]struct{}, len(stocks))
	for _, s := range stocks {
		sym := domain.NormalizeSymbol(s.Symbol)
		if sym != "" {
			members[sym] = struct{}{}
		}
	}

	c.mu.Lock()
	c.members = members
	c.mu.Unlock()

	c.log.Info("watchlist hydrated", "symbols", len(members))
	return nil
}

// Contains reports membership, case-insensitively.
func (c *Cache) Contains(symbol string) bool {
	sym := domain.NormalizeSymbol(symbol)
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.members[sym]
	return ok
}

// Symbols returns the current membership, unordered.
func (c *Cache) Symbols() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.members))
	for sym := range c.members {
		out = append(out, sym)
	}
	return out
}

// Toggle flips membership for a symbol: local state and the bound UI update
// immediately, then the backend is asked to confirm. On failure both are
// reverted and the error returned for surfacing. A second toggle for the
// same symbol while one is outstanding is rejected with ErrToggleInFlight.
func (c *Cache) Toggle(ctx context.Context, symbol string) error {
	sym := domain.NormalizeSymbol(symbol)
	if sym == "" {
		return api.ErrEmptySymbol
	}

	c.mu.Lock()
	if _, busy := c.inFlight[sym]; busy {
		c.mu.Unlock()
		return ErrToggleInFlight
	}
	c.inFlight[sym] = struct{}{}

	_, wasMember := c.members[sym]
	if wasMember {
		delete(c.members, sym)
	} else {
		c.members[sym] = struct{}{}
	}
	c.mu.Unlock()

	// Optimistic UI update before the network settles.
	c.setStarred(sym, !wasMember)
	c.setEnabled(sym, false)

	// Guaranteed cleanup: the in-flight guard and the control are released
	// on every path.
	defer func() {
		c.mu.Lock()
		delete(c.inFlight, sym)
		c.mu.Unlock()
		c.setEnabled(sym, true)
	}()

	action := "add"
	if wasMember {
		action = "remove"
	}

	start := time.Now()
	var err error
	if wasMember {
		err = c.backend.RemoveFromWatchlist(ctx, sym)
	} else {
		err = c.backend.AddToWatchlist(ctx, sym)
	}
	c.record(ctx, sym, action, err, time.Since(start))

	if err != nil {
		// Roll back to the pre-toggle value.
		c.mu.Lock()
		if wasMember {
			c.members[sym] = struct{}{}
		} else {
			delete(c.members, sym)
		}
		c.mu.Unlock()

		c.setStarred(sym, wasMember)
		c.log.Warn("watchlist toggle rolled back", "symbol", sym, "action", action, "error", err)
		return fmt.Errorf("toggling %s: %w", sym, err)
	}

	return nil
}

func (c *Cache) setStarred(symbol string, starred bool) {
	if c.binding != nil {
		c.binding.SetStarred(symbol, starred)
	}
}

func (c *Cache) setEnabled(symbol string, enabled bool) {
	if c.binding != nil {
		c.binding.SetEnabled(symbol, enabled)
	}
}

func (c *Cache) record(ctx context.Context, symbol, action string, err error, elapsed time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordToggle(ctx, symbol, action, err, elapsed)
	}
}
