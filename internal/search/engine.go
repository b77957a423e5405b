// Package search combines instant local symbol-index results with debounced
// remote search results for the same query, deduplicates them, and publishes
// a single ordered list. Out-of-order network responses never clobber a
// newer query: each query gets a generation number and a remote response is
// applied only while its generation is still current.
package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"signalboard/internal/domain"
)

// Searcher issues the remote search call. *api.Client satisfies it.
type Searcher interface {
	SearchStocks(ctx context.Context, query string, limit int) ([]domain.Stock, error)
}

// LocalIndex is the synchronous local search source.
type LocalIndex interface {
	Search(query string) []domain.SearchResult
}

// Renderer receives display updates. Implementations bind the engine to
// whatever surface shows results; the engine itself is display-free.
type Renderer interface {
	// ShowResults replaces the displayed list. Never called with an empty
	// list.
	ShowResults(results []domain.SearchResult)
	// ShowNoResults renders the non-selectable placeholder row.
	ShowNoResults(query string)
	// HidePanel removes the results panel entirely (empty query or cancel).
	HidePanel()
	// SetSelection highlights the given index, -1 for none.
	SetSelection(index int)
	// Navigate opens the detail view for a committed symbol.
	Navigate(symbol string)
}

// Config tunes the engine.
type Config struct {
	// Debounce is the quiet period before the remote call fires.
	// Default: 100ms.
	Debounce time.Duration
	// RemoteLimit is the result cap requested from the backend. Default: 10.
	RemoteLimit int
}

func (c *Config) defaults() {
	if c.Debounce <= 0 {
		c.Debounce = 100 * time.Millisecond
	}
	if c.RemoteLimit <= 0 {
		c.RemoteLimit = 10
	}
}

// Engine is the search merge engine. All exported methods are safe for
// concurrent use; display updates are emitted in state order.
type Engine struct {
	local    LocalIndex
	remote   Searcher
	renderer Renderer
	cfg      Config
	log      *slog.Logger

	mu        sync.Mutex
	gen       uint64 // generation of the latest accepted query
	query     string
	results   []domain.SearchResult
	selected  int
	timer     *time.Timer
	renderSeq uint64 // sequence of the latest display-affecting transition

	pubMu     sync.Mutex
	published uint64
}

// NewEngine creates an engine publishing to the given renderer.
func NewEngine(local LocalIndex, remote Searcher, renderer Renderer, cfg Config, log *slog.Logger) *Engine {
	cfg.defaults()
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		local:    local,
		remote:   remote,
		renderer: renderer,
		cfg:      cfg,
		log:      log,
		selected: -1,
	}
}

// QueryChanged handles one input event: it renders local results for the new
// query synchronously and schedules a debounced remote search. Any remote
// response belonging to an earlier query is discarded on arrival.
func (e *Engine) QueryChanged(query string) {
	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.query = query
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}

	if strings.TrimSpace(query) == "" {
		e.results = nil
		e.selected = -1
		e.renderSeq++
		seq := e.renderSeq
		e.mu.Unlock()
		e.publish(seq, e.renderer.HidePanel)
		return
	}

	e.results = e.local.Search(query)
	e.selected = -1
	results := e.results
	e.renderSeq++
	seq := e.renderSeq
	e.timer = time.AfterFunc(e.cfg.Debounce, func() {
		e.remoteSearch(gen, query)
	})
	e.mu.Unlock()

	e.render(seq, query, results)
}

// remoteSearch issues the backend call for a query generation and merges the
// response if that generation is still current.
func (e *Engine) remoteSearch(gen uint64, query string) {
	remote, err := e.remote.SearchStocks(context.Background(), query, e.cfg.RemoteLimit)
	if err != nil {
		// Local results are already on screen; the next keystroke retries.
		e.log.Debug("remote search failed", "query", query, "error", err)
		return
	}
	e.applyRemote(gen, query, remote)
}

// applyRemote merges remote results into the displayed list, local-first:
// remote entries are appended only for symbols not already present, so local
// metadata wins on conflicts. Stale generations are dropped silently.
func (e *Engine) applyRemote(gen uint64, query string, remote []domain.Stock) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		e.log.Debug("stale search response discarded", "query", query)
		return
	}

	seen := make(map[string]struct{}, len(e.results))
	for _, r := range e.results {
		seen[r.Symbol] = struct{}{}
	}

	merged := e.results
	for _, s := range remote {
		s.Symbol = domain.NormalizeSymbol(s.Symbol)
		if s.Symbol == "" {
			continue
		}
		if _, ok := seen[s.Symbol]; ok {
			continue
		}
		if len(merged) >= maxDisplayed {
			break
		}
		seen[s.Symbol] = struct{}{}
		merged = append(merged, domain.SearchResult{Stock: s, MatchRank: domain.RankRemote})
	}

	e.results = merged
	e.selected = -1
	e.renderSeq++
	seq := e.renderSeq
	e.mu.Unlock()

	e.render(seq, query, merged)
}

// maxDisplayed caps the merged list, matching the local index cap.
const maxDisplayed = 8

// render publishes the list, or the placeholder when nothing matched.
func (e *Engine) render(seq uint64, query string, results []domain.SearchResult) {
	e.publish(seq, func() {
		if len(results) == 0 {
			e.renderer.ShowNoResults(query)
			return
		}
		e.renderer.ShowResults(results)
		e.renderer.SetSelection(-1)
	})
}

// publish emits one display update. Updates carry the sequence of the state
// transition that produced them and are dropped when a newer one has already
// reached the renderer, so display order always matches state order.
func (e *Engine) publish(seq uint64, fn func()) {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	if seq < e.published {
		return
	}
	e.published = seq
	fn()
}

// MoveSelection shifts keyboard selection by delta (ArrowUp = -1,
// ArrowDown = +1), clamped to the list bounds. No-op on an empty list.
func (e *Engine) MoveSelection(delta int) {
	e.mu.Lock()
	if len(e.results) == 0 {
		e.mu.Unlock()
		return
	}
	idx := e.selected + delta
	if idx < 0 {
		idx = 0
	}
	if idx > len(e.results)-1 {
		idx = len(e.results) - 1
	}
	e.selected = idx
	e.renderSeq++
	seq := e.renderSeq
	e.mu.Unlock()

	e.publish(seq, func() { e.renderer.SetSelection(idx) })
}

// Commit confirms the current selection (Enter). With no explicit selection
// it commits the first result; with no results it is a no-op. Committing
// clears the input state and triggers detail-view navigation.
func (e *Engine) Commit() {
	e.mu.Lock()
	if len(e.results) == 0 {
		e.mu.Unlock()
		return
	}
	idx := e.selected
	if idx < 0 {
		idx = 0
	}
	symbol := e.results[idx].Symbol
	e.reset()
	e.renderSeq++
	seq := e.renderSeq
	e.mu.Unlock()

	e.publish(seq, func() {
		e.renderer.HidePanel()
		e.renderer.Navigate(symbol)
	})
}

// Cancel dismisses the results panel (Escape) without navigating.
func (e *Engine) Cancel() {
	e.mu.Lock()
	e.reset()
	e.renderSeq++
	seq := e.renderSeq
	e.mu.Unlock()

	e.publish(seq, e.renderer.HidePanel)
}

// reset clears query state and bumps the generation so any in-flight remote
// response is discarded on arrival. Caller holds e.mu.
func (e *Engine) reset() {
	e.gen++
	e.query = ""
	e.results = nil
	e.selected = -1
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// Selection returns the current selection index, -1 for none.
func (e *Engine) Selection() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Results returns a copy of the currently displayed list.
func (e *Engine) Results() []domain.SearchResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.SearchResult, len(e.results))
	copy(out, e.results)
	return out
}
