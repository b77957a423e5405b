// Package symbols maintains an in-memory snapshot of the tradable-symbol
// universe for zero-latency search, with an at-most-once network load and an
// optional parquet warm-start snapshot.
package symbols

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"signalboard/internal/domain"
)

// MaxResults caps the search result list.
const MaxResults = 8

// Lister fetches the full symbol universe. *api.Client satisfies it.
type Lister interface {
	ListStocks(ctx context.Context) ([]domain.Stock, error)
}

// Index is the local symbol universe. Load populates it at most once per
// session; Search is pure and synchronous over whatever is cached.
type Index struct {
	lister Lister
	log    *slog.Logger

	mu      sync.Mutex
	stocks  []domain.Stock // sorted by symbol
	loaded  bool           // authoritative load completed
	loading bool
}

// NewIndex creates an empty index backed by the given lister.
func NewIndex(lister Lister, log *slog.Logger) *Index {
	if log == nil {
		log = slog.Default()
	}
	return &Index{lister: lister, log: log}
}

// Load fetches the symbol universe from the backend. Subsequent calls are
// no-ops once a load has succeeded or while one is in progress. A failed
// load leaves the index unchanged and Load retriable.
func (ix *Index) Load(ctx context.Context) error {
	ix.mu.Lock()
	if ix.loaded || ix.loading {
		ix.mu.Unlock()
		return nil
	}
	ix.loading = true
	ix.mu.Unlock()

	stocks, err := ix.lister.ListStocks(ctx)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.loading = false
	if err != nil {
		return fmt.Errorf("loading symbol universe: %w", err)
	}

	ix.stocks = normalize(stocks)
	ix.loaded = true
	ix.log.Info("symbol universe loaded", "symbols", len(ix.stocks))
	return nil
}

// Loaded reports whether an authoritative load has completed.
func (ix *Index) Loaded() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.loaded
}

// Len returns the number of cached symbols.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.stocks)
}

// Search ranks cached symbols against the query. It never fails: an empty
// or whitespace-only query, or an unloaded index, yields an empty list.
//
// Rank tiers: exact symbol match, symbol prefix, symbol substring, name
// substring. A symbol appears once at the first tier it matches; ties within
// a tier are symbol-alphabetical; at most MaxResults entries are returned.
func (ix *Index) Search(query string) []domain.SearchResult {
	q := domain.NormalizeSymbol(query)
	if q == "" {
		return nil
	}

	ix.mu.Lock()
	stocks := ix.stocks
	ix.mu.Unlock()

	// stocks is sorted by symbol, so per-tier buckets stay alphabetical.
	var tiers [4][]domain.SearchResult
	for _, s := range stocks {
		rank := matchRank(s, q)
		if rank < 0 {
			continue
		}
		tiers[rank] = append(tiers[rank], domain.SearchResult{Stock: s, MatchRank: rank})
	}

	results := make([]domain.SearchResult, 0, MaxResults)
	for _, tier := range tiers {
		for _, r := range tier {
			if len(results) == MaxResults {
				return results
			}
			results = append(results, r)
		}
	}
	return results
}

// matchRank returns the best rank tier for a stock against an uppercased
// query, or -1 when it does not match.
func matchRank(s domain.Stock, q string) int {
	switch {
	case s.Symbol == q:
		return domain.RankExact
	case strings.HasPrefix(s.Symbol, q):
		return domain.RankPrefix
	case strings.Contains(s.Symbol, q):
		return domain.RankSubstring
	case strings.Contains(strings.ToUpper(s.Name), q):
		return domain.RankName
	default:
		return -1
	}
}

// normalize uppercases symbols, drops empties and duplicates, and sorts.
func normalize(stocks []domain.Stock) []domain.Stock {
	seen := make(map[string]struct{}, len(stocks))
	out := make([]domain.Stock, 0, len(stocks))
	for _, s := range stocks {
		s.Symbol = domain.NormalizeSymbol(s.Symbol)
		if s.Symbol == "" {
			continue
		}
		if _, ok := seen[s.Symbol]; ok {
			continue
		}
		seen[s.Symbol] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
