package symbols

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"signalboard/internal/domain"
)

// stockRecord is the parquet schema for the symbol universe snapshot.
type stockRecord struct {
	Symbol string `parquet:"symbol"`
	Name   string `parquet:"name"`
	Sector string `parquet:"sector"`
}

// SaveSnapshot writes the cached universe to a parquet file so the next
// session can warm-start before the network answers. A no-op when the index
// holds nothing.
func (ix *Index) SaveSnapshot(path string) error {
	ix.mu.Lock()
	stocks := ix.stocks
	ix.mu.Unlock()

	if len(stocks) == 0 {
		return nil
	}

	records := make([]stockRecord, len(stocks))
	for i, s := range stocks {
		records[i] = stockRecord{Symbol: s.Symbol, Name: s.Name, Sector: s.Sector}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	return nil
}

// WarmFromSnapshot populates the index from a previously saved snapshot
// without marking it loaded, so the next Load still fetches the
// authoritative universe and replaces it. Warming never overrides data
// already present.
func (ix *Index) WarmFromSnapshot(path string) error {
	records, err := parquet.ReadFile[stockRecord](path)
	if err != nil {
		return fmt.Errorf("reading snapshot %s: %w", path, err)
	}

	stocks := make([]domain.Stock, len(records))
	for i, r := range records {
		stocks[i] = domain.Stock{Symbol: r.Symbol, Name: r.Name, Sector: r.Sector}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.loaded || len(ix.stocks) > 0 {
		return nil
	}
	ix.stocks = normalize(stocks)
	ix.log.Info("symbol universe warmed from snapshot", "symbols", len(ix.stocks))
	return nil
}
