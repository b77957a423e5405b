package symbols

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"signalboard/internal/domain"
)

type fakeLister struct {
	stocks []domain.Stock
	err    error
	calls  int
}

func (f *fakeLister) ListStocks(context.Context) ([]domain.Stock, error) {
	f.calls++
	return f.stocks, f.err
}

func testUniverse() []domain.Stock {
	return []domain.Stock{
		{Symbol: "RELIANCE", Name: "Reliance Industries", Sector: "Energy"},
		{Symbol: "RELAXO", Name: "Relaxo Footwears", Sector: "Consumer"},
		{Symbol: "TCS", Name: "Tata Consultancy Services", Sector: "IT"},
		{Symbol: "INFY", Name: "Infosys", Sector: "IT"},
		{Symbol: "HDFCBANK", Name: "HDFC Bank", Sector: "Financials"},
		{Symbol: "AXISBANK", Name: "Axis Bank", Sector: "Financials"},
	}
}

func loadedIndex(t *testing.T, stocks []domain.Stock) *Index {
	t.Helper()
	ix := NewIndex(&fakeLister{stocks: stocks}, nil)
	if err := ix.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return ix
}

func symbolsOf(results []domain.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Symbol
	}
	return out
}

func TestLoadIsAtMostOnce(t *testing.T) {
	lister := &fakeLister{stocks: testUniverse()}
	ix := NewIndex(lister, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := ix.Load(ctx); err != nil {
			t.Fatalf("Load #%d: %v", i, err)
		}
	}
	if lister.calls != 1 {
		t.Errorf("lister called %d times, want 1", lister.calls)
	}
}

func TestLoadFailureLeavesIndexEmptyAndRetriable(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection refused")}
	ix := NewIndex(lister, nil)
	ctx := context.Background()

	if err := ix.Load(ctx); err == nil {
		t.Fatal("Load succeeded despite lister failure")
	}
	if got := ix.Search("TCS"); len(got) != 0 {
		t.Errorf("Search on failed index = %v, want empty", got)
	}

	// A later successful load recovers.
	lister.err = nil
	lister.stocks = testUniverse()
	if err := ix.Load(ctx); err != nil {
		t.Fatalf("Load after recovery: %v", err)
	}
	if got := ix.Search("TCS"); len(got) != 1 {
		t.Errorf("Search after recovery = %v", got)
	}
}

func TestSearchRanking(t *testing.T) {
	ix := loadedIndex(t, testUniverse())

	tests := []struct {
		query string
		want  []string
	}{
		// Both prefix matches, alphabetical within the tier.
		{"REL", []string{"RELAXO", "RELIANCE"}},
		// Exact match ranks first even with prefix competitors.
		{"TCS", []string{"TCS"}},
		// Name substring.
		{"TATA", []string{"TCS"}},
		// Symbol substring ranks above name-only matches.
		{"BANK", []string{"AXISBANK", "HDFCBANK"}},
		// Case-insensitive.
		{"rel", []string{"RELAXO", "RELIANCE"}},
		// No match.
		{"XYZ", nil},
		// Empty and whitespace-only.
		{"", nil},
		{"   ", nil},
	}

	for _, tt := range tests {
		got := symbolsOf(ix.Search(tt.query))
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestSearchExactMatchRanksFirst(t *testing.T) {
	universe := append(testUniverse(),
		domain.Stock{Symbol: "REL", Name: "Reliance Capital", Sector: "Financials"})
	ix := loadedIndex(t, universe)

	got := symbolsOf(ix.Search("REL"))
	if len(got) == 0 || got[0] != "REL" {
		t.Errorf("Search(REL) = %v, want exact match first", got)
	}
}

func TestSearchCapAndUniqueness(t *testing.T) {
	var universe []domain.Stock
	for i := 0; i < 20; i++ {
		universe = append(universe, domain.Stock{
			Symbol: fmt.Sprintf("ZED%02d", i),
			Name:   fmt.Sprintf("Zed Corp %02d", i),
		})
	}
	ix := loadedIndex(t, universe)

	got := ix.Search("ZED")
	if len(got) != MaxResults {
		t.Fatalf("got %d results, want cap of %d", len(got), MaxResults)
	}
	seen := make(map[string]bool)
	for _, r := range got {
		if seen[r.Symbol] {
			t.Errorf("duplicate symbol %s in results", r.Symbol)
		}
		seen[r.Symbol] = true
	}
}

func TestSearchRankTiersOrdered(t *testing.T) {
	ix := loadedIndex(t, testUniverse())
	got := ix.Search("RELIANCE")
	if len(got) == 0 {
		t.Fatal("no results")
	}
	for i := 1; i < len(got); i++ {
		if got[i].MatchRank < got[i-1].MatchRank {
			t.Errorf("results out of tier order: %v", got)
		}
	}
	if got[0].MatchRank != domain.RankExact {
		t.Errorf("exact query rank = %d, want %d", got[0].MatchRank, domain.RankExact)
	}
}

func TestNormalizeDedupsAndUppercases(t *testing.T) {
	ix := loadedIndex(t, []domain.Stock{
		{Symbol: "tcs", Name: "Tata Consultancy Services"},
		{Symbol: "TCS", Name: "Duplicate"},
		{Symbol: "  ", Name: "Blank"},
	})
	if ix.Len() != 1 {
		t.Fatalf("Len = %d, want 1", ix.Len())
	}
	got := ix.Search("tcs")
	if len(got) != 1 || got[0].Symbol != "TCS" {
		t.Errorf("Search(tcs) = %v", got)
	}
}

func TestSnapshotWarmStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.parquet")

	ix := loadedIndex(t, testUniverse())
	if err := ix.SaveSnapshot(path); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	// Fresh index warms from the snapshot without being marked loaded.
	lister := &fakeLister{stocks: testUniverse()}
	warm := NewIndex(lister, nil)
	if err := warm.WarmFromSnapshot(path); err != nil {
		t.Fatalf("WarmFromSnapshot: %v", err)
	}
	if warm.Loaded() {
		t.Error("warm start marked index as loaded")
	}
	if got := symbolsOf(warm.Search("REL")); len(got) != 2 {
		t.Errorf("Search on warmed index = %v", got)
	}

	// Authoritative load still fetches and replaces.
	if err := warm.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if lister.calls != 1 {
		t.Errorf("lister called %d times after warm start, want 1", lister.calls)
	}
	if !warm.Loaded() {
		t.Error("index not loaded after authoritative load")
	}
}

func TestSaveSnapshotEmptyIsNoop(t *testing.T) {
	ix := NewIndex(&fakeLister{}, nil)
	path := filepath.Join(t.TempDir(), "universe.parquet")
	if err := ix.SaveSnapshot(path); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	// Nothing cached, so no file should have been written.
	if err := ix.WarmFromSnapshot(path); err == nil {
		t.Error("WarmFromSnapshot succeeded on a snapshot that should not exist")
	}
}
