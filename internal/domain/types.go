// Package domain defines the shared data types exchanged between the
// signalboard client components and the backend API.
package domain

import "strings"

// Stock is one tradable instrument in the searchable universe. The full set
// is fetched once per session and cached; symbols are always uppercase.
type Stock struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
}

// Match rank tiers, lowest sorts first. Remote-only additions carry RankRemote
// so locally ranked results always precede them.
const (
	RankExact = iota
	RankPrefix
	RankSubstring
	RankName
	RankRemote
)

// SearchResult is a Stock annotated with the rank tier at which it matched a
// query. Transient: rebuilt on every keystroke, never persisted.
type SearchResult struct {
	Stock
	MatchRank int `json:"match_rank"`
}

// NormalizeSymbol uppercases and trims a user-supplied symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Signal is one live trading signal row from the backend.
type Signal struct {
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	Time       string  `json:"time"`
}

// NewsItem is one news headline row from the backend.
type NewsItem struct {
	Title     string `json:"title"`
	Source    string `json:"source"`
	URL       string `json:"url"`
	Published string `json:"published"`
}

// Recommendation is one generated stock pick from the backend.
type Recommendation struct {
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Target     float64 `json:"target"`
	StopLoss   float64 `json:"stop_loss"`
	Confidence float64 `json:"confidence"`
	ValidUntil string  `json:"valid_until"`
}

// MarketOverview summarizes index levels and breadth for the market section.
type MarketOverview struct {
	Indices  []IndexQuote `json:"indices"`
	Mood     string       `json:"mood"`
	Advances int          `json:"advances"`
	Declines int          `json:"declines"`
}

// IndexQuote is a single market index level.
type IndexQuote struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	ChangePct float64 `json:"change_pct"`
}

// DashboardStats is the headline counters block for the stats section.
type DashboardStats struct {
	Messages        int `json:"messages"`
	Signals         int `json:"signals"`
	NewsItems       int `json:"news_items"`
	Recommendations int `json:"recommendations"`
}
