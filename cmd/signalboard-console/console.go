package main

import (
	"context"
	"fmt"

	"signalboard/internal/api"
	"signalboard/internal/domain"
	"signalboard/internal/watchlist"
)

// consoleRenderer prints search engine output to stdout.
type consoleRenderer struct {
	cache *watchlist.Cache
}

func (r *consoleRenderer) ShowResults(results []domain.SearchResult) {
	for i, res := range results {
		star := " "
		if r.cache.Contains(res.Symbol) {
			star = "*"
		}
		fmt.Printf("  %d. %s %-12s %s\n", i+1, star, res.Symbol, res.Name)
	}
}

func (r *consoleRenderer) ShowNoResults(query string) {
	fmt.Printf("  no matches for %q\n", query)
}

func (r *consoleRenderer) HidePanel() {}

func (r *consoleRenderer) SetSelection(index int) {
	if index >= 0 {
		fmt.Printf("  > row %d\n", index+1)
	}
}

func (r *consoleRenderer) Navigate(symbol string) {
	fmt.Println("  open:", symbol)
}

// consoleBinding mirrors star-control state changes as console output.
type consoleBinding struct{}

func (consoleBinding) SetStarred(symbol string, starred bool) {
	if starred {
		fmt.Println("  *", symbol)
	} else {
		fmt.Println("   ", symbol)
	}
}

func (consoleBinding) SetEnabled(string, bool) {}

// consoleNotifier surfaces refresh failures without interrupting input.
type consoleNotifier struct{}

func (consoleNotifier) Notify(message string) {
	fmt.Println("  !", message)
}

// sectionPrinter holds the refresh loaders; each fetches its section and
// prints a compact summary.
type sectionPrinter struct {
	client *api.Client
}

func (p *sectionPrinter) signals(ctx context.Context) error {
	signals, err := p.client.GetLiveSignals(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  [signals] %d live\n", len(signals))
	for i, s := range signals {
		if i == 5 {
			break
		}
		fmt.Printf("    %-12s %-4s %.0f%% %s\n", s.Symbol, s.Action, s.Confidence*100, s.Source)
	}
	return nil
}

func (p *sectionPrinter) news(ctx context.Context) error {
	news, err := p.client.GetNews(ctx, 10)
	if err != nil {
		return err
	}
	fmt.Printf("  [news] %d items\n", len(news))
	for i, n := range news {
		if i == 5 {
			break
		}
		fmt.Printf("    %s (%s)\n", n.Title, n.Source)
	}
	return nil
}

func (p *sectionPrinter) recommendations(ctx context.Context) error {
	recs, err := p.client.GetRecommendations(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  [recommendations] %d picks\n", len(recs))
	for i, rec := range recs {
		if i == 5 {
			break
		}
		fmt.Printf("    %-12s %-4s target %.2f stop %.2f\n", rec.Symbol, rec.Action, rec.Target, rec.StopLoss)
	}
	return nil
}

func (p *sectionPrinter) market(ctx context.Context) error {
	overview, err := p.client.GetMarketOverview(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  [market] %s, %d advances / %d declines\n", overview.Mood, overview.Advances, overview.Declines)
	for _, ix := range overview.Indices {
		fmt.Printf("    %-12s %10.2f %+.2f%%\n", ix.Name, ix.Value, ix.ChangePct)
	}
	return nil
}

func (p *sectionPrinter) stats(ctx context.Context) error {
	stats, err := p.client.GetDashboardStats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  [stats] %d messages, %d signals, %d news, %d recommendations\n",
		stats.Messages, stats.Signals, stats.NewsItems, stats.Recommendations)
	return nil
}
